package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"notify_client/internal/config"
)

// New builds the process logger. Release mode writes JSON to stdout and a
// rotated file; anything else gets the development console logger.
func New(cfg *config.Config) (*zap.Logger, error) {
	if os.Getenv("GIN_MODE") != "release" {
		return zap.NewDevelopment()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, err
	}
	level := zapcore.InfoLevel
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if parsed, err := zapcore.ParseLevel(v); err == nil {
			level = parsed
		}
	}
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.NewMultiWriteSyncer(
			zapcore.AddSync(os.Stdout),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   cfg.LogFile,
				MaxSize:    20,
				MaxBackups: 3,
				MaxAge:     7,
				Compress:   true,
			}),
		),
		level,
	)
	return zap.New(core).With(zap.Int64("user_id", cfg.UserID)), nil
}
