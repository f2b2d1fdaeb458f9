package app

import (
	"fmt"

	"go.uber.org/zap"
	"notify_client/internal/config"
	"notify_client/internal/push"
	"notify_client/internal/push/ws"
	"notify_client/internal/queue/rabbitmq"
)

// NewTransport picks the push transport named by PUSH_TRANSPORT.
func NewTransport(cfg *config.Config, logger *zap.Logger) (push.Transport, error) {
	switch cfg.PushTransport {
	case "", config.TransportWebSocket:
		logger.Info("push transport: websocket", zap.String("url", cfg.PushURL))
		return ws.New(cfg.PushURL, logger), nil
	case config.TransportAMQP:
		if cfg.RabbitMQURL == "" {
			return nil, fmt.Errorf("push transport %q requires RABBITMQ_URL", cfg.PushTransport)
		}
		logger.Info("push transport: amqp", zap.String("exchange", cfg.RabbitExchange))
		return rabbitmq.NewTransport(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown push transport %q", cfg.PushTransport)
	}
}
