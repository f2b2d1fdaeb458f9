package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	TransportWebSocket = "websocket"
	TransportAMQP      = "amqp"

	CredentialEnv     = "env"
	CredentialKeyring = "keyring"
)

type Config struct {
	HTTPAddr string
	LogFile  string

	UserID        int64
	APIBaseURL    string
	PushURL       string
	PushTransport string

	RabbitMQURL        string
	RabbitExchange     string
	RabbitUsername     string
	ToastRoutingPrefix string

	CredentialSource string
	AuthToken        string
	KeyringService   string
	KeyringKey       string
	KeyringDir       string

	MaxRetries         int
	ReconnectBaseDelay time.Duration
	ReconnectDelay     time.Duration

	SSEHeartbeat    time.Duration
	OTELServiceName string
	OTLPEndpoint    string
	OTLPInsecure    bool
}

func New() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:           ":8090",
		LogFile:            "logs/notifyd.log",
		PushURL:            "ws://localhost:8080/ws/notifications",
		PushTransport:      TransportWebSocket,
		RabbitExchange:     "notifications",
		RabbitUsername:     "notifyd",
		ToastRoutingPrefix: "toast",
		CredentialSource:   CredentialEnv,
		KeyringService:     "notifyd",
		KeyringKey:         "bearer-token",
		KeyringDir:         "~/.config/notifyd/credentials",
		MaxRetries:         5,
		ReconnectBaseDelay: time.Second,
		ReconnectDelay:     500 * time.Millisecond,
		SSEHeartbeat:       15 * time.Second,
		OTELServiceName:    "notifyd",
		OTLPInsecure:       true,
	}

	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	} else if port := os.Getenv("PORT"); port != "" {
		cfg.HTTPAddr = ":" + port
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.LogFile = v
	}

	if v := os.Getenv("NOTIFY_USER_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.UserID = n
		}
	}
	cfg.APIBaseURL = os.Getenv("NOTIFY_API_URL")
	if v := os.Getenv("NOTIFY_PUSH_URL"); v != "" {
		cfg.PushURL = v
	}
	if v := os.Getenv("PUSH_TRANSPORT"); v != "" {
		cfg.PushTransport = v
	}

	cfg.RabbitMQURL = os.Getenv("RABBITMQ_URL")
	if v := os.Getenv("RABBITMQ_EXCHANGE"); v != "" {
		cfg.RabbitExchange = v
	}
	if v := os.Getenv("RABBITMQ_USERNAME"); v != "" {
		cfg.RabbitUsername = v
	}
	if v := os.Getenv("TOAST_ROUTING_PREFIX"); v != "" {
		cfg.ToastRoutingPrefix = v
	}

	if v := os.Getenv("CREDENTIAL_SOURCE"); v != "" {
		cfg.CredentialSource = v
	}
	cfg.AuthToken = os.Getenv("AUTH_TOKEN")
	if v := os.Getenv("KEYRING_SERVICE"); v != "" {
		cfg.KeyringService = v
	}
	if v := os.Getenv("KEYRING_KEY"); v != "" {
		cfg.KeyringKey = v
	}
	if v := os.Getenv("KEYRING_DIR"); v != "" {
		cfg.KeyringDir = v
	}

	if v := os.Getenv("RECONNECT_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxRetries = n
		}
	}
	if v := os.Getenv("RECONNECT_BASE_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ReconnectBaseDelay = time.Duration(n) * time.Millisecond
		}
	}
	if v := os.Getenv("RECONNECT_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.ReconnectDelay = time.Duration(n) * time.Millisecond
		}
	}

	if v := os.Getenv("SSE_HEARTBEAT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SSEHeartbeat = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		cfg.OTELServiceName = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTLPEndpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_INSECURE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.OTLPInsecure = b
		}
	}

	return cfg
}
