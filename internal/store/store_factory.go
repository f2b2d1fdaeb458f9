package store

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"notify_client/internal/config"
	"notify_client/internal/credential"
	"notify_client/internal/metrics"
	"notify_client/internal/repository"
	"notify_client/internal/store/memory"
	"notify_client/internal/store/rest"
)

// NewGateway returns the REST client, carrying trace context to the server,
// or the in-memory gateway when no API
// URL is configured.
func NewGateway(cfg *config.Config, creds credential.Provider, m *metrics.Metrics, logger *zap.Logger) repository.NotificationGateway {
	if cfg.APIBaseURL == "" {
		logger.Warn("NOTIFY_API_URL not set, using in-memory notification gateway")
		return memory.New(logger)
	}
	logger.Info("using REST notification gateway", zap.String("base_url", cfg.APIBaseURL))
	client := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	return rest.New(cfg.APIBaseURL, creds, logger, rest.WithMetrics(m), rest.WithHTTPClient(client))
}
