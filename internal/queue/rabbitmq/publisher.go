package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"notify_client/internal/alert"
	"notify_client/internal/config"
	"notify_client/internal/telemetry"
)

// ToastPublisher publishes alerts to the exchange under
// "{prefix}.{priority}" for desktop toast consumers.
type ToastPublisher struct {
	url    string
	logger *zap.Logger

	exchange string
	prefix   string
}

// NewToastPublisher falls back to logging toasts when no broker is configured.
func NewToastPublisher(cfg *config.Config, logger *zap.Logger) alert.Notifier {
	if cfg.RabbitMQURL == "" {
		return alert.NewLogNotifier(logger)
	}
	return &ToastPublisher{
		url:      cfg.RabbitMQURL,
		logger:   logger,
		exchange: cfg.RabbitExchange,
		prefix:   cfg.ToastRoutingPrefix,
	}
}

func (p *ToastPublisher) routingKey(a alert.Alert) string {
	priority := strings.ToLower(string(a.Priority))
	if priority == "" {
		priority = "none"
	}
	return p.prefix + "." + priority
}

func (p *ToastPublisher) Notify(ctx context.Context, a alert.Alert) error {
	routingKey := p.routingKey(a)
	ctx, span := telemetry.Tracer().Start(ctx, "rabbitmq.publish_toast")
	span.SetAttributes(
		attribute.String("messaging.system", "rabbitmq"),
		attribute.String("messaging.destination", p.exchange),
		attribute.String("messaging.rabbitmq.routing_key", routingKey),
		attribute.Int64("notification.id", a.NotificationID),
	)
	defer span.End()

	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal toast: %w", err)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.ExchangeDeclare(
		p.exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	headers := injectTrace(ctx)

	if err := ch.PublishWithContext(ctx,
		p.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Headers:     headers,
			Body:        body,
		},
	); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		p.logger.Error("rabbitmq toast publish failed", zap.Error(err))
		return err
	}

	return nil
}
