package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"notify_client/internal/config"
	"notify_client/internal/push"
	"notify_client/internal/telemetry"
)

// Transport receives pushes from a topic exchange. The bearer token is the
// AMQP password, so the broker authenticates it during connection open.
type Transport struct {
	url      string
	username string
	exchange string
	logger   *zap.Logger
}

func NewTransport(cfg *config.Config, logger *zap.Logger) *Transport {
	return &Transport{
		url:      cfg.RabbitMQURL,
		username: cfg.RabbitUsername,
		exchange: cfg.RabbitExchange,
		logger:   logger,
	}
}

func (t *Transport) Topic(userID int64) string {
	return fmt.Sprintf("notification.user.%d", userID)
}

func (t *Transport) Dial(ctx context.Context, token string) (push.Conn, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "rabbitmq.dial")
	span.SetAttributes(
		attribute.String("messaging.system", "rabbitmq"),
		attribute.String("messaging.destination", t.exchange),
	)
	defer span.End()

	u, err := url.Parse(t.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq url: %w", err)
	}
	username := t.username
	if username == "" && u.User != nil {
		username = u.User.Username()
	}
	u.User = url.UserPassword(username, token)

	conn, err := amqp.DialConfig(u.String(), amqp.Config{
		Properties: amqp.Table{"connection_name": "notifyd"},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		if errors.Is(err, amqp.ErrCredentials) {
			return nil, fmt.Errorf("rabbitmq dial: %w: %w", push.ErrRejected, err)
		}
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		span.RecordError(err)
		span.SetStatus(codes.Error, "channel failed")
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.Qos(10, 0, false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq qos: %w", err)
	}

	if err := ch.ExchangeDeclare(
		t.exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		_ = conn.Close()
		span.RecordError(err)
		span.SetStatus(codes.Error, "exchange declare failed")
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	if ctx.Err() != nil {
		_ = conn.Close()
		return nil, ctx.Err()
	}

	return &consumerConn{
		conn:     conn,
		ch:       ch,
		exchange: t.exchange,
		closed:   conn.NotifyClose(make(chan *amqp.Error, 1)),
		logger:   t.logger,
	}, nil
}

type consumerConn struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	exchange   string
	deliveries <-chan amqp.Delivery
	closed     chan *amqp.Error
	logger     *zap.Logger
}

// Subscribe binds a server-named exclusive queue to topic. The queue goes
// away with the connection.
func (c *consumerConn) Subscribe(_ context.Context, topic string) error {
	queueInfo, err := c.ch.QueueDeclare(
		"",
		false,
		true,
		true,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	if err := c.ch.QueueBind(
		queueInfo.Name,
		topic,
		c.exchange,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("rabbitmq queue bind: %w", err)
	}

	deliveries, err := c.ch.Consume(
		queueInfo.Name,
		"",
		false,
		true,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("rabbitmq consume: %w", err)
	}
	c.deliveries = deliveries

	c.logger.Info("RabbitMQ subscription started",
		zap.String("exchange", c.exchange),
		zap.String("queue", queueInfo.Name),
		zap.String("routing_key", topic),
	)
	return nil
}

func (c *consumerConn) Read(ctx context.Context) ([]byte, error) {
	if c.deliveries == nil {
		return nil, errors.New("rabbitmq: not subscribed")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case amqpErr, ok := <-c.closed:
		if ok && amqpErr != nil {
			return nil, fmt.Errorf("rabbitmq connection closed: %w", amqpErr)
		}
		return nil, errors.New("rabbitmq connection closed")
	case msg, ok := <-c.deliveries:
		if !ok {
			return nil, errors.New("rabbitmq deliveries closed")
		}
		return c.receive(ctx, msg), nil
	}
}

// receive acks the delivery and returns its body. Decoding is the caller's
// concern; a malformed body is still acked so it is not redelivered.
func (c *consumerConn) receive(ctx context.Context, msg amqp.Delivery) []byte {
	ctx = extractTrace(ctx, msg.Headers)
	_, span := telemetry.Tracer().Start(ctx, "rabbitmq.receive")
	span.SetAttributes(
		attribute.String("messaging.system", "rabbitmq"),
		attribute.String("messaging.destination", c.exchange),
		attribute.String("messaging.destination_kind", "exchange"),
		attribute.String("messaging.rabbitmq.routing_key", msg.RoutingKey),
		attribute.Int("messaging.message_payload_size_bytes", len(msg.Body)),
	)
	defer span.End()

	if err := msg.Ack(false); err != nil {
		span.RecordError(err)
		c.logger.Warn("rabbitmq ack failed", zap.Error(err))
	}
	return msg.Body
}

func (c *consumerConn) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn == nil || c.conn.IsClosed() {
		return nil
	}
	return c.conn.Close()
}
