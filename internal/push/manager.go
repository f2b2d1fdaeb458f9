package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"notify_client/internal/config"
	"notify_client/internal/credential"
	"notify_client/internal/domain"
	"notify_client/internal/metrics"
	"notify_client/internal/model"
	"notify_client/internal/telemetry"
)

type Options struct {
	MaxRetries     int
	BaseDelay      time.Duration
	ReconnectDelay time.Duration
	Scheduler      Scheduler
	Metrics        *metrics.Metrics
}

// Manager keeps at most one live subscription. Each Connect/Reconnect starts
// a new session generation; timers and read loops from an older generation
// find the generation changed and do nothing.
//
// Listener callbacks for connection transitions run with the Manager's lock
// held, so a Listener must not call back into the Manager synchronously.
type Manager struct {
	transport Transport
	creds     credential.Provider
	log       *zap.Logger
	opts      Options

	mu       sync.Mutex
	userID   int64
	listener Listener
	machine  Machine
	gen      uint64
	ctx      context.Context
	cancel   context.CancelFunc
	conn     Conn
	timer    Timer
}

func New(transport Transport, creds credential.Provider, logger *zap.Logger, opts Options) *Manager {
	if opts.Scheduler == nil {
		opts.Scheduler = RealScheduler()
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Manager{
		transport: transport,
		creds:     creds,
		log:       logger,
		opts:      opts,
	}
}

func NewManager(cfg *config.Config, transport Transport, creds credential.Provider, m *metrics.Metrics, logger *zap.Logger) *Manager {
	return New(transport, creds, logger, Options{
		MaxRetries:     cfg.MaxRetries,
		BaseDelay:      cfg.ReconnectBaseDelay,
		ReconnectDelay: cfg.ReconnectDelay,
		Metrics:        m,
	})
}

// Machine returns the current reconnection state.
func (m *Manager) Machine() Machine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.machine
}

// Connect opens the channel for userID and reports to l. It is a no-op while
// a connection for the same user is being established or is up. The returned
// error is advisory; l has already been told.
func (m *Manager) Connect(ctx context.Context, userID int64, l Listener) error {
	if userID <= 0 {
		return domain.ErrNoUser
	}
	m.mu.Lock()
	if m.userID == userID && m.machine.State != model.Disconnected {
		m.mu.Unlock()
		return nil
	}
	old, _ := m.teardownLocked()
	m.userID = userID
	m.listener = l
	m.machine = m.machine.Reset()
	m.ctx, m.cancel = context.WithCancel(context.WithoutCancel(ctx))
	gen := m.gen
	m.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	return m.attempt(gen)
}

// Disconnect cancels any pending reconnection and closes the channel.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	conn, active := m.teardownLocked()
	if active {
		m.emitLocked(Status{State: model.Disconnected})
	}
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

// Reconnect tears the channel down, resets the retry counter and connects
// again after the fixed reconnect delay.
func (m *Manager) Reconnect(ctx context.Context) error {
	m.mu.Lock()
	if m.userID <= 0 || m.listener == nil {
		m.mu.Unlock()
		return domain.ErrNoUser
	}
	conn, active := m.teardownLocked()
	if active {
		m.emitLocked(Status{State: model.Disconnected})
	}
	m.machine = m.machine.Reset()
	m.ctx, m.cancel = context.WithCancel(context.WithoutCancel(ctx))
	gen := m.gen
	m.timer = m.opts.Scheduler.AfterFunc(m.opts.ReconnectDelay, func() { _ = m.retry(gen) })
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	m.log.Info("push channel reconnect requested", zap.Duration("delay", m.opts.ReconnectDelay))
	return nil
}

func (m *Manager) teardownLocked() (Conn, bool) {
	active := m.machine.State != model.Disconnected || m.timer != nil
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	conn := m.conn
	m.conn = nil
	m.machine.State = model.Disconnected
	return conn, active
}

func (m *Manager) emitLocked(s Status) {
	m.opts.Metrics.ConnectionState(int(s.State))
	if m.listener != nil {
		m.listener.OnConnectionChange(s)
	}
}

func (m *Manager) retry(gen uint64) error {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return nil
	}
	m.timer = nil
	m.mu.Unlock()
	return m.attempt(gen)
}

func (m *Manager) attempt(gen uint64) error {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return nil
	}
	m.machine = m.machine.Dialing()
	ctx, userID, retries := m.ctx, m.userID, m.machine.RetryCount
	m.emitLocked(Status{State: model.Connecting})
	m.mu.Unlock()

	ctx, span := telemetry.Tracer().Start(ctx, "push.connect")
	span.SetAttributes(
		attribute.Int64("enduser.id", userID),
		attribute.Int("push.retry_count", retries),
	)
	defer span.End()

	token, err := m.creds.Token(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "credential failed")
		m.log.Error("push channel credential failed", zap.Int64("user_id", userID), zap.Error(err))
		m.mu.Lock()
		if gen == m.gen {
			m.machine.State = model.Disconnected
			m.emitLocked(Status{State: model.Disconnected, Error: domain.MsgAuthFailed})
		}
		m.mu.Unlock()
		return fmt.Errorf("%w: %v", domain.ErrAuthFailed, err)
	}

	conn, err := m.transport.Dial(ctx, token)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		if inv, ok := m.creds.(Invalidator); ok && errors.Is(err, ErrRejected) {
			m.log.Warn("push handshake rejected, dropping cached token", zap.Int64("user_id", userID))
			inv.Invalidate()
		}
		m.closed(gen, err)
		return fmt.Errorf("dial push channel: %w", err)
	}

	topic := m.transport.Topic(userID)
	span.SetAttributes(attribute.String("push.topic", topic))
	if err := conn.Subscribe(ctx, topic); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "subscribe failed")
		_ = conn.Close()
		m.closed(gen, err)
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	m.conn = conn
	m.machine = m.machine.Connected()
	l := m.listener
	m.emitLocked(Status{State: model.Connected})
	m.mu.Unlock()

	m.log.Info("push channel connected", zap.Int64("user_id", userID), zap.String("topic", topic))
	go m.readLoop(ctx, gen, conn, l)
	return nil
}

// closed applies the bounded-retry policy after a failed dial, subscribe or
// read.
func (m *Manager) closed(gen uint64, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}
	m.conn = nil
	next, delay, exhausted := m.machine.Closed(m.opts.MaxRetries, m.opts.BaseDelay)
	m.machine = next
	if exhausted {
		m.log.Error("push channel retries exhausted",
			zap.Int64("user_id", m.userID),
			zap.Int("max_retries", m.opts.MaxRetries),
			zap.Error(cause),
		)
		m.emitLocked(Status{State: model.Disconnected, Error: domain.MsgLostConnection})
		return
	}
	m.log.Warn("push channel closed, reconnect scheduled",
		zap.Int64("user_id", m.userID),
		zap.Int("retry", next.RetryCount),
		zap.Duration("delay", delay),
		zap.Error(cause),
	)
	m.emitLocked(Status{State: model.Disconnected, Error: domain.ConnectionErrorMessage(cause)})
	m.opts.Metrics.ReconnectScheduled()
	m.timer = m.opts.Scheduler.AfterFunc(delay, func() { _ = m.retry(gen) })
}

// readLoop delivers messages in transport order until the connection fails
// or the session is torn down.
func (m *Manager) readLoop(ctx context.Context, gen uint64, conn Conn, l Listener) {
	for {
		payload, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			_ = conn.Close()
			m.closed(gen, err)
			return
		}
		n, err := Decode(payload)
		if err != nil {
			m.log.Warn("dropping malformed push message", zap.Int("bytes", len(payload)), zap.Error(err))
			m.opts.Metrics.PushMalformed()
			continue
		}
		m.opts.Metrics.PushApplied()
		l.OnPush(n)
	}
}

// Decode parses one pushed message as a notification.
func Decode(payload []byte) (model.Notification, error) {
	var n model.Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return model.Notification{}, fmt.Errorf("%w: %v", domain.ErrInvalidNotification, err)
	}
	if err := domain.ValidatePushed(n); err != nil {
		return model.Notification{}, err
	}
	return n, nil
}
