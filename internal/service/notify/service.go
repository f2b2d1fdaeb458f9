// Package notify is the notification Store: the reconciled collection, the
// live channel wiring and the user actions over both.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"notify_client/internal/alert"
	"notify_client/internal/domain"
	"notify_client/internal/metrics"
	"notify_client/internal/model"
	"notify_client/internal/push"
	"notify_client/internal/reconcile"
	"notify_client/internal/repository"
)

var ErrClosed = errors.New("notification store closed")

const alertTimeout = 5 * time.Second

// Connector is the live channel as the Store drives it.
type Connector interface {
	Connect(ctx context.Context, userID int64, l push.Listener) error
	Disconnect()
	Reconnect(ctx context.Context) error
}

// Store applies every change as one locked Reduce step. Observers run inside
// that step, in order, and must not call back into the Store.
type Store struct {
	gw       repository.NotificationGateway
	conn     Connector
	notifier alert.Notifier
	log      *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	mu        sync.Mutex
	state     reconcile.State
	alive     bool
	userID    int64
	loadSeq   uint64
	observers map[int]func(model.State)
	nextObs   int
	alerts    sync.WaitGroup
}

func NewStore(gw repository.NotificationGateway, conn Connector, notifier alert.Notifier, m *metrics.Metrics, logger *zap.Logger) *Store {
	return &Store{
		gw:        gw,
		conn:      conn,
		notifier:  notifier,
		log:       logger,
		metrics:   m,
		now:       time.Now,
		state:     reconcile.NewState(),
		alive:     true,
		observers: make(map[int]func(model.State)),
	}
}

// Start loads the unread count and the snapshot and, in parallel, opens the
// live channel for userID. Errors are advisory: they are already in State.
func (s *Store) Start(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return domain.ErrNoUser
	}
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return ErrClosed
	}
	s.userID = userID
	s.mu.Unlock()

	var (
		wg         sync.WaitGroup
		connectErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		connectErr = s.conn.Connect(ctx, userID, s)
	}()

	countErr := s.RefreshUnreadCount(ctx)
	loadErr := s.Refresh(ctx)
	wg.Wait()

	s.log.Info("notification store started",
		zap.Int64("user_id", userID),
		zap.Bool("loaded", loadErr == nil),
		zap.Bool("connected", connectErr == nil),
	)
	return errors.Join(countErr, loadErr, connectErr)
}

// Close tears the live channel down. REST calls already in flight are left
// to finish; their results are discarded.
func (s *Store) Close() {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return
	}
	s.alive = false
	s.mu.Unlock()

	s.conn.Disconnect()
	s.alerts.Wait()
}

func (s *Store) Snapshot() model.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.View()
}

// Subscribe registers fn for every state change and returns its removal.
func (s *Store) Subscribe(fn func(model.State)) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *Store) apply(events ...reconcile.Event) bool {
	return s.update(func(st reconcile.State) reconcile.State {
		for _, ev := range events {
			st = reconcile.Reduce(st, ev)
		}
		return st
	})
}

// update is the only writer of s.state. It reports false once the Store is
// closed.
func (s *Store) update(fn func(reconcile.State) reconcile.State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive {
		return false
	}
	s.state = fn(s.state)
	s.notifyLocked()
	return true
}

// Refresh reloads the snapshot for the current filter. Only the most recent
// load may land; an overlapping older one is dropped when it returns.
func (s *Store) Refresh(ctx context.Context) error {
	var (
		opts repository.ListOptions
		seq  uint64
	)
	if !s.update(func(st reconcile.State) reconcile.State {
		s.loadSeq++
		seq = s.loadSeq
		opts.UnreadOnly = st.Filter.UnreadOnly
		return reconcile.Reduce(st, reconcile.LoadingStarted{})
	}) {
		return ErrClosed
	}

	list, err := s.gw.ListNotifications(ctx, opts)
	if err != nil {
		s.log.Error("load notifications failed", zap.Bool("unread_only", opts.UnreadOnly), zap.Error(err))
		s.applyLoad(seq, reconcile.Failed{Message: domain.MsgLoadNotifications})
		return fmt.Errorf("load notifications: %w", err)
	}
	s.applyLoad(seq, reconcile.SnapshotLoaded{Notifications: list})
	return nil
}

func (s *Store) applyLoad(seq uint64, ev reconcile.Event) {
	s.update(func(st reconcile.State) reconcile.State {
		if seq != s.loadSeq {
			s.log.Debug("stale snapshot dropped", zap.Uint64("load", seq), zap.Uint64("latest", s.loadSeq))
			return st
		}
		return reconcile.Reduce(st, ev)
	})
}

func (s *Store) RefreshUnreadCount(ctx context.Context) error {
	count, err := s.gw.UnreadCount(ctx)
	if err != nil {
		s.log.Error("load unread count failed", zap.Error(err))
		s.apply(reconcile.MutationFailed{Message: domain.MsgLoadUnreadCount})
		return fmt.Errorf("load unread count: %w", err)
	}
	s.apply(reconcile.UnreadCountLoaded{Count: count})
	return nil
}

func (s *Store) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	alive := s.alive
	s.mu.Unlock()
	if !alive {
		return ErrClosed
	}
	return s.conn.Reconnect(ctx)
}

// OnPush merges a pushed notification and raises a toast for unread ones.
func (s *Store) OnPush(n model.Notification) {
	n = domain.Normalize(n)
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return
	}
	s.state = reconcile.Reduce(s.state, reconcile.PushReceived{Notification: n})
	s.notifyLocked()
	if !n.ReadStatus {
		s.dispatchAlertLocked(alert.FromNotification(s.userID, n))
	}
	s.mu.Unlock()
}

func (s *Store) OnConnectionChange(st push.Status) {
	s.apply(reconcile.ConnectionChanged{State: st.State, Error: st.Error})
}

func (s *Store) notifyLocked() {
	if len(s.observers) == 0 {
		return
	}
	view := s.state.View()
	for _, obs := range s.observers {
		obs(view)
	}
}

// dispatchAlertLocked must run under s.mu with the Store alive so Close can
// wait for every started alert.
func (s *Store) dispatchAlertLocked(a alert.Alert) {
	s.alerts.Add(1)
	go func() {
		defer s.alerts.Done()
		ctx, cancel := context.WithTimeout(context.Background(), alertTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, a); err != nil {
			s.log.Warn("toast dispatch failed", zap.Int64("notification_id", a.NotificationID), zap.Error(err))
			return
		}
		s.metrics.AlertDispatched()
	}()
}
