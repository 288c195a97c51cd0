package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/user/spa-platform/internal/adapter/metrics"
	"github.com/user/spa-platform/internal/domain"
)

// SubscriptionState is the connection lifecycle of a BookingSubscription.
type SubscriptionState int

const (
	StateIdle SubscriptionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	// StateDegraded means the bounded retry budget is exhausted. The owner
	// must fall back to on-demand full fetches; missed events are not
	// replayable.
	StateDegraded
	StateClosed
)

func (s SubscriptionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateDegraded:
		return "degraded"
	case StateClosed:
		return "closed"
	default:
		return "idle"
	}
}

// EventConn is one established connection to the tenant event stream.
type EventConn interface {
	// ReadEvent blocks until the next event arrives or the connection
	// fails.
	ReadEvent() (domain.BookingEvent, error)
	Close() error
}

// Transport establishes authenticated connections to a tenant's event
// stream.
type Transport interface {
	Connect(ctx context.Context, tenantSlug, token string) (EventConn, error)
}

// Refresher rebuilds the full scope-filtered view from the authoritative
// store. Invoked after every successful (re)connect, because events missed
// while disconnected are gone.
type Refresher interface {
	FetchBookings(ctx context.Context, tenantSlug string, scope domain.VisibilityScope) ([]domain.BookingRecord, error)
}

// SubscriptionOptions tune the reconnect state machine.
type SubscriptionOptions struct {
	ConnectTimeout time.Duration
	MaxAttempts    int
	BaseBackoff    time.Duration
	MaxBackoff     time.Duration
}

func (o *SubscriptionOptions) withDefaults() {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = 500 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 15 * time.Second
	}
}

// BookingSubscription is one session's live, scope-filtered view of a
// tenant's bookings. It owns its connection outright: constructed and torn
// down by its owner, never shared through ambient global state. Events are
// applied one at a time, in receipt order.
type BookingSubscription struct {
	tenant    string
	scope     domain.VisibilityScope
	token     string
	transport Transport
	refresher Refresher
	opts      SubscriptionOptions

	logger  *slog.Logger
	metrics *metrics.SyncMetrics

	mu    sync.RWMutex
	view  map[string]domain.BookingRecord
	state SubscriptionState

	onEvent       func(domain.BookingEvent)
	onStateChange func(SubscriptionState)

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// NewBookingSubscription builds a subscription for one session. Open starts
// it. The refresher may be nil in tests; metrics may be nil.
func NewBookingSubscription(
	tenantSlug string,
	scope domain.VisibilityScope,
	token string,
	transport Transport,
	refresher Refresher,
	opts SubscriptionOptions,
	logger *slog.Logger,
	m *metrics.SyncMetrics,
) *BookingSubscription {
	opts.withDefaults()
	return &BookingSubscription{
		tenant:    tenantSlug,
		scope:     scope,
		token:     token,
		transport: transport,
		refresher: refresher,
		opts:      opts,
		logger:    logger.With("component", "booking_subscription", "tenant", tenantSlug),
		metrics:   m,
		view:      make(map[string]domain.BookingRecord),
		state:     StateIdle,
	}
}

// ErrAlreadyOpen is returned when Open is called on a running subscription.
var ErrAlreadyOpen = errors.New("subscription already open")

// OnEvent registers a handler invoked after each in-scope event has been
// applied to the view. Must be called before Open. The handler must be fast
// and non-blocking; slow work belongs elsewhere.
func (s *BookingSubscription) OnEvent(fn func(domain.BookingEvent)) {
	s.onEvent = fn
}

// OnStateChange registers a handler for lifecycle transitions, letting the
// owner surface a degraded-mode indicator. Must be called before Open.
func (s *BookingSubscription) OnStateChange(fn func(SubscriptionState)) {
	s.onStateChange = fn
}

// Open starts the connection loop. It returns immediately; connection
// progress is reported through OnStateChange.
func (s *BookingSubscription) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrAlreadyOpen
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.run(ctx)
	return nil
}

// Close tears the subscription down. It is idempotent and blocks until the
// event loop has exited, so no event is delivered after it returns. Closing
// a never-opened or already-closed subscription is a no-op.
func (s *BookingSubscription) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		cancel, done := s.cancel, s.done
		s.mu.Unlock()
		if cancel != nil {
			cancel()
			<-done
		}
		s.setState(StateClosed)
	})
}

// State reports the current lifecycle state.
func (s *BookingSubscription) State() SubscriptionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot returns a copy of the current scope-filtered view.
func (s *BookingSubscription) Snapshot() []domain.BookingRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.BookingRecord, 0, len(s.view))
	for _, b := range s.view {
		out = append(out, b)
	}
	return out
}

// Get returns the booking with the given id from the local view.
func (s *BookingSubscription) Get(id string) (domain.BookingRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.view[id]
	return b, ok
}

// run drives the bounded-retry state machine:
// Connecting -> Connected -> Reconnecting(attempt) -> Degraded.
func (s *BookingSubscription) run(ctx context.Context) {
	defer close(s.done)

	attempt := 0
	everConnected := false

	for {
		if ctx.Err() != nil {
			return
		}
		if everConnected {
			s.setState(StateReconnecting)
		} else {
			s.setState(StateConnecting)
		}

		connectCtx, cancel := context.WithTimeout(ctx, s.opts.ConnectTimeout)
		conn, err := s.transport.Connect(connectCtx, s.tenant, s.token)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			attempt++
			s.logger.Warn("connect attempt failed", "attempt", attempt, "error", err)
			if attempt >= s.opts.MaxAttempts {
				s.logger.Error("retry budget exhausted, entering degraded mode",
					"attempts", attempt)
				s.setState(StateDegraded)
				return
			}
			select {
			case <-time.After(s.backoff(attempt)):
			case <-ctx.Done():
				return
			}
			continue
		}

		attempt = 0
		everConnected = true
		s.refresh(ctx)
		s.setState(StateConnected)

		s.readLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("connection lost, reconnecting")
	}
}

// readLoop pumps events from one connection until it fails or the
// subscription is cancelled.
func (s *BookingSubscription) readLoop(ctx context.Context, conn EventConn) {
	unblock := make(chan struct{})
	defer close(unblock)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close() // unblocks ReadEvent
		case <-unblock:
		}
	}()

	for {
		event, err := conn.ReadEvent()
		if err != nil {
			return
		}
		s.apply(event)
	}
}

// apply reconciles one event into the local view: scope filter first,
// last-write-wins by arrival order for upserts, removal for cancellations.
func (s *BookingSubscription) apply(event domain.BookingEvent) {
	if event.TenantSlug != "" && event.TenantSlug != s.tenant {
		// The bus partitions by tenant, so this must be impossible.
		s.logger.Error("cross-tenant event observed, discarding",
			"event_tenant", event.TenantSlug, "booking_id", event.Booking.ID)
		if s.metrics != nil {
			s.metrics.CrossTenantEvents.Inc()
		}
		return
	}
	if !s.scope.Allows(event.Booking) {
		return // outside scope, silently discarded
	}

	s.mu.Lock()
	switch event.Type {
	case domain.EventCancelled:
		delete(s.view, event.Booking.ID)
	default:
		if current, ok := s.view[event.Booking.ID]; ok && event.Type == domain.EventStatusChanged {
			if !domain.ValidTransition(current.Status, event.Booking.Status) {
				// Upstream is the source of truth, so the event is applied
				// anyway; the regression is only flagged.
				s.logger.Warn("invalid status transition applied",
					"booking_id", event.Booking.ID,
					"from", current.Status, "to", event.Booking.Status)
				if s.metrics != nil {
					s.metrics.InvalidTransitions.Inc()
				}
			}
		}
		s.view[event.Booking.ID] = event.Booking
	}
	s.mu.Unlock()

	if s.onEvent != nil {
		s.onEvent(event)
	}
}

// refresh replaces the local view with the authoritative state. Failure is
// non-fatal: the stream still delivers new events and the owner keeps its
// manual refresh path.
func (s *BookingSubscription) refresh(ctx context.Context) {
	if s.refresher == nil {
		return
	}
	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.ConnectTimeout)
	defer cancel()
	records, err := s.refresher.FetchBookings(fetchCtx, s.tenant, s.scope)
	if err != nil {
		s.logger.Warn("full refresh failed", "error", err)
		return
	}
	s.mu.Lock()
	s.view = make(map[string]domain.BookingRecord, len(records))
	for _, b := range records {
		if s.scope.Allows(b) && b.Status != domain.StatusCancelled {
			s.view[b.ID] = b
		}
	}
	s.mu.Unlock()
}

func (s *BookingSubscription) backoff(attempt int) time.Duration {
	d := s.opts.BaseBackoff << (attempt - 1)
	if d > s.opts.MaxBackoff || d <= 0 {
		return s.opts.MaxBackoff
	}
	return d
}

func (s *BookingSubscription) setState(state SubscriptionState) {
	s.mu.Lock()
	if s.state == state {
		s.mu.Unlock()
		return
	}
	s.state = state
	s.mu.Unlock()
	if s.onStateChange != nil {
		s.onStateChange(state)
	}
}
