package usecase

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/user/spa-platform/internal/adapter/metrics"
	"github.com/user/spa-platform/internal/domain"
)

const (
	defaultPartitionBuffer  = 256
	defaultSubscriberBuffer = 16
)

// BusSubscription is one session's membership in a tenant partition. Events
// are received from Events(); the channel is closed when the subscription is
// removed from the bus.
type BusSubscription struct {
	id     string
	tenant string
	events chan domain.BookingEvent
	closed atomic.Bool
}

// Events is the delivery channel for this subscription.
func (s *BusSubscription) Events() <-chan domain.BookingEvent { return s.events }

// Tenant is the tenant slug the subscription was opened for.
func (s *BusSubscription) Tenant() string { return s.tenant }

// ID is the unique identifier of the subscription.
func (s *BusSubscription) ID() string { return s.id }

// partition is the per-tenant fan-out unit: its own queue and its own
// worker goroutine, so one tenant's event volume cannot starve another's.
type partition struct {
	mu    sync.RWMutex
	subs  map[*BusSubscription]struct{}
	queue chan domain.BookingEvent
}

// BookingEventBus fans booking mutation events out to all sessions
// subscribed to a tenant. Delivery is best-effort, at-least-once per
// connected session; nothing is persisted beyond delivery, so disconnected
// sessions reconcile via a full refresh on reconnect.
type BookingEventBus struct {
	mu         sync.RWMutex
	partitions map[string]*partition
	stopped    bool
	stop       chan struct{}
	wg         sync.WaitGroup

	partitionBuffer  int
	subscriberBuffer int

	logger  *slog.Logger
	metrics *metrics.SyncMetrics
}

// NewBookingEventBus creates an empty bus. Partitions are created lazily on
// first publish or subscribe for a tenant. Metrics may be nil.
func NewBookingEventBus(logger *slog.Logger, m *metrics.SyncMetrics) *BookingEventBus {
	return &BookingEventBus{
		partitions:       make(map[string]*partition),
		stop:             make(chan struct{}),
		partitionBuffer:  defaultPartitionBuffer,
		subscriberBuffer: defaultSubscriberBuffer,
		logger:           logger.With("component", "event_bus"),
		metrics:          m,
	}
}

// Publish enqueues an event on its tenant's partition. It never blocks: a
// partition queue saturated by a burst drops the event (and the session
// reconciles later via full refresh) rather than stalling the publisher or
// other tenants.
func (b *BookingEventBus) Publish(event domain.BookingEvent) {
	if event.TenantSlug == "" {
		b.logger.Warn("dropping event without tenant slug", "type", event.Type, "booking_id", event.Booking.ID)
		if b.metrics != nil {
			b.metrics.EventsDropped.WithLabelValues("no_tenant").Inc()
		}
		return
	}

	p := b.partition(event.TenantSlug)
	if p == nil {
		return // bus already closed
	}
	select {
	case p.queue <- event:
		if b.metrics != nil {
			b.metrics.EventsPublished.WithLabelValues(string(event.Type)).Inc()
		}
	default:
		b.logger.Warn("partition queue full, dropping event",
			"tenant", event.TenantSlug, "type", event.Type, "booking_id", event.Booking.ID)
		if b.metrics != nil {
			b.metrics.EventsDropped.WithLabelValues("partition_full").Inc()
		}
	}
}

// Subscribe joins the tenant's event stream. The returned subscription must
// be released with Unsubscribe.
func (b *BookingEventBus) Subscribe(tenantSlug string) *BusSubscription {
	sub := &BusSubscription{
		id:     uuid.NewString(),
		tenant: tenantSlug,
		events: make(chan domain.BookingEvent, b.subscriberBuffer),
	}

	p := b.partition(tenantSlug)
	if p == nil {
		// Bus closed: hand back an already-closed subscription so callers
		// see a terminated stream instead of a nil.
		sub.closed.Store(true)
		close(sub.events)
		return sub
	}

	p.mu.Lock()
	p.subs[sub] = struct{}{}
	p.mu.Unlock()

	if b.metrics != nil {
		b.metrics.Subscribers.Inc()
	}
	b.logger.Debug("subscription opened", "tenant", tenantSlug, "subscription_id", sub.id)
	return sub
}

// Unsubscribe removes the subscription and closes its channel. It is
// idempotent, and once it returns no further event will be delivered: the
// channel is closed under the partition write lock, after any in-flight
// fan-out has drained.
func (b *BookingEventBus) Unsubscribe(sub *BusSubscription) {
	if sub == nil || !sub.closed.CompareAndSwap(false, true) {
		return
	}

	b.mu.RLock()
	p := b.partitions[sub.tenant]
	b.mu.RUnlock()

	if p != nil {
		p.mu.Lock()
		delete(p.subs, sub)
		close(sub.events)
		p.mu.Unlock()
	} else {
		close(sub.events)
	}

	if b.metrics != nil {
		b.metrics.Subscribers.Dec()
	}
	b.logger.Debug("subscription closed", "tenant", sub.tenant, "subscription_id", sub.id)
}

// SubscriberCount reports the number of live subscriptions for a tenant.
func (b *BookingEventBus) SubscriberCount(tenantSlug string) int {
	b.mu.RLock()
	p := b.partitions[tenantSlug]
	b.mu.RUnlock()
	if p == nil {
		return 0
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}

// Close stops all partition workers and terminates every subscription. The
// bus must not be used afterwards.
func (b *BookingEventBus) Close() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	close(b.stop)
	parts := make([]*partition, 0, len(b.partitions))
	for _, p := range b.partitions {
		parts = append(parts, p)
	}
	b.mu.Unlock()

	b.wg.Wait()

	for _, p := range parts {
		p.mu.Lock()
		for sub := range p.subs {
			if sub.closed.CompareAndSwap(false, true) {
				close(sub.events)
				if b.metrics != nil {
					b.metrics.Subscribers.Dec()
				}
			}
			delete(p.subs, sub)
		}
		p.mu.Unlock()
	}
}

// partition returns the tenant's partition, creating it (and its worker) on
// first use. Returns nil if the bus has been closed.
func (b *BookingEventBus) partition(tenantSlug string) *partition {
	b.mu.RLock()
	p, ok := b.partitions[tenantSlug]
	b.mu.RUnlock()
	if ok {
		return p
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return nil
	}
	if p, ok = b.partitions[tenantSlug]; ok {
		return p
	}
	p = &partition{
		subs:  make(map[*BusSubscription]struct{}),
		queue: make(chan domain.BookingEvent, b.partitionBuffer),
	}
	b.partitions[tenantSlug] = p
	b.wg.Add(1)
	go b.runPartition(tenantSlug, p)
	return p
}

// runPartition is the dedicated worker for one tenant. Events are fanned out
// in publish order; subscriber joins/leaves contend only on this partition's
// lock, never on another tenant's delivery.
func (b *BookingEventBus) runPartition(tenantSlug string, p *partition) {
	defer b.wg.Done()
	for {
		select {
		case <-b.stop:
			return
		case event := <-p.queue:
			for _, failed := range p.fanOut(event, b.metrics) {
				// A slow or broken subscriber is evicted so it cannot hold
				// back the rest of the tenant. Its owner observes the closed
				// channel and falls back to a full refresh.
				b.logger.Warn("evicting slow subscriber",
					"tenant", tenantSlug, "subscription_id", failed.id)
				if b.metrics != nil {
					b.metrics.EventsDropped.WithLabelValues("subscriber_evicted").Inc()
				}
				b.Unsubscribe(failed)
			}
		}
	}
}

// fanOut delivers one event to every live subscriber of the partition and
// returns the subscribers whose delivery failed.
func (p *partition) fanOut(event domain.BookingEvent, m *metrics.SyncMetrics) []*BusSubscription {
	var failed []*BusSubscription
	p.mu.RLock()
	for sub := range p.subs {
		if sub.closed.Load() {
			continue
		}
		select {
		case sub.events <- event:
			if m != nil {
				m.EventsDelivered.Inc()
			}
		default:
			failed = append(failed, sub)
		}
	}
	p.mu.RUnlock()
	return failed
}
