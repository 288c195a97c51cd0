package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/user/spa-platform/internal/adapter/metrics"
	"github.com/user/spa-platform/internal/domain"
)

// channelPrefix is the pub/sub namespace the upstream booking system
// publishes mutation events on, one channel per tenant:
// bookings:<tenant-slug>.
const channelPrefix = "bookings:"

// Publisher is the downstream sink for ingested events, satisfied by the
// in-process event bus.
type Publisher interface {
	Publish(event domain.BookingEvent)
}

// EventSource bridges the upstream booking mutation source (Redis pub/sub)
// into the in-process event bus. Delivery from here on is best-effort; no
// event is persisted beyond fan-out.
type EventSource struct {
	client  *redis.Client
	bus     Publisher
	logger  *slog.Logger
	metrics *metrics.SyncMetrics
}

// NewEventSource creates a new Redis-backed event source.
func NewEventSource(client *redis.Client, bus Publisher, logger *slog.Logger, m *metrics.SyncMetrics) *EventSource {
	return &EventSource{
		client:  client,
		bus:     bus,
		logger:  logger.With("component", "event_source"),
		metrics: m,
	}
}

// Run subscribes to all tenant channels and pumps events into the bus until
// the context is cancelled. go-redis reconnects the pub/sub connection
// itself; a gap simply means missed events, which sessions repair via full
// refresh.
func (s *EventSource) Run(ctx context.Context) error {
	pubsub := s.client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	s.logger.Info("subscribed to booking event channels", "pattern", channelPrefix+"*")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.ingest(msg.Channel, []byte(msg.Payload))
		}
	}
}

func (s *EventSource) ingest(channel string, payload []byte) {
	tenantSlug := strings.TrimPrefix(channel, channelPrefix)
	if tenantSlug == "" || tenantSlug == channel {
		s.logger.Warn("message on unexpected channel", "channel", channel)
		return
	}

	var event domain.BookingEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn("failed to unmarshal booking event", "channel", channel, "error", err)
		return
	}
	if event.TenantSlug == "" {
		event.TenantSlug = tenantSlug
	}
	// The channel is the partition key. An envelope naming a different
	// tenant would leak across partitions, so it is dropped loudly instead
	// of forwarded.
	if event.TenantSlug != tenantSlug {
		s.logger.Error("event tenant does not match its channel, dropping",
			"channel", channel, "event_tenant", event.TenantSlug)
		if s.metrics != nil {
			s.metrics.CrossTenantEvents.Inc()
		}
		return
	}
	if event.Booking.TenantSlug == "" {
		event.Booking.TenantSlug = tenantSlug
	}

	s.bus.Publish(event)
}
