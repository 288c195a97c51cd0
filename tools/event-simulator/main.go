package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/user/spa-platform/internal/domain"
)

// event-simulator plays the upstream booking mutation source for local
// development: it publishes synthetic booking lifecycle events on the
// per-tenant Redis channels the sync server subscribes to.

var lifecycle = []domain.BookingStatus{
	domain.StatusPending,
	domain.StatusConfirmed,
	domain.StatusClientArrived,
	domain.StatusInProgress,
	domain.StatusCompleted,
}

func main() {
	redisAddr := flag.String("redis", "localhost:6379", "Redis address")
	tenantsFlag := flag.String("tenants", "sparenaissance,lotusspa", "Comma-separated tenant slugs")
	staffFlag := flag.String("staff", "staffA,staffB,staffC", "Comma-separated staff IDs")
	eps := flag.Int("eps", 10, "Events per second limit")
	duration := flag.Duration("d", 30*time.Second, "Duration of the simulation")
	flag.Parse()

	tenants := strings.Split(*tenantsFlag, ",")
	staff := strings.Split(*staffFlag, ",")

	client := redis.NewClient(&redis.Options{Addr: *redisAddr})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	log.Printf("Publishing booking events to %s for %s (tenants: %v)", *redisAddr, *duration, tenants)

	limiter := rate.NewLimiter(rate.Limit(*eps), 10)

	// Track in-flight bookings so lifecycle events reference real ids and
	// progress through plausible statuses.
	type live struct {
		booking domain.BookingRecord
		stage   int
	}
	open := make(map[string]*live)

	var published int
	for {
		if err := limiter.Wait(ctx); err != nil {
			break
		}

		tenant := tenants[rand.Intn(len(tenants))]
		var event domain.BookingEvent

		// Roughly one in three events starts a new booking; the rest move
		// an existing one forward or cancel it.
		if len(open) == 0 || rand.Intn(3) == 0 {
			booking := domain.BookingRecord{
				ID:              uuid.NewString(),
				TenantSlug:      tenant,
				AssignedStaffID: staff[rand.Intn(len(staff))],
				Status:          domain.StatusPending,
				ScheduledAt:     time.Now().Add(time.Duration(rand.Intn(72)) * time.Hour).UTC(),
				ClientRef:       fmt.Sprintf("client-%04d", rand.Intn(10000)),
			}
			open[booking.ID] = &live{booking: booking}
			event = domain.BookingEvent{Type: domain.EventCreated, TenantSlug: tenant, Booking: booking}
		} else {
			var pick *live
			for _, l := range open {
				pick = l
				break
			}
			if rand.Intn(10) == 0 {
				pick.booking.Status = domain.StatusCancelled
				event = domain.BookingEvent{Type: domain.EventCancelled, TenantSlug: pick.booking.TenantSlug, Booking: pick.booking}
				delete(open, pick.booking.ID)
			} else {
				pick.stage++
				if pick.stage >= len(lifecycle) {
					delete(open, pick.booking.ID)
					continue
				}
				pick.booking.Status = lifecycle[pick.stage]
				event = domain.BookingEvent{Type: domain.EventStatusChanged, TenantSlug: pick.booking.TenantSlug, Booking: pick.booking}
			}
		}

		payload, err := json.Marshal(event)
		if err != nil {
			log.Printf("marshal event: %v", err)
			continue
		}
		channel := "bookings:" + event.TenantSlug
		if err := client.Publish(ctx, channel, payload).Err(); err != nil {
			log.Printf("publish to %s: %v", channel, err)
			continue
		}
		published++
	}

	log.Printf("Simulation finished. Published %d events.", published)
}
