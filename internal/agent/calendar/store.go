// Package calendar implements the dealership visit calendar over Redis.
// Slots follow a fixed daily template; bookings are stored per slot so a
// taken slot never shows as free.
package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dealerflow/salesagent/internal/agent/model"
	errx "github.com/dealerflow/salesagent/internal/core/error"
	logx "github.com/dealerflow/salesagent/pkg/logger"
)

// DefaultSlotHours is the daily visit template: morning, afternoon,
// evening.
var DefaultSlotHours = []int{10, 14, 17}

const bookingsKey = "calendar:bookings"

// RedisCalendar stores confirmed bookings in a Redis hash keyed by slot
// time.
type RedisCalendar struct {
	rdb       redis.Cmdable
	slotHours []int
	clock     func() time.Time
}

func NewRedisCalendar(rdb redis.Cmdable, slotHours []int, clock func() time.Time) *RedisCalendar {
	if len(slotHours) == 0 {
		slotHours = DefaultSlotHours
	}
	if clock == nil {
		clock = time.Now
	}
	return &RedisCalendar{rdb: rdb, slotHours: slotHours, clock: clock}
}

func slotField(at time.Time) string {
	return at.UTC().Format(time.RFC3339)
}

// FreeSlots lists template slots in [from, from+days) that are in the
// future and not already booked.
func (c *RedisCalendar) FreeSlots(ctx context.Context, from time.Time, days int) ([]time.Time, error) {
	if days <= 0 {
		days = 3
	}

	booked, err := c.rdb.HKeys(ctx, bookingsKey).Result()
	if err != nil {
		logx.Error().Err(err).Msg("failed to load bookings from redis")
		return nil, errx.WrapRedis(err)
	}
	taken := make(map[string]bool, len(booked))
	for _, k := range booked {
		taken[k] = true
	}

	now := c.clock()
	var slots []time.Time
	for d := 0; d < days; d++ {
		day := from.AddDate(0, 0, d)
		// dealership is closed on Sundays
		if day.Weekday() == time.Sunday {
			continue
		}
		for _, h := range c.slotHours {
			slot := time.Date(day.Year(), day.Month(), day.Day(), h, 0, 0, 0, day.Location())
			if !slot.After(now) {
				continue
			}
			if taken[slotField(slot)] {
				continue
			}
			slots = append(slots, slot)
		}
	}
	return slots, nil
}

// Book persists a booking for the exact slot. A slot already taken is an
// error; the caller offers another one.
func (c *RedisCalendar) Book(ctx context.Context, clientID string, at time.Time) (*model.Booking, error) {
	booking := &model.Booking{
		ID:        uuid.NewString(),
		ClientID:  clientID,
		At:        at,
		CreatedAt: c.clock(),
	}
	raw, err := json.Marshal(booking)
	if err != nil {
		return nil, fmt.Errorf("marshal booking: %w", err)
	}

	ok, err := c.rdb.HSetNX(ctx, bookingsKey, slotField(at), raw).Result()
	if err != nil {
		logx.Error().Err(err).Str("client_id", clientID).Msg("failed to save booking to redis")
		return nil, errx.WrapRedis(err)
	}
	if !ok {
		return nil, fmt.Errorf("slot %s is already booked", slotField(at))
	}

	logx.Info().
		Str("booking_id", booking.ID).
		Str("client_id", clientID).
		Time("at", at).
		Msg("appointment booked")
	return booking, nil
}

var _ model.CalendarStore = (*RedisCalendar)(nil)

// MemoryCalendar is the in-process equivalent for tests and the demo CLI.
// Like its Redis counterpart it is safe for concurrent turns.
type MemoryCalendar struct {
	slotHours []int
	clock     func() time.Time

	mu       sync.Mutex
	bookings map[string]*model.Booking
}

func NewMemoryCalendar(slotHours []int, clock func() time.Time) *MemoryCalendar {
	if len(slotHours) == 0 {
		slotHours = DefaultSlotHours
	}
	if clock == nil {
		clock = time.Now
	}
	return &MemoryCalendar{slotHours: slotHours, clock: clock, bookings: map[string]*model.Booking{}}
}

func (c *MemoryCalendar) FreeSlots(_ context.Context, from time.Time, days int) ([]time.Time, error) {
	if days <= 0 {
		days = 3
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	var slots []time.Time
	for d := 0; d < days; d++ {
		day := from.AddDate(0, 0, d)
		if day.Weekday() == time.Sunday {
			continue
		}
		for _, h := range c.slotHours {
			slot := time.Date(day.Year(), day.Month(), day.Day(), h, 0, 0, 0, day.Location())
			if !slot.After(now) {
				continue
			}
			if _, taken := c.bookings[slotField(slot)]; taken {
				continue
			}
			slots = append(slots, slot)
		}
	}
	return slots, nil
}

func (c *MemoryCalendar) Book(_ context.Context, clientID string, at time.Time) (*model.Booking, error) {
	field := slotField(at)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, taken := c.bookings[field]; taken {
		return nil, fmt.Errorf("slot %s is already booked", field)
	}
	booking := &model.Booking{
		ID:        uuid.NewString(),
		ClientID:  clientID,
		At:        at,
		CreatedAt: c.clock(),
	}
	c.bookings[field] = booking
	return booking, nil
}

var _ model.CalendarStore = (*MemoryCalendar)(nil)
