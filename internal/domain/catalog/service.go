package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/clinicbook/clinic/internal/platform/apperr"
)

// Availability returns a copy of services with each slot list reduced to the
// slots no reservation holds. Reservations match a service by exact name;
// slot order follows the catalog. The inputs are not modified.
func Availability(services []*Service, reservations []Reservation) []*Service {
	taken := make(map[string]map[string]struct{}, len(services))
	for _, r := range reservations {
		slots, ok := taken[r.Treatment]
		if !ok {
			slots = make(map[string]struct{})
			taken[r.Treatment] = slots
		}
		slots[r.Slot] = struct{}{}
	}

	out := make([]*Service, 0, len(services))
	for _, s := range services {
		open := make([]string, 0, len(s.Slots))
		held := taken[s.Name]
		for _, slot := range s.Slots {
			if _, ok := held[slot]; !ok {
				open = append(open, slot)
			}
		}
		cp := *s
		cp.Slots = open
		out = append(out, &cp)
	}
	return out
}

// Calculator answers slot availability queries against the catalog and the
// booking store.
type Calculator struct {
	services ServiceRepository
	bookings BookingLister
	timeout  time.Duration
}

func NewCalculator(services ServiceRepository, bookings BookingLister, timeout time.Duration) *Calculator {
	return &Calculator{services: services, bookings: bookings, timeout: timeout}
}

// AvailableSlots computes the open slots of every service on date. The date is
// an opaque key compared by equality.
func (c *Calculator) AvailableSlots(ctx context.Context, date string) ([]*Service, error) {
	if date == "" {
		return nil, apperr.BadRequest("date is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	services, err := c.services.List(ctx)
	if err != nil {
		return nil, apperr.Dependency("list services", err)
	}
	reservations, err := c.bookings.ReservationsOn(ctx, date)
	if err != nil {
		return nil, apperr.Dependency("list bookings", err)
	}
	return Availability(services, reservations), nil
}

func (c *Calculator) ServiceNames(ctx context.Context) ([]*ServiceName, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	names, err := c.services.ListNames(ctx)
	if err != nil {
		return nil, apperr.Dependency("list services", err)
	}
	return names, nil
}

// Seed upserts catalog entries by name. Slot lists must not repeat a slot.
func (c *Calculator) Seed(ctx context.Context, services []*Service) error {
	for _, s := range services {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			return apperr.BadRequest("service name is required")
		}
		seen := make(map[string]struct{}, len(s.Slots))
		for _, slot := range s.Slots {
			if _, dup := seen[slot]; dup {
				return apperr.BadRequest("service " + s.Name + " lists slot " + slot + " twice")
			}
			seen[slot] = struct{}{}
		}
	}

	for _, s := range services {
		tctx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.services.Upsert(tctx, s)
		cancel()
		if err != nil {
			return apperr.Dependency("upsert service "+s.Name, err)
		}
	}
	return nil
}
