package catalog

import (
	"context"
)

type ServiceRepository interface {
	List(ctx context.Context) ([]*Service, error)
	ListNames(ctx context.Context) ([]*ServiceName, error)
	// Upsert creates or replaces the catalog entry with the same name.
	Upsert(ctx context.Context, s *Service) error
}

// BookingLister returns the reservations held on a date.
type BookingLister interface {
	ReservationsOn(ctx context.Context, date string) ([]Reservation, error)
}
