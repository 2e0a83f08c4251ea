package booking

import (
	"context"
)

type Repository interface {
	// CreateIfAbsent inserts b unless a booking with the same treatment, date
	// and patient exists. It is a single atomic operation; on a hit it returns
	// the existing booking and false.
	CreateIfAbsent(ctx context.Context, b *Booking) (*Booking, bool, error)
	GetByID(ctx context.Context, id string) (*Booking, error)
	ListByDate(ctx context.Context, date string) ([]*Booking, error)
	ListByPatient(ctx context.Context, patient string) ([]*Booking, error)
	ListByDoctor(ctx context.Context, doctor string) ([]*Booking, error)
	ListAll(ctx context.Context) ([]*Booking, error)
	SetStatus(ctx context.Context, id, status string) (*UpdateResult, error)
	// ConfirmPayment marks the booking paid and stores the receipt in one
	// transaction. A missing booking yields a zero result and no receipt.
	ConfirmPayment(ctx context.Context, id string, receipt *PaymentReceipt) (*UpdateResult, error)
}
