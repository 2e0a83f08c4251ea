package booking

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicbook/clinic/internal/domain/catalog"
	"github.com/clinicbook/clinic/internal/platform/apperr"
	"github.com/clinicbook/clinic/internal/platform/notification"
	"github.com/clinicbook/clinic/internal/platform/payment"
)

// Notifier queues a templated email without waiting for delivery.
type Notifier interface {
	Dispatch(templateID, to, ref string, data map[string]string)
}

type Config struct {
	StoreTimeout   time.Duration
	PaymentTimeout time.Duration
	Currency       string
	ClinicAddress  string
}

// Manager drives bookings from creation through payment confirmation.
type Manager struct {
	repo     Repository
	notifier Notifier
	gateway  payment.Gateway
	cfg      Config
	logger   zerolog.Logger
}

func NewManager(repo Repository, notifier Notifier, gateway payment.Gateway, cfg Config, logger zerolog.Logger) *Manager {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &Manager{repo: repo, notifier: notifier, gateway: gateway, cfg: cfg, logger: logger}
}

// Create stores a new booking unless one with the same treatment, date and
// patient exists, in which case that booking is returned with Success false.
// A confirmation email is queued only for new bookings.
func (m *Manager) Create(ctx context.Context, b *Booking) (*CreateResult, error) {
	b.Treatment = strings.TrimSpace(b.Treatment)
	b.Date = strings.TrimSpace(b.Date)
	b.Patient = strings.TrimSpace(b.Patient)
	switch {
	case b.Treatment == "":
		return nil, apperr.BadRequest("treatment is required")
	case b.Date == "":
		return nil, apperr.BadRequest("date is required")
	case b.Patient == "":
		return nil, apperr.BadRequest("patient is required")
	}

	b.ID = uuid.New().String()
	b.Paid = false
	b.TransactionID = ""
	b.Status = ""
	b.CreatedAt = time.Now().UTC()

	ctx, cancel := context.WithTimeout(ctx, m.cfg.StoreTimeout)
	defer cancel()
	stored, created, err := m.repo.CreateIfAbsent(ctx, b)
	if errors.Is(err, ErrConflict) {
		return nil, apperr.Conflict("booking already exists")
	}
	if err != nil {
		return nil, apperr.Dependency("create booking", err)
	}
	if !created {
		return &CreateResult{Success: false, Booking: stored}, nil
	}

	m.notify(notification.TemplateBookingConfirmed, stored)
	return &CreateResult{Success: true, Booking: stored}, nil
}

// UpdateStatus replaces the booking status with any caller-supplied value,
// including "" which returns it to unset. No transition rules apply.
func (m *Manager) UpdateStatus(ctx context.Context, id, status string) (*UpdateResult, error) {
	if id == "" {
		return nil, apperr.BadRequest("booking id is required")
	}
	ctx, cancel := context.WithTimeout(ctx, m.cfg.StoreTimeout)
	defer cancel()
	res, err := m.repo.SetStatus(ctx, id, status)
	if err != nil {
		return nil, apperr.Dependency("update booking status", err)
	}
	return res, nil
}

// ConfirmPayment records the receipt and marks the booking paid atomically.
// An unknown id yields a zero UpdateResult.
func (m *Manager) ConfirmPayment(ctx context.Context, id string, req PaymentRequest) (*UpdateResult, error) {
	if id == "" {
		return nil, apperr.BadRequest("booking id is required")
	}
	txID := strings.TrimSpace(req.TransactionID)
	if txID == "" {
		return nil, apperr.BadRequest("transactionId is required")
	}

	receipt := &PaymentReceipt{
		ID:            uuid.New().String(),
		BookingID:     id,
		TransactionID: txID,
		Amount:        req.Price,
		Email:         req.Email,
		CreatedAt:     time.Now().UTC(),
	}

	tctx, cancel := context.WithTimeout(ctx, m.cfg.StoreTimeout)
	defer cancel()
	res, err := m.repo.ConfirmPayment(tctx, id, receipt)
	if errors.Is(err, ErrDuplicateTransaction) {
		return nil, apperr.Conflict("transaction already recorded")
	}
	if err != nil {
		return nil, apperr.Dependency("confirm payment", err)
	}
	if res.MatchedCount == 0 {
		return res, nil
	}

	b, err := m.repo.GetByID(tctx, id)
	if err != nil {
		m.logger.Warn().Err(err).Str("booking_id", id).Msg("payment recorded but booking reload failed, skipping email")
		return res, nil
	}
	m.notify(notification.TemplatePaymentReceived, b)
	return res, nil
}

func (m *Manager) notify(templateID string, b *Booking) {
	if m.notifier == nil {
		return
	}
	m.notifier.Dispatch(templateID, b.Patient, b.ID, map[string]string{
		"patient_name": b.PatientName,
		"treatment":    b.Treatment,
		"date":         b.Date,
		"slot":         b.Slot,
		"address":      m.cfg.ClinicAddress,
	})
}

// CreatePaymentIntent opens a card charge for price in the configured
// currency and returns the client secret.
func (m *Manager) CreatePaymentIntent(ctx context.Context, price float64) (string, error) {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return "", apperr.BadRequest("price must be positive")
	}
	amount := int64(math.Round(price * 100))

	ctx, cancel := context.WithTimeout(ctx, m.cfg.PaymentTimeout)
	defer cancel()
	secret, err := m.gateway.CreateIntent(ctx, amount, m.cfg.Currency)
	if err != nil {
		return "", apperr.Dependency("create payment intent", err)
	}
	return secret, nil
}

func (m *Manager) Get(ctx context.Context, id string) (*Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.StoreTimeout)
	defer cancel()
	b, err := m.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("booking not found")
	}
	if err != nil {
		return nil, apperr.Dependency("get booking", err)
	}
	return b, nil
}

// ListForPatient returns the patient's bookings. Callers enforce ownership.
func (m *Manager) ListForPatient(ctx context.Context, patient string) ([]*Booking, error) {
	return m.list(ctx, "list patient bookings", func(ctx context.Context) ([]*Booking, error) {
		return m.repo.ListByPatient(ctx, patient)
	})
}

func (m *Manager) ListForDoctor(ctx context.Context, doctor string) ([]*Booking, error) {
	return m.list(ctx, "list doctor bookings", func(ctx context.Context) ([]*Booking, error) {
		return m.repo.ListByDoctor(ctx, doctor)
	})
}

func (m *Manager) ListAll(ctx context.Context) ([]*Booking, error) {
	return m.list(ctx, "list bookings", m.repo.ListAll)
}

func (m *Manager) list(ctx context.Context, op string, fn func(context.Context) ([]*Booking, error)) ([]*Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.StoreTimeout)
	defer cancel()
	items, err := fn(ctx)
	if err != nil {
		return nil, apperr.Dependency(op, err)
	}
	return items, nil
}

// ReservationsOn lists the slots taken on date for the availability calculator.
func (m *Manager) ReservationsOn(ctx context.Context, date string) ([]catalog.Reservation, error) {
	items, err := m.repo.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Reservation, 0, len(items))
	for _, b := range items {
		out = append(out, catalog.Reservation{Treatment: b.Treatment, Slot: b.Slot})
	}
	return out, nil
}
