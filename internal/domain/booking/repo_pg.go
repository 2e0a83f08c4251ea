package booking

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicbook/clinic/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type bookingRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &bookingRepoPG{pool: pool} }

func (r *bookingRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const bookingCols = `id, treatment, booking_date, slot, patient, patient_name, phone, price,
	doctor, status, paid, transaction_id, created_at`

func (r *bookingRepoPG) scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(&b.ID, &b.Treatment, &b.Date, &b.Slot, &b.Patient, &b.PatientName, &b.Phone, &b.Price,
		&b.Doctor, &b.Status, &b.Paid, &b.TransactionID, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepoPG) CreateIfAbsent(ctx context.Context, b *Booking) (*Booking, bool, error) {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO bookings (id, treatment, booking_date, slot, patient, patient_name, phone, price,
			doctor, status, paid, transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (treatment, booking_date, patient) DO NOTHING
		RETURNING created_at`,
		b.ID, b.Treatment, b.Date, b.Slot, b.Patient, b.PatientName, b.Phone, b.Price,
		b.Doctor, b.Status, b.Paid, b.TransactionID,
	).Scan(&b.CreatedAt)
	if err == nil {
		return b, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	existing, err := r.scanBooking(r.conn(ctx).QueryRow(ctx,
		`SELECT `+bookingCols+` FROM bookings WHERE treatment = $1 AND booking_date = $2 AND patient = $3`,
		b.Treatment, b.Date, b.Patient))
	if errors.Is(err, ErrNotFound) {
		return nil, false, ErrConflict
	}
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *bookingRepoPG) GetByID(ctx context.Context, id string) (*Booking, error) {
	return r.scanBooking(r.conn(ctx).QueryRow(ctx, `SELECT `+bookingCols+` FROM bookings WHERE id = $1`, id))
}

func (r *bookingRepoPG) ListByDate(ctx context.Context, date string) ([]*Booking, error) {
	return r.list(ctx, `SELECT `+bookingCols+` FROM bookings WHERE booking_date = $1 ORDER BY created_at`, date)
}

func (r *bookingRepoPG) ListByPatient(ctx context.Context, patient string) ([]*Booking, error) {
	return r.list(ctx, `SELECT `+bookingCols+` FROM bookings WHERE patient = $1 ORDER BY created_at`, patient)
}

func (r *bookingRepoPG) ListByDoctor(ctx context.Context, doctor string) ([]*Booking, error) {
	return r.list(ctx, `SELECT `+bookingCols+` FROM bookings WHERE doctor = $1 ORDER BY created_at`, doctor)
}

func (r *bookingRepoPG) ListAll(ctx context.Context) ([]*Booking, error) {
	return r.list(ctx, `SELECT `+bookingCols+` FROM bookings ORDER BY created_at`)
}

func (r *bookingRepoPG) list(ctx context.Context, query string, args ...interface{}) ([]*Booking, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*Booking{}
	for rows.Next() {
		b, err := r.scanBooking(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

func (r *bookingRepoPG) SetStatus(ctx context.Context, id, status string) (*UpdateResult, error) {
	var res UpdateResult
	err := r.conn(ctx).QueryRow(ctx, `
		WITH target AS (SELECT id, status AS old_status FROM bookings WHERE id = $1 FOR UPDATE),
		     upd AS (UPDATE bookings SET status = $2
		             FROM target WHERE bookings.id = target.id AND target.old_status <> $2
		             RETURNING bookings.id)
		SELECT (SELECT COUNT(*) FROM target), (SELECT COUNT(*) FROM upd)`,
		id, status).Scan(&res.MatchedCount, &res.ModifiedCount)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

var errNoBooking = errors.New("no booking matched")

func (r *bookingRepoPG) ConfirmPayment(ctx context.Context, id string, receipt *PaymentReceipt) (*UpdateResult, error) {
	var res UpdateResult
	receipt.BookingID = id
	err := db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		q := r.conn(ctx)
		err := q.QueryRow(ctx, `
			WITH target AS (SELECT id, paid, transaction_id FROM bookings WHERE id = $1 FOR UPDATE),
			     upd AS (UPDATE bookings SET paid = TRUE, transaction_id = $2
			             FROM target WHERE bookings.id = target.id
			               AND (NOT target.paid OR target.transaction_id <> $2)
			             RETURNING bookings.id)
			SELECT (SELECT COUNT(*) FROM target), (SELECT COUNT(*) FROM upd)`,
			id, receipt.TransactionID).Scan(&res.MatchedCount, &res.ModifiedCount)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return errNoBooking
		}

		err = q.QueryRow(ctx, `
			INSERT INTO payments (id, booking_id, transaction_id, amount, email)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at`,
			receipt.ID, id, receipt.TransactionID, receipt.Amount, receipt.Email,
		).Scan(&receipt.CreatedAt)
		if isUniqueViolation(err) {
			return ErrDuplicateTransaction
		}
		return err
	})
	if errors.Is(err, errNoBooking) {
		return &UpdateResult{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
