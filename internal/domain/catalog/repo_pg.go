package catalog

import (
	"context"

	"github.com/google/uuid"
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

type serviceRepoPG struct{ pool *pgxpool.Pool }

func NewServiceRepoPG(pool *pgxpool.Pool) ServiceRepository { return &serviceRepoPG{pool: pool} }

func (r *serviceRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *serviceRepoPG) List(ctx context.Context) ([]*Service, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT id, name, slots, price FROM services ORDER BY position, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*Service{}
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Slots, &s.Price); err != nil {
			return nil, err
		}
		if s.Slots == nil {
			s.Slots = []string{}
		}
		items = append(items, &s)
	}
	return items, rows.Err()
}

func (r *serviceRepoPG) ListNames(ctx context.Context) ([]*ServiceName, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT id, name FROM services ORDER BY position, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*ServiceName{}
	for rows.Next() {
		var s ServiceName
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		items = append(items, &s)
	}
	return items, rows.Err()
}

func (r *serviceRepoPG) Upsert(ctx context.Context, s *Service) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO services (id, name, slots, price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET slots = EXCLUDED.slots, price = EXCLUDED.price
		RETURNING id`,
		s.ID, s.Name, s.Slots, s.Price).Scan(&s.ID)
}
