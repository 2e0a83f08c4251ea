package identity

import (
	"context"
	"errors"

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

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository { return &userRepoPG{pool: pool} }

func (r *userRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const userCols = `id, email, name, role, created_at, updated_at`

func (r *userRepoPG) scanUser(row pgx.Row) (*User, error) {
	var u User
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Role = ParseRole(role)
	return &u, nil
}

func (r *userRepoPG) Upsert(ctx context.Context, u *User) (*UpsertResult, error) {
	id := uuid.New().String()
	var storedID string
	var inserted bool
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO users (id, email, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE
			SET name = COALESCE(NULLIF(EXCLUDED.name, ''), users.name), updated_at = NOW()
		RETURNING id, (xmax = 0)`,
		id, u.Email, u.Name).Scan(&storedID, &inserted)
	if err != nil {
		return nil, err
	}
	u.ID = storedID
	if inserted {
		return &UpsertResult{UpsertedCount: 1, UpsertedID: storedID}, nil
	}
	return &UpsertResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, email))
}

func (r *userRepoPG) List(ctx context.Context) ([]*User, error) {
	return r.list(ctx, `SELECT `+userCols+` FROM users ORDER BY created_at`)
}

func (r *userRepoPG) ListByRole(ctx context.Context, role Role) ([]*User, error) {
	return r.list(ctx, `SELECT `+userCols+` FROM users WHERE role = $1 ORDER BY created_at`, string(role))
}

func (r *userRepoPG) list(ctx context.Context, query string, args ...interface{}) ([]*User, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*User{}
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}

func (r *userRepoPG) SetRole(ctx context.Context, email string, role Role) (*UpdateResult, error) {
	var matched, modified int64
	err := r.conn(ctx).QueryRow(ctx, `
		WITH target AS (SELECT id, role AS old_role FROM users WHERE email = $1 FOR UPDATE),
		     upd AS (UPDATE users SET role = $2, updated_at = NOW()
		             FROM target WHERE users.id = target.id AND target.old_role <> $2
		             RETURNING users.id)
		SELECT (SELECT COUNT(*) FROM target), (SELECT COUNT(*) FROM upd)`,
		email, string(role)).Scan(&matched, &modified)
	if err != nil {
		return nil, err
	}
	return &UpdateResult{MatchedCount: matched, ModifiedCount: modified}, nil
}

func (r *userRepoPG) DeleteByID(ctx context.Context, id string) (string, int64, error) {
	var email string
	err := r.conn(ctx).QueryRow(ctx, `DELETE FROM users WHERE id = $1 RETURNING email`, id).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, err
	}
	return email, 1, nil
}

func (r *userRepoPG) DeleteByEmail(ctx context.Context, email string) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM users WHERE email = $1`, email)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
