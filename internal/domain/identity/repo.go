package identity

import (
	"context"
)

type UserRepository interface {
	// Upsert creates the account on first login and refreshes its profile
	// afterwards. It never writes Role.
	Upsert(ctx context.Context, u *User) (*UpsertResult, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	ListByRole(ctx context.Context, role Role) ([]*User, error)
	SetRole(ctx context.Context, email string, role Role) (*UpdateResult, error)
	// DeleteByID removes the account and returns its email. A missing id
	// deletes nothing and returns an empty email.
	DeleteByID(ctx context.Context, id string) (email string, deleted int64, err error)
	DeleteByEmail(ctx context.Context, email string) (int64, error)
}

// RoleCache is a best-effort cache of email -> role name.
type RoleCache interface {
	Get(ctx context.Context, email string) (string, bool, error)
	Set(ctx context.Context, email, role string) error
	Delete(ctx context.Context, email string) error
}
