package identity

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicbook/clinic/internal/platform/apperr"
)

// Resolver classifies accounts by role. A missing account resolves to
// RoleNone rather than an error.
type Resolver struct {
	users   UserRepository
	cache   RoleCache
	timeout time.Duration
	logger  zerolog.Logger
}

func NewResolver(users UserRepository, timeout time.Duration, logger zerolog.Logger) *Resolver {
	return &Resolver{users: users, timeout: timeout, logger: logger}
}

// SetCache attaches an optional role cache.
func (r *Resolver) SetCache(c RoleCache) {
	r.cache = c
}

func (r *Resolver) ResolveRole(ctx context.Context, email string) (Role, error) {
	if email == "" {
		return RoleNone, nil
	}

	if r.cache != nil {
		role, ok, err := r.cache.Get(ctx, email)
		if err != nil {
			r.logger.Warn().Err(err).Str("email", email).Msg("role cache read failed")
		} else if ok {
			return ParseRole(role), nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	u, err := r.users.GetByEmail(ctx, email)
	role := RoleNone
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return RoleNone, apperr.Dependency("lookup user", err)
	default:
		role = u.Role
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, email, string(role)); err != nil {
			r.logger.Warn().Err(err).Str("email", email).Msg("role cache write failed")
		}
	}
	return role, nil
}

func (r *Resolver) IsAdmin(ctx context.Context, email string) (bool, error) {
	role, err := r.ResolveRole(ctx, email)
	return role == RoleAdmin, err
}

func (r *Resolver) IsDoctor(ctx context.Context, email string) (bool, error) {
	role, err := r.ResolveRole(ctx, email)
	return role == RoleDoctor, err
}

// Forget drops a cached role after it changed.
func (r *Resolver) Forget(ctx context.Context, email string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, email); err != nil {
		r.logger.Warn().Err(err).Str("email", email).Msg("role cache invalidation failed")
	}
}
