package identity

import (
	"context"
	"strings"
	"time"

	"github.com/clinicbook/clinic/internal/platform/apperr"
)

// TokenIssuer signs an access token for an email.
type TokenIssuer interface {
	Issue(email string) (string, error)
}

type Service struct {
	users    UserRepository
	resolver *Resolver
	issuer   TokenIssuer
	timeout  time.Duration
}

func NewService(users UserRepository, resolver *Resolver, issuer TokenIssuer, timeout time.Duration) *Service {
	return &Service{users: users, resolver: resolver, issuer: issuer, timeout: timeout}
}

func (s *Service) Resolver() *Resolver { return s.resolver }

// Login upserts the account for email and returns a freshly signed token.
func (s *Service) Login(ctx context.Context, email string, profile Profile) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperr.BadRequest("email is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res, err := s.users.Upsert(ctx, &User{Email: email, Name: profile.Name})
	if err != nil {
		return nil, apperr.Dependency("upsert user", err)
	}
	token, err := s.issuer.Issue(email)
	if err != nil {
		return nil, &apperr.Error{Kind: apperr.KindUnknown, Message: "issue token", Err: err}
	}
	return &LoginResult{Result: res, Token: token}, nil
}

// GrantRole sets the role of an existing account. A missing account is
// NotFound.
func (s *Service) GrantRole(ctx context.Context, email string, role Role) (*UpdateResult, error) {
	if email == "" {
		return nil, apperr.BadRequest("email is required")
	}
	if role != RoleAdmin && role != RoleDoctor {
		return nil, apperr.BadRequest("unsupported role")
	}

	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res, err := s.users.SetRole(tctx, email, role)
	if err != nil {
		return nil, apperr.Dependency("update user role", err)
	}
	if res.MatchedCount == 0 {
		return nil, apperr.NotFound("user not found")
	}
	s.resolver.Forget(ctx, email)
	return res, nil
}

func (s *Service) MakeAdmin(ctx context.Context, email string) (*UpdateResult, error) {
	return s.GrantRole(ctx, email, RoleAdmin)
}

func (s *Service) MakeDoctor(ctx context.Context, email string) (*UpdateResult, error) {
	return s.GrantRole(ctx, email, RoleDoctor)
}

func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperr.Dependency("list users", err)
	}
	return users, nil
}

func (s *Service) ListDoctors(ctx context.Context) ([]*User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	users, err := s.users.ListByRole(ctx, RoleDoctor)
	if err != nil {
		return nil, apperr.Dependency("list doctors", err)
	}
	return users, nil
}

// DeleteUser removes an account by id and drops its cached role.
func (s *Service) DeleteUser(ctx context.Context, id string) (*DeleteResult, error) {
	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	email, n, err := s.users.DeleteByID(tctx, id)
	if err != nil {
		return nil, apperr.Dependency("delete user", err)
	}
	if email != "" {
		s.resolver.Forget(ctx, email)
	}
	return &DeleteResult{DeletedCount: n}, nil
}

func (s *Service) DeleteUserByEmail(ctx context.Context, email string) (*DeleteResult, error) {
	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	n, err := s.users.DeleteByEmail(tctx, email)
	if err != nil {
		return nil, apperr.Dependency("delete user", err)
	}
	s.resolver.Forget(ctx, email)
	return &DeleteResult{DeletedCount: n}, nil
}
