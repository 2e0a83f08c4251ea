package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/clinicbook/clinic/internal/platform/apperr"
)

// Claims is the identity payload carried by an access token.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Verifier validates bearer credentials signed with a shared secret.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret, now: time.Now}
}

// Verify decodes a credential. An empty credential is Unauthorized (nothing
// was presented); any signature, format or expiry failure is Forbidden.
func (v *Verifier) Verify(credential string) (*Claims, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, apperr.Unauthorized("UnAuthorized access")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil || !token.Valid {
		return nil, &apperr.Error{Kind: apperr.KindForbidden, Message: "Forbidden access", Err: err}
	}
	if claims.Email == "" {
		return nil, apperr.Forbidden("Forbidden access")
	}
	return claims, nil
}

// Issuer signs access tokens for a verified login.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{secret: secret, ttl: ttl, now: time.Now}
}

func (i *Issuer) Issue(email string) (string, error) {
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Email: email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}
