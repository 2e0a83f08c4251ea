package identity

import (
	"errors"
	"time"
)

// Role is the closed set of account roles. Patients carry RoleNone.
type Role string

const (
	RoleNone   Role = ""
	RoleAdmin  Role = "admin"
	RoleDoctor Role = "doctor"
)

// ParseRole maps a stored role string onto Role. Unknown values fail closed
// to RoleNone.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin
	case RoleDoctor:
		return RoleDoctor
	default:
		return RoleNone
	}
}

// String returns the wire name of the role; RoleNone reads as "patient".
func (r Role) String() string {
	if r == RoleNone {
		return "patient"
	}
	return string(r)
}

var ErrNotFound = errors.New("user not found")

// User is an account keyed by email. It is upserted on login; Role only
// changes through GrantRole.
type User struct {
	ID        string    `json:"_id" bson:"_id"`
	Email     string    `json:"email" bson:"email"`
	Name      string    `json:"name,omitempty" bson:"name,omitempty"`
	Role      Role      `json:"role,omitempty" bson:"role"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Profile is the client-supplied part of a login upsert. Any role the
// client sends is ignored.
type Profile struct {
	Name string `json:"name"`
}

// UpsertResult reports what a login upsert did.
type UpsertResult struct {
	MatchedCount  int64  `json:"matchedCount"`
	ModifiedCount int64  `json:"modifiedCount"`
	UpsertedCount int64  `json:"upsertedCount"`
	UpsertedID    string `json:"upsertedId,omitempty"`
}

// UpdateResult reports how many accounts a role change touched.
type UpdateResult struct {
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

type DeleteResult struct {
	DeletedCount int64 `json:"deletedCount"`
}

type LoginResult struct {
	Result *UpsertResult `json:"result"`
	Token  string        `json:"token"`
}
