package user

import (
	"time"
)

// User is the identity record the registration flow materializes. Email
// doubles as username; extra profile data lives in Attributes.
//
// Invariants:
//   - Email and Username are non-empty and equal for self-registered users
//   - EmailVerified is always false at creation
//   - CredentialHash holds a bcrypt hash, never a raw password
type User struct {
	ID             string              `json:"id"`
	Username       string              `json:"username"`
	Email          string              `json:"email"`
	Enabled        bool                `json:"enabled"`
	EmailVerified  bool                `json:"email_verified"`
	FirstName      string              `json:"first_name"`
	LastName       string              `json:"last_name"`
	Attributes     map[string][]string `json:"attributes,omitempty"`
	CredentialHash string              `json:"-"` // never serialize
	CreatedAt      time.Time           `json:"created_at"`
}

// SetSingleAttribute replaces the attribute with one value.
func (u *User) SetSingleAttribute(name, value string) {
	if u.Attributes == nil {
		u.Attributes = make(map[string][]string)
	}
	u.Attributes[name] = []string{value}
}

// SetAttribute replaces the attribute with a multi-valued list,
// order-preserving.
func (u *User) SetAttribute(name string, values []string) {
	if u.Attributes == nil {
		u.Attributes = make(map[string][]string)
	}
	cp := make([]string, len(values))
	copy(cp, values)
	u.Attributes[name] = cp
}

// Attribute returns all values for an attribute.
func (u *User) Attribute(name string) []string {
	return u.Attributes[name]
}

// FirstAttribute returns the first value for an attribute, or "".
func (u *User) FirstAttribute(name string) string {
	if vs := u.Attributes[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}
