package user

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes credentials via bcrypt. Cost is configurable so
// security/performance can be tuned by environment.
type Hasher struct {
	cost int
}

// NewHasher creates a bcrypt-based hasher with default fallback cost.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (h *Hasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
