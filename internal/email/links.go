package email

import (
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Action names carried inside action tokens.
const (
	ActionResetCredentials = "reset-credentials"
	ActionVerifyEmail      = "verify-email"
)

// ResetCredentialsURL builds the realm's public password-reset entry point.
// Step 1 hands it out as an error parameter when the email is already taken.
func ResetCredentialsURL(baseURL, realm string) string {
	return fmt.Sprintf("%s/realms/%s/login-actions/reset-credentials", baseURL, url.PathEscape(realm))
}

// ActionLinks builds single-use links for email notifications. Each link
// carries a signed, expiring token naming the action, the user and the
// address it was issued for.
type ActionLinks struct {
	baseURL    string
	realm      string
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time
}

func NewActionLinks(baseURL, realm, signingKey string, ttl time.Duration) *ActionLinks {
	return &ActionLinks{
		baseURL:    baseURL,
		realm:      realm,
		signingKey: []byte(signingKey),
		ttl:        ttl,
		now:        time.Now,
	}
}

type actionClaims struct {
	Action string `json:"act"`
	Email  string `json:"eml"`
	jwt.RegisteredClaims
}

// TTL reports how long issued links stay valid.
func (l *ActionLinks) TTL() time.Duration {
	return l.ttl
}

// Build returns a link for the given action, bound to the user and address.
func (l *ActionLinks) Build(action, userID, email string) (string, error) {
	now := l.now()
	claims := actionClaims{
		Action: action,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    l.realm,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(l.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(l.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign action token: %w", err)
	}
	return fmt.Sprintf("%s/realms/%s/login-actions/action-token?key=%s",
		l.baseURL, url.PathEscape(l.realm), url.QueryEscape(token)), nil
}

// Parse validates a token and returns (action, userID, email). Used by the
// endpoints that consume the emailed links.
func (l *ActionLinks) Parse(token string) (action, userID, email string, err error) {
	claims := &actionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return l.signingKey, nil
	})
	if err != nil {
		return "", "", "", fmt.Errorf("parse action token: %w", err)
	}
	if !parsed.Valid {
		return "", "", "", fmt.Errorf("invalid action token")
	}
	return claims.Action, claims.Subject, claims.Email, nil
}
