package password

import (
	"strconv"
	"strings"
	"unicode"
)

// Message keys surfaced as field errors when a candidate password violates
// the realm policy.
const (
	MsgMinLength   = "invalidPasswordMinLengthMessage"
	MsgMinDigits   = "invalidPasswordMinDigitsMessage"
	MsgNotUsername = "invalidPasswordNotUsernameMessage"
)

// PolicyError describes a single policy violation. Message is a message key;
// Params parameterize it (for example the required minimum length).
type PolicyError struct {
	Message string
	Params  []string
}

// Policy validates a candidate password. The username is a surrogate during
// registration: no user exists yet, so the submitted email stands in.
type Policy interface {
	Validate(username, password string) *PolicyError
}

// Chain runs policies in order and reports the first violation.
type Chain []Policy

func (c Chain) Validate(username, password string) *PolicyError {
	for _, p := range c {
		if err := p.Validate(username, password); err != nil {
			return err
		}
	}
	return nil
}

// MinLength requires at least n characters.
type MinLength int

func (m MinLength) Validate(_, password string) *PolicyError {
	if len([]rune(password)) < int(m) {
		return &PolicyError{Message: MsgMinLength, Params: []string{strconv.Itoa(int(m))}}
	}
	return nil
}

// MinDigits requires at least n numeric characters.
type MinDigits int

func (m MinDigits) Validate(_, password string) *PolicyError {
	count := 0
	for _, r := range password {
		if unicode.IsDigit(r) {
			count++
		}
	}
	if count < int(m) {
		return &PolicyError{Message: MsgMinDigits, Params: []string{strconv.Itoa(int(m))}}
	}
	return nil
}

// NotUsername rejects passwords equal to the username surrogate.
type NotUsername struct{}

func (NotUsername) Validate(username, password string) *PolicyError {
	if username != "" && strings.EqualFold(username, password) {
		return &PolicyError{Message: MsgNotUsername}
	}
	return nil
}

// Default returns the realm's stock policy.
func Default() Policy {
	return Chain{MinLength(8), MinDigits(1), NotUsername{}}
}
