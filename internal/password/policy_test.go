package password

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type PolicySuite struct {
	suite.Suite
}

func TestPolicySuite(t *testing.T) {
	suite.Run(t, new(PolicySuite))
}

func (s *PolicySuite) TestMinLength() {
	s.Run("rejects short passwords with the limit as parameter", func() {
		err := MinLength(8).Validate("a@b.com", "short1")
		s.Require().NotNil(err)
		s.Equal(MsgMinLength, err.Message)
		s.Equal([]string{"8"}, err.Params)
	})

	s.Run("counts runes, not bytes", func() {
		s.Nil(MinLength(8).Validate("a@b.com", "pàsswörd"))
	})
}

func (s *PolicySuite) TestMinDigits() {
	err := MinDigits(1).Validate("a@b.com", "nodigits")
	s.Require().NotNil(err)
	s.Equal(MsgMinDigits, err.Message)

	s.Nil(MinDigits(1).Validate("a@b.com", "one1digit"))
}

func (s *PolicySuite) TestNotUsername() {
	s.Run("rejects the username surrogate case-insensitively", func() {
		err := NotUsername{}.Validate("Jane@Example.com", "jane@example.com")
		s.Require().NotNil(err)
		s.Equal(MsgNotUsername, err.Message)
	})

	s.Run("empty username never matches", func() {
		s.Nil(NotUsername{}.Validate("", ""))
	})
}

func (s *PolicySuite) TestDefaultChain() {
	policy := Default()

	s.Run("reports the first violation in order", func() {
		err := policy.Validate("a@b.com", "short")
		s.Require().NotNil(err)
		s.Equal(MsgMinLength, err.Message)
	})

	s.Run("accepts a compliant password", func() {
		s.Nil(policy.Validate("a@b.com", "s3curePwd1"))
	})
}
