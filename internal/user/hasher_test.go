package user

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type HasherSuite struct {
	suite.Suite
	hasher *Hasher
}

func TestHasherSuite(t *testing.T) {
	suite.Run(t, new(HasherSuite))
}

func (s *HasherSuite) SetupTest() {
	s.hasher = NewHasher(4) // low cost keeps the suite fast
}

func (s *HasherSuite) TestHashAndCompare() {
	hash, err := s.hasher.Hash("s3curePwd1")
	s.Require().NoError(err)
	s.NotEqual("s3curePwd1", hash)

	s.NoError(s.hasher.Compare(hash, "s3curePwd1"))
	s.Error(s.hasher.Compare(hash, "wrong"))
}

func (s *HasherSuite) TestHashesAreSalted() {
	first, err := s.hasher.Hash("s3curePwd1")
	s.Require().NoError(err)
	second, err := s.hasher.Hash("s3curePwd1")
	s.Require().NoError(err)
	s.NotEqual(first, second)
}
