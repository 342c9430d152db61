package domainerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorString() {
	s.Equal("check result not found", (&Error{Code: CodeNotFound, Message: "check result not found"}).Error())
	s.Equal("not_found", (&Error{Code: CodeNotFound}).Error())
}

func (s *DomainErrorsSuite) TestIsMatchesByCode() {
	s.True(errors.Is(New(CodeNotFound, "a"), &Error{Code: CodeNotFound}))
	s.False(errors.Is(New(CodeNotFound, "a"), &Error{Code: CodeInternal}))
	s.False((&Error{Code: CodeNotFound}).Is(errors.New("not_found")))

	inner := &Error{Code: CodeMissingSession}
	outer := &Error{Code: CodeInternal, Err: inner}
	s.True(errors.Is(outer, &Error{Code: CodeMissingSession}))
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("preserves original domain code", func() {
		wrapped := Wrap(New(CodeNotFound, "session not found"), CodeInternal, "issue failed")
		var de *Error
		s.Require().True(errors.As(wrapped, &de))
		s.Equal(CodeNotFound, de.Code)
		s.Equal("issue failed", de.Message)
	})

	s.Run("uses provided code for plain errors", func() {
		root := errors.New("dial tcp: connection refused")
		wrapped := Wrap(root, CodeUnavailable, "store unavailable")
		s.True(HasCode(wrapped, CodeUnavailable))
		s.True(errors.Is(wrapped, root))
	})
}

func (s *DomainErrorsSuite) TestHasCode() {
	s.True(HasCode(New(CodeValidation, "surname is required"), CodeValidation))
	s.False(HasCode(errors.New("plain"), CodeValidation))
	s.False(HasCode(nil, CodeValidation))
}

func (s *DomainErrorsSuite) TestCodeOf() {
	code, ok := CodeOf(Wrap(errors.New("redis down"), CodeInternal, "failed to store check result"))
	s.True(ok)
	s.Equal(CodeInternal, code)

	_, ok = CodeOf(errors.New("plain"))
	s.False(ok)

	_, ok = CodeOf(nil)
	s.False(ok)
}
