package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// These are used at every boundary: store failures, startup aborts and HTTP mapping
// all rely on "wrapped domain errors preserve original code" and "errors.Is matches by code".
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeNotFound, Message: "record not found"}
		s.Equal("record not found", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeNotFound}
		s.Equal("not_found", err.Error())
	})
}

func (s *DomainErrorsSuite) TestUnwrap() {
	s.Run("returns wrapped error", func() {
		inner := errors.New("dwn unreachable")
		err := &Error{Code: CodeInternal, Message: "grant failed", Err: inner}
		s.Equal(inner, err.Unwrap())
	})

	s.Run("works with errors.Unwrap", func() {
		inner := errors.New("root cause")
		err := &Error{Code: CodeInternal, Err: inner}
		s.Equal(inner, errors.Unwrap(err))
	})
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		s.True((&Error{Code: CodeNotFound, Message: "a"}).Is(&Error{Code: CodeNotFound, Message: "b"}))
	})

	s.Run("does not match different codes", func() {
		s.False((&Error{Code: CodeNotFound}).Is(&Error{Code: CodeInternal}))
	})

	s.Run("does not match non-domain errors", func() {
		s.False((&Error{Code: CodeNotFound}).Is(errors.New("not_found")))
	})

	s.Run("works with errors.Is through chain", func() {
		inner := &Error{Code: CodeNotFound, Message: "original"}
		wrapped := fmt.Errorf("outer: %w", inner)
		s.True(errors.Is(wrapped, &Error{Code: CodeNotFound}))
	})
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("preserves existing domain code", func() {
		inner := New(CodeTimeout, "store call timed out")
		err := Wrap(inner, CodeInternal, "authorize failed")
		s.True(HasCode(err, CodeTimeout))
		s.Equal("authorize failed", err.Error())
	})

	s.Run("applies code to plain errors", func() {
		err := Wrap(errors.New("boom"), CodeInternal, "authorize failed")
		s.True(HasCode(err, CodeInternal))
	})

	s.Run("WrapAs overrides the inner code", func() {
		inner := New(CodeTimeout, "store call timed out")
		err := WrapAs(inner, CodeProtocolInstall, "install protocol")
		s.Equal(CodeProtocolInstall, CodeOf(err))
		s.True(errors.Is(err, &Error{Code: CodeTimeout}))
	})
}

func (s *DomainErrorsSuite) TestCodeOf() {
	s.Equal(CodeInvalidRequest, CodeOf(New(CodeInvalidRequest, "missing")))
	s.Equal(CodeInternal, CodeOf(errors.New("plain")))
}
