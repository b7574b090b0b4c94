// Package errs holds the application error taxonomy. Gateway and storage
// failures are classified into one of four kinds so the UI can decide between
// an inline banner (NotFound, Validation), a re-login prompt (Unauthorized)
// and a plain retry hint (Network). Wrap call-site context around a sentinel
// with github.com/pkg/errors; the Is* helpers unwind to the cause.
package errs

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

var (
	ErrUnauthorized = stderrors.New("unauthorized")
	ErrNotFound     = stderrors.New("not found")
	ErrNetwork      = stderrors.New("network failure")
	ErrValidation   = stderrors.New("validation failure")
)

func IsUnauthorized(err error) bool {
	return errors.Cause(err) == ErrUnauthorized
}

func IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}

func IsNetwork(err error) bool {
	return errors.Cause(err) == ErrNetwork
}

func IsValidation(err error) bool {
	return errors.Cause(err) == ErrValidation
}
