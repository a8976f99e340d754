package services

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is the parent of every validation failure.
var ErrInvalidInput = errors.New("invalid input")

var (
	ErrInvalidIdentity  = fmt.Errorf("%w: enter a valid email address", ErrInvalidInput)
	ErrWeakCredential   = fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidInput)
	ErrPasswordMismatch = fmt.Errorf("%w: passwords do not match", ErrInvalidInput)
	ErrInvalidListing   = fmt.Errorf("%w: all fields are required and the link must be a valid URL", ErrInvalidInput)
	ErrInvalidDeadline  = fmt.Errorf("%w: deadline must be in the future", ErrInvalidInput)
)

var (
	ErrDuplicateIdentity = errors.New("email is already registered")
	ErrNotFound          = errors.New("not found")

	ErrBadCredential     = errors.New("wrong password")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrResetUnauthorized = errors.New("password reset not authorized")
	ErrForbidden         = errors.New("forbidden")

	// ErrOTPExpired matches ErrInvalidOrExpired under errors.Is.
	ErrInvalidOrExpired = errors.New("invalid or expired OTP")
	ErrOTPExpired       = fmt.Errorf("%w: OTP has expired", ErrInvalidOrExpired)

	ErrDispatchFailed = errors.New("failed to send email")
)
