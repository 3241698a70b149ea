// Package common defines shared constants and sentinel errors used across
// contentgate components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Validation errors (empty description, malformed content id or deep link).
	ErrValidation = errors.New("validation error")

	// Token lifecycle errors. ErrTokenExpiredOrUsed is reported distinctly
	// from ErrorNotFound so the viewer knows to request reissuance.
	ErrTokenExpiredOrUsed = errors.New("token expired or already used")
	ErrTokenNotOwner      = errors.New("token belongs to another user")

	// Upload flow errors.
	ErrWrongPassword = errors.New("wrong password")

	// Delivery errors. The content row stays persisted when announcement
	// fails; the caller reports and does not retry.
	ErrDeliveryFailed = errors.New("delivery failed")
)
