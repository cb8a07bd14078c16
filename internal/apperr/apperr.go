package apperr

import "errors"

var (
	// ErrInvalidArgument is a generic sentinel for missing or malformed input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnauthorized is a generic sentinel for failed authentication,
	// including webhook signature mismatches.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden marks requests from users without generation entitlement.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUpstream marks failures of an external collaborator (model provider,
	// payment provider, image search).
	ErrUpstream = errors.New("upstream failure")
	// ErrPersistence marks data-store write failures.
	ErrPersistence = errors.New("persistence failure")
)
