package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// The API client and services wrap these so handlers can choose a page message
// or redirect without inspecting transport details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrUnavailable  = errors.New("voice api unavailable")
)
