package domain

import (
	"errors"
	"fmt"
)

// ProviderErrorKind is the closed provider failure taxonomy. Every error
// surfaced by a provider fetch is tagged with exactly one kind.
type ProviderErrorKind string

const (
	ProviderUnavailable  ProviderErrorKind = "unavailable"
	ProviderRateLimited  ProviderErrorKind = "rate_limited"
	ProviderParseError   ProviderErrorKind = "parse_error"
	ProviderAuthRequired ProviderErrorKind = "auth_required"
)

type ProviderError struct {
	Provider string
	Kind     ProviderErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("provider %s: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func NewProviderError(provider string, kind ProviderErrorKind, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

// ProviderKindOf extracts the taxonomy kind from an error chain,
// defaulting to Unavailable for untagged failures (timeouts, cancellation).
func ProviderKindOf(err error) ProviderErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ProviderUnavailable
}

type StoreErrorKind string

const (
	StoreUnavailable         StoreErrorKind = "store_unavailable"
	StoreConstraintViolation StoreErrorKind = "constraint_violation"
)

type StoreError struct {
	Kind StoreErrorKind
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func NewStoreError(kind StoreErrorKind, err error) *StoreError {
	return &StoreError{Kind: kind, Err: err}
}

// Config errors are fatal at startup: the engine must not come up with an
// unresolvable provider list or a malformed threshold rule.
var (
	ErrUnknownProvider      = errors.New("unknown provider")
	ErrInvalidThresholdRule = errors.New("invalid threshold rule")
)
