package domain

import (
	"fmt"
	"strings"
)

// UnknownProviderError means the client asked for a provider that is not
// in the catalog. Detected before any network call is made.
type UnknownProviderError struct {
	Name      string
	Available []string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// ProviderUnavailableError wraps a transport or backend failure from an
// outbound provider call.
type ProviderUnavailableError struct {
	Provider string
	Err      error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("provider %q unavailable: %v", e.Provider, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error {
	return e.Err
}

// NotImplementedError marks a declared but unbuilt feature. The reason
// names the missing dependency so callers can report something useful.
type NotImplementedError struct {
	Feature string
	Reason  string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("%s is not implemented: %s", e.Feature, e.Reason)
}
