package transport

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyPayload is returned when a strategy answers 2xx with a blank body.
	ErrEmptyPayload = errors.New("empty payload")
	// ErrNoStrategies is returned when a client has nothing to try.
	ErrNoStrategies = errors.New("no transport strategies configured")
)

// StatusError is a non-2xx answer from a strategy.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.Code, e.URL)
}

// Attempt is the failure of a single strategy.
type Attempt struct {
	Strategy string
	Err      error
}

// FetchError is returned after every strategy failed for a target.
type FetchError struct {
	Target   string
	Attempts []Attempt
}

func (e *FetchError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("fetch %s: %v", e.Target, ErrNoStrategies)
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Strategy, a.Err))
	}
	return fmt.Sprintf("fetch %s failed (%s)", e.Target, strings.Join(parts, "; "))
}

// Unwrap exposes every attempt's error to errors.Is and errors.As.
func (e *FetchError) Unwrap() []error {
	if len(e.Attempts) == 0 {
		return []error{ErrNoStrategies}
	}
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}
