package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrProvider        = errors.New("rate provider error")
	ErrDataUnavailable = errors.New("offline data unavailable")
	ErrUnsupported     = errors.New("unsupported operation")
)

// NotFoundError reports an unknown currency code or name.
type NotFoundError struct {
	Kind string // "code" or "name"
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("currency not supported: %s %q", e.Kind, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ProviderError covers bad HTTP status, error envelopes and malformed bodies from the rate provider.
type ProviderError struct {
	Op     string
	Status int    // HTTP status, 0 when not applicable
	Code   int    // provider error code from the body, 0 when absent
	Info   string // human readable reason
	Err    error
}

func (e *ProviderError) Error() string {
	msg := e.Info
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Code != 0:
		return fmt.Sprintf("%s: provider error %d: %s", e.Op, e.Code, msg)
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, msg)
	default:
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// DataUnavailableError means the offline cache has no answer for the request.
type DataUnavailableError struct {
	What string
}

func (e *DataUnavailableError) Error() string {
	return "offline data unavailable: " + e.What
}

func (e *DataUnavailableError) Is(target error) bool { return target == ErrDataUnavailable }

// UnsupportedOperationError is returned by a strategy that cannot serve Op.
type UnsupportedOperationError struct {
	Op       string
	Strategy string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s is not supported by the %s strategy", e.Op, e.Strategy)
}

func (e *UnsupportedOperationError) Is(target error) bool { return target == ErrUnsupported }
