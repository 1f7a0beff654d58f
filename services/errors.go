package services

import (
	"errors"
	"fmt"
)

// Fehlerklassen an der Grenze zum Optimierungs-Backend und zur Session.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrRequestFailed  = errors.New("request failed")
	ErrNetwork        = errors.New("network error")
	ErrAlreadyLoading = errors.New("session is already loading")
	ErrNoOptimized    = errors.New("no optimized compounds available")
)

// RequestFailedError trägt Status und Body einer Nicht-2xx-Antwort.
type RequestFailedError struct {
	StatusCode int
	Body       string
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("optimization request failed: status %d: %s", e.StatusCode, e.Body)
}

// Is erlaubt errors.Is(err, ErrRequestFailed).
func (e *RequestFailedError) Is(target error) bool {
	return target == ErrRequestFailed
}

// InvalidInputf erzeugt einen ErrInvalidInput mit Kontext.
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
