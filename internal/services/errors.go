package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks failures worth retrying on a later pass: network
	// errors, timeouts, server 5xx responses.
	ErrTransient = errors.New("transient failure")
	// ErrValidation marks failures the server will reject identically on
	// every retry: 4xx responses, unsupported media, malformed requests.
	ErrValidation = errors.New("validation error")
	// ErrTimeout marks an upload that exceeded its deadline. Classified as
	// retryable, kept distinct for logging.
	ErrTimeout = errors.New("timeout")
	// ErrConfiguration marks local misconfiguration (missing endpoint or
	// credentials). Not retryable until the operator intervenes.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes operation context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsPermanent reports whether an upload error should never be retried
// automatically. Anything not explicitly permanent is treated as transient;
// erring toward retry is safe because uploads are idempotent per item.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrConfiguration)
}

// IsTransient reports whether an upload error is eligible for retry on a
// subsequent pass.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if IsPermanent(err) {
		return false
	}
	return true
}

// IsTimeout reports whether an error stems from a deadline expiry, either
// tagged explicitly or propagated from the context package.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
