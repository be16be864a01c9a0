package apiclient

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies request failures.
type Kind string

const (
	KindNetwork      Kind = "network"
	KindUnauthorized Kind = "unauthorized"
	KindAPI          Kind = "api"
	KindDecode       Kind = "decode"
)

var (
	// ErrSessionExpired is returned (wrapped in *Error) when the API rejected the
	// bearer credential. The credential has been cleared by the time the caller sees it.
	ErrSessionExpired = errors.New("session expired")

	// ErrNotAuthenticated is returned without touching the network when a protected
	// call is attempted with no credential.
	ErrNotAuthenticated = errors.New("not logged in")
)

// Error is a failed API call.
type Error struct {
	Kind      Kind
	Status    int
	Message   string
	RequestID string
	Err       error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status != 0 {
		return fmt.Sprintf("API Error: %d", e.Status)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err is an authorization failure (expired or missing credential).
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrNotAuthenticated)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// UserMessage renders err as a short readable sentence. Transport details stay in the logs.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrSessionExpired):
		return "Your session expired. Please log in again."
	case errors.Is(err, ErrNotAuthenticated):
		return "You are not logged in."
	case errors.Is(err, context.Canceled):
		return "Request cancelled."
	case errors.Is(err, context.DeadlineExceeded):
		return "The server took too long to respond."
	}
	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case KindNetwork:
			return "Could not reach the server. Check your connection."
		case KindDecode:
			return "The server sent an unexpected response."
		}
		return e.Error()
	}
	return "Something went wrong."
}
