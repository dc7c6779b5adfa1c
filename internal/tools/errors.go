package tools

import (
	"errors"
	"fmt"

	"github.com/mateury/next-gen-consultant/internal/adapter/backend"
	"github.com/mateury/next-gen-consultant/internal/domain"
)

// ArgumentError reports a command invoked with the wrong number or type of arguments.
type ArgumentError struct {
	Command domain.CommandName
	Reason  string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Command, e.Reason)
}

// subjectError names the entity a failed backend call was about.
type subjectError struct {
	subject string
	err     error
}

func (e *subjectError) Error() string { return e.subject + ": " + e.err.Error() }
func (e *subjectError) Unwrap() error { return e.err }

func about(subject string, err error) error {
	return &subjectError{subject: subject, err: err}
}

// renderError turns any execution failure into text that is safe to show the model.
func renderError(err error) string {
	var argErr *ArgumentError
	if errors.As(err, &argErr) {
		return fmt.Sprintf("❌ Invalid arguments for %s: %s", argErr.Command, argErr.Reason)
	}

	subject := "backend request"
	var se *subjectError
	if errors.As(err, &se) {
		subject = se.subject
	}

	var be *backend.Error
	if !errors.As(err, &be) {
		return fmt.Sprintf("❌ Tool execution failed: %s", subject)
	}
	switch be.Kind {
	case backend.KindNotFound:
		return fmt.Sprintf("❌ Not found: %s", subject)
	case backend.KindTimeout:
		return fmt.Sprintf("❌ Backend timeout: %s", subject)
	case backend.KindStatus:
		return fmt.Sprintf("❌ Backend error (HTTP %d): %s", be.StatusCode, subject)
	case backend.KindDecode:
		return fmt.Sprintf("❌ Invalid backend response: %s", subject)
	default:
		return fmt.Sprintf("❌ Backend unavailable: %s", subject)
	}
}
