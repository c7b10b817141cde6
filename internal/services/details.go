package services

import (
	"errors"
	"strings"
)

// markers orders the sentinels from most to least specific for
// classification.
var markers = []error{
	ErrValidation,
	ErrConfiguration,
	ErrNotFound,
	ErrTimeout,
	ErrExternalTool,
	ErrTransient,
}

// ErrorDetails is the user-facing readout of a stage failure.
type ErrorDetails struct {
	// Marker is the matched sentinel, or nil when the error carries none.
	Marker error
	// Message is the innermost cause's text, the most specific thing we
	// can show a user.
	Message string
}

// Details classifies an error and extracts its innermost message. When
// the chain bottoms out at a bare sentinel (a Wrap call with no cause),
// the full error text is used instead so the stage detail survives.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	message := strings.TrimSpace(innermost(err).Error())
	if isMarker(innermost(err)) || message == "" {
		message = strings.TrimSpace(err.Error())
	}
	return ErrorDetails{Marker: matchMarker(err), Message: message}
}

func matchMarker(err error) error {
	for _, marker := range markers {
		if errors.Is(err, marker) {
			return marker
		}
	}
	return nil
}

func isMarker(err error) bool {
	for _, marker := range markers {
		if err == marker {
			return true
		}
	}
	return false
}

// innermost follows the unwrap chain to its deepest error. Multi-wrapped
// errors (fmt.Errorf with two %w verbs) follow the last child, which Wrap
// places the cause at.
func innermost(err error) error {
	for {
		switch u := err.(type) {
		case interface{ Unwrap() error }:
			next := u.Unwrap()
			if next == nil {
				return err
			}
			err = next
		case interface{ Unwrap() []error }:
			children := u.Unwrap()
			if len(children) == 0 {
				return err
			}
			err = children[len(children)-1]
		default:
			return err
		}
	}
}
