// Package apperror defines the error kinds surfaced by the marketplace engine.
package apperror

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Kind classifies an expected business failure.
type Kind string

const (
	// KindUnknown represents an error that does not carry a kind.
	KindUnknown Kind = "unknown"
	// KindNotFound indicates a referenced entity does not exist.
	KindNotFound Kind = "not_found"
	// KindUnauthorized indicates the actor lacks permission for the action.
	KindUnauthorized Kind = "unauthorized"
	// KindValidation indicates malformed input or failing payload rules.
	KindValidation Kind = "validation"
	// KindStateConflict indicates the entity is not in the required lifecycle state.
	KindStateConflict Kind = "state_conflict"
	// KindNotificationDelivery indicates the event emission side effect failed.
	KindNotificationDelivery Kind = "notification_delivery"
)

// Sentinels usable with errors.Is to match on kind alone.
var (
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrUnauthorized         = &Error{Kind: KindUnauthorized}
	ErrValidation           = &Error{Kind: KindValidation}
	ErrStateConflict        = &Error{Kind: KindStateConflict}
	ErrNotificationDelivery = &Error{Kind: KindNotificationDelivery}
)

// Error is a kinded error. Validation errors carry every violation in Details.
type Error struct {
	Kind    Kind
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if len(e.Details) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(e.Details, "; "))
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so the package sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind && (other.Message == "" || other.Message == e.Message)
}

// NotFound builds a NotFound error for the named entity.
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

// Unauthorized builds an Unauthorized error.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// StateConflict builds a StateConflict error.
func StateConflict(message string) *Error {
	return &Error{Kind: KindStateConflict, Message: message}
}

// Validation aggregates violations into a single error.
func Validation(details ...string) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Details: details}
}

// NotificationDelivery wraps a notifier failure.
func NotificationDelivery(err error) *Error {
	return &Error{Kind: KindNotificationDelivery, Message: "notification delivery failed", Err: err}
}

// FromValidator converts validator.ValidationErrors into an aggregated Validation error.
// Any other error is returned unchanged.
func FromValidator(err error) error {
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	details := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details = append(details, describeFieldError(fieldErr))
	}
	return Validation(details...)
}

func describeFieldError(fieldErr validator.FieldError) string {
	field := fieldErr.Field()
	switch fieldErr.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fieldErr.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fieldErr.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fieldErr.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fieldErr.Tag())
	}
}

// KindOf returns the kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// DetailsOf returns the aggregated violations of a Validation error.
func DetailsOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}
