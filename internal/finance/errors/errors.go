package errors

import (
	"errors"
	"fmt"
	"strings"
)

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func NewValidationError(msg string) error {
	return &ValidationError{Msg: msg}
}

func NewFieldValidationError(field, msg string) error {
	return &ValidationError{Msg: fmt.Sprintf("%s: %s", field, msg)}
}

func IsValidationError(err error) bool {
	var validationError *ValidationError
	ok := errors.As(err, &validationError)
	return ok
}

var (
	ErrCategoryNotFound  = errors.New("category not found")
	ErrParentNotFound    = errors.New("parent category not found")
	ErrMaxDepthExceeded  = errors.New("subcategories cannot have their own subcategories")
	ErrProtectedCategory = errors.New("default categories cannot be modified or deleted")
)

// Store level signals, not returned to API callers as-is.
var (
	ErrNothingToUpdate  = errors.New("nothing to update")
	ErrDuplicateDefault = errors.New("default category already exists for user")
)

var ErrSelfParent = NewValidationError("A category cannot be its own parent")

func IsBusinessRuleError(err error) bool {
	return errors.Is(err, ErrParentNotFound) ||
		errors.Is(err, ErrMaxDepthExceeded) ||
		errors.Is(err, ErrProtectedCategory)
}

type ValidationErrors struct {
	Errors []error
}

func (ve *ValidationErrors) Error() string {
	errorMessages := make([]string, len(ve.Errors))
	for i, err := range ve.Errors {
		errorMessages[i] = err.Error()
	}
	return fmt.Sprintf("multiple validation errors: %s", strings.Join(errorMessages, "; "))
}

func (ve *ValidationErrors) Add(err error) {
	ve.Errors = append(ve.Errors, err)
}

func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

// Messages returns the individual messages, used for the "errors" field of API responses.
func (ve *ValidationErrors) Messages() []string {
	messages := make([]string, len(ve.Errors))
	for i, err := range ve.Errors {
		messages[i] = err.Error()
	}
	return messages
}

func IsValidationErrors(err error) bool {
	var validationErrors *ValidationErrors
	ok := errors.As(err, &validationErrors)
	return ok
}

func AsValidationErrors(err error) (*ValidationErrors, bool) {
	var validationErrors *ValidationErrors
	ok := errors.As(err, &validationErrors)
	return validationErrors, ok
}
