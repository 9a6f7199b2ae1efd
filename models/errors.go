package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrDuplicateSpamReport = errors.New("you have already reported this issue")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
	ErrInvalidRadius       = errors.New("radius must be a positive number of meters")
	ErrTimeout             = errors.New("request deadline exceeded")
	ErrUploadFailed        = errors.New("image upload failed")
	ErrForbidden           = errors.New("not authorized")
	ErrDuplicateEmail      = errors.New("user with this email already exists")

	// ErrStatusConflict means the issue's status changed between read and
	// compare-and-set; callers re-read and re-validate.
	ErrStatusConflict = errors.New("issue status changed concurrently")
)

// InvalidTransitionError is returned for a status change outside the lifecycle table.
type InvalidTransitionError struct {
	From IssueStatus
	To   IssueStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError enumerates every violated field of a request.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns nil when no field was recorded.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "validation error: " + strings.Join(parts, "; ")
}

// Has reports whether field was flagged.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}
