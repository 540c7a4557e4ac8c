package validate

import (
	"errors"
	"sort"
	"strings"
)

// FieldError reports why a single field was rejected.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// FieldErrors is returned when one or more fields fail validation.
type FieldErrors []*FieldError

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields maps field names to messages, as rendered in HTTP error bodies.
func (e FieldErrors) Fields() map[string]string {
	out := make(map[string]string, len(e))
	for _, fe := range e {
		out[fe.Field] = fe.Message
	}
	return out
}

// Has reports whether field is among the failures.
func (e FieldErrors) Has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func (e FieldErrors) sort() {
	sort.Slice(e, func(i, j int) bool { return e[i].Field < e[j].Field })
}

func asFieldError(field string, err error) *FieldError {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe
	}
	return &FieldError{Field: field, Message: err.Error()}
}
