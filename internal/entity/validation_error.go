package entity

import "fmt"

// ErrorKind classifies a validation finding.
type ErrorKind string

const (
	MissingRequiredField ErrorKind = "MissingRequiredField"
	CountMismatch        ErrorKind = "CountMismatch"
	NegativeValue        ErrorKind = "NegativeValue"
	DuplicateItem        ErrorKind = "DuplicateItem"
	TypeMismatch         ErrorKind = "TypeMismatch"
)

// ValidationError is a non-fatal finding about an extracted purchase order.
type ValidationError struct {
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
	ItemIndex *int      `json:"itemIndex,omitempty"`
}

// NewItemError builds a ValidationError pointing at the item at index.
func NewItemError(kind ErrorKind, index int, format string, args ...any) ValidationError {
	i := index
	return ValidationError{
		Kind:      kind,
		Message:   fmt.Sprintf("item %d: ", index) + fmt.Sprintf(format, args...),
		ItemIndex: &i,
	}
}

func (e ValidationError) String() string {
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e ValidationError) Error() string {
	return e.String()
}
