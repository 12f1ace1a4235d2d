package model

import (
	"errors"
	"fmt"
)

// ErrProductNotFound is returned when a product id or title has no record
var ErrProductNotFound = errors.New("product not found")

// ErrMissingID is returned for a metadata block without a usable Id line
var ErrMissingID = errors.New("record has no id")

// ErrInvalidProductID is returned when a product id cannot be parsed
type ErrInvalidProductID struct {
	Value string
}

func (e ErrInvalidProductID) Error() string {
	return fmt.Sprintf("invalid product ID: %q", e.Value)
}

// ErrMalformedEdgeLine describes an edge list line that was skipped
type ErrMalformedEdgeLine struct {
	Line   int
	Text   string
	Reason string
}

func (e ErrMalformedEdgeLine) Error() string {
	return fmt.Sprintf("malformed edge line %d (%s): %q", e.Line, e.Reason, e.Text)
}

// ErrUnknownSnapshot is returned when a snapshot name is not loaded
type ErrUnknownSnapshot struct {
	Name string
}

func (e ErrUnknownSnapshot) Error() string {
	return fmt.Sprintf("unknown snapshot: %s", e.Name)
}
