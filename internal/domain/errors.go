package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSessionClosed is returned by any operation on a closed session
var ErrSessionClosed = errors.New("graph session is closed")

// ErrNotFound is returned by direct lookups of a node id that does not exist
var ErrNotFound = errors.New("not found")

// ConnectionError reports a store that could not be reached
type ConnectionError struct {
	Backend string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s store: %v", e.Backend, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// MalformedValueError is returned when a property cannot be coerced to its
// canonical form
type MalformedValueError struct {
	Property string
	Value    Value
	Reason   string
}

func (e *MalformedValueError) Error() string {
	return fmt.Sprintf("malformed value for %s: %s (%s)", e.Property, e.Value, e.Reason)
}

// MissingProvenanceError is returned when a link lacks a mandatory
// provenance property. Index is the position in a batch, or -1.
type MissingProvenanceError struct {
	Type    string
	Index   int
	Missing []string
}

func (e *MissingProvenanceError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("link %s at index %d missing provenance: %s", e.Type, e.Index, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("link %s missing provenance: %s", e.Type, strings.Join(e.Missing, ", "))
}

// MissingKeyError is returned when a request for a constrained label lacks
// one of the label's key properties
type MissingKeyError struct {
	Label    string
	Property string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("node %s missing key property %s", e.Label, e.Property)
}

// ConstraintViolationError is returned when the store rejects a write
type ConstraintViolationError struct {
	Label    string
	Property string
	Rule     Rule
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("constraint %s on %s.%s violated", e.Rule, e.Label, e.Property)
}

// UnsupportedConstraintError is returned when a declaration cannot be
// honored, e.g. a second UNIQUE property on one label
type UnsupportedConstraintError struct {
	Label    string
	Property string
	Reason   string
}

func (e *UnsupportedConstraintError) Error() string {
	return fmt.Sprintf("unsupported constraint on %s.%s: %s", e.Label, e.Property, e.Reason)
}

// InvalidIdentifierError is returned for labels, types or property names
// that are not plain identifiers
type InvalidIdentifierError struct {
	Kind string
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Kind, e.Name)
}

// UnknownNodeError is returned when a link endpoint does not exist
type UnknownNodeError struct {
	ID NodeID
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("unknown node %d", e.ID)
}
