package catalog

import (
	"errors"
	"fmt"
)

// ResolutionErrorKind classifies why an object could not be resolved or read.
type ResolutionErrorKind int

const (
	// Missing means the id no longer maps to an object.
	Missing ResolutionErrorKind = iota + 1
	// Corrupt means the stored record failed at the storage layer.
	Corrupt
	// TypeMismatch means the record decoded into an unexpected or legacy shape.
	TypeMismatch
	// Attribute means a field could not be read. It is ambiguous and never
	// leads to removal.
	Attribute
)

func (k ResolutionErrorKind) String() string {
	switch k {
	case Missing:
		return "missing"
	case Corrupt:
		return "corrupt"
	case TypeMismatch:
		return "type_mismatch"
	case Attribute:
		return "attribute"
	default:
		return "unknown"
	}
}

// ResolutionError is returned by collaborators when an object cannot be used.
type ResolutionError struct {
	ID       IntID
	Kind     ResolutionErrorKind
	TypeName string
	Err      error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("resolve %d: %s", e.ID, e.Kind)
	if e.TypeName != "" {
		msg += " (" + e.TypeName + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// NewResolutionError builds a ResolutionError.
func NewResolutionError(id IntID, kind ResolutionErrorKind, typeName string, err error) *ResolutionError {
	return &ResolutionError{ID: id, Kind: kind, TypeName: typeName, Err: err}
}

// ResolutionKind reports the kind carried by err, if any.
func ResolutionKind(err error) (ResolutionErrorKind, bool) {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re.Kind, true
	}
	return 0, false
}

// IsBrokenErr reports whether err marks a record as unusable (corrupt or wrong type).
func IsBrokenErr(err error) bool {
	kind, ok := ResolutionKind(err)
	return ok && (kind == Corrupt || kind == TypeMismatch)
}
