package types

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLimit is returned when a drain limit is zero. Negative limits mean "no limit".
	ErrInvalidLimit = errors.New("invalid queue limit")

	// ErrInvalidAcceptType is returned when an accepted mime type is malformed
	ErrInvalidAcceptType = errors.New("invalid accept type")

	// ErrCollaboratorUnavailable is returned when a required backend is not configured
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
)

// ErrPrincipalNotFound is returned when a principal cannot be resolved
type ErrPrincipalNotFound struct {
	Name string
}

func (e *ErrPrincipalNotFound) Error() string {
	return fmt.Sprintf("principal not found: %s", e.Name)
}

// From checks if the given error is an ErrPrincipalNotFound
func (e *ErrPrincipalNotFound) From(err error) bool {
	var notFound *ErrPrincipalNotFound
	return errors.As(err, &notFound)
}

// ErrCatalogNotFound is returned when a named catalog is not registered
type ErrCatalogNotFound struct {
	Name string
}

func (e *ErrCatalogNotFound) Error() string {
	return fmt.Sprintf("catalog not found: %s", e.Name)
}

// From checks if the given error is an ErrCatalogNotFound
func (e *ErrCatalogNotFound) From(err error) bool {
	var notFound *ErrCatalogNotFound
	return errors.As(err, &notFound)
}

// Unavailable wraps ErrCollaboratorUnavailable with the missing component name
func Unavailable(component string) error {
	return fmt.Errorf("%w: %s", ErrCollaboratorUnavailable, component)
}
