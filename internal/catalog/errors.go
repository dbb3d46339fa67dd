package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCourseNotFound = errors.New("course not found")
	ErrCycle          = errors.New("prerequisite cycle")
)

// CatalogError wraps a query failure with the offending course or path.
type CatalogError struct {
	Kind error
	Msg  string
}

func (e *CatalogError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *CatalogError) Unwrap() error { return e.Kind }

func notFound(key string) error {
	return &CatalogError{Kind: ErrCourseNotFound, Msg: fmt.Sprintf("%q", key)}
}

func cycleError(path []string) error {
	return &CatalogError{Kind: ErrCycle, Msg: strings.Join(path, " -> ")}
}
