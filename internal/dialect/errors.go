package dialect

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSuchTable is matched by every NoSuchTableError.
	ErrNoSuchTable = errors.New("no such table")

	// ErrAmbiguousSynonym is returned when a name resolves to more than one
	// object through synonyms and no owner was given.
	ErrAmbiguousSynonym = errors.New("there are multiple tables visible to the schema, you must specify owner")

	// ErrMalformedSynonym is returned when a synonym target does not have the
	// object@dblink shape.
	ErrMalformedSynonym = errors.New("malformed synonym target")

	// ErrMissingBind is returned when a compiled statement is rendered
	// without a value for one of its binds.
	ErrMissingBind = errors.New("missing bind parameter")
)

// NoSuchTableError carries the qualified name of the object that was not
// found.
type NoSuchTableError struct {
	Name string
}

func (e *NoSuchTableError) Error() string {
	return fmt.Sprintf("no such table: %s", e.Name)
}

func (e *NoSuchTableError) Is(target error) bool { return target == ErrNoSuchTable }

func noSuchTable(schema, name string) error {
	if schema != "" {
		return &NoSuchTableError{Name: schema + "." + name}
	}
	return &NoSuchTableError{Name: name}
}

// ArgumentError reports an invalid type or statement argument.
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string { return e.Message }

// CompileError reports a construct the server cannot express. It is raised
// before any SQL is sent.
type CompileError struct {
	Message string
}

func (e *CompileError) Error() string { return e.Message }

func compileErrorf(format string, args ...any) error {
	return &CompileError{Message: fmt.Sprintf(format, args...)}
}
