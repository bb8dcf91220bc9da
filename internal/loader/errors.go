package loader

import (
	"errors"
	"fmt"
)

var (
	// ErrIngestion matches every loader failure; ingestion errors abort a run.
	ErrIngestion = errors.New("ingestion failed")

	ErrMissingColumn = errors.New("missing column")
	ErrDuplicateShop = errors.New("duplicate shop id")
	ErrEmptyFile     = errors.New("empty file")
)

// IOError reports an input file that could not be opened or read.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIngestion }

// ParseError reports a field that does not conform to its column type.
// Line is 1-based and counts the header.
type ParseError struct {
	Path   string
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s:%d: column %q: %v", e.Path, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("%s:%d: column %q: value %q: %v", e.Path, e.Line, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrIngestion }
