package loader

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/leapstack-labs/stepcat/pkg/core"
)

// ParseError represents a document that is not valid YAML.
type ParseError struct {
	File    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.File != "" {
		if e.Line > 0 {
			return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
		}
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}

// Unwrap lets callers match core.ErrInvalidDocument.
func (e *ParseError) Unwrap() error { return core.ErrInvalidDocument }

// MissingFieldError represents a required field that is absent.
type MissingFieldError struct {
	File  string
	Field string
}

func (e *MissingFieldError) Error() string {
	msg := fmt.Sprintf("missing required field %q", e.Field)
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, msg)
	}
	return msg
}

// Unwrap lets callers match core.ErrInvalidDocument.
func (e *MissingFieldError) Unwrap() error { return core.ErrInvalidDocument }

// FieldTypeError represents a field holding the wrong kind of value.
type FieldTypeError struct {
	File  string
	Field string
	Want  string
	Got   string
}

func (e *FieldTypeError) Error() string {
	msg := fmt.Sprintf("field %q must be a %s, got %s", e.Field, e.Want, e.Got)
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, msg)
	}
	return msg
}

// Unwrap lets callers match core.ErrInvalidDocument.
func (e *FieldTypeError) Unwrap() error { return core.ErrInvalidDocument }

// IsInvalidDocument reports whether err was caused by a malformed document.
func IsInvalidDocument(err error) bool {
	return errors.Is(err, core.ErrInvalidDocument)
}

var yamlLinePattern = regexp.MustCompile(`line (\d+)`)

// yamlErrorLine pulls the line number out of a yaml.v3 error message.
func yamlErrorLine(err error) int {
	m := yamlLinePattern.FindStringSubmatch(err.Error())
	if len(m) < 2 {
		return 0
	}
	n, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return 0
	}
	return n
}
