package errors

import (
	"bufio"
	"fmt"
	"os"
)

// Category represents the type of error.
type Category string

const (
	CategoryHandle    Category = "handle"
	CategoryConfig    Category = "config"
	CategoryScheduler Category = "scheduler"
	CategoryRuntime   Category = "runtime"
	CategoryStorage   Category = "storage"
	CategoryCLI       Category = "cli"
)

// Location represents a position in a configuration or definition file.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Error is a structured error with a stable code, a category and optional
// source location.
type Error struct {
	// Code is a unique error identifier (e.g., "K001").
	Code string

	// Category is the error type (handle, config, ...).
	Category Category

	// Message is a short description of the error.
	Message string

	// Subject names the thing the error is about (e.g., "signal 12").
	Subject string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the file position where the error originated, if any.
	Location *Location

	// Context holds the source lines around Location, starting at line
	// ContextStart.
	Context      []string
	ContextStart int

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Subject != "" {
		msg += " (" + e.Subject + ")"
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target carries the same code. This lets packages
// export a sentinel per code and match any instance with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Code == "" {
		return false
	}
	return t.Code == e.Code
}

// WithSubject names the object the error refers to. It returns a copy so
// sentinels can be decorated safely.
func (e *Error) WithSubject(format string, args ...any) *Error {
	c := *e
	c.Subject = fmt.Sprintf(format, args...)
	return &c
}

// WithLocation adds a file location to the error.
func (e *Error) WithLocation(file string, line, column int) *Error {
	c := *e
	c.Location = &Location{File: file, Line: line, Column: column}
	c.ContextStart, c.Context = sourceWindow(file, line, 2)
	return &c
}

// WithSuggestion adds a fix suggestion to the error.
func (e *Error) WithSuggestion(s string) *Error {
	c := *e
	c.Suggestion = s
	return &c
}

// WithDetail replaces the detailed explanation.
func (e *Error) WithDetail(d string) *Error {
	c := *e
	c.Detail = d
	return &c
}

// Wrap wraps another error.
func (e *Error) Wrap(err error) *Error {
	c := *e
	c.Wrapped = err
	return &c
}

// sourceWindow returns up to radius lines on each side of line, and the
// number of the first one returned.
func sourceWindow(path string, line, radius int) (int, []string) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil
	}
	defer f.Close()

	from := max(line-radius, 1)
	var out []string
	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan() && n <= line+radius; n++ {
		if n >= from {
			out = append(out, sc.Text())
		}
	}
	return from, out
}

// New creates an Error from a registered error code.
func New(code string) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &Error{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a new Error with a formatted message (no code).
func Newf(category Category, format string, args ...any) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in an Error.
func FromError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	if ke, ok := err.(*Error); ok {
		return ke
	}
	return New(code).Wrap(err)
}
