package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
)

// ANSI escape sequences.
const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiGray   = "\033[90m"
	ansiBold   = "\033[1m"
)

// detailWidth is the wrap width of detail paragraphs.
const detailWidth = 72

var plain atomic.Bool

// DisableColors turns off ANSI colors in Format. The CLI calls it when
// stderr is not a terminal.
func DisableColors() {
	plain.Store(true)
}

// EnableColors turns ANSI colors back on.
func EnableColors() {
	plain.Store(false)
}

func paint(style, text string) string {
	if plain.Load() || text == "" {
		return text
	}
	return style + text + ansiReset
}

// Format renders the error for a terminal:
//
//	error[K010] Invalid configuration: scheduler.maxFlushPasses
//	  --> kinetic.yaml:2:19
//	     |
//	   2 |   maxFlushPasses: 0
//	     |                   ^
//
//	  Detail, wrapped.
//	  caused by: ...
//	  hint: ...
func (e *Error) Format() string {
	var b strings.Builder

	b.WriteString("\n")
	head := "error"
	if e.Code != "" {
		head += "[" + e.Code + "]"
	}
	b.WriteString(paint(ansiRed+ansiBold, head))
	b.WriteString(" ")
	b.WriteString(paint(ansiBold, e.Message))
	if e.Subject != "" {
		b.WriteString(": ")
		b.WriteString(e.Subject)
	}
	b.WriteString("\n")

	if e.Location != nil {
		b.WriteString("  ")
		b.WriteString(paint(ansiCyan, "--> "+e.Location.String()))
		b.WriteString("\n")
		e.writeContext(&b)
	}
	b.WriteString("\n")

	for _, line := range wrapText(e.Detail, detailWidth) {
		b.WriteString("  " + line + "\n")
	}
	for cause := e.Wrapped; cause != nil; cause = stderrors.Unwrap(cause) {
		b.WriteString("  " + paint(ansiGray, "caused by: ") + causeText(cause) + "\n")
		if _, ok := cause.(*Error); ok {
			break
		}
	}
	if e.Suggestion != "" {
		b.WriteString("  " + paint(ansiYellow, "hint: ") + e.Suggestion + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

// causeText prints a cause without repeating the chain below it.
func causeText(err error) string {
	if ke, ok := err.(*Error); ok {
		return ke.FormatCompact()
	}
	return err.Error()
}

// writeContext prints the source lines around the location with a gutter
// and a caret under the column.
func (e *Error) writeContext(b *strings.Builder) {
	if len(e.Context) == 0 {
		return
	}
	gutter := paint(ansiGray, "|")
	first := e.ContextStart

	fmt.Fprintf(b, "%6s %s\n", "", gutter)
	for i, src := range e.Context {
		n := first + i
		num := fmt.Sprintf("%4d", n)
		if n == e.Location.Line {
			num = paint(ansiBold, num)
		}
		fmt.Fprintf(b, "  %s %s %s\n", num, gutter, src)
		if n == e.Location.Line && e.Location.Column > 0 {
			fmt.Fprintf(b, "%6s %s %s%s\n", "", gutter, strings.Repeat(" ", e.Location.Column-1), paint(ansiRed, "^"))
		}
	}
}

// FormatCompact returns the error on one line:
//
//	kinetic.yaml:2:19: K010: Invalid configuration (scheduler.maxFlushPasses)
func (e *Error) FormatCompact() string {
	var parts []string
	if e.Location != nil {
		parts = append(parts, e.Location.String())
	}
	if e.Code != "" {
		parts = append(parts, e.Code)
	}
	msg := e.Message
	if e.Subject != "" {
		msg += " (" + e.Subject + ")"
	}
	return strings.Join(append(parts, msg), ": ")
}

type jsonLocation struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column,omitempty"`
}

type jsonError struct {
	Code       string        `json:"code,omitempty"`
	Category   Category      `json:"category"`
	Message    string        `json:"message"`
	Subject    string        `json:"subject,omitempty"`
	Detail     string        `json:"detail,omitempty"`
	Location   *jsonLocation `json:"location,omitempty"`
	Suggestion string        `json:"suggestion,omitempty"`
	Cause      string        `json:"cause,omitempty"`
}

// FormatJSON returns the error as a single JSON object, for log pipelines
// and the inspector.
func (e *Error) FormatJSON() string {
	out := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Subject:    e.Subject,
		Detail:     e.Detail,
		Suggestion: e.Suggestion,
	}
	if e.Location != nil {
		out.Location = &jsonLocation{File: e.Location.File, Line: e.Location.Line, Column: e.Location.Column}
	}
	if e.Wrapped != nil {
		out.Cause = e.Wrapped.Error()
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprintf(`{"message":%q}`, e.Error())
	}
	return string(data)
}

// wrapText breaks text into lines of at most width bytes at spaces. A word
// longer than width gets a line of its own.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	lines := []string{words[0]}
	for _, w := range words[1:] {
		last := &lines[len(lines)-1]
		if len(*last)+1+len(w) > width {
			lines = append(lines, w)
			continue
		}
		*last += " " + w
	}
	return lines
}

// PrintError writes err to stderr, formatted when it is an *Error.
func PrintError(err error) {
	FprintError(os.Stderr, err)
}

// FprintError writes err to w, formatted when it is an *Error.
func FprintError(w io.Writer, err error) {
	var ke *Error
	if stderrors.As(err, &ke) {
		fmt.Fprint(w, ke.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", paint(ansiRed+ansiBold, "error"), err.Error())
}
