// Package output provides common output formatting utilities.
package output

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
)

var jsonOptions = &ojg.Options{Indent: 2, UseTags: true, OmitNil: true}

// JSON writes indented JSON to stdout.
func JSON(v any) error {
	return WriteJSON(os.Stdout, v)
}

// WriteJSON writes indented JSON to w.
func WriteJSON(w io.Writer, v any) error {
	data, err := oj.Marshal(v, jsonOptions)
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// Table creates an aligned table writer for w.
// Remember to call Flush() when done writing.
func Table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// Warn prints a warning message to stderr.
func Warn(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
}
