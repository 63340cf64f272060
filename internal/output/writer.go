// Package output serialises tables of string rows.
package output

import (
	"fmt"
	"io"
)

// Format represents output format types.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// Formats lists every supported format.
var Formats = []Format{FormatCSV, FormatJSON, FormatJSONL, FormatYAML}

// Writer serialises one table: a header followed by rows of the same width.
type Writer interface {
	// WriteHeader sets the column names. It must be called once, first.
	WriteHeader(columns []string) error

	// WriteRow outputs a single row.
	WriteRow(values []string) error

	// Close flushes buffered output. It does not close the underlying writer.
	Close() error
}

// WriterOption configures a writer.
type WriterOption func(*writerConfig)

type writerConfig struct {
	pretty bool
	indent string
}

// WithPretty enables pretty-printing.
func WithPretty(enabled bool) WriterOption {
	return func(c *writerConfig) {
		c.pretty = enabled
	}
}

// WithIndent sets the indentation string.
func WithIndent(indent string) WriterOption {
	return func(c *writerConfig) {
		c.indent = indent
	}
}

// NewWriter creates a writer for the specified format.
func NewWriter(w io.Writer, format Format, opts ...WriterOption) (Writer, error) {
	cfg := &writerConfig{
		pretty: true,
		indent: "  ",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	switch format {
	case FormatCSV:
		return NewCSVWriter(w), nil
	case FormatJSON:
		return NewJSONWriter(w, cfg.pretty, cfg.indent), nil
	case FormatJSONL:
		return NewJSONLWriter(w), nil
	case FormatYAML:
		return NewYAMLWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteTable writes header and rows to w and closes it.
func WriteTable(w Writer, header []string, rows [][]string) error {
	if err := w.WriteHeader(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	return w.Close()
}

// checkWidth reports a row that does not match the header.
func checkWidth(columns, values []string) error {
	if columns == nil {
		return fmt.Errorf("row written before header")
	}
	if len(values) != len(columns) {
		return fmt.Errorf("row has %d values, header has %d columns", len(values), len(columns))
	}
	return nil
}
