package output

import (
	"bufio"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLWriter writes the table as a YAML sequence of mappings.
type YAMLWriter struct {
	w       *bufio.Writer
	columns []string
	rows    []Row
}

// NewYAMLWriter creates a YAML writer.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	return &YAMLWriter{
		w:    bufio.NewWriter(w),
		rows: make([]Row, 0),
	}
}

// WriteHeader sets the mapping keys.
func (w *YAMLWriter) WriteHeader(columns []string) error {
	w.columns = columns
	return nil
}

// WriteRow buffers a single row.
func (w *YAMLWriter) WriteRow(values []string) error {
	if err := checkWidth(w.columns, values); err != nil {
		return err
	}
	w.rows = append(w.rows, Row{Columns: w.columns, Values: values})
	return nil
}

// Close writes the buffered rows as YAML.
func (w *YAMLWriter) Close() error {
	encoder := yaml.NewEncoder(w.w)
	encoder.SetIndent(2)

	if err := encoder.Encode(w.rows); err != nil {
		return err
	}
	if err := encoder.Close(); err != nil {
		return err
	}
	return w.w.Flush()
}
