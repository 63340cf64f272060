package output

import (
	"encoding/csv"
	"io"
)

// CSVWriter writes RFC 4180 CSV with a header line.
type CSVWriter struct {
	w       *csv.Writer
	columns []string
}

// NewCSVWriter creates a CSV writer.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// WriteHeader writes the header line.
func (w *CSVWriter) WriteHeader(columns []string) error {
	w.columns = columns
	return w.w.Write(columns)
}

// WriteRow writes a single record.
func (w *CSVWriter) WriteRow(values []string) error {
	if err := checkWidth(w.columns, values); err != nil {
		return err
	}
	return w.w.Write(values)
}

// Close flushes buffered records.
func (w *CSVWriter) Close() error {
	w.w.Flush()
	return w.w.Error()
}
