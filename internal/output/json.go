package output

import (
	"bufio"
	"encoding/json"
	"io"
)

// JSONWriter writes the table as a JSON array of objects.
type JSONWriter struct {
	w       *bufio.Writer
	pretty  bool
	indent  string
	columns []string
	rows    []Row
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer, pretty bool, indent string) *JSONWriter {
	return &JSONWriter{
		w:      bufio.NewWriter(w),
		pretty: pretty,
		indent: indent,
		rows:   make([]Row, 0),
	}
}

// WriteHeader sets the object keys.
func (w *JSONWriter) WriteHeader(columns []string) error {
	w.columns = columns
	return nil
}

// WriteRow buffers a single row.
func (w *JSONWriter) WriteRow(values []string) error {
	if err := checkWidth(w.columns, values); err != nil {
		return err
	}
	w.rows = append(w.rows, Row{Columns: w.columns, Values: values})
	return nil
}

// Close writes the buffered rows as one array. An empty table is "[]".
func (w *JSONWriter) Close() error {
	var output []byte
	var err error
	if w.pretty {
		output, err = json.MarshalIndent(w.rows, "", w.indent)
	} else {
		output, err = json.Marshal(w.rows)
	}
	if err != nil {
		return err
	}

	if _, err := w.w.Write(output); err != nil {
		return err
	}
	if _, err := w.w.WriteString("\n"); err != nil {
		return err
	}
	return w.w.Flush()
}

// JSONLWriter writes newline-delimited JSON (JSONL), one object per row.
type JSONLWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	return &JSONLWriter{
		w: bufio.NewWriter(w),
	}
}

// WriteHeader sets the object keys.
func (w *JSONLWriter) WriteHeader(columns []string) error {
	w.columns = columns
	return nil
}

// WriteRow writes a single row as a JSON line.
func (w *JSONLWriter) WriteRow(values []string) error {
	if err := checkWidth(w.columns, values); err != nil {
		return err
	}
	output, err := json.Marshal(Row{Columns: w.columns, Values: values})
	if err != nil {
		return err
	}

	if _, err := w.w.Write(output); err != nil {
		return err
	}
	if _, err := w.w.WriteString("\n"); err != nil {
		return err
	}
	return nil
}

// Close flushes the buffer.
func (w *JSONLWriter) Close() error {
	return w.w.Flush()
}
