package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jmylchreest/classlist/internal/logger"
	"github.com/jmylchreest/classlist/internal/output"
	"github.com/jmylchreest/classlist/pkg/calendar"
)

// File writes the table to a local file, or to stdout, in one of the
// output formats. A file is replaced atomically.
type File struct {
	path   string
	format output.Format
	stdout io.Writer
}

// NewFile creates a file sink. An empty path or "-" means stdout.
func NewFile(path string, format output.Format) *File {
	return &File{path: path, format: format, stdout: os.Stdout}
}

// Name implements Sink.
func (f *File) Name() string {
	if f.toStdout() {
		return fmt.Sprintf("%s:stdout", f.format)
	}
	return fmt.Sprintf("%s:%s", f.format, f.path)
}

func (f *File) toStdout() bool {
	return f.path == "" || f.path == "-"
}

// Replace implements Sink.
func (f *File) Replace(ctx context.Context, t calendar.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.toStdout() {
		return f.write(f.stdout, t)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := f.write(tmp, t); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}

	logger.Debug("file written", "path", f.path, "format", f.format, "rows", len(t.Rows))
	return nil
}

func (f *File) write(w io.Writer, t calendar.Table) error {
	ow, err := output.NewWriter(w, f.format)
	if err != nil {
		return err
	}
	if err := output.WriteTable(ow, t.Header, t.Rows); err != nil {
		return fmt.Errorf("write %s: %w", f.format, err)
	}
	return nil
}
