package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/jmylchreest/classlist/internal/logger"
	"github.com/jmylchreest/classlist/pkg/calendar"
)

const defaultSheet = "Sheet1"

// Workbook writes the table to one worksheet of a local .xlsx file. Other
// worksheets in the file are kept.
type Workbook struct {
	path  string
	sheet string
}

// NewWorkbook creates an xlsx sink. An empty sheet name means "Sheet1".
func NewWorkbook(path, sheet string) *Workbook {
	if sheet == "" {
		sheet = defaultSheet
	}
	return &Workbook{path: path, sheet: sheet}
}

// Name implements Sink.
func (w *Workbook) Name() string {
	return fmt.Sprintf("xlsx:%s#%s", w.path, w.sheet)
}

// Replace implements Sink.
func (w *Workbook) Replace(ctx context.Context, t calendar.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	idx, err := w.resetSheet(f)
	if err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	// StreamWriter for efficiency on large tables
	sw, err := f.NewStreamWriter(w.sheet)
	if err != nil {
		return err
	}
	for col, width := range columnWidths(t) {
		if err := sw.SetColWidth(col+1, col+1, width); err != nil {
			return err
		}
	}
	if err := sw.SetPanes(&excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = excelize.Cell{StyleID: bold, Value: h}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}
	for i, row := range t.Rows {
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2) // A2, A3, ...
		if err := sw.SetRow(cell, values); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}

	f.SetActiveSheet(idx)
	if err := w.save(f); err != nil {
		return err
	}

	logger.Debug("workbook written", "path", w.path, "sheet", w.sheet, "rows", len(t.Rows))
	return nil
}

// save writes f next to w.path and renames it into place, so an interrupted
// save never leaves a truncated workbook behind. The temporary name keeps
// the extension excelize derives the content type from.
func (w *Workbook) save(f *excelize.File) error {
	ext := filepath.Ext(w.path)
	tmp, err := os.CreateTemp(filepath.Dir(w.path), "."+strings.TrimSuffix(filepath.Base(w.path), ext)+".*"+ext)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	name := tmp.Name()
	tmp.Close()
	defer os.Remove(name)

	if err := f.SaveAs(name); err != nil {
		return fmt.Errorf("save %s: %w", w.path, err)
	}
	if err := os.Rename(name, w.path); err != nil {
		return fmt.Errorf("replace %s: %w", w.path, err)
	}
	return nil
}

func (w *Workbook) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(w.path)
	if errors.Is(err, os.ErrNotExist) {
		f = excelize.NewFile()
		if err := f.SetSheetName(defaultSheet, w.sheet); err != nil {
			f.Close()
			return nil, err
		}
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", w.path, err)
	}
	return f, nil
}

// resetSheet leaves an empty worksheet named w.sheet and returns its index.
// An existing worksheet is swapped for a fresh one so no stale cells or
// styles survive.
func (w *Workbook) resetSheet(f *excelize.File) (int, error) {
	idx, err := f.GetSheetIndex(w.sheet)
	if err != nil {
		return 0, err
	}
	if idx < 0 {
		return f.NewSheet(w.sheet)
	}
	if rows, err := f.GetRows(w.sheet); err == nil && len(rows) == 0 {
		return idx, nil
	}

	const tmp = "classlist-tmp"
	if _, err := f.NewSheet(tmp); err != nil {
		return 0, err
	}
	if err := f.DeleteSheet(w.sheet); err != nil {
		return 0, err
	}
	if err := f.SetSheetName(tmp, w.sheet); err != nil {
		return 0, err
	}
	return f.GetSheetIndex(w.sheet)
}

// columnWidths sizes each column to its longest value, within limits.
func columnWidths(t calendar.Table) []float64 {
	widths := make([]float64, len(t.Header))
	measure := func(i int, s string) {
		if i >= len(widths) {
			return
		}
		if n := float64(utf8.RuneCountInString(s)) + 2; n > widths[i] {
			widths[i] = n
		}
	}
	for i, h := range t.Header {
		measure(i, h)
	}
	for _, row := range t.Rows {
		for i, v := range row {
			measure(i, v)
		}
	}
	for i := range widths {
		widths[i] = min(max(widths[i], 8), 60)
	}
	return widths
}
