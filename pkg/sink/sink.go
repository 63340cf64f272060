// Package sink writes a calendar.Table to its destination, replacing
// whatever the destination held before.
package sink

import (
	"context"
	"fmt"

	"github.com/jmylchreest/classlist/internal/output"
	"github.com/jmylchreest/classlist/pkg/calendar"
)

// Sink replaces the contents of a destination with a header and rows.
type Sink interface {
	// Replace clears the destination, then writes t.Header followed by
	// t.Rows in order.
	Replace(ctx context.Context, t calendar.Table) error

	// Name identifies the destination in logs.
	Name() string
}

// Kind selects a Sink implementation.
type Kind string

const (
	KindSheets Kind = "sheets"
	KindXLSX   Kind = "xlsx"
	KindCSV    Kind = Kind(output.FormatCSV)
	KindJSON   Kind = Kind(output.FormatJSON)
	KindJSONL  Kind = Kind(output.FormatJSONL)
	KindYAML   Kind = Kind(output.FormatYAML)
)

// Config describes the destination.
type Config struct {
	Kind Kind `mapstructure:"kind" validate:"required,oneof=sheets xlsx csv json jsonl yaml"`
	// Path is the output file for xlsx and file kinds. Empty or "-" writes
	// file kinds to stdout.
	Path string `mapstructure:"path"`
	// Sheet is the worksheet title for sheets and xlsx.
	Sheet string `mapstructure:"sheet"`

	SpreadsheetID   string `mapstructure:"spreadsheet_id" validate:"required_if=Kind sheets"`
	CredentialsFile string `mapstructure:"credentials_file"`
	CredentialsJSON string `mapstructure:"credentials_json"`
}

// New creates the Sink selected by cfg.Kind.
func New(ctx context.Context, cfg Config) (Sink, error) {
	switch cfg.Kind {
	case KindSheets:
		return NewSheets(ctx, SheetsConfig{
			SpreadsheetID:   cfg.SpreadsheetID,
			Sheet:           cfg.Sheet,
			CredentialsFile: cfg.CredentialsFile,
			CredentialsJSON: cfg.CredentialsJSON,
		})
	case KindXLSX:
		if cfg.Path == "" || cfg.Path == "-" {
			return nil, fmt.Errorf("xlsx sink requires a file path")
		}
		return NewWorkbook(cfg.Path, cfg.Sheet), nil
	case KindCSV, KindJSON, KindJSONL, KindYAML:
		return NewFile(cfg.Path, output.Format(cfg.Kind)), nil
	default:
		return nil, fmt.Errorf("unsupported sink: %q", cfg.Kind)
	}
}
