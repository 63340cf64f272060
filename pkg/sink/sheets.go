package sink

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/jmylchreest/classlist/internal/logger"
	"github.com/jmylchreest/classlist/pkg/calendar"
)

// SheetsConfig addresses one worksheet of a Google spreadsheet.
type SheetsConfig struct {
	SpreadsheetID string
	// Sheet is the worksheet title. Empty means the first worksheet.
	Sheet string
	// Service account credentials. CredentialsJSON wins when both are set;
	// with neither, Application Default Credentials are used.
	CredentialsFile string
	CredentialsJSON string
}

// Sheets replaces the contents of a Google Sheets worksheet.
type Sheets struct {
	svc *sheets.Service
	cfg SheetsConfig
}

// NewSheets creates a Sheets sink. Extra client options are appended after
// the credential options.
func NewSheets(ctx context.Context, cfg SheetsConfig, opts ...option.ClientOption) (*Sheets, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("sheets sink requires a spreadsheet id")
	}

	clientOpts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	switch {
	case cfg.CredentialsJSON != "":
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	return &Sheets{svc: svc, cfg: cfg}, nil
}

// Name implements Sink.
func (s *Sheets) Name() string {
	if s.cfg.Sheet == "" {
		return "sheets:" + s.cfg.SpreadsheetID
	}
	return fmt.Sprintf("sheets:%s#%s", s.cfg.SpreadsheetID, s.cfg.Sheet)
}

// Replace clears the worksheet, writes header and rows from A1, then bolds
// and freezes the header row.
func (s *Sheets) Replace(ctx context.Context, t calendar.Table) error {
	id := s.cfg.SpreadsheetID

	props, err := s.worksheet(ctx)
	if err != nil {
		return err
	}
	rng := quoteSheet(props.Title)

	if _, err := s.svc.Spreadsheets.Values.Clear(id, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}

	values := make([][]any, 0, len(t.Rows)+1)
	values = append(values, toAny(t.Header))
	for _, row := range t.Rows {
		values = append(values, toAny(row))
	}
	resp, err := s.svc.Spreadsheets.Values.Update(id, rng+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}

	if err := s.formatHeader(ctx, props.SheetId); err != nil {
		// The data is already written; formatting is cosmetic.
		logger.Warn("header formatting failed", "sheet", props.Title, "error", err)
	}

	logger.Debug("sheet replaced",
		"spreadsheet", id,
		"sheet", props.Title,
		"updated_rows", resp.UpdatedRows)
	return nil
}

// worksheet resolves the configured worksheet title to its properties.
func (s *Sheets) worksheet(ctx context.Context) (*sheets.SheetProperties, error) {
	doc, err := s.svc.Spreadsheets.Get(s.cfg.SpreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet %s: %w", s.cfg.SpreadsheetID, err)
	}
	for _, sh := range doc.Sheets {
		if sh.Properties == nil {
			continue
		}
		if s.cfg.Sheet == "" || sh.Properties.Title == s.cfg.Sheet {
			return sh.Properties, nil
		}
	}
	return nil, fmt.Errorf("worksheet %q not found in spreadsheet %s", s.cfg.Sheet, s.cfg.SpreadsheetID)
}

func (s *Sheets) formatHeader(ctx context.Context, sheetID int64) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: &sheets.GridRange{
						SheetId:         sheetID,
						StartRowIndex:   0,
						EndRowIndex:     1,
						ForceSendFields: []string{"SheetId", "StartRowIndex"},
					},
					Cell: &sheets.CellData{
						UserEnteredFormat: &sheets.CellFormat{
							TextFormat: &sheets.TextFormat{Bold: true},
						},
					},
					Fields: "userEnteredFormat.textFormat.bold",
				},
			},
			{
				UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
					Properties: &sheets.SheetProperties{
						SheetId:         sheetID,
						GridProperties:  &sheets.GridProperties{FrozenRowCount: 1},
						ForceSendFields: []string{"SheetId"},
					},
					Fields: "gridProperties.frozenRowCount",
				},
			},
		},
	}
	_, err := s.svc.Spreadsheets.BatchUpdate(s.cfg.SpreadsheetID, req).Context(ctx).Do()
	return err
}

// quoteSheet quotes a worksheet title for use in A1 notation.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func toAny(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}
