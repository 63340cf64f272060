package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/classlist/internal/config"
	"github.com/jmylchreest/classlist/internal/logger"
	"github.com/jmylchreest/classlist/pkg/browser"
	"github.com/jmylchreest/classlist/pkg/calendar"
	"github.com/jmylchreest/classlist/pkg/session"
	"github.com/jmylchreest/classlist/pkg/sink"
)

// rewindAnnotation names the config key the --rewind flag of a command sets.
const rewindAnnotation = "classlist/rewind-key"

// runFlagKeys maps run flags to config keys.
var runFlagKeys = map[string]string{
	"sink":           "sink.kind",
	"output":         "sink.path",
	"sheet":          "sink.sheet",
	"spreadsheet-id": "sink.spreadsheet_id",
	"headless":       "browser.headless",
	"wait-timeout":   "wait_timeout",
}

func addRunFlags(cmd *cobra.Command, live bool) {
	flags := cmd.Flags()

	// Sink settings
	flags.String("sink", "", "destination: sheets, xlsx, csv, json, jsonl, yaml (default csv)")
	flags.StringP("output", "o", "", "output file for xlsx and file sinks (default: stdout)")
	flags.String("sheet", "", "worksheet title for sheets and xlsx sinks")
	flags.String("spreadsheet-id", "", "Google spreadsheet id for the sheets sink")

	// Extraction settings
	flags.Duration("wait-timeout", 0, "how long to wait for each class detail popup (default 10s)")
	flags.Bool("summary", false, "print a per-class outcome table to stderr")

	if live {
		flags.Bool("headless", true, "run Chrome without a window")
		flags.Int("rewind", 0, "calendar periods to step back before exporting")
	}
}

// bindRunFlags binds the run flags cmd declares. Binding happens per
// invocation because several commands share the same keys.
func bindRunFlags(v *viper.Viper, cmd *cobra.Command) {
	for name, key := range runFlagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
	if key := cmd.Annotations[rewindAnnotation]; key != "" {
		if f := cmd.Flags().Lookup("rewind"); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

// export is one kind of extraction run.
type export struct {
	name    string
	rewind  func(config.Config) int
	extract func(context.Context, *calendar.Extractor) (calendar.Table, []calendar.SlotOutcome, error)
}

var calendarExport = export{
	name:   "calendar",
	rewind: func(c config.Config) int { return c.CalendarRewind },
	extract: func(ctx context.Context, e *calendar.Extractor) (calendar.Table, []calendar.SlotOutcome, error) {
		res, err := e.Extract(ctx)
		if err != nil {
			return calendar.Table{}, nil, err
		}
		return res.Table(), res.Outcomes, nil
	},
}

var paymentsExport = export{
	name:   "payments",
	rewind: func(c config.Config) int { return c.PaymentsRewind },
	extract: func(ctx context.Context, e *calendar.Extractor) (calendar.Table, []calendar.SlotOutcome, error) {
		res, err := e.ExtractPayments(ctx)
		if err != nil {
			return calendar.Table{}, nil, err
		}
		return res.Table(), res.Outcomes, nil
	},
}

// runExport returns the RunE of a live export command.
func (a *app) runExport(exp export) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(a.v)
		if err != nil {
			return err
		}
		if err := cfg.ValidateCredentials(); err != nil {
			return err
		}
		summary, _ := cmd.Flags().GetBool("summary")

		ctx := cmd.Context()
		// The sink is opened first so a bad destination fails before login.
		snk, err := sink.New(ctx, cfg.Sink)
		if err != nil {
			return err
		}

		b, err := browser.New(cfg.Browser)
		if err != nil {
			return err
		}
		defer b.Close()

		start := time.Now()
		tbl, outcomes, err := extractLive(ctx, b, cfg, exp)
		if err != nil {
			saveDiagnostics(b, cfg.DiagnosticsDir, exp.name)
			return err
		}
		if summary {
			writeSummary(a.stderr, outcomes)
		}
		return deliver(ctx, exp.name, tbl, outcomes, snk, start)
	}
}

func extractLive(ctx context.Context, b *browser.Browser, cfg config.Config, exp export) (calendar.Table, []calendar.SlotOutcome, error) {
	if err := b.Login(ctx, cfg.Bookeo); err != nil {
		return calendar.Table{}, nil, err
	}
	if err := b.OpenCalendar(ctx); err != nil {
		return calendar.Table{}, nil, err
	}
	if err := b.Rewind(ctx, exp.rewind(cfg)); err != nil {
		return calendar.Table{}, nil, err
	}
	return extractFrom(ctx, b, cfg.Extraction(), exp)
}

func extractFrom(ctx context.Context, page session.Page, cfg calendar.Config, exp export) (calendar.Table, []calendar.SlotOutcome, error) {
	tbl, outcomes, err := exp.extract(ctx, calendar.New(page, cfg))
	if err != nil {
		return calendar.Table{}, nil, fmt.Errorf("%s export: %w", exp.name, err)
	}
	return tbl, outcomes, nil
}

func saveDiagnostics(b *browser.Browser, dir, label string) {
	if dir == "" {
		return
	}
	if _, err := b.SaveDiagnostics(dir, label); err != nil {
		logger.Warn("diagnostics incomplete", "dir", dir, "error", err)
	}
}

// deliver replaces the sink contents with tbl.
func deliver(ctx context.Context, name string, tbl calendar.Table, outcomes []calendar.SlotOutcome, snk sink.Sink, start time.Time) error {
	if err := snk.Replace(ctx, tbl); err != nil {
		return fmt.Errorf("write %s: %w", snk.Name(), err)
	}

	skipped := 0
	for _, o := range outcomes {
		if o.Status == calendar.StatusSkipped {
			skipped++
		}
	}
	logger.Info("run complete",
		"export", name,
		"slots", len(outcomes),
		"skipped", skipped,
		"rows", humanize.Comma(int64(len(tbl.Rows))),
		"sink", snk.Name(),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// writeSummary renders one line per slot to w.
func writeSummary(w io.Writer, outcomes []calendar.SlotOutcome) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Class", "Instructor", "Status", "Rows", "Note"})

	skipped, rows := 0, 0
	for _, o := range outcomes {
		note := ""
		switch {
		case o.Err != nil:
			note = o.Err.Error()
		case o.CloseErr != nil:
			note = "close failed: " + o.CloseErr.Error()
		}
		if o.Status == calendar.StatusSkipped {
			skipped++
		}
		rows += o.Rows
		t.AppendRow(table.Row{o.Slot.Index + 1, o.Slot.Title, o.Slot.Instructor, o.Status, o.Rows, note})
	}

	t.AppendFooter(table.Row{"", fmt.Sprintf("%d classes", len(outcomes)), "", fmt.Sprintf("%d skipped", skipped), rows, ""})
	t.Render()
}
