package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/classlist/internal/config"
	"github.com/jmylchreest/classlist/pkg/session/htmlpage"
	"github.com/jmylchreest/classlist/pkg/sink"
)

func (a *app) newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Run extraction against a saved calendar page",
		Long: `Replay parses a saved HTML dump of the calendar, such as the one written to
the diagnostics directory after a failed run, and runs the same extraction
offline. No browser or credentials are needed.

Examples:
  classlist replay --html calendar.html
  classlist replay --html calendar.html --payments --sink json -o payments.json`,
		Args: cobra.NoArgs,
		RunE: a.runReplay,
	}

	flags := cmd.Flags()
	flags.String("html", "", "path to the saved calendar page (required)")
	flags.Bool("payments", false, "run the payment export instead of the attendee export")
	_ = cmd.MarkFlagRequired("html")

	addRunFlags(cmd, false)
	return cmd
}

func (a *app) runReplay(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("html")
	payments, _ := cmd.Flags().GetBool("payments")
	summary, _ := cmd.Flags().GetBool("summary")

	exp := calendarExport
	if payments {
		exp = paymentsExport
	}

	ctx := cmd.Context()
	snk, err := sink.New(ctx, cfg.Sink)
	if err != nil {
		return err
	}

	page, err := htmlpage.Open(path, htmlpage.Options{Activate: cfg.Selectors.Slot})
	if err != nil {
		return err
	}

	// A saved page never renders late.
	ext := cfg.Extraction()
	ext.SettleDelay = 0

	start := time.Now()
	tbl, outcomes, err := extractFrom(ctx, page, ext, exp)
	if err != nil {
		return err
	}
	if summary {
		writeSummary(a.stderr, outcomes)
	}
	return deliver(ctx, exp.name, tbl, outcomes, snk, start)
}
