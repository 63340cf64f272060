// Package commands implements the CLI commands for classlist.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/classlist/internal/config"
	"github.com/jmylchreest/classlist/internal/logger"
	"github.com/jmylchreest/classlist/internal/version"
)

// app holds the state shared by one command tree.
type app struct {
	v      *viper.Viper
	stderr io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), stderr: os.Stderr}

	rootCmd := &cobra.Command{
		Use:   "classlist",
		Short: "Export Bookeo class attendees to a spreadsheet",
		Long: `Classlist signs in to the Bookeo back office, walks every class in the
calendar view and writes one row per attendee to a Google Sheet, an Excel
workbook or a CSV/JSON/YAML file.

Run without a subcommand to export the calendar.

Examples:
  # Export the calendar to stdout as CSV
  BOOKEO_USERNAME=owner BOOKEO_PASSWORD=secret classlist

  # Replace a Google Sheets worksheet
  classlist calendar --sink sheets --spreadsheet-id 1AbC... --sheet Calendar

  # Export payments from two weeks back to a workbook
  classlist payments --sink xlsx -o payments.xlsx --rewind 1

  # Re-run extraction against a saved page
  classlist replay --html diagnostics/calendar-20260101-120000.html`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE:              a.runExport(calendarExport),
		Annotations:       map[string]string{rewindAnnotation: "calendar_rewind"},
	}
	rootCmd.SetErr(os.Stderr)

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default $HOME/.classlist.yaml)")
	pf.String("env-file", ".env", "dotenv file loaded before the environment is read")
	pf.Bool("debug", false, "enable debug logging")
	pf.BoolP("quiet", "q", false, "only log errors")
	pf.Bool("json-logs", false, "log as JSON")

	addRunFlags(rootCmd, true)

	rootCmd.AddCommand(
		a.newCalendarCmd(),
		a.newPaymentsCmd(),
		a.newReplayCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// setup loads configuration and initialises logging for cmd.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.stderr = cmd.ErrOrStderr()

	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	for _, name := range []string{"config", "debug", "quiet"} {
		_ = a.v.BindPFlag(name, cmd.Flags().Lookup(name))
	}
	_ = a.v.BindPFlag("json_logs", cmd.Flags().Lookup("json-logs"))
	bindRunFlags(a.v, cmd)

	if err := a.initConfig(); err != nil {
		return err
	}

	logger.Init(logger.Options{
		Debug:  a.v.GetBool("debug"),
		Quiet:  a.v.GetBool("quiet"),
		JSON:   a.v.GetBool("json_logs"),
		Output: a.stderr,
	})
	logger.Debug("classlist starting", "version", version.Get().String(), "config", a.v.ConfigFileUsed())
	return nil
}

func (a *app) initConfig() error {
	v := a.v
	cfgFile := v.GetString("config")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".classlist")
		v.SetConfigType("yaml")
	}

	config.Setup(v)

	// A missing default config file is fine; an explicit one must exist.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// Execute runs the root command until it finishes or SIGINT/SIGTERM arrives.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logError(rootCmd.ErrOrStderr(), "%v", err)
		return err
	}
	return nil
}

// logError prints an error message to w.
func logError(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "Error: "+format+"\n", args...)
}
