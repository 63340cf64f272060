package commands

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/classlist/internal/version"
	"github.com/jmylchreest/classlist/pkg/calendar"
)

const (
	calendarDump = "../../../pkg/session/htmlpage/testdata/calendar_rows.html"
	paymentsDump = "../../../pkg/session/htmlpage/testdata/payments.html"
)

// runCLI executes a fresh command tree isolated from the user's home config
// and environment.
func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BOOKEO_USERNAME", "")
	t.Setenv("BOOKEO_PASSWORD", "")

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	root := newRootCmd()
	root.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env")))
	root.SetOut(out)
	root.SetErr(errOut)

	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// --- Replay Tests ---

func TestReplay_CalendarToCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.csv")

	_, stderr, err := runCLI(t, "replay", "--html", calendarDump, "-o", path, "--summary")
	if err != nil {
		t.Fatalf("replay error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}

	want := [][]string{
		calendar.CalendarHeader,
		{"Prenatal Yoga", "10:00 AM", "Jane", "Alice Smith"},
		{"Prenatal Yoga", "10:00 AM", "Jane", "Bob Lee"},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("CSV mismatch (-want +got):\n%s", diff)
	}

	for _, s := range []string{"aqua natal", "1 skipped", "run complete"} {
		if !strings.Contains(strings.ToLower(stderr), s) {
			t.Errorf("stderr missing %q:\n%s", s, stderr)
		}
	}
}

func TestReplay_PaymentsToJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payments.json")

	if _, _, err := runCLI(t, "replay", "--html", paymentsDump, "--payments", "--sink", "json", "-o", path); err != nil {
		t.Fatalf("replay error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var rows []map[string]string
	if err := json.Unmarshal(data, &rows); err != nil {
		t.Fatalf("output is not a JSON array: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 bookings, got %d", len(rows))
	}
	if rows[0]["Booking Number"] != "B-1001" || rows[1]["Promotion"] != "SPRING10" {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestReplay_RequiresHTML(t *testing.T) {
	_, _, err := runCLI(t, "replay")
	if err == nil || !strings.Contains(err.Error(), "html") {
		t.Errorf("expected missing --html error, got %v", err)
	}
}

func TestReplay_InvalidSink(t *testing.T) {
	_, _, err := runCLI(t, "replay", "--html", calendarDump, "--sink", "parquet")
	if err == nil || !strings.Contains(err.Error(), "Kind") {
		t.Errorf("expected sink validation error, got %v", err)
	}
}

func TestReplay_MissingDump(t *testing.T) {
	_, _, err := runCLI(t, "replay", "--html", filepath.Join(t.TempDir(), "missing.html"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

// --- Live Command Tests ---

func TestLiveCommands_RequireCredentials(t *testing.T) {
	for _, args := range [][]string{{}, {"calendar"}, {"payments"}} {
		t.Run(strings.Join(append([]string{"classlist"}, args...), " "), func(t *testing.T) {
			_, _, err := runCLI(t, args...)
			if err == nil || !strings.Contains(err.Error(), "credentials") {
				t.Errorf("expected credentials error, got %v", err)
			}
		})
	}
}

func TestExplicitConfigMustExist(t *testing.T) {
	_, _, err := runCLI(t, "replay", "--html", calendarDump, "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read config") {
		t.Errorf("expected config read error, got %v", err)
	}
}

func TestConfigFileSelectsSink(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "rows.jsonl")
	cfgPath := filepath.Join(dir, "classlist.yaml")
	content := "sink:\n  kind: jsonl\n  path: " + out + "\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, _, err := runCLI(t, "replay", "--html", calendarDump, "--config", cfgPath); err != nil {
		t.Fatalf("replay error = %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 2 {
		t.Errorf("expected 2 JSONL lines, got %d", lines)
	}
}

// --- Version Tests ---

func TestVersion_JSON(t *testing.T) {
	stdout, _, err := runCLI(t, "version", "--json")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	var info version.Info
	if err := json.Unmarshal([]byte(stdout), &info); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout, err)
	}
	if info.GoVersion == "" || info.Platform == "" {
		t.Errorf("incomplete info: %+v", info)
	}
}

// --- Flag Binding Tests ---

func TestBindRunFlags(t *testing.T) {
	v := viper.New()
	cmd := &cobra.Command{Use: "payments", Annotations: map[string]string{rewindAnnotation: "payments_rewind"}}
	addRunFlags(cmd, true)

	if err := cmd.ParseFlags([]string{"--rewind", "3", "--sink", "xlsx", "-o", "out.xlsx", "--headless=false"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	bindRunFlags(v, cmd)

	if got := v.GetInt("payments_rewind"); got != 3 {
		t.Errorf("payments_rewind = %d, want 3", got)
	}
	if v.IsSet("calendar_rewind") {
		t.Error("calendar_rewind should not be bound by the payments command")
	}
	if v.GetString("sink.kind") != "xlsx" || v.GetString("sink.path") != "out.xlsx" {
		t.Errorf("sink = %s %s", v.GetString("sink.kind"), v.GetString("sink.path"))
	}
	if v.GetBool("browser.headless") {
		t.Error("browser.headless should be false")
	}
}

func TestAddRunFlags_ReplayHasNoBrowserFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "replay"}
	addRunFlags(cmd, false)

	for _, name := range []string{"headless", "rewind"} {
		if cmd.Flags().Lookup(name) != nil {
			t.Errorf("replay should not declare --%s", name)
		}
	}
}

// --- Summary Tests ---

func TestWriteSummary(t *testing.T) {
	outcomes := []calendar.SlotOutcome{
		{Slot: calendar.Slot{Index: 0, Title: "Prenatal Yoga - 10:00 AM", Instructor: "Jane"}, Status: calendar.StatusExtracted, Rows: 2},
		{Slot: calendar.Slot{Index: 1, Title: "Mommy & Baby - 11:00 AM"}, Status: calendar.StatusExtracted,
			CloseErr: errors.New("no close control")},
		{Slot: calendar.Slot{Index: 2, Title: "Aqua Natal - 12:00 PM"}, Status: calendar.StatusSkipped,
			Err: errors.New("detail timeout")},
	}

	buf := &bytes.Buffer{}
	writeSummary(buf, outcomes)
	// Footers are upper-cased by the table style.
	out := strings.ToLower(buf.String())

	for _, want := range []string{"prenatal yoga", "close failed: no close control", "detail timeout", "3 classes", "1 skipped"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
