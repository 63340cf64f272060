package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/google/go-cmp/cmp"

	"github.com/jmylchreest/classlist/pkg/calendar"
	"github.com/jmylchreest/classlist/pkg/session"
)

// --- Config Tests ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.SignInURL != "https://signin.bookeo.com/" {
		t.Errorf("SignInURL = %q", cfg.SignInURL)
	}
	if !cfg.Headless {
		t.Error("Headless should default to true")
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if !strings.Contains(cfg.RewindControl, "Go back 14 days") {
		t.Errorf("RewindControl = %q", cfg.RewindControl)
	}
	if cfg.CalendarView != `//div[contains(@class,'calendarView')]` {
		t.Errorf("CalendarView = %q", cfg.CalendarView)
	}
}

func TestAllocatorFlags(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    map[string]any
		without []string
	}{
		{
			name: "headless",
			cfg:  Config{Headless: true},
			want: map[string]any{
				"headless":               true,
				"disable-gpu":            true,
				"disable-blink-features": "AutomationControlled",
				"disable-notifications":  true,
			},
			without: []string{"user-data-dir", "profile-directory", "excludeSwitches"},
		},
		{
			name: "headed",
			cfg:  Config{},
			want: map[string]any{"headless": false},
		},
		{
			name: "profile",
			cfg:  Config{ProfileDir: "/tmp/chrome", ProfileName: "Profile 1"},
			want: map[string]any{"user-data-dir": "/tmp/chrome", "profile-directory": "Profile 1"},
		},
		{
			name:    "profile name without dir is ignored",
			cfg:     Config{ProfileName: "Profile 1"},
			without: []string{"user-data-dir", "profile-directory"},
		},
		{
			name: "stealth",
			cfg:  Config{Stealth: true},
			want: map[string]any{"excludeSwitches": "enable-automation", "useAutomationExtension": false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := allocatorFlags(tt.cfg)
			for k, v := range tt.want {
				if got, ok := flags[k]; !ok || got != v {
					t.Errorf("flag %s = %v (present %v), want %v", k, got, ok, v)
				}
			}
			for _, k := range tt.without {
				if _, ok := flags[k]; ok {
					t.Errorf("flag %s should not be set", k)
				}
			}
		})
	}
}

func TestAsNode_RejectsForeignElement(t *testing.T) {
	if _, err := asNode("not a node"); err == nil {
		t.Error("expected error for non-node element")
	}
	if _, err := asNode(nil); err == nil {
		t.Error("expected error for nil element")
	}
	if _, err := asNodes(surface{}); err == nil {
		t.Error("expected error for empty surface")
	}
}

func TestAsNodes_Surface(t *testing.T) {
	first := &cdp.Node{NodeID: 1}
	second := &cdp.Node{NodeID: 2}

	nodes, err := asNodes(surface{first, second})
	if err != nil {
		t.Fatalf("asNodes() error = %v", err)
	}
	if len(nodes) != 2 || nodes[0] != first || nodes[1] != second {
		t.Errorf("asNodes() = %v", nodes)
	}

	n, err := asNode(surface{first, second})
	if err != nil {
		t.Fatalf("asNode() error = %v", err)
	}
	if n != first {
		t.Errorf("asNode() should act through the first node, got %v", n)
	}
}

// --- Live Browser Tests ---

const signInPage = `<!DOCTYPE html>
<html><body>
<form action="/home" method="get">
  <input name="username" type="text">
  <input id="password" name="password" type="password">
</form>
</body></html>`

const homePage = `<!DOCTYPE html>
<html><body>
<nav><span onclick="document.getElementById('cal').style.display='block'">Calendar</span></nav>
<div id="cal" style="display:none">
  <a href="#" title="Go back 14 days" onclick="document.body.dataset.rewound='1'; return false;">&lt;</a>
  <div class="calendarView">
  <table>
    <tr class="bookings" onclick="toggleSlot(this, 0)"><td class="ber_title">Prenatal Yoga - 10:00 AM</td><td class="ber_td_eprovider">Jane</td></tr>
    <tr class="fullWB" onclick="toggleSlot(this, 1)"><td class="ber_title">Mommy &amp; Baby - 11:00 AM</td></tr>
  </table>
  </div>
</div>
<script>
var attendees = [["Alice Smith", "Bob Lee"], [" "]];
function expanded(row) {
  var next = row.nextElementSibling;
  return next && next.classList.contains('ber_booking');
}
function toggleSlot(row, i) {
  if (expanded(row)) {
    while (expanded(row)) { row.parentNode.removeChild(row.nextElementSibling); }
    return;
  }
  attendees[i].slice().reverse().forEach(function(a) {
    var tr = document.createElement('tr');
    tr.className = 'ber_booking';
    tr.innerHTML = '<td class="booking_customer">' + a + '</td>';
    row.parentNode.insertBefore(tr, row.nextSibling);
  });
}
</script>
</body></html>`

func newBackOffice(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, signInPage)
	})
	mux.HandleFunc("/home", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("username") != "owner" || r.URL.Query().Get("password") != "secret" {
			fmt.Fprint(w, signInPage)
			return
		}
		fmt.Fprint(w, homePage)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func startBrowser(t *testing.T, signInURL string) *Browser {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	if findChromePath() == "" {
		t.Skip("no Chrome binary available")
	}

	cfg := DefaultConfig()
	cfg.SignInURL = signInURL
	cfg.Timeout = 10 * time.Second
	cfg.SettleDelay = 100 * time.Millisecond

	b, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(b.Close)
	return b
}

func TestBrowser_CalendarRun(t *testing.T) {
	srv := newBackOffice(t)
	b := startBrowser(t, srv.URL+"/")
	ctx := context.Background()

	if err := b.Login(ctx, Credentials{Username: "owner", Password: "secret"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if err := b.OpenCalendar(ctx); err != nil {
		t.Fatalf("OpenCalendar() error = %v", err)
	}
	if err := b.Rewind(ctx, 1); err != nil {
		t.Fatalf("Rewind() error = %v", err)
	}

	cfg := calendar.DefaultConfig()
	cfg.WaitTimeout = 2 * time.Second
	cfg.SettleDelay = 50 * time.Millisecond
	res, err := calendar.New(b, cfg).Extract(ctx)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	want := []calendar.Record{
		{ClassName: "Prenatal Yoga", DateTime: "10:00 AM", Instructor: "Jane", CustomerName: "Alice Smith"},
		{ClassName: "Prenatal Yoga", DateTime: "10:00 AM", Instructor: "Jane", CustomerName: "Bob Lee"},
	}
	if diff := cmp.Diff(want, res.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	if res.Skipped() != 0 {
		t.Errorf("Skipped() = %d, want 0", res.Skipped())
	}

	dir := t.TempDir()
	d, err := b.SaveDiagnostics(dir, "calendar")
	if err != nil {
		t.Fatalf("SaveDiagnostics() error = %v", err)
	}
	for _, p := range []string{d.Screenshot, d.HTML} {
		if filepath.Dir(p) != dir {
			t.Errorf("artifact %q not under %q", p, dir)
		}
		if info, err := os.Stat(p); err != nil || info.Size() == 0 {
			t.Errorf("artifact %q missing or empty: %v", p, err)
		}
	}
}

func TestBrowser_WaitForTimeout(t *testing.T) {
	srv := newBackOffice(t)
	b := startBrowser(t, srv.URL+"/")
	ctx := context.Background()

	if err := b.Login(ctx, Credentials{Username: "owner", Password: "secret"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	_, err := b.WaitFor(ctx, "tr.ber_booking", 300*time.Millisecond)
	if !errors.Is(err, session.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
	if _, err := b.Query(ctx, nil, "tr.ber_booking"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBrowser_LoginRejected(t *testing.T) {
	srv := newBackOffice(t)
	b := startBrowser(t, srv.URL+"/")
	b.cfg.Timeout = 2 * time.Second

	err := b.Login(context.Background(), Credentials{Username: "owner", Password: "wrong"})
	if !errors.Is(err, ErrLogin) {
		t.Errorf("expected ErrLogin, got %v", err)
	}
}

func TestBrowser_LoginMissingCredentials(t *testing.T) {
	b := &Browser{cfg: DefaultConfig()}

	err := b.Login(context.Background(), Credentials{Username: "owner"})
	if !errors.Is(err, ErrLogin) {
		t.Errorf("expected ErrLogin, got %v", err)
	}
}
