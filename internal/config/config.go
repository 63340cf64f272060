// Package config loads classlist settings from flags, environment, a YAML
// config file and an optional .env file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jmylchreest/classlist/pkg/browser"
	"github.com/jmylchreest/classlist/pkg/calendar"
	"github.com/jmylchreest/classlist/pkg/sink"
)

// EnvPrefix prefixes environment overrides of any key, e.g.
// CLASSLIST_SINK_KIND for sink.kind.
const EnvPrefix = "CLASSLIST"

// Config is the complete run configuration.
type Config struct {
	Bookeo    browser.Credentials `mapstructure:"bookeo"`
	Browser   browser.Config      `mapstructure:"browser"`
	Selectors calendar.Selectors  `mapstructure:"selectors"`
	Sink      sink.Config         `mapstructure:"sink"`

	// WaitTimeout bounds the wait for each slot's detail surface.
	WaitTimeout time.Duration `mapstructure:"wait_timeout" validate:"gt=0"`
	// SettleDelay is the pause after opening and closing a detail surface.
	SettleDelay time.Duration `mapstructure:"settle_delay" validate:"gte=0"`

	// Calendar periods to step back before each export.
	CalendarRewind int `mapstructure:"calendar_rewind" validate:"gte=0"`
	PaymentsRewind int `mapstructure:"payments_rewind" validate:"gte=0"`

	// DiagnosticsDir receives a screenshot and page dump on fatal errors.
	DiagnosticsDir string `mapstructure:"diagnostics_dir"`
}

// Extraction returns the extractor settings.
func (c Config) Extraction() calendar.Config {
	return calendar.Config{
		Selectors:   c.Selectors,
		WaitTimeout: c.WaitTimeout,
		SettleDelay: c.SettleDelay,
	}
}

// Validate checks everything except credentials, which only live runs need.
func (c Config) Validate() error {
	if err := validator.New().StructExcept(c, "Bookeo"); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ValidateCredentials checks that Bookeo credentials are present.
func (c Config) ValidateCredentials() error {
	if err := validator.New().Struct(c.Bookeo); err != nil {
		return fmt.Errorf("bookeo credentials missing (set BOOKEO_USERNAME and BOOKEO_PASSWORD): %w", err)
	}
	return nil
}

// Setup registers defaults and environment bindings on v.
func Setup(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Names used by the hosted deployment.
	_ = v.BindEnv("bookeo.username", EnvPrefix+"_BOOKEO_USERNAME", "BOOKEO_USERNAME")
	_ = v.BindEnv("bookeo.password", EnvPrefix+"_BOOKEO_PASSWORD", "BOOKEO_PASSWORD")
	_ = v.BindEnv("sink.credentials_json", EnvPrefix+"_SINK_CREDENTIALS_JSON", "GOOGLE_SERVICE_ACCOUNT_JSON")

	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
}

// Load decodes and validates the configuration held by v. Setup must have
// been called on v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding ones already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// defaults lists every key so AutomaticEnv can override it.
func defaults() map[string]any {
	b := browser.DefaultConfig()
	s := calendar.DefaultSelectors()
	x := calendar.DefaultConfig()

	return map[string]any{
		"bookeo.username": "",
		"bookeo.password": "",

		"browser.sign_in_url":    b.SignInURL,
		"browser.headless":       b.Headless,
		"browser.stealth":        b.Stealth,
		"browser.exec_path":      "",
		"browser.profile_dir":    "",
		"browser.profile_name":   "",
		"browser.user_agent":     b.UserAgent,
		"browser.timeout":        b.Timeout,
		"browser.settle_delay":   b.SettleDelay,
		"browser.calendar_nav":   b.CalendarNav,
		"browser.calendar_view":  b.CalendarView,
		"browser.rewind_control": b.RewindControl,

		"selectors.slot":            s.Slot,
		"selectors.title":           s.Title,
		"selectors.time":            s.Time,
		"selectors.instructor":      s.Instructor,
		"selectors.detail":          s.Detail,
		"selectors.attendee":        s.Attendee,
		"selectors.close":           s.Close,
		"selectors.payment_detail":  s.PaymentDetail,
		"selectors.payment_close":   s.PaymentClose,
		"selectors.booking":         s.Booking,
		"selectors.booking_title":   s.BookingTitle,
		"selectors.field_row":       s.FieldRow,
		"selectors.field_label":     s.FieldLabel,
		"selectors.field_value":     s.FieldValue,
		"selectors.title_separator": s.TitleSeparator,
		"selectors.compound_names":  s.CompoundNames,

		"sink.kind":             string(sink.KindCSV),
		"sink.path":             "",
		"sink.sheet":            "",
		"sink.spreadsheet_id":   "",
		"sink.credentials_file": "",
		"sink.credentials_json": "",

		"wait_timeout":    x.WaitTimeout,
		"settle_delay":    x.SettleDelay,
		"calendar_rewind": 0,
		"payments_rewind": 1,
		"diagnostics_dir": "diagnostics",
	}
}
