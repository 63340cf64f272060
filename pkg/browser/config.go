// Package browser drives a Chrome session through the Bookeo back office
// with chromedp and exposes the loaded calendar as a session.Page.
package browser

import (
	"time"
)

// Config holds configuration for the browser session.
type Config struct {
	SignInURL   string        `mapstructure:"sign_in_url" validate:"required,url"`
	Headless    bool          `mapstructure:"headless"`
	Stealth     bool          `mapstructure:"stealth"`     // Enable anti-bot detection evasion
	ExecPath    string        `mapstructure:"exec_path"`   // Chrome binary; discovered when empty
	ProfileDir  string        `mapstructure:"profile_dir"` // Chrome user-data-dir
	ProfileName string        `mapstructure:"profile_name"`
	UserAgent   string        `mapstructure:"user_agent"`
	Timeout     time.Duration `mapstructure:"timeout"` // Bound for login and navigation steps
	SettleDelay time.Duration `mapstructure:"settle_delay"`

	// XPath expressions for the back office navigation.
	CalendarNav   string `mapstructure:"calendar_nav" validate:"required"`
	CalendarView  string `mapstructure:"calendar_view" validate:"required"` // Present once the calendar has rendered
	RewindControl string `mapstructure:"rewind_control" validate:"required"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		SignInURL:     "https://signin.bookeo.com/",
		Headless:      true,
		UserAgent:     defaultUserAgent,
		Timeout:       30 * time.Second,
		SettleDelay:   3 * time.Second,
		CalendarNav:   `//span[text()='Calendar']`,
		CalendarView:  `//div[contains(@class,'calendarView')]`,
		RewindControl: `//*[@title='Go back 14 days']`,
	}
}

// Credentials authenticate against the sign-in page.
type Credentials struct {
	Username string `mapstructure:"username" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
}

// Chrome user agent for better compatibility
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
