package calendar

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Selectors holds the CSS selectors that address the booking site's markup.
// The site's markup changes between releases, so every selector is
// configurable; the defaults match the Bookeo calendar list view.
type Selectors struct {
	// Slot matches every bookable entry in the calendar view.
	Slot string `mapstructure:"slot" yaml:"slot" validate:"required"`
	// Title, Time and Instructor are looked up in the slot element first,
	// then in its detail surface.
	Title      string `mapstructure:"title" yaml:"title" validate:"required"`
	Time       string `mapstructure:"time" yaml:"time"`
	Instructor string `mapstructure:"instructor" yaml:"instructor"`

	// Detail matches the elements shown after activating a slot for the
	// calendar export. Together they form the slot's detail surface.
	Detail string `mapstructure:"detail" yaml:"detail" validate:"required"`
	// Attendee matches one attendee name inside the detail surface.
	Attendee string `mapstructure:"attendee" yaml:"attendee" validate:"required"`
	// Close dismisses the calendar detail surface. Empty collapses it by
	// clicking the slot again.
	Close string `mapstructure:"close" yaml:"close"`

	// PaymentDetail and PaymentClose are the detail surface and close
	// control of the payment export, which opens a booking popup.
	PaymentDetail string `mapstructure:"payment_detail" yaml:"payment_detail" validate:"required"`
	PaymentClose  string `mapstructure:"payment_close" yaml:"payment_close"`

	// Booking matches one booking block of the payment detail surface.
	Booking      string `mapstructure:"booking" yaml:"booking" validate:"required"`
	BookingTitle string `mapstructure:"booking_title" yaml:"booking_title" validate:"required"`
	FieldRow     string `mapstructure:"field_row" yaml:"field_row" validate:"required"`
	FieldLabel   string `mapstructure:"field_label" yaml:"field_label" validate:"required"`
	FieldValue   string `mapstructure:"field_value" yaml:"field_value" validate:"required"`

	// TitleSeparator splits "Class - Time" titles.
	TitleSeparator string `mapstructure:"title_separator" yaml:"title_separator"`
	// CompoundNames is set when attendee entries read "<Name>, <DD Month YYYY, HH:MM>".
	CompoundNames bool `mapstructure:"compound_names" yaml:"compound_names"`
}

// DefaultSelectors returns the selectors for the Bookeo calendar list view.
func DefaultSelectors() Selectors {
	return Selectors{
		Slot:           "tr.bookings, tr.fullWB",
		Title:          ".ber_title",
		Time:           ".ber_td_start",
		Instructor:     ".ber_td_eprovider",
		Detail:         "tr.ber_booking",
		Attendee:       "td.booking_customer",
		PaymentDetail:  ".bookingInfo",
		PaymentClose:   ".icon-win_close",
		Booking:        ".bookingInfo",
		BookingTitle:   ".title",
		FieldRow:       "tr",
		FieldLabel:     "th",
		FieldValue:     "td",
		TitleSeparator: " - ",
	}
}

// Validate reports missing structural selectors.
func (s Selectors) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("invalid selectors: %w", err)
	}
	return nil
}
