// Package calendar extracts attendee rows from a booking calendar view.
//
// An Extractor walks every bookable Slot in the loaded calendar, opens its
// detail surface, harvests the attendees listed there and closes it again
// before moving on. A Slot that cannot be processed is reported as skipped
// and never aborts the run.
package calendar

import "strings"

// Slot is one calendar entry discovered during a single traversal.
type Slot struct {
	Index      int    `json:"index" yaml:"index"`
	Title      string `json:"title" yaml:"title"`
	Time       string `json:"time,omitempty" yaml:"time,omitempty"`
	Instructor string `json:"instructor,omitempty" yaml:"instructor,omitempty"`
}

// Record is one calendar export row: one attendee of one Slot.
type Record struct {
	ClassName    string `json:"class_name" yaml:"class_name"`
	DateTime     string `json:"date_time" yaml:"date_time"`
	Instructor   string `json:"instructor" yaml:"instructor"`
	CustomerName string `json:"customer_name" yaml:"customer_name"`
}

// PaymentRecord is one payment export row: one booking of one Slot.
type PaymentRecord struct {
	ClassName     string `json:"class_name" yaml:"class_name"`
	DateTime      string `json:"date_time" yaml:"date_time"`
	Instructor    string `json:"instructor" yaml:"instructor"`
	CustomerName  string `json:"customer_name" yaml:"customer_name"`
	ClassTime     string `json:"class_time" yaml:"class_time"`
	BookedFor     string `json:"booked_for" yaml:"booked_for"`
	TotalPrice    string `json:"total_price" yaml:"total_price"`
	TotalPaid     string `json:"total_paid" yaml:"total_paid"`
	TotalDue      string `json:"total_due" yaml:"total_due"`
	BookingNumber string `json:"booking_number" yaml:"booking_number"`
	Promotion     string `json:"promotion" yaml:"promotion"`
}

// Status is the outcome of processing a single Slot.
type Status string

const (
	StatusExtracted Status = "extracted"
	StatusSkipped   Status = "skipped"
)

// SlotOutcome reports what happened to one Slot. A Slot with no attendees is
// StatusExtracted with Rows == 0; a Slot that failed is StatusSkipped with Err
// set. CloseErr records a failure to dismiss the detail surface, which never
// changes Status.
type SlotOutcome struct {
	Slot     Slot
	Status   Status
	Rows     int
	Err      error
	CloseErr error
}

// Result is the output of a calendar export run.
type Result struct {
	Records  []Record
	Outcomes []SlotOutcome
}

// PaymentResult is the output of a payment export run.
type PaymentResult struct {
	Records  []PaymentRecord
	Outcomes []SlotOutcome
}

// Skipped returns the number of slots that produced no rows because they failed.
func (r Result) Skipped() int { return countSkipped(r.Outcomes) }

// Skipped returns the number of slots that produced no rows because they failed.
func (r PaymentResult) Skipped() int { return countSkipped(r.Outcomes) }

func countSkipped(outcomes []SlotOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Status == StatusSkipped {
			n++
		}
	}
	return n
}

// cleanText trims and collapses runs of whitespace into single spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
