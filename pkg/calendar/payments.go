package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmylchreest/classlist/internal/logger"
	"github.com/jmylchreest/classlist/pkg/session"
)

// Labels of the booking fields read by the payment export, normalised by
// normaliseLabel.
const (
	labelWhen          = "when"
	labelTotalPrice    = "total price"
	labelBookingNumber = "booking number"
	labelPromotion     = "promotion"
)

// ExtractPayments produces one PaymentRecord per booking of every visible
// slot. A booking whose price summary cannot be parsed causes its whole slot
// to be skipped.
func (e *Extractor) ExtractPayments(ctx context.Context) (PaymentResult, error) {
	sel := e.cfg.Selectors
	surf := surface{detail: sel.PaymentDetail, close: sel.PaymentClose}
	records, outcomes, err := traverse(ctx, e, surf, e.harvestBookings)
	return PaymentResult{Records: records, Outcomes: outcomes}, err
}

func (e *Extractor) harvestBookings(ctx context.Context, slot Slot, detail session.Element) ([]PaymentRecord, error) {
	sel := e.cfg.Selectors
	className, rest := SplitTitle(slot.Title, sel.TitleSeparator)
	dateTime := slot.Time
	if dateTime == "" {
		dateTime = rest
	}

	bookings, err := e.page.QueryAll(ctx, detail, sel.Booking)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	records := make([]PaymentRecord, 0, len(bookings))
	for _, b := range bookings {
		title, err := session.TextOf(ctx, e.page, b, sel.BookingTitle)
		if err != nil {
			return nil, fmt.Errorf("read booking title: %w", err)
		}
		name, classTime, err := ParseCompoundName(title)
		if err != nil {
			logger.Warn("booking skipped", "slot", slot.Index, "error", err)
			continue
		}

		fields, err := e.labelledFields(ctx, b)
		if err != nil {
			return nil, fmt.Errorf("read booking %q: %w", name, err)
		}
		money, err := ParseMoneySummary(fields[labelTotalPrice])
		if err != nil {
			return nil, fmt.Errorf("booking %q: %w", name, err)
		}

		when := dateTime
		if when == "" {
			when = classTime
		}
		records = append(records, PaymentRecord{
			ClassName:     className,
			DateTime:      when,
			Instructor:    slot.Instructor,
			CustomerName:  name,
			ClassTime:     classTime,
			BookedFor:     fields[labelWhen],
			TotalPrice:    money.Price,
			TotalPaid:     money.Paid,
			TotalDue:      money.Due,
			BookingNumber: fields[labelBookingNumber],
			Promotion:     fields[labelPromotion],
		})
	}
	return records, nil
}

// labelledFields reads "<th>Label:</th><td>value</td>" rows of a booking.
// The first occurrence of a label wins.
func (e *Extractor) labelledFields(ctx context.Context, booking session.Element) (map[string]string, error) {
	sel := e.cfg.Selectors
	rows, err := e.page.QueryAll(ctx, booking, sel.FieldRow)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(rows))
	for _, row := range rows {
		label, err := e.page.Query(ctx, row, sel.FieldLabel)
		if errors.Is(err, session.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		labelText, err := e.page.Text(ctx, label)
		if err != nil {
			return nil, err
		}
		key := normaliseLabel(labelText)
		if _, seen := fields[key]; seen || key == "" {
			continue
		}
		value, err := session.TextOf(ctx, e.page, row, sel.FieldValue)
		if err != nil {
			return nil, err
		}
		fields[key] = cleanText(value)
	}
	return fields, nil
}

func normaliseLabel(s string) string {
	s = strings.TrimSuffix(cleanText(s), ":")
	return strings.ToLower(strings.TrimSpace(s))
}
