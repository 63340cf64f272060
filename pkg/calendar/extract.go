package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/jmylchreest/classlist/internal/logger"
	"github.com/jmylchreest/classlist/pkg/session"
)

// Config controls extraction behaviour.
type Config struct {
	Selectors Selectors
	// WaitTimeout bounds the wait for a slot's detail surface.
	WaitTimeout time.Duration
	// SettleDelay is a fixed pause after opening and after closing a detail
	// surface, for sites that render asynchronously.
	SettleDelay time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Selectors:   DefaultSelectors(),
		WaitTimeout: 10 * time.Second,
		SettleDelay: 500 * time.Millisecond,
	}
}

// Extractor walks the calendar slots visible on a Page.
type Extractor struct {
	page session.Page
	cfg  Config
}

// New creates an extractor over an authenticated, calendar-positioned page.
func New(page session.Page, cfg Config) *Extractor {
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = DefaultConfig().WaitTimeout
	}
	return &Extractor{page: page, cfg: cfg}
}

// Extract produces one Record per attendee of every visible slot.
// Only a failure to enumerate the slots, or cancellation, is returned as an
// error; per-slot failures are reported in Result.Outcomes.
func (e *Extractor) Extract(ctx context.Context) (Result, error) {
	surf := surface{detail: e.cfg.Selectors.Detail, close: e.cfg.Selectors.Close}
	records, outcomes, err := traverse(ctx, e, surf, e.harvestAttendees)
	return Result{Records: records, Outcomes: outcomes}, err
}

// surface names the detail surface of one export and its close control. An
// empty close collapses the surface by clicking the slot again.
type surface struct {
	detail string
	close  string
}

// harvestAttendees reads the attendee list of an open detail surface.
func (e *Extractor) harvestAttendees(ctx context.Context, slot Slot, detail session.Element) ([]Record, error) {
	className, rest := SplitTitle(slot.Title, e.cfg.Selectors.TitleSeparator)
	dateTime := slot.Time
	if dateTime == "" {
		dateTime = rest
	}

	attendees, err := e.page.QueryAll(ctx, detail, e.cfg.Selectors.Attendee)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}

	records := make([]Record, 0, len(attendees))
	for _, a := range attendees {
		raw, err := e.page.Text(ctx, a)
		if err != nil {
			return nil, fmt.Errorf("read attendee: %w", err)
		}
		name := cleanText(raw)
		if name == "" {
			continue
		}
		if e.cfg.Selectors.CompoundNames {
			n, _, err := ParseCompoundName(name)
			if err != nil {
				logger.Warn("attendee skipped", "slot", slot.Index, "error", err)
				continue
			}
			name = n
		}
		records = append(records, Record{
			ClassName:    className,
			DateTime:     dateTime,
			Instructor:   slot.Instructor,
			CustomerName: name,
		})
	}
	return records, nil
}

// harvestFunc reads the rows of one slot whose detail surface is open. Rows
// are kept only if it returns a nil error.
type harvestFunc[T any] func(ctx context.Context, slot Slot, detail session.Element) ([]T, error)

// traverse visits every slot in document order, one detail surface at a time.
func traverse[T any](ctx context.Context, e *Extractor, surf surface, harvest harvestFunc[T]) ([]T, []SlotOutcome, error) {
	slots, err := e.page.QueryAll(ctx, nil, e.cfg.Selectors.Slot)
	if err != nil {
		return nil, nil, fmt.Errorf("enumerate slots: %w", err)
	}
	logger.Info("slots found", "count", len(slots))

	var rows []T
	outcomes := make([]SlotOutcome, 0, len(slots))
	for i, el := range slots {
		if err := ctx.Err(); err != nil {
			return rows, outcomes, err
		}

		slotRows, outcome := processSlot(ctx, e, surf, i, el, harvest)
		outcomes = append(outcomes, outcome)
		if outcome.Status == StatusSkipped {
			logger.Warn("slot skipped",
				"slot", i,
				"title", outcome.Slot.Title,
				"reason", outcome.Err)
			continue
		}
		rows = append(rows, slotRows...)
		logger.Info("slot extracted",
			"slot", i,
			"title", outcome.Slot.Title,
			"rows", outcome.Rows)
	}
	return rows, outcomes, nil
}

// processSlot opens, harvests and closes one slot. The close attempt runs
// however the slot ends.
func processSlot[T any](ctx context.Context, e *Extractor, surf surface, index int, el session.Element, harvest harvestFunc[T]) (rows []T, out SlotOutcome) {
	opened := false
	defer func() {
		if err := e.closeDetail(ctx, surf, el, opened); err != nil {
			out.CloseErr = err
			logger.Warn("detail surface not closed", "slot", index, "error", err)
		}
	}()

	skip := func(err error) ([]T, SlotOutcome) {
		out.Status = StatusSkipped
		out.Err = err
		return nil, out
	}

	slot := Slot{Index: index}
	err := e.readSlot(ctx, &slot, el)
	out.Slot = slot
	if err != nil {
		return skip(err)
	}

	if err := e.page.Click(ctx, el); err != nil {
		return skip(fmt.Errorf("activate slot: %w", err))
	}
	opened = true
	detail, err := e.page.WaitFor(ctx, surf.detail, e.cfg.WaitTimeout)
	if err != nil {
		return skip(fmt.Errorf("detail surface: %w", err))
	}
	if err := sleep(ctx, e.cfg.SettleDelay); err != nil {
		return skip(err)
	}

	// Fields the slot element lacks may be rendered on the detail surface.
	err = e.readSlot(ctx, &slot, detail)
	out.Slot = slot
	if err != nil {
		return skip(err)
	}

	rows, err = harvest(ctx, slot, detail)
	if err != nil {
		return skip(err)
	}
	out.Status = StatusExtracted
	out.Rows = len(rows)
	return rows, out
}

// readSlot fills the slot-level fields still empty from scope. Absent
// fields stay empty strings.
func (e *Extractor) readSlot(ctx context.Context, slot *Slot, scope session.Element) error {
	sel := e.cfg.Selectors
	fields := []struct {
		name     string
		selector string
		dst      *string
	}{
		{"title", sel.Title, &slot.Title},
		{"time", sel.Time, &slot.Time},
		{"instructor", sel.Instructor, &slot.Instructor},
	}
	for _, f := range fields {
		if *f.dst != "" {
			continue
		}
		v, err := e.field(ctx, f.selector, scope)
		if err != nil {
			return fmt.Errorf("read %s: %w", f.name, err)
		}
		*f.dst = v
	}
	return nil
}

// field returns the cleaned text of the first match for selector in scope.
func (e *Extractor) field(ctx context.Context, selector string, scope session.Element) (string, error) {
	text, err := session.TextOf(ctx, e.page, scope, selector)
	if err != nil {
		return "", err
	}
	return cleanText(text), nil
}

// closeDetail dismisses the detail surface so the next slot can be opened.
// Without a close control the slot is clicked again to collapse it, which
// is only done when the activation click went through.
func (e *Extractor) closeDetail(ctx context.Context, surf surface, slot session.Element, opened bool) error {
	if surf.close == "" {
		if !opened {
			return nil
		}
		if err := e.page.Click(ctx, slot); err != nil {
			return fmt.Errorf("collapse slot: %w", err)
		}
		return sleep(ctx, e.cfg.SettleDelay)
	}

	el, err := e.page.Query(ctx, nil, surf.close)
	if err != nil {
		return fmt.Errorf("find close control: %w", err)
	}
	if err := e.page.Click(ctx, el); err != nil {
		return fmt.Errorf("click close control: %w", err)
	}
	return sleep(ctx, e.cfg.SettleDelay)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
