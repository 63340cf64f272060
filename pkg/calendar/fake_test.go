package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/jmylchreest/classlist/pkg/session"
)

// node is an element of the in-memory page. Children are keyed by the
// selector that finds them.
type node struct {
	name     string
	text     string
	children map[string][]*node
	detail   *node // surface shown when this node is clicked
	clickErr error
}

func newNode(name, text string) *node {
	return &node{name: name, text: text, children: make(map[string][]*node)}
}

func (n *node) add(selector string, c *node) *node {
	n.children[selector] = append(n.children[selector], c)
	return n
}

// fakePage implements session.Page over node trees and records clicks.
// Clicking the slot whose surface is open collapses it again.
type fakePage struct {
	doc       *node
	closer    *node
	active    *node
	open      *node
	closeSels map[string]bool

	closeFailures int // number of close attempts that fail before succeeding
	queryAllErr   error
	clicks        []string
}

func newFakePage(sel Selectors) *fakePage {
	p := &fakePage{
		doc:       newNode("document", ""),
		closer:    newNode("close", ""),
		closeSels: make(map[string]bool),
	}
	for _, c := range []string{sel.Close, sel.PaymentClose} {
		if c != "" {
			p.closeSels[c] = true
		}
	}
	return p
}

func (p *fakePage) Query(_ context.Context, scope session.Element, selector string) (session.Element, error) {
	if scope == nil && p.closeSels[selector] {
		return p.closer, nil
	}
	n := p.doc
	if scope != nil {
		n = scope.(*node)
	}
	found := n.children[selector]
	if len(found) == 0 {
		return nil, session.ErrNotFound
	}
	return found[0], nil
}

func (p *fakePage) QueryAll(_ context.Context, scope session.Element, selector string) ([]session.Element, error) {
	if p.queryAllErr != nil && scope == nil {
		return nil, p.queryAllErr
	}
	n := p.doc
	if scope != nil {
		n = scope.(*node)
	}
	out := make([]session.Element, 0, len(n.children[selector]))
	for _, c := range n.children[selector] {
		out = append(out, c)
	}
	return out, nil
}

func (p *fakePage) Click(_ context.Context, el session.Element) error {
	n := el.(*node)
	p.clicks = append(p.clicks, n.name)
	if n == p.closer || n == p.active {
		if p.closeFailures > 0 {
			p.closeFailures--
			return errors.New("close control not clickable")
		}
		p.active = nil
		p.open = nil
		return nil
	}
	if n.clickErr != nil {
		return n.clickErr
	}
	p.active = n
	p.open = n.detail
	return nil
}

func (p *fakePage) Text(_ context.Context, el session.Element) (string, error) {
	return el.(*node).text, nil
}

func (p *fakePage) WaitFor(_ context.Context, _ string, _ time.Duration) (session.Element, error) {
	if p.open == nil {
		return nil, session.ErrTimeout
	}
	return p.open, nil
}

// addSlot appends a calendar slot whose detail surface lists attendees.
// Empty time or instructor leaves the field absent.
func (p *fakePage) addSlot(sel Selectors, title, tm, instructor string, attendees ...string) *node {
	slot := newNode(title, "")
	slot.add(sel.Title, newNode("title", title))
	if tm != "" {
		slot.add(sel.Time, newNode("time", tm))
	}
	if instructor != "" {
		slot.add(sel.Instructor, newNode("instructor", instructor))
	}

	detail := newNode("detail:"+title, "")
	for _, a := range attendees {
		detail.add(sel.Attendee, newNode("attendee", a))
	}
	slot.detail = detail

	p.doc.add(sel.Slot, slot)
	return slot
}

type fakeBooking struct {
	title  string
	fields [][2]string
}

// addPaymentSlot appends a slot whose detail surface holds booking blocks.
func (p *fakePage) addPaymentSlot(sel Selectors, title, instructor string, bookings ...fakeBooking) *node {
	slot := p.addSlot(sel, title, "", instructor)
	for _, b := range bookings {
		block := newNode("booking", "")
		block.add(sel.BookingTitle, newNode("booking-title", b.title))
		for _, f := range b.fields {
			row := newNode("row", "")
			row.add(sel.FieldLabel, newNode("label", f[0]))
			row.add(sel.FieldValue, newNode("value", f[1]))
			block.add(sel.FieldRow, row)
		}
		slot.detail.add(sel.Booking, block)
	}
	return slot
}
