// Package session defines the page capability the calendar extractor drives.
// Implement the Page interface to run extraction against a live browser,
// a saved page dump, or an in-memory fake in tests.
package session

import (
	"context"
	"errors"
	"time"
)

// Element is an opaque handle to a node owned by a Page, or to the group of
// nodes returned by WaitFor. A nil Element used as a scope means the whole
// document. Any other scope is searched together with its descendants, so a
// selector may match the scope itself.
type Element any

// Page abstracts the handful of DOM operations extraction needs.
type Page interface {
	// Query returns the first element matching selector within scope.
	// It returns ErrNotFound when nothing matches.
	Query(ctx context.Context, scope Element, selector string) (Element, error)

	// QueryAll returns every element matching selector within scope, in
	// document order. No match is not an error.
	QueryAll(ctx context.Context, scope Element, selector string) ([]Element, error)

	// Click activates an element, scrolling it into view first if needed.
	Click(ctx context.Context, el Element) error

	// Text returns the text content of an element, untrimmed.
	Text(ctx context.Context, el Element) (string, error)

	// WaitFor blocks until an element matching selector is present or the
	// timeout elapses, in which case it returns ErrTimeout. The result
	// covers every matching element of the surface that appeared.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error)
}

// Error types for distinguishing lookup failures.
// Check with errors.Is(err, session.ErrNotFound).
var (
	// ErrNotFound indicates no element matched a selector.
	ErrNotFound = errors.New("element not found")
	// ErrTimeout indicates a bounded wait elapsed before its condition held.
	ErrTimeout = errors.New("timed out waiting for element")
)

// TextOf returns the text of the first match for selector within scope, or
// "" when no element matches. Errors other than ErrNotFound are returned.
func TextOf(ctx context.Context, p Page, scope Element, selector string) (string, error) {
	if selector == "" {
		return "", nil
	}
	el, err := p.Query(ctx, scope, selector)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return p.Text(ctx, el)
}
