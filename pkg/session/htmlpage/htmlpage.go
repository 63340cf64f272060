// Package htmlpage implements session.Page over a saved HTML page dump.
//
// A dump is static, so activation is simulated: clicking an activatable
// element makes it the active element, and clicking it again deactivates it.
// WaitFor resolves the detail surface that belongs to the active element:
// the matches nested inside it, or else every match following it in document
// order before the next activatable element.
package htmlpage

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/jmylchreest/classlist/pkg/session"
)

// Options configures a Page.
type Options struct {
	// Activate matches elements that open a detail surface when clicked,
	// usually the calendar slot selector. Clicking anything else clears the
	// active element. Empty means every click activates.
	Activate string
}

// Page is an offline session.Page. It is safe for concurrent use.
type Page struct {
	doc      *goquery.Document
	order    map[*html.Node]int
	activate cascadia.Selector

	mu     sync.Mutex
	active *html.Node
}

var _ session.Page = (*Page)(nil)

// Load parses an HTML document from r.
func Load(r io.Reader, opts Options) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	p := &Page{doc: doc, order: make(map[*html.Node]int)}
	if opts.Activate != "" {
		m, err := cascadia.Compile(opts.Activate)
		if err != nil {
			return nil, fmt.Errorf("activation selector %q: %w", opts.Activate, err)
		}
		p.activate = m
	}

	n := 0
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		p.order[node] = n
		n++
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, root := range doc.Nodes {
		walk(root)
	}
	return p, nil
}

// Open parses the HTML document at path.
func Open(path string, opts Options) (*Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, opts)
}

// Query returns the first match for selector within scope.
func (p *Page) Query(ctx context.Context, scope session.Element, selector string) (session.Element, error) {
	all, err := p.QueryAll(ctx, scope, selector)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: %s", session.ErrNotFound, selector)
	}
	return all[0], nil
}

// QueryAll returns every match for selector within scope in document order.
func (p *Page) QueryAll(ctx context.Context, scope session.Element, selector string) ([]session.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", selector, err)
	}
	root, err := p.selection(scope)
	if err != nil {
		return nil, err
	}

	// cascadia matches a scope node itself as well as its descendants.
	seen := make(map[*html.Node]bool)
	var found []*html.Node
	for _, n := range root.Nodes {
		for _, match := range m.MatchAll(n) {
			if !seen[match] {
				seen[match] = true
				found = append(found, match)
			}
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		return p.order[found[i]] < p.order[found[j]]
	})

	out := make([]session.Element, 0, len(found))
	for _, n := range found {
		out = append(out, p.doc.FindNodes(n))
	}
	return out, nil
}

// Click activates el, or the nearest activatable ancestor of el. Clicking the
// active element again deactivates it.
func (p *Page) Click(ctx context.Context, el session.Element) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, err := p.selection(el)
	if err != nil {
		return err
	}
	if s.Length() == 0 {
		return fmt.Errorf("%w: empty element", session.ErrNotFound)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	target := p.activatable(s.Get(0))
	if target != nil && target == p.active {
		target = nil
	}
	p.active = target
	return nil
}

// Text returns the combined text of el and its descendants.
func (p *Page) Text(ctx context.Context, el session.Element) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s, err := p.selection(el)
	if err != nil {
		return "", err
	}
	return s.Text(), nil
}

// WaitFor returns the detail surface of the active element. A static page
// never changes, so the timeout is not waited out: a missing surface is
// reported as session.ErrTimeout immediately.
func (p *Page) WaitFor(ctx context.Context, selector string, _ time.Duration) (session.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", selector, err)
	}

	p.mu.Lock()
	active := p.active
	p.mu.Unlock()
	if active == nil {
		return nil, fmt.Errorf("%w: no active element for %s", session.ErrTimeout, selector)
	}

	var inner []*html.Node
	for _, n := range m.MatchAll(active) {
		if n != active {
			inner = append(inner, n)
		}
	}
	if len(inner) > 0 {
		return p.doc.FindNodes(inner...), nil
	}

	limit := p.nextActivatable(active)
	var following []*html.Node
	for _, n := range m.MatchAll(p.doc.Nodes[0]) {
		pos := p.order[n]
		if pos <= p.order[active] || contains(active, n) {
			continue
		}
		if limit >= 0 && pos >= limit {
			break
		}
		following = append(following, n)
	}
	if len(following) == 0 {
		return nil, fmt.Errorf("%w: %s", session.ErrTimeout, selector)
	}
	return p.doc.FindNodes(following...), nil
}

func (p *Page) selection(el session.Element) (*goquery.Selection, error) {
	if el == nil {
		return p.doc.Selection, nil
	}
	s, ok := el.(*goquery.Selection)
	if !ok {
		return nil, fmt.Errorf("element of type %T does not belong to this page", el)
	}
	return s, nil
}

// activatable returns n or its nearest ancestor matching the activation
// selector, or nil when neither does.
func (p *Page) activatable(n *html.Node) *html.Node {
	if p.activate == nil {
		return n
	}
	for ; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && p.activate.Match(n) {
			return n
		}
	}
	return nil
}

// nextActivatable returns the document position of the first activatable
// element after n and outside it, or -1.
func (p *Page) nextActivatable(n *html.Node) int {
	if p.activate == nil {
		return -1
	}
	for _, c := range p.activate.MatchAll(p.doc.Nodes[0]) {
		if p.order[c] > p.order[n] && !contains(n, c) {
			return p.order[c]
		}
	}
	return -1
}

func contains(ancestor, n *html.Node) bool {
	for c := n.Parent; c != nil; c = c.Parent {
		if c == ancestor {
			return true
		}
	}
	return false
}
