package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/classlist/pkg/session"
)

var _ session.Page = (*Browser)(nil)

// Query returns the first node matching selector within scope.
func (b *Browser) Query(ctx context.Context, scope session.Element, selector string) (session.Element, error) {
	nodes, err := b.QueryAll(ctx, scope, selector)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", session.ErrNotFound, selector)
	}
	return nodes[0], nil
}

// QueryAll returns every node matching selector within scope without
// waiting for one to appear. Scope nodes that match selector themselves are
// included.
func (b *Browser) QueryAll(ctx context.Context, scope session.Element, selector string) ([]session.Element, error) {
	var roots []*cdp.Node
	if scope != nil {
		var err error
		if roots, err = asNodes(scope); err != nil {
			return nil, err
		}
	}

	runCtx, cancel := b.scoped(ctx, b.cfg.Timeout)
	defer cancel()

	var all []*cdp.Node
	if err := chromedp.Run(runCtx, chromedp.Nodes(selector, &all, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}
	if scope == nil {
		return elements(all), nil
	}

	matched := make(map[cdp.NodeID]bool, len(all))
	for _, n := range all {
		matched[n.NodeID] = true
	}

	seen := make(map[cdp.NodeID]bool)
	var out []*cdp.Node
	add := func(n *cdp.Node) {
		if !seen[n.NodeID] {
			seen[n.NodeID] = true
			out = append(out, n)
		}
	}
	for _, root := range roots {
		if matched[root.NodeID] {
			add(root)
		}
		var nodes []*cdp.Node
		err := chromedp.Run(runCtx, chromedp.Nodes(selector, &nodes,
			chromedp.ByQueryAll, chromedp.AtLeast(0), chromedp.FromNode(root)))
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", selector, err)
		}
		for _, n := range nodes {
			add(n)
		}
	}
	return elements(out), nil
}

// Click scrolls el into view and clicks its centre.
func (b *Browser) Click(ctx context.Context, el session.Element) error {
	n, err := asNode(el)
	if err != nil {
		return err
	}

	runCtx, cancel := b.scoped(ctx, b.cfg.Timeout)
	defer cancel()

	return chromedp.Run(runCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return dom.ScrollIntoViewIfNeeded().WithNodeID(n.NodeID).Do(ctx)
		}),
		chromedp.MouseClickNode(n),
	)
}

// Text returns the text content of el. Unlike chromedp.Text it does not
// wait for the node to be visible.
func (b *Browser) Text(ctx context.Context, el session.Element) (string, error) {
	nodes, err := asNodes(el)
	if err != nil {
		return "", err
	}

	runCtx, cancel := b.scoped(ctx, b.cfg.Timeout)
	defer cancel()

	var sb strings.Builder
	for _, n := range nodes {
		var text string
		if err := chromedp.Run(runCtx, chromedp.TextContent([]cdp.NodeID{n.NodeID}, &text, chromedp.ByNodeID)); err != nil {
			return "", err
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

// WaitFor waits up to timeout for a node matching selector to be ready and
// returns every node matching it at that point.
func (b *Browser) WaitFor(ctx context.Context, selector string, timeout time.Duration) (session.Element, error) {
	runCtx, cancel := b.scoped(ctx, timeout)
	defer cancel()

	var nodes []*cdp.Node
	err := chromedp.Run(runCtx,
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)),
	)
	if err != nil {
		if ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s after %s", session.ErrTimeout, selector, timeout)
		}
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", session.ErrTimeout, selector)
	}
	return surface(nodes), nil
}

// surface is the group of nodes returned by WaitFor.
type surface []*cdp.Node

func elements(nodes []*cdp.Node) []session.Element {
	out := make([]session.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n)
	}
	return out
}

// asNode returns the node to act on for el. A surface acts through its
// first node.
func asNode(el session.Element) (*cdp.Node, error) {
	nodes, err := asNodes(el)
	if err != nil {
		return nil, err
	}
	return nodes[0], nil
}

func asNodes(el session.Element) ([]*cdp.Node, error) {
	switch v := el.(type) {
	case *cdp.Node:
		if v != nil {
			return []*cdp.Node{v}, nil
		}
	case surface:
		if len(v) > 0 {
			return v, nil
		}
	}
	return nil, fmt.Errorf("element of type %T is not a browser node", el)
}
