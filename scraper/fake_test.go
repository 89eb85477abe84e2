package scraper

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// fakeNode describes one element in the mock DOM.
type fakeNode struct {
	appearAfter time.Duration
	never       bool
	// texts yields one element per entry; nil means a single empty element.
	texts []string
	// vanish makes the node answer waits but not listings.
	vanish   bool
	inputErr error
	clickErr error
	textErr  error
}

// fakeDOM is a Session over a scripted page, keyed by locator name.
type fakeDOM struct {
	mu      sync.Mutex
	start   time.Time
	nodes   map[string]*fakeNode
	events  []string
	navErr  error
	html    string
	htmlErr error
	closed  atomic.Int32
}

func newFakeDOM() *fakeDOM {
	return &fakeDOM{
		start: time.Now(),
		nodes: make(map[string]*fakeNode),
		html:  `<html><head><title>Log in to X</title></head><body><div role="alert">Something went wrong</div></body></html>`,
	}
}

// happyDOM has every login element present and the given trends rendered.
func happyDOM(trends ...string) *fakeDOM {
	locs := DefaultLocators()
	d := newFakeDOM()
	d.set(locs.Identifier, &fakeNode{})
	d.set(locs.Next, &fakeNode{})
	d.set(locs.SecondaryIdentifier, &fakeNode{})
	d.set(locs.Secret, &fakeNode{})
	d.set(locs.LogIn, &fakeNode{})
	d.set(locs.Home, &fakeNode{})
	d.set(locs.Trend, &fakeNode{texts: trends})
	return d
}

func (d *fakeDOM) set(loc Locator, n *fakeNode) *fakeDOM {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nodes[loc.Name] = n
	return d
}

func (d *fakeDOM) record(ev string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, ev)
}

func (d *fakeDOM) Events() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.events...)
}

func (d *fakeDOM) touched(name string) bool {
	for _, ev := range d.Events() {
		if strings.HasSuffix(ev, ":"+name) {
			return true
		}
	}
	return false
}

func (d *fakeDOM) present(name string) (*fakeNode, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.nodes[name]
	if !ok || n.never || time.Since(d.start) < n.appearAfter {
		return nil, false
	}
	return n, true
}

func (d *fakeDOM) Navigate(ctx context.Context, url string) error {
	d.record("navigate:" + url)
	if d.navErr != nil {
		return d.navErr
	}
	d.mu.Lock()
	d.start = time.Now()
	d.mu.Unlock()
	return nil
}

func (d *fakeDOM) Find(ctx context.Context, loc Locator) (Element, error) {
	_, el, err := d.FindAny(ctx, loc)
	return el, err
}

func (d *fakeDOM) FindAny(ctx context.Context, locs ...Locator) (int, Element, error) {
	names := make([]string, len(locs))
	for i, l := range locs {
		names[i] = l.Name
		d.record("wait:" + l.Name)
	}

	tick := time.NewTicker(2 * time.Millisecond)
	defer tick.Stop()
	for {
		for i, name := range names {
			if n, ok := d.present(name); ok {
				text := ""
				if len(n.texts) > 0 {
					text = n.texts[0]
				}
				return i, &fakeElement{dom: d, name: name, node: n, text: text}, nil
			}
		}
		select {
		case <-ctx.Done():
			return -1, nil, ctx.Err()
		case <-tick.C:
		}
	}
}

func (d *fakeDOM) FindAll(ctx context.Context, loc Locator) ([]Element, error) {
	n, ok := d.present(loc.Name)
	if !ok || n.vanish {
		return nil, nil
	}
	if n.texts == nil {
		return []Element{&fakeElement{dom: d, name: loc.Name, node: n}}, nil
	}
	out := make([]Element, 0, len(n.texts))
	for _, t := range n.texts {
		out = append(out, &fakeElement{dom: d, name: loc.Name, node: n, text: t})
	}
	return out, nil
}

func (d *fakeDOM) HTML(ctx context.Context) (string, error) {
	d.record("html:page")
	return d.html, d.htmlErr
}

func (d *fakeDOM) Close() error {
	d.closed.Add(1)
	return nil
}

type fakeElement struct {
	dom  *fakeDOM
	name string
	node *fakeNode
	text string
}

func (e *fakeElement) Input(text string) error {
	e.dom.record("input:" + e.name)
	return e.node.inputErr
}

func (e *fakeElement) Click() error {
	e.dom.record("click:" + e.name)
	return e.node.clickErr
}

func (e *fakeElement) Text() (string, error) {
	return e.text, e.node.textErr
}

// fakeLauncher hands out one fakeDOM per launch.
type fakeLauncher struct {
	newDOM   func() *fakeDOM
	err      error
	launches atomic.Int32

	mu   sync.Mutex
	doms []*fakeDOM
}

func (l *fakeLauncher) Launch(ctx context.Context) (Session, error) {
	if l.err != nil {
		return nil, l.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.launches.Add(1)
	d := l.newDOM()
	l.mu.Lock()
	l.doms = append(l.doms, d)
	l.mu.Unlock()
	return d, nil
}

func (l *fakeLauncher) closes() int32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int32
	for _, d := range l.doms {
		n += d.closed.Load()
	}
	return n
}

var errBoom = errors.New("boom")
