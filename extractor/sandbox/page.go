package sandbox

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gitlab.com/pagevar/pagevar"
	"golang.org/x/net/html"
)

type subscriber struct {
	id      int64
	handler pagevar.MessageHandler
}

// Page is a single document and its page world
type Page struct {
	id     int64
	cfg    Config
	origin string
	vm     *goja.Runtime
	loop   *loop

	// owned by the loop
	doc       *goquery.Document
	policies  []*policy
	started   map[*html.Node]struct{}
	nodeSym   *goja.Symbol
	listeners []goja.Value
	timers    map[int64]*time.Timer
	timerID   int64
	deadline  time.Time // of the running task

	mu          sync.Mutex
	closed      bool
	subscribers []subscriber
	subID       int64
	closeOnce   sync.Once

	console   []LogEntry
	consoleMu sync.Mutex
}

// New creates a page holding an empty document
func New(cfg Config) (*Page, error) {
	if cfg.ScriptTimeout <= 0 {
		cfg.ScriptTimeout = DefaultConfig().ScriptTimeout
	}
	if cfg.URL == "" {
		cfg.URL = DefaultConfig().URL
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(blankDocument))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create document")
	}

	p := &Page{
		id:      pagevar.GetPageID(),
		cfg:     cfg,
		origin:  originOf(cfg.URL),
		vm:      goja.New(),
		doc:     doc,
		started: make(map[*html.Node]struct{}),
		nodeSym: goja.NewSymbol("node"),
		timers:  make(map[int64]*time.Timer),
		console: make([]LogEntry, 0),
	}
	p.policies = p.pagePolicies()

	p.setupWindow()
	p.setupConsole()
	p.setupDocument()

	p.loop = newLoop()
	log.Debug().Int64("page_id", p.id).Str("url", cfg.URL).Msg("sandbox page created")
	return p, nil
}

// Open creates a page and loads src into it
func Open(ctx context.Context, cfg Config, src string) (*Page, error) {
	p, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := p.Load(ctx, src); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// ID of this page
func (p *Page) ID() int64 {
	return p.id
}

// Origin the page reports to message listeners
func (p *Page) Origin() string {
	return p.origin
}

func (p *Page) pagePolicies() []*policy {
	if p.cfg.ContentSecurityPolicy != "" {
		return []*policy{parsePolicy(p.cfg.ContentSecurityPolicy)}
	}
	return metaPolicies(p.doc)
}

// Load replaces the document with src and runs its inline scripts in document order,
// one task each. Global state of earlier scripts is kept.
func (p *Page) Load(ctx context.Context, src string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return errors.Wrap(err, "failed to parse document")
	}

	var elements []*html.Node
	err = p.loop.do(ctx, func() {
		p.doc = doc
		p.started = make(map[*html.Node]struct{})
		p.policies = p.pagePolicies()
		elements = scripts(p.root())
	})
	if err != nil {
		return err
	}

	for _, n := range elements {
		n := n
		err := p.loop.do(ctx, func() {
			if !p.connected(n) {
				return
			}
			p.guard(func() error {
				p.runScriptElement(n)
				return nil
			})
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Evaluate runs src as a classic script and returns its completion value as a
// structured clone
func (p *Page) Evaluate(ctx context.Context, src string) (interface{}, error) {
	var out interface{}
	var runErr error
	err := p.loop.do(ctx, func() {
		runErr = p.guard(func() error {
			v, err := p.vm.RunScript("evaluate.js", src)
			if err != nil {
				return err
			}
			out, _, err = newCloner(p.deadline).clone(v)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	if runErr != nil {
		return nil, &ScriptErr{Message: errorMessage(runErr)}
	}
	return out, nil
}

// AppendScript inserts an inline script element at the end of the body, it runs
// immediately unless the page's policy forbids it
func (p *Page) AppendScript(ctx context.Context, s *pagevar.Script) error {
	if s == nil {
		return errors.New("script is nil")
	}
	return p.loop.do(ctx, func() {
		n := newElement("script")
		if s.ID != "" {
			setAttr(n, "id", s.ID)
		}
		if s.Ref != "" {
			setAttr(n, pagevar.RefAttribute, s.Ref)
		}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: s.Source})
		p.guard(func() error {
			p.insert(p.body(), n)
			return nil
		})
	})
}

// RemoveScript detaches every script element carrying ref
func (p *Page) RemoveScript(ctx context.Context, ref string) error {
	return p.loop.do(ctx, func() {
		for _, n := range scripts(p.root()) {
			if v, ok := getAttr(n, pagevar.RefAttribute); ok && v == ref {
				detach(n)
			}
		}
	})
}

// Listen subscribes handler to every object message posted on the window
func (p *Page) Listen(ctx context.Context, handler pagevar.MessageHandler) (pagevar.StopFunc, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, pagevar.ErrPageClosed
	}
	p.subID++
	id := p.subID
	p.subscribers = append(p.subscribers, subscriber{id: id, handler: handler})

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, sub := range p.subscribers {
			if sub.id == id {
				p.subscribers = append(p.subscribers[:i], p.subscribers[i+1:]...)
				return
			}
		}
	}, nil
}

// Count the elements matching selector
func (p *Page) Count(ctx context.Context, selector string) (int, error) {
	count := 0
	err := p.loop.do(ctx, func() {
		count = p.doc.Find(selector).Length()
	})
	return count, err
}

// HTML serializes the current document
func (p *Page) HTML(ctx context.Context) (string, error) {
	var out string
	var renderErr error
	err := p.loop.do(ctx, func() {
		out, renderErr = p.doc.Html()
	})
	if err != nil {
		return "", err
	}
	return out, renderErr
}

// Close stops the loop and all timers. Pending Evaluate and Listen calls fail with
// pagevar.ErrPageClosed.
func (p *Page) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.subscribers = nil
		p.mu.Unlock()

		p.vm.Interrupt("page closed")
		p.loop.close()
		for id, t := range p.timers {
			t.Stop()
			delete(p.timers, id)
		}
		log.Debug().Int64("page_id", p.id).Msg("sandbox page closed")
	})
	return nil
}

// guard bounds a task's script time by Config.ScriptTimeout. The interrupt of a timer
// that fires late never reaches the next task.
func (p *Page) guard(fn func() error) error {
	var mu sync.Mutex
	finished := false

	p.deadline = time.Now().Add(p.cfg.ScriptTimeout)
	timer := time.AfterFunc(p.cfg.ScriptTimeout, func() {
		mu.Lock()
		defer mu.Unlock()
		if finished {
			return
		}
		p.vm.Interrupt("script timeout exceeded")
	})
	err := fn()

	mu.Lock()
	finished = true
	timer.Stop()
	p.vm.ClearInterrupt()
	mu.Unlock()
	p.deadline = time.Time{}
	return err
}

func isJavaScript(typ string) bool {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", "text/javascript", "application/javascript", "module":
		return true
	}
	return false
}

func (p *Page) runScriptElement(n *html.Node) {
	if _, done := p.started[n]; done {
		return
	}
	p.started[n] = struct{}{}

	if src, external := getAttr(n, "src"); external {
		p.logConsole("warn", "external script not loaded: "+src)
		return
	}
	if typ, ok := getAttr(n, "type"); ok && !isJavaScript(typ) {
		return
	}

	nonce, _ := getAttr(n, "nonce")
	source := textContent(n)
	for _, pol := range p.policies {
		if !pol.allowsInline(nonce, source) {
			p.logConsole("error", fmt.Sprintf("Refused to execute inline script because it violates the following Content Security Policy directive: %q", pol.raw))
			return
		}
	}

	name := "inline.js"
	if id, ok := getAttr(n, "id"); ok {
		name = id + ".js"
	}
	if _, err := p.vm.RunScript(name, source); err != nil {
		p.report(err)
	}
}

// report writes an uncaught error to the console
func (p *Page) report(err error) {
	p.logConsole("error", "Uncaught "+errorMessage(err))
}

func errorMessage(err error) string {
	var ex *goja.Exception
	if errors.As(err, &ex) && ex.Value() != nil {
		return ex.Value().String()
	}
	return err.Error()
}
