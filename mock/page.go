package mock

import (
	"context"
	"sync"

	"gitlab.com/pagevar/pagevar"
)

// Page is a pagevar.Page without a page world. Tests play the page by calling Broadcast.
type Page struct {
	AppendScriptFn     func(ctx context.Context, script *pagevar.Script) error
	AppendScriptCalled bool

	RemoveScriptFn     func(ctx context.Context, ref string) error
	RemoveScriptCalled bool

	ListenFn     func(ctx context.Context, fn pagevar.MessageHandler) (pagevar.StopFunc, error)
	ListenCalled bool

	mu       sync.Mutex
	scripts  map[string]*pagevar.Script
	handlers map[int]pagevar.MessageHandler
	nextID   int
}

// AppendScript calls AppendScriptFn
func (p *Page) AppendScript(ctx context.Context, script *pagevar.Script) error {
	p.mu.Lock()
	p.AppendScriptCalled = true
	p.mu.Unlock()
	return p.AppendScriptFn(ctx, script)
}

// RemoveScript calls RemoveScriptFn
func (p *Page) RemoveScript(ctx context.Context, ref string) error {
	p.mu.Lock()
	p.RemoveScriptCalled = true
	p.mu.Unlock()
	return p.RemoveScriptFn(ctx, ref)
}

// Listen calls ListenFn
func (p *Page) Listen(ctx context.Context, fn pagevar.MessageHandler) (pagevar.StopFunc, error) {
	p.mu.Lock()
	p.ListenCalled = true
	p.mu.Unlock()
	return p.ListenFn(ctx, fn)
}

// Called returns the append, remove and listen called flags
func (p *Page) Called() (appendCalled, removeCalled, listenCalled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.AppendScriptCalled, p.RemoveScriptCalled, p.ListenCalled
}

// Broadcast msg to every listener, like a page world postMessage would
func (p *Page) Broadcast(msg pagevar.Message) {
	p.mu.Lock()
	handlers := make([]pagevar.MessageHandler, 0, len(p.handlers))
	for _, h := range p.handlers {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()

	for _, h := range handlers {
		h(msg)
	}
}

// Scripts currently in the "document"
func (p *Page) Scripts() []*pagevar.Script {
	p.mu.Lock()
	defer p.mu.Unlock()
	scripts := make([]*pagevar.Script, 0, len(p.scripts))
	for _, s := range p.scripts {
		scripts = append(scripts, s)
	}
	return scripts
}

// ListenerCount of subscribed handlers
func (p *Page) ListenerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handlers)
}

// MakeMockPage keeps appended scripts and subscribed handlers in memory
func MakeMockPage() *Page {
	p := &Page{
		scripts:  make(map[string]*pagevar.Script),
		handlers: make(map[int]pagevar.MessageHandler),
	}
	p.AppendScriptFn = func(ctx context.Context, script *pagevar.Script) error {
		p.mu.Lock()
		p.scripts[script.Ref] = script
		p.mu.Unlock()
		return nil
	}
	p.RemoveScriptFn = func(ctx context.Context, ref string) error {
		p.mu.Lock()
		delete(p.scripts, ref)
		p.mu.Unlock()
		return nil
	}
	p.ListenFn = func(ctx context.Context, fn pagevar.MessageHandler) (pagevar.StopFunc, error) {
		p.mu.Lock()
		id := p.nextID
		p.nextID++
		p.handlers[id] = fn
		p.mu.Unlock()
		return func() {
			p.mu.Lock()
			delete(p.handlers, id)
			p.mu.Unlock()
		}, nil
	}
	return p
}
