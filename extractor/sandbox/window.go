package sandbox

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dop251/goja"
	"gitlab.com/pagevar/pagevar"
)

// originOf serializes the origin of rawURL, opaque origins are "null"
func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "null"
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
	}
	return "null"
}

func (p *Page) setupWindow() {
	window := p.vm.GlobalObject()

	// no module loader in a page
	p.vm.Set("require", goja.Undefined())
	p.vm.Set("process", goja.Undefined())
	p.vm.Set("module", goja.Undefined())
	p.vm.Set("exports", goja.Undefined())

	window.Set("window", window)
	window.Set("self", window)
	window.Set("origin", p.origin)

	location := p.vm.NewObject()
	location.Set("href", p.cfg.URL)
	location.Set("origin", p.origin)
	window.Set("location", location)

	window.Set("postMessage", p.postMessage)
	window.Set("addEventListener", p.addEventListener)
	window.Set("removeEventListener", p.removeEventListener)
	window.Set("setTimeout", p.setTimeout)
	window.Set("clearTimeout", p.clearTimeout)
}

func (p *Page) dataCloneError(err error) *goja.Object {
	e := p.vm.NewTypeError("Failed to execute 'postMessage' on 'Window': %s", err.Error())
	e.Set("name", "DataCloneError")
	return e
}

func (p *Page) postMessage(call goja.FunctionCall) goja.Value {
	data, defined, err := newCloner(p.deadline).clone(call.Argument(0))
	if err != nil {
		panic(p.dataCloneError(err))
	}

	target := "/"
	if arg := call.Argument(1); !goja.IsUndefined(arg) {
		target = arg.String()
	}
	switch target {
	case "*", "/":
	default:
		u, err := url.Parse(target)
		if err != nil || u.Scheme == "" || u.Host == "" {
			e := p.vm.NewTypeError("Failed to execute 'postMessage' on 'Window': Invalid target origin '%s' in a call to 'postMessage'.", target)
			e.Set("name", "SyntaxError")
			panic(e)
		}
		if p.origin == "null" || originOf(target) != p.origin {
			p.logConsole("error", fmt.Sprintf("Failed to execute 'postMessage' on 'Window': The target origin provided ('%s') does not match the recipient window's origin ('%s').", target, p.origin))
			return goja.Undefined()
		}
	}

	p.loop.post(func() {
		p.dispatch(data, defined)
	})
	return goja.Undefined()
}

// dispatch fires a message event at page listeners first, then Go subscribers
func (p *Page) dispatch(data interface{}, defined bool) {
	listeners := append([]goja.Value(nil), p.listeners...)
	for _, l := range listeners {
		fn, ok := goja.AssertFunction(l)
		if !ok {
			continue
		}
		event := p.vm.NewObject()
		event.Set("type", "message")
		if defined {
			event.Set("data", p.toJS(data))
		} else {
			event.Set("data", goja.Undefined())
		}
		event.Set("origin", p.origin)
		event.Set("source", p.vm.GlobalObject())

		if err := p.guard(func() error {
			_, err := fn(p.vm.GlobalObject(), event)
			return err
		}); err != nil {
			p.report(err)
		}
	}

	msg, ok := data.(map[string]interface{})
	if !ok {
		return
	}
	p.mu.Lock()
	subs := append([]subscriber(nil), p.subscribers...)
	p.mu.Unlock()
	for _, sub := range subs {
		sub.handler(pagevar.Message(copyValue(msg).(map[string]interface{})))
	}
}

func (p *Page) addEventListener(call goja.FunctionCall) goja.Value {
	if call.Argument(0).String() != "message" {
		return goja.Undefined()
	}
	fn := call.Argument(1)
	if _, ok := goja.AssertFunction(fn); !ok {
		return goja.Undefined()
	}
	for _, l := range p.listeners {
		if l.StrictEquals(fn) {
			return goja.Undefined()
		}
	}
	p.listeners = append(p.listeners, fn)
	return goja.Undefined()
}

func (p *Page) removeEventListener(call goja.FunctionCall) goja.Value {
	if call.Argument(0).String() != "message" {
		return goja.Undefined()
	}
	fn := call.Argument(1)
	for i, l := range p.listeners {
		if l.StrictEquals(fn) {
			p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
			break
		}
	}
	return goja.Undefined()
}

func (p *Page) setTimeout(call goja.FunctionCall) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		return p.vm.ToValue(0)
	}
	delay := call.Argument(1).ToInteger()
	if delay < 0 {
		delay = 0
	}
	var args []goja.Value
	if len(call.Arguments) > 2 {
		args = append(args, call.Arguments[2:]...)
	}

	p.timerID++
	id := p.timerID
	p.timers[id] = time.AfterFunc(time.Duration(delay)*time.Millisecond, func() {
		p.loop.post(func() {
			if _, live := p.timers[id]; !live {
				return
			}
			delete(p.timers, id)
			if err := p.guard(func() error {
				_, err := fn(goja.Undefined(), args...)
				return err
			}); err != nil {
				p.report(err)
			}
		})
	})
	return p.vm.ToValue(id)
}

func (p *Page) clearTimeout(call goja.FunctionCall) goja.Value {
	id := call.Argument(0).ToInteger()
	if t, ok := p.timers[id]; ok {
		t.Stop()
		delete(p.timers, id)
	}
	return goja.Undefined()
}
