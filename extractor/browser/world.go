package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/wirepair/gcd/gcdapi"
	"gitlab.com/pagevar/extractor/script"
	"gitlab.com/pagevar/pagevar"
)

type worldHandler struct {
	id      int64
	handler pagevar.MessageHandler
}

// World is an isolated world in a tab's top frame. It shares the page's DOM but not its
// globals, and implements pagevar.Page: scripts are appended from inside the world and
// every message event the world sees is forwarded to Listen handlers over a
// Runtime binding only this world can call.
type World struct {
	tab       *Tab
	name      string
	contextID int
	binding   string

	lock      sync.Mutex
	handlers  []worldHandler
	handlerID int64
	destroyed bool
}

// IsolatedWorld creates a world named name in the top frame of the current document. The
// world lives until the next navigation or Close.
func (t *Tab) IsolatedWorld(ctx context.Context, name string) (*World, error) {
	if name == "" {
		return nil, pagevar.ErrEmptyName
	}
	frameID, err := t.topFrame()
	if err != nil {
		return nil, err
	}

	contextID, err := t.t.Page.CreateIsolatedWorldWithParams(&gcdapi.PageCreateIsolatedWorldParams{
		FrameId:             frameID,
		WorldName:           name,
		GrantUniveralAccess: false,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create isolated world")
	}

	w := &World{
		tab:       t,
		name:      name,
		contextID: contextID,
		binding:   fmt.Sprintf("__pagevarForward%d", pagevar.GetPageID()),
	}

	if _, err := t.t.Runtime.AddBindingWithParams(&gcdapi.RuntimeAddBindingParams{
		Name:               w.binding,
		ExecutionContextId: contextID,
	}); err != nil {
		return nil, errors.Wrap(err, "failed to add binding")
	}
	t.addWorld(w)

	src, err := script.Call(script.ForwardMessages, w.binding)
	if err != nil {
		t.removeWorld(w)
		return nil, err
	}
	if _, err := t.evaluateScript(src, contextID); err != nil {
		t.removeWorld(w)
		return nil, errors.Wrap(err, "failed to forward messages")
	}

	log.Ctx(ctx).Debug().Str("world", name).Int("context_id", contextID).Msg("isolated world created")
	return w, nil
}

// Name of the world
func (w *World) Name() string {
	return w.name
}

// ContextID is the world's execution context id
func (w *World) ContextID() int {
	return w.contextID
}

// Evaluate src in the world and return its value
func (w *World) Evaluate(ctx context.Context, src string) (interface{}, error) {
	if err := w.alive(); err != nil {
		return nil, err
	}
	r, err := w.tab.evaluateScript(src, w.contextID)
	if err != nil {
		return nil, err
	}
	return r.Value, nil
}

// AppendScript inserts an inline script element from inside the world. The page's own
// content security policy decides whether it runs.
func (w *World) AppendScript(ctx context.Context, s *pagevar.Script) error {
	if s == nil {
		return errors.New("script is nil")
	}
	src, err := script.Call(script.AppendScript, s.ID, pagevar.RefAttribute, s.Ref, s.Source)
	if err != nil {
		return err
	}
	_, err = w.Evaluate(ctx, src)
	return err
}

// RemoveScript removes every script element carrying ref
func (w *World) RemoveScript(ctx context.Context, ref string) error {
	src, err := script.Call(script.RemoveScript, pagevar.RefAttribute, ref)
	if err != nil {
		return err
	}
	_, err = w.Evaluate(ctx, src)
	return err
}

// Listen for object messages posted on the page's window
func (w *World) Listen(ctx context.Context, handler pagevar.MessageHandler) (pagevar.StopFunc, error) {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.destroyed {
		return nil, ErrWorldDestroyed
	}

	w.handlerID++
	id := w.handlerID
	w.handlers = append(w.handlers, worldHandler{id: id, handler: handler})
	return func() {
		w.lock.Lock()
		defer w.lock.Unlock()
		for i, h := range w.handlers {
			if h.id == id {
				w.handlers = append(w.handlers[:i], w.handlers[i+1:]...)
				return
			}
		}
	}, nil
}

// Close stops forwarding messages to Go
func (w *World) Close() {
	w.tab.removeWorld(w)
	w.invalidate()
}

func (w *World) alive() error {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.destroyed {
		return ErrWorldDestroyed
	}
	return nil
}

func (w *World) invalidate() {
	w.lock.Lock()
	w.destroyed = true
	w.handlers = nil
	w.lock.Unlock()
}

// deliver decodes a forwarded event and hands each handler its own copy of the data
func (w *World) deliver(payload string) {
	w.lock.Lock()
	handlers := append([]worldHandler(nil), w.handlers...)
	w.lock.Unlock()

	for _, h := range handlers {
		event := struct {
			Data interface{} `json:"data"`
		}{}
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			log.Debug().Err(err).Str("world", w.name).Msg("undecodable message")
			return
		}
		msg, ok := event.Data.(map[string]interface{})
		if !ok {
			return
		}
		h.handler(pagevar.Message(msg))
	}
}
