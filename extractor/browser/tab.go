package browser

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gitlab.com/pagevar/pagevar"

	"github.com/wirepair/gcd"
	"github.com/wirepair/gcd/gcdapi"
)

// Tab is a chromium browser tab we extract page variables from
type Tab struct {
	g                     *gcd.Gcd
	t                     *gcd.ChromeTarget
	id                    int64
	topFrameID            atomic.Value           // the frameID of the current top level #document
	isNavigatingFlag      atomic.Value           // are we currently navigating (between Page.Navigate -> page.loadEventFired)
	navigationCh          chan int               // for receiving navigation complete messages while isNavigating is true
	crashedCh             chan string            // the chrome tab crashed with a reason
	exitCh                chan struct{}          // for when we close the tab, kill go routines
	closeOnce             sync.Once              // exitCh is closed once
	disconnectedHandler   TabDisconnectedHandler // called with reason the chrome tab was disconnected from the debugger service
	navigationTimeout     time.Duration          // amount of time to wait before failing navigation
	stabilityTimeout      time.Duration          // amount of time to give up waiting for stability
	stableAfter           time.Duration          // amount of time of no activity to consider the DOM stable
	lastNodeChangeTimeVal atomic.Value           // timestamp of when the last node change occurred

	worldLock sync.RWMutex
	worlds    map[string]*World // by binding name
}

// NewTab to use
func NewTab(ctx context.Context, gcdBrowser *gcd.Gcd, tab *gcd.ChromeTarget) *Tab {
	t := &Tab{
		g:                 gcdBrowser,
		t:                 tab,
		id:                pagevar.GetPageID(),
		navigationCh:      make(chan int, 1), // for signaling navigation complete
		crashedCh:         make(chan string), // reason the tab crashed/was disconnected.
		exitCh:            make(chan struct{}),
		navigationTimeout: 45 * time.Second,
		stabilityTimeout:  5 * time.Second,
		stableAfter:       300 * time.Millisecond,
		worlds:            make(map[string]*World),
	}
	t.disconnectedHandler = t.defaultDisconnectedHandler
	t.subscribeBrowserEvents(ctx)
	return t
}

// SetDisconnectedHandler so caller can trap when the debugger was disconnected/crashed.
func (t *Tab) SetDisconnectedHandler(handlerFn TabDisconnectedHandler) {
	t.disconnectedHandler = handlerFn
}

func (t *Tab) defaultDisconnectedHandler(tab *Tab, reason string) {
	log.Debug().Msgf("tab %s tabID: %s", reason, tab.t.Target.Id)
}

// ID of this tab
func (t *Tab) ID() int64 {
	return t.id
}

// Close the tab, every isolated world in it stops listening
func (t *Tab) Close() {
	t.closeOnce.Do(func() {
		close(t.exitCh)
		t.invalidateWorlds()
		if err := t.g.CloseTab(t.t); err != nil {
			log.Debug().Err(err).Int64("tab_id", t.id).Msg("failed to close tab")
		}
	})
}

// SetNavigationTimeout to wait for navigations before giving up, default is 45 seconds
func (t *Tab) SetNavigationTimeout(timeout time.Duration) {
	t.navigationTimeout = timeout
}

// SetStabilityTimeout to give up waiting for the DOM to settle, default is 5 seconds.
func (t *Tab) SetStabilityTimeout(timeout time.Duration) {
	t.stabilityTimeout = timeout
}

// SetStabilityTime to wait for no node changes before we consider the DOM stable.
// The default stableAfter is 300 ms.
func (t *Tab) SetStabilityTime(stableAfter time.Duration) {
	t.stableAfter = stableAfter
}

// Navigate to url and wait for the load event and a stable DOM
func (t *Tab) Navigate(ctx context.Context, url string) error {
	t.setIsNavigating(true)
	defer t.setIsNavigating(false)

	navParams := &gcdapi.PageNavigateParams{Url: url, TransitionType: "typed"}
	frameID, _, errText, err := t.t.Page.NavigateWithParams(navParams)
	if err != nil {
		return err
	}

	if errText != "" {
		return errors.Wrap(ErrNavigating, errText)
	}
	t.setTopFrameID(frameID)

	return t.WaitReady(ctx, t.stableAfter)
}

// WaitReady waits for the page to load and the DOM to be stable
func (t *Tab) WaitReady(ctx context.Context, stableAfter time.Duration) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	navTimer := time.NewTimer(t.navigationTimeout)
	defer navTimer.Stop()

	select {
	case <-navTimer.C:
		return ErrNavigationTimedOut
	case <-ctx.Done():
		return ctx.Err()
	case <-t.exitCh:
		return ErrTabClosing
	case reason := <-t.crashedCh:
		return errors.Wrap(ErrTabCrashed, reason)
	case <-t.navigationCh:
	}

	// node change events only flow once the document was requested
	if err := t.getDocument(); err != nil {
		return err
	}

	stableTimer := time.NewTimer(t.stabilityTimeout)
	defer stableTimer.Stop()

	for {
		select {
		case reason := <-t.crashedCh:
			return errors.Wrap(ErrTabCrashed, reason)
		case <-ctx.Done():
			return ctx.Err()
		case <-t.exitCh:
			return ErrTabClosing
		case <-stableTimer.C:
			log.Ctx(ctx).Info().Msg("stability timed out, continuing")
			return nil
		case <-ticker.C:
			if changeTime, ok := t.lastNodeChangeTimeVal.Load().(time.Time); ok {
				if time.Since(changeTime) >= stableAfter {
					log.Ctx(ctx).Debug().Msg("stable")
					return nil
				}
			}
		}
	}
}

func (t *Tab) setIsNavigating(set bool) {
	t.isNavigatingFlag.Store(set)
}

// IsNavigating answers if we currently navigating
func (t *Tab) IsNavigating() bool {
	if flag, ok := t.isNavigatingFlag.Load().(bool); ok {
		return flag
	}
	return false
}

func (t *Tab) setTopFrameID(topFrameID string) {
	t.topFrameID.Store(topFrameID)
}

// GetTopFrameID return the top frame ID of this tab
func (t *Tab) GetTopFrameID() string {
	if frameID, ok := t.topFrameID.Load().(string); ok {
		return frameID
	}
	return ""
}

func (t *Tab) getDocument() error {
	doc, err := t.t.DOM.GetDocument(-1, false)
	if err != nil {
		return err
	}
	if doc.FrameId != "" {
		t.setTopFrameID(doc.FrameId)
	}
	t.lastNodeChangeTimeVal.Store(time.Now())
	return nil
}

func (t *Tab) topFrame() (string, error) {
	if frameID := t.GetTopFrameID(); frameID != "" {
		return frameID, nil
	}
	tree, err := t.t.Page.GetFrameTree()
	if err != nil {
		return "", err
	}
	if tree == nil || tree.Frame == nil || tree.Frame.Id == "" {
		return "", ErrNoTopFrame
	}
	t.setTopFrameID(tree.Frame.Id)
	return tree.Frame.Id, nil
}

// GetURL by looking at the navigation history
func (t *Tab) GetURL(ctx context.Context) string {
	_, entries, err := t.t.Page.GetNavigationHistory()
	if err != nil || len(entries) == 0 {
		return ""
	}
	return entries[len(entries)-1].Url
}

// EvaluateScript in the page world.
func (t *Tab) EvaluateScript(scriptSource string) (*gcdapi.RuntimeRemoteObject, error) {
	return t.evaluateScript(scriptSource, 0)
}

// evaluateScript in the execution context contextID, 0 is the page world.
func (t *Tab) evaluateScript(scriptSource string, contextID int) (*gcdapi.RuntimeRemoteObject, error) {
	params := &gcdapi.RuntimeEvaluateParams{
		Expression:            scriptSource,
		ObjectGroup:           "pagevar",
		IncludeCommandLineAPI: false,
		ContextId:             contextID,
		Silent:                true,
		ReturnByValue:         true,
		GeneratePreview:       false,
		UserGesture:           false,
		AwaitPromise:          false,
		ThrowOnSideEffect:     false,
		Timeout:               1000,
	}
	r, exp, err := t.t.Runtime.EvaluateWithParams(params)
	if err != nil {
		return nil, err
	}
	if exp != nil {
		return nil, newScriptEvaluationErr(exp)
	}
	return r, nil
}

func (t *Tab) addWorld(w *World) {
	t.worldLock.Lock()
	t.worlds[w.binding] = w
	t.worldLock.Unlock()
}

func (t *Tab) removeWorld(w *World) {
	t.worldLock.Lock()
	delete(t.worlds, w.binding)
	t.worldLock.Unlock()
}

func (t *Tab) invalidateWorlds() {
	t.worldLock.Lock()
	worlds := t.worlds
	t.worlds = make(map[string]*World)
	t.worldLock.Unlock()

	for _, w := range worlds {
		w.invalidate()
	}
}

func (t *Tab) bindingCalled(target *gcd.ChromeTarget, payload []byte) {
	event := &gcdapi.RuntimeBindingCalledEvent{}
	if err := json.Unmarshal(payload, event); err != nil {
		return
	}
	t.worldLock.RLock()
	w, ok := t.worlds[event.Params.Name]
	t.worldLock.RUnlock()
	if !ok || w.contextID != event.Params.ExecutionContextId {
		return
	}
	w.deliver(event.Params.Payload)
}

func (t *Tab) domUpdated(target *gcd.ChromeTarget, payload []byte) {
	t.lastNodeChangeTimeVal.Store(time.Now())
}

func (t *Tab) subscribeBrowserEvents(ctx context.Context) {
	t.t.DOM.Enable()
	t.t.Inspector.Enable()
	t.t.Page.Enable()
	t.t.Runtime.Enable()

	t.t.Subscribe("Inspector.targetCrashed", func(target *gcd.ChromeTarget, payload []byte) {
		log.Ctx(ctx).Warn().Msgf("tab crashed: %s", string(payload))
		t.disconnected("crashed")
	})

	t.t.Subscribe("Inspector.detached", func(target *gcd.ChromeTarget, payload []byte) {
		header := &gcdapi.InspectorDetachedEvent{}
		err := json.Unmarshal(payload, header)
		reason := "detached"

		if err == nil {
			reason = header.Params.Reason
		}
		t.disconnected(reason)
	})

	t.t.Subscribe("Page.loadEventFired", func(target *gcd.ChromeTarget, payload []byte) {
		if !t.IsNavigating() {
			return
		}
		select {
		case t.navigationCh <- 0:
		case <-t.exitCh:
		default:
		}
	})

	// a new document means new execution contexts, old worlds are gone
	t.t.Subscribe("Runtime.executionContextsCleared", func(target *gcd.ChromeTarget, payload []byte) {
		t.invalidateWorlds()
	})
	t.t.Subscribe("Runtime.bindingCalled", t.bindingCalled)

	t.t.Subscribe("DOM.setChildNodes", t.domUpdated)
	t.t.Subscribe("DOM.attributeModified", t.domUpdated)
	t.t.Subscribe("DOM.attributeRemoved", t.domUpdated)
	t.t.Subscribe("DOM.characterDataModified", t.domUpdated)
	t.t.Subscribe("DOM.childNodeCountUpdated", t.domUpdated)
	t.t.Subscribe("DOM.childNodeInserted", t.domUpdated)
	t.t.Subscribe("DOM.childNodeRemoved", t.domUpdated)
	t.t.Subscribe("DOM.documentUpdated", t.domUpdated)
}

func (t *Tab) disconnected(reason string) {
	t.invalidateWorlds()
	if t.disconnectedHandler != nil {
		t.disconnectedHandler(t, reason)
	}
	select {
	case t.crashedCh <- reason:
	case <-t.exitCh:
	case <-time.After(time.Second):
	}
}
