package extractor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gitlab.com/pagevar/pagevar"
)

// Extraction reads one page world global into the isolated world. Construct with New,
// read the value from Data().
type Extraction struct {
	page     pagevar.Page
	variable string
	ref      string
	token    pagevar.Token
	listener *Listener
	opts     *options
	stop     pagevar.StopFunc
	started  time.Time

	closeOnce sync.Once
	closeCh   chan struct{} // closed by Close to cancel
	cleanedCh chan struct{} // closed once the listener is gone and the element removed
}

// New generates a token, starts listening then injects the propagate script. It returns
// as soon as the script is in the document, the value arrives later on Data().
// Failing to get a secure token aborts before anything touches the page.
func New(ctx context.Context, page pagevar.Page, variableName string, opts ...Option) (*Extraction, error) {
	if variableName == "" {
		return nil, pagevar.ErrEmptyName
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	token, err := pagevar.NewToken(o.entropy)
	if err != nil {
		return nil, err
	}

	x := &Extraction{
		page:      page,
		variable:  variableName,
		ref:       uuid.New().String(),
		token:     token,
		listener:  NewListener(token),
		opts:      o,
		started:   time.Now(),
		closeCh:   make(chan struct{}),
		cleanedCh: make(chan struct{}),
	}

	// listen first, the page world runs concurrently with us
	x.stop, err = page.Listen(ctx, x.listener.Handle)
	if err != nil {
		return nil, errors.Wrap(err, "failed to listen for broadcast")
	}

	if err := o.injector.Inject(ctx, page, token, variableName, x.ref); err != nil {
		// the element may be in the document even though appending failed
		x.stop()
		x.removeScript()
		return nil, err
	}

	log.Ctx(ctx).Debug().Str("variable", variableName).Str("ref", x.ref).Msg("injected propagate script")
	go x.watch()
	return x, nil
}

// Extract is New followed by waiting on the value and closing
func Extract(ctx context.Context, page pagevar.Page, variableName string, opts ...Option) (interface{}, bool, error) {
	x, err := New(ctx, page, variableName, opts...)
	if err != nil {
		return nil, false, err
	}
	defer x.Close()
	return x.Value(ctx)
}

// Data is the pending result, settled with the whole broadcast message
func (x *Extraction) Data() *pagevar.Result {
	return x.listener.Result()
}

// Value waits for the broadcast and returns the variable's value. present is false when
// the page had no such variable.
func (x *Extraction) Value(ctx context.Context) (value interface{}, present bool, err error) {
	msg, err := x.Data().Wait(ctx)
	if err != nil {
		return nil, false, err
	}
	value, present = msg.Value(x.variable)
	return value, present, nil
}

// Variable being extracted
func (x *Extraction) Variable() string {
	return x.variable
}

// Ref is the value of pagevar.RefAttribute on our script element
func (x *Extraction) Ref() string {
	return x.ref
}

// Close cancels a pending extraction (the result is rejected with pagevar.ErrCancelled)
// and waits for cleanup. Safe to call more than once and after settlement.
func (x *Extraction) Close() {
	x.closeOnce.Do(func() {
		close(x.closeCh)
	})
	<-x.cleanedCh
}

// Record summarizes the extraction. Its state is RecordInvalid and Completed is zero
// until Data() settles.
func (x *Extraction) Record(url string) *pagevar.Record {
	rec := &pagevar.Record{
		ID:       x.ref,
		URL:      url,
		Variable: x.variable,
		Started:  x.started,
	}

	if !x.Data().Settled() {
		return rec
	}
	rec.Completed = x.Data().SettledAt()

	msg, err := x.Data().Wait(context.Background())
	switch {
	case err == nil:
		rec.State = pagevar.RecordResolved
		rec.Value, rec.Present = msg.Value(x.variable)
	case errors.Is(err, pagevar.ErrTimedOut):
		rec.State = pagevar.RecordTimedOut
		rec.Error = err.Error()
	case errors.Is(err, pagevar.ErrCancelled):
		rec.State = pagevar.RecordCancelled
		rec.Error = err.Error()
	default:
		rec.State = pagevar.RecordFailed
		rec.Error = err.Error()
	}
	return rec
}

// watch settles on timeout/close, then unsubscribes and removes the element
func (x *Extraction) watch() {
	var timeout <-chan time.Time
	if x.opts.timeout > 0 {
		timer := time.NewTimer(x.opts.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	result := x.Data()
	select {
	case <-result.Done():
	case <-timeout:
		result.Reject(pagevar.ErrTimedOut)
	case <-x.closeCh:
		result.Reject(pagevar.ErrCancelled)
	}
	x.cleanup()
}

func (x *Extraction) cleanup() {
	defer close(x.cleanedCh)
	x.stop()
	x.removeScript()
}

func (x *Extraction) removeScript() {
	if x.opts.retainScript {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), x.opts.cleanupAfter)
	defer cancel()
	if err := x.page.RemoveScript(ctx, x.ref); err != nil {
		log.Debug().Err(err).Str("ref", x.ref).Msg("failed to remove propagate script")
	}
}
