package pagevar

import (
	"context"
	"sync"
	"time"
)

// Result is a single assignment cell for an extraction. It settles at most once, either
// with the first matching message or, when the caller opted into a timeout or cancelled,
// with an error.
type Result struct {
	once sync.Once
	done chan struct{}
	msg  Message
	err  error
	at   time.Time
}

// NewResult returns an unsettled result
func NewResult() *Result {
	return &Result{done: make(chan struct{})}
}

// Resolve settles the result with msg. Returns false if it was already settled.
func (r *Result) Resolve(msg Message) bool {
	return r.settle(msg, nil)
}

// Reject settles the result with err. Returns false if it was already settled.
func (r *Result) Reject(err error) bool {
	return r.settle(nil, err)
}

func (r *Result) settle(msg Message, err error) bool {
	settled := false
	r.once.Do(func() {
		r.msg = msg
		r.err = err
		r.at = time.Now()
		settled = true
		close(r.done)
	})
	return settled
}

// Done is closed once the result settles.
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// Settled answers if we have a message or an error
func (r *Result) Settled() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// SettledAt is when the result settled, zero while it has not
func (r *Result) SettledAt() time.Time {
	select {
	case <-r.done:
		return r.at
	default:
		return time.Time{}
	}
}

// Wait for the result or for ctx to be done. A ctx error does not settle the result.
func (r *Result) Wait(ctx context.Context) (Message, error) {
	select {
	case <-r.done:
		return r.msg, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
