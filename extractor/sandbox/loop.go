package sandbox

import (
	"context"
	"sync"

	"gitlab.com/pagevar/pagevar"
)

// loop runs tasks one at a time on a single goroutine. post never blocks, tasks may post
// more tasks.
type loop struct {
	mu     sync.Mutex
	tasks  []func()
	wake   chan struct{}
	exitCh chan struct{}
	doneCh chan struct{}
	closed bool
}

func newLoop() *loop {
	l := &loop{
		wake:   make(chan struct{}, 1),
		exitCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *loop) post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

func (l *loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.tasks) == 0 {
		return nil, false
	}
	fn := l.tasks[0]
	l.tasks[0] = nil
	l.tasks = l.tasks[1:]
	return fn, true
}

func (l *loop) run() {
	defer close(l.doneCh)
	for {
		select {
		case <-l.exitCh:
			return
		default:
		}

		fn, ok := l.next()
		if !ok {
			select {
			case <-l.wake:
			case <-l.exitCh:
				return
			}
			continue
		}
		fn()
	}
}

// do runs fn on the loop and waits for it. fn is skipped when ctx is done before its
// turn comes. Never call it from a task.
func (l *loop) do(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan struct{})
	ran := false
	if !l.post(func() {
		defer close(done)
		if ctx.Err() != nil {
			return
		}
		ran = true
		fn()
	}) {
		return pagevar.ErrPageClosed
	}

	select {
	case <-done:
		if !ran {
			return ctx.Err()
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.doneCh:
		return pagevar.ErrPageClosed
	}
}

func (l *loop) close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.tasks = nil
	l.mu.Unlock()
	close(l.exitCh)
	<-l.doneCh
}
