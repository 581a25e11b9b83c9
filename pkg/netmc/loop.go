package netmc

import (
	"context"
	"sync"

	"github.com/gammazero/deque"
	"github.com/go-logr/logr"
)

// eventLoop runs the tasks of one connection in submission order on a
// single goroutine.
type eventLoop struct {
	log    logr.Logger
	notify chan struct{}

	mu     sync.Mutex // Protects following fields
	tasks  deque.Deque[func()]
	closed bool
}

func newEventLoop(log logr.Logger) *eventLoop {
	return &eventLoop{
		log:    log,
		notify: make(chan struct{}, 1),
	}
}

// submit queues task. It fails with ErrClosedConn once the loop stopped.
func (l *eventLoop) submit(task func()) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosedConn
	}
	l.tasks.PushBack(task)
	l.mu.Unlock()

	select {
	case l.notify <- struct{}{}:
	default:
	}
	return nil
}

func (l *eventLoop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tasks.Len() == 0 {
		return nil, false
	}
	return l.tasks.PopFront(), true
}

// run executes tasks until ctx is canceled. Tasks queued before the
// cancellation are still run.
func (l *eventLoop) run(ctx context.Context) {
	for {
		if task, ok := l.next(); ok {
			l.exec(task)
			continue
		}
		select {
		case <-l.notify:
		case <-ctx.Done():
			l.mu.Lock()
			l.closed = true
			l.mu.Unlock()
			for task, ok := l.next(); ok; task, ok = l.next() {
				l.exec(task)
			}
			return
		}
	}
}

func (l *eventLoop) exec(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error(nil, "recovered panic in connection event loop", "panic", r)
		}
	}()
	task()
}
