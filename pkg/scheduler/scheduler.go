// Package scheduler routes tasks to the execution context they must run on:
// the event loop of a single connection or the main context.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gammazero/deque"
	"github.com/go-logr/logr"
)

// ErrUnknownConnection is returned when a task targets a connection
// that is not registered or already closed.
var ErrUnknownConnection = errors.New("unknown connection")

// Executor is a connection event loop.
type Executor interface {
	ID() string
	// Context is canceled when the connection is closed.
	Context() context.Context
	// Execute queues task on the connection's event loop.
	Execute(task func()) error
}

// Scheduler knows the event loops of all open connections and runs the
// main context.
type Scheduler struct {
	log logr.Logger

	mu    sync.RWMutex // Protects following fields
	conns map[string]Executor

	mainMu  sync.Mutex // Protects following fields
	main    deque.Deque[func()]
	started bool
	notify  chan struct{}
}

// New returns a Scheduler. The main context runs once Start is called.
func New(log logr.Logger) *Scheduler {
	return &Scheduler{
		log:    log.WithName("scheduler"),
		conns:  map[string]Executor{},
		notify: make(chan struct{}, 1),
	}
}

// Register makes the connection's event loop available to RunOnConnection.
// The connection is unregistered automatically when its context is done.
func (s *Scheduler) Register(conn Executor) {
	id := conn.ID()
	s.mu.Lock()
	s.conns[id] = conn
	s.mu.Unlock()

	go func() {
		<-conn.Context().Done()
		s.unregister(id, conn)
	}()
}

func (s *Scheduler) unregister(id string, conn Executor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns[id] == conn {
		delete(s.conns, id)
	}
}

// Connections returns the number of registered connections.
func (s *Scheduler) Connections() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// RunOnConnection queues task on the event loop of connection connID.
func (s *Scheduler) RunOnConnection(connID string, task func()) error {
	s.mu.RLock()
	conn, ok := s.conns[connID]
	s.mu.RUnlock()
	if !ok || conn.Context().Err() != nil {
		return fmt.Errorf("%w: %s", ErrUnknownConnection, connID)
	}
	if err := conn.Execute(task); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnknownConnection, connID, err)
	}
	return nil
}

// RunOnMain queues task on the main context.
// Tasks run in submission order, one at a time.
func (s *Scheduler) RunOnMain(task func()) {
	s.mainMu.Lock()
	s.main.PushBack(task)
	s.mainMu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Start runs the main context on the calling goroutine until ctx is canceled.
// Tasks still queued at cancellation are dropped.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mainMu.Lock()
	if s.started {
		s.mainMu.Unlock()
		return errors.New("scheduler already started")
	}
	s.started = true
	s.mainMu.Unlock()

	for {
		if task, ok := s.nextMain(); ok {
			s.exec(task)
			continue
		}
		select {
		case <-s.notify:
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Scheduler) nextMain() (func(), bool) {
	s.mainMu.Lock()
	defer s.mainMu.Unlock()
	if s.main.Len() == 0 {
		return nil, false
	}
	return s.main.PopFront(), true
}

func (s *Scheduler) exec(task func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error(fmt.Errorf("%v", r), "recovered panic in main task")
		}
	}()
	task()
}
