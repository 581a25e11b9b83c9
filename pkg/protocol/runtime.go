// Package protocol wires the packet type registry, the listener dispatch map
// and the scheduler into one runtime that intercepts connections.
package protocol

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"github.com/robinbraemer/event"

	"go.minekube.com/intercept/pkg/host"
	"go.minekube.com/intercept/pkg/intercept"
	"go.minekube.com/intercept/pkg/netmc"
	"go.minekube.com/intercept/pkg/packettype"
	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/state"
	"go.minekube.com/intercept/pkg/proto/state/states"
	"go.minekube.com/intercept/pkg/scheduler"
)

// Options are the options of a Runtime.
type Options struct {
	// Protocol is the protocol version the host speaks.
	Protocol proto.Protocol
	// Source overrides the host table adapter. Defaults to the adapter
	// selected for Protocol reading state.Host.
	Source packettype.TableSource
	// Events receives runtime events. Defaults to a new manager.
	Events event.Manager
	// Scheduler defaults to a new scheduler.
	Scheduler *scheduler.Scheduler
}

// Runtime owns everything connections need to be intercepted.
// A Runtime is created once at startup and shared by all connections.
type Runtime struct {
	log       logr.Logger
	registry  *packettype.Registry
	listeners *intercept.DispatchMap
	scheduler *scheduler.Scheduler
	events    event.Manager

	mu       sync.Mutex // Protects following field
	handlers map[string]*intercept.Handler
}

// New bootstraps the packet type registry and returns a ready Runtime.
// The logger is taken from ctx. An error means connections must not be accepted.
func New(ctx context.Context, opts Options) (*Runtime, error) {
	log := logr.FromContextOrDiscard(ctx).WithName("protocol")

	catalogue, err := packettype.NewCatalogue(opts.Protocol)
	if err != nil {
		return nil, err
	}
	src := opts.Source
	if src == nil {
		src, err = host.Select(opts.Protocol, state.Host)
		if err != nil {
			return nil, err
		}
	}
	registry, err := packettype.Bootstrap(logr.NewContext(ctx, log), src, catalogue)
	if err != nil {
		return nil, err
	}
	log.Info("bootstrapped packet type registry",
		"version", catalogue.Version().String(),
		"types", len(registry.Types()))

	r := &Runtime{
		log:       log,
		registry:  registry,
		listeners: intercept.NewDispatchMap(),
		scheduler: opts.Scheduler,
		events:    opts.Events,
		handlers:  map[string]*intercept.Handler{},
	}
	if r.events == nil {
		r.events = event.New()
	}
	if r.scheduler == nil {
		r.scheduler = scheduler.New(log)
	}
	return r, nil
}

// Registry returns the bootstrapped registry.
func (r *Runtime) Registry() *packettype.Registry { return r.registry }

// Listeners returns the dispatch map shared by all connections.
func (r *Runtime) Listeners() *intercept.DispatchMap { return r.listeners }

// Scheduler returns the scheduler connections are registered with.
func (r *Runtime) Scheduler() *scheduler.Scheduler { return r.scheduler }

// Event returns the event manager runtime events are fired on.
func (r *Runtime) Event() event.Manager { return r.events }

// Lookup resolves a packet type by name, e.g. to build a listener whitelist.
func (r *Runtime) Lookup(phase states.State, direction proto.Direction, name string) (*packettype.PacketType, error) {
	t, ok := r.registry.Lookup(phase, direction, name)
	if ok {
		return t, nil
	}
	err := fmt.Errorf("no %s %s packet type named %q", phase, direction, name)
	if s := r.registry.Catalogue().Suggest(name, 1); len(s) != 0 {
		err = fmt.Errorf("%w, did you mean %q?", err, s[0])
	}
	return nil, err
}

// MustLookup is like Lookup but panics on error.
func (r *Runtime) MustLookup(phase states.State, direction proto.Direction, name string) *packettype.PacketType {
	t, err := r.Lookup(phase, direction, name)
	if err != nil {
		panic(err)
	}
	return t
}

// Register adds l to the dispatch map of all connections.
func (r *Runtime) Register(l intercept.Listener) error {
	if err := r.listeners.AddListener(l); err != nil {
		return err
	}
	r.events.Fire(&ListenerRegisteredEvent{Listener: l, total: len(r.listeners.Listeners())})
	return nil
}

// Unregister removes l and reports whether it was registered.
func (r *Runtime) Unregister(l intercept.Listener) bool {
	if !r.listeners.RemoveListener(l) {
		return false
	}
	r.events.Fire(&ListenerUnregisteredEvent{Listener: l, total: len(r.listeners.Listeners())})
	return true
}

// Attach installs an interception handler into the pipeline of conn and
// registers conn with the scheduler. It must be called before the func
// returned by netmc.NewConn is started, so no packet passes unintercepted.
// Attaching an attached connection again is a no-op.
func (r *Runtime) Attach(conn *netmc.Conn) error {
	if netmc.Closed(conn) {
		return netmc.ErrClosedConn
	}
	h := intercept.NewHandler(conn, intercept.HandlerOptions{
		Registry:  r.registry,
		Listeners: r.listeners,
		Scheduler: r.scheduler,
		Events:    r.events,
		Log:       r.log,
	})

	r.mu.Lock()
	if _, ok := r.handlers[conn.ID()]; ok {
		r.mu.Unlock()
		return nil
	}
	// The event loop is not running yet, so the pipeline can be changed here.
	if err := h.Install(conn.Pipeline()); err != nil {
		r.mu.Unlock()
		return err
	}
	r.scheduler.Register(conn)
	r.handlers[conn.ID()] = h
	r.mu.Unlock()

	r.events.Fire(&ConnectionAttachedEvent{Conn: conn})

	go func() {
		<-conn.Context().Done()
		r.mu.Lock()
		delete(r.handlers, conn.ID())
		r.mu.Unlock()
		r.events.Fire(&ConnectionDetachedEvent{Conn: conn})
	}()
	return nil
}

// Detach schedules the removal of the interception handler from conn.
func (r *Runtime) Detach(conn *netmc.Conn) error {
	r.mu.Lock()
	h, ok := r.handlers[conn.ID()]
	delete(r.handlers, conn.ID())
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return h.Uninstall(conn.Pipeline())
}
