// Package netmc implements a Minecraft connection with a per-connection
// event loop and a pipeline of stages between the codec and the session.
package netmc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/rs/xid"
	"go.minekube.com/common/minecraft/component"
	"go.uber.org/atomic"

	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/packet"
	"go.minekube.com/intercept/pkg/proto/state"
	"go.minekube.com/intercept/pkg/proto/state/states"
	"go.minekube.com/intercept/pkg/proto/version"
	"go.minekube.com/intercept/pkg/util/errs"
)

// SessionHandler handles the packets reaching the tail of the pipeline.
//
// Since connections transition between states packets need to be handled differently,
// this behaviour is divided between sessions by session handlers.
// All methods are called on the connection's event loop.
type SessionHandler interface {
	HandlePacket(p proto.Packet) // Called to handle an incoming packet.
	Disconnected()               // Called when connection is closing, to teardown the session.

	Activated()   // Called when the connection is now managed by this SessionHandler.
	Deactivated() // Called when the connection is no longer managed by this SessionHandler.
}

// Options configure a new connection.
type Options struct {
	// Direction of the packets read from the peer.
	// Server side connections read proto.ServerBound packets.
	Direction        proto.Direction
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	CompressionLevel int
	// Trace installs the tracing stage.
	Trace bool
}

// ErrClosedConn indicates a connection is already closed.
var ErrClosedConn = errors.New("connection is closed")

// Conn is a Minecraft connection.
// The connection is unusable after Close was called and must be recreated.
type Conn struct {
	id  xid.ID
	c   net.Conn    // underlying connection
	log logr.Logger // connections own logger

	rd *reader
	wr *writer

	loop     *eventLoop
	pipeline *Pipeline

	ctx             context.Context // is canceled when connection closed
	cancelCtx       context.CancelFunc
	closeOnce       sync.Once   // Makes sure the connection is closed once, while blocking proceeding calls.
	knownDisconnect atomic.Bool // Silences disconnect (any error is known)

	mu       sync.RWMutex // Protects following fields
	protocol proto.Protocol
	state    *state.Registry
	handler  SessionHandler
}

// NewConn returns a new connection and the func that runs it.
// The returned func blocks until the connection is closed.
func NewConn(ctx context.Context, base net.Conn, opts Options) (conn *Conn, start func()) {
	id := xid.New()
	log := logr.FromContextOrDiscard(ctx).WithName("conn").WithValues("connId", id.String())
	ctx = logr.NewContext(ctx, log)
	ctx, cancel := context.WithCancel(ctx)

	c := &Conn{
		id:        id,
		c:         base,
		log:       log,
		ctx:       ctx,
		cancelCtx: cancel,
		rd:        newReader(base, opts.Direction, opts.ReadTimeout, log),
		wr:        newWriter(base, opts.Direction.Flip(), opts.WriteTimeout, opts.CompressionLevel, log),
		loop:      newEventLoop(log),
		protocol:  version.MinimumVersion.Protocol,
		state:     state.Handshake,
	}
	c.pipeline = newPipeline(c.handleInbound, c.encode)
	_ = c.pipeline.AddLast(BundleStageName, &bundleStage{log: log})
	if opts.Trace {
		_ = c.pipeline.AddFirst(TraceStageName, newTraceStage(log))
	}
	return c, c.run
}

// run is the main goroutine of the connection. It starts the event loop
// and reads packets until the connection is closed.
func (c *Conn) run() {
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		c.loop.run(c.ctx)
	}()
	defer func() { <-loopDone }()
	// Make sure to close connection on return, if not already closed
	defer func() { _ = c.closeKnown(false) }()

	next := func() bool {
		pc, err := c.rd.readPacket()
		if err != nil {
			if errors.Is(err, ErrReadPacketRetry) {
				time.Sleep(time.Millisecond * 5)
				return true
			}
			return false
		}
		if !pc.KnownPacket() {
			c.log.V(2).Info("skipping packet with unknown id", "context", pc.String())
			return true
		}

		// The next packet is decoded only after this one went through the
		// pipeline so that state changes apply to the correct packet.
		done := make(chan struct{})
		err = c.loop.submit(func() {
			defer close(done)
			c.pipeline.FireInbound(pc.Packet)
		})
		if err != nil {
			return false
		}
		select {
		case <-done:
			return true
		case <-c.ctx.Done():
			return false
		}
	}

	cond := func() bool { return !Closed(c) && next() }
	loop := func() (ok bool) {
		defer func() { // Catch any panics
			if r := recover(); r != nil {
				c.log.Error(nil, "recovered panic in packets read loop", "panic", r)
				ok = true // recovered, keep going
			}
		}()
		for cond() {
		}
		return false
	}
	for loop() {
	}
}

func (c *Conn) handleInbound(p proto.Packet) {
	if h := c.SessionHandler(); h != nil {
		h.HandlePacket(p)
	}
}

// encode is the outbound end of the pipeline.
func (c *Conn) encode(p proto.Packet) {
	if Closed(c) {
		return
	}
	if _, err := c.wr.WritePacket(p); err != nil {
		c.closeOnErr(err)
		return
	}
	c.closeOnErr(c.wr.flush())
}

// ID returns the unique id of the connection.
func (c *Conn) ID() string { return c.id.String() }

// Context is canceled when the connection is closed.
func (c *Conn) Context() context.Context { return c.ctx }

// Log returns the connection's logger.
func (c *Conn) Log() logr.Logger { return c.log }

// Pipeline returns the connection's pipeline. It must only be used on the event loop.
func (c *Conn) Pipeline() *Pipeline { return c.pipeline }

// Execute runs task on the connection's event loop.
func (c *Conn) Execute(task func()) error {
	if Closed(c) {
		return ErrClosedConn
	}
	return c.loop.submit(task)
}

// WritePacket sends p through the pipeline to the peer.
// It must be called on the event loop; use Send from other goroutines.
// The connection is closed on any write error.
func (c *Conn) WritePacket(p proto.Packet) error {
	if Closed(c) {
		return ErrClosedConn
	}
	c.pipeline.FireOutbound(p)
	if Closed(c) {
		return ErrClosedConn
	}
	return nil
}

// Send queues p to be written on the event loop.
func (c *Conn) Send(p proto.Packet) error {
	return c.Execute(func() { _ = c.WritePacket(p) })
}

// FireInbound queues p on the event loop as if it was read from the peer.
func (c *Conn) FireInbound(p proto.Packet) error {
	return c.Execute(func() { c.pipeline.FireInbound(p) })
}

func (c *Conn) closeOnErr(err error) {
	if err == nil {
		return
	}
	_ = c.Close()
	if errors.Is(err, ErrClosedConn) {
		return // Don't log this error
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && errs.IsConnClosedErr(opErr.Err) {
		return // Don't log this error
	}
	c.log.V(1).Info("error writing packet, closing connection", "error", err)
}

// Close closes the connection, if not already, and calls SessionHandler.Disconnected.
func (c *Conn) Close() error {
	return c.closeKnown(true)
}

func (c *Conn) closeKnown(markKnown bool) (err error) {
	alreadyClosed := true
	c.closeOnce.Do(func() {
		alreadyClosed = false
		if markKnown {
			c.knownDisconnect.Store(true)
		}

		c.cancelCtx()
		err = c.c.Close()

		if h := c.SessionHandler(); h != nil {
			h.Disconnected()
		}
		if !c.knownDisconnect.Load() {
			c.log.Info("connection closed unexpectedly")
		} else {
			c.log.V(1).Info("connection closed")
		}
	})
	if alreadyClosed {
		err = ErrClosedConn
	}
	return err
}

// KnownDisconnect returns true if the connection was or will be expectedly closed.
func (c *Conn) KnownDisconnect() bool { return c.knownDisconnect.Load() }

// Closed returns true if the connection is closed.
func Closed(c interface{ Context() context.Context }) bool {
	return c.Context().Err() != nil
}

// Disconnect sends reason to the peer, if the current phase has a disconnect
// packet, and closes the connection. It is safe to call from any goroutine.
func (c *Conn) Disconnect(reason component.Component) {
	c.knownDisconnect.Store(true)
	err := c.Execute(func() {
		c.writeDisconnect(reason)
		_ = c.Close()
	})
	if err != nil {
		_ = c.Close()
	}
}

func (c *Conn) writeDisconnect(reason component.Component) {
	if c.wr.Direction() != proto.ClientBound {
		return
	}
	switch c.Phase() {
	case states.LoginState, states.ConfigState, states.PlayState:
		if err := c.WritePacket(packet.NewDisconnect(reason)); err != nil {
			c.log.V(1).Info("could not write disconnect packet", "error", err)
		}
	}
}

// RemoteAddr returns the remote address of the connection.
func (c *Conn) RemoteAddr() net.Addr { return c.c.RemoteAddr() }

// LocalAddr returns the local address of the connection.
func (c *Conn) LocalAddr() net.Addr { return c.c.LocalAddr() }

// Protocol returns the protocol version of the connection.
func (c *Conn) Protocol() proto.Protocol {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.protocol
}

// SetProtocol switches the connection's protocol version.
func (c *Conn) SetProtocol(protocol proto.Protocol) {
	c.mu.Lock()
	c.protocol = protocol
	c.rd.SetProtocol(protocol)
	c.wr.SetProtocol(protocol)
	c.mu.Unlock()
}

// State returns the host packet registry of the current phase.
func (c *Conn) State() *state.Registry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Phase returns the current connection phase.
func (c *Conn) Phase() states.State { return c.State().State }

// SetState switches the connection's phase.
func (c *Conn) SetState(s *state.Registry) {
	c.mu.Lock()
	c.state = s
	c.rd.SetState(s)
	c.wr.SetState(s)
	c.mu.Unlock()
	c.log.V(1).Info("switched phase", "phase", s.State.String())
}

// SetCompressionThreshold sets the compression threshold on the connection.
// You are responsible for sending packet.SetCompression beforehand.
func (c *Conn) SetCompressionThreshold(threshold int) error {
	c.log.V(1).Info("update compression", "threshold", threshold)
	c.rd.SetCompressionThreshold(threshold)
	return c.wr.setCompressionThreshold(threshold)
}

// SessionHandler returns the current session handler.
func (c *Conn) SessionHandler() SessionHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handler
}

// SetSessionHandler sets the session handler for this connection
// and calls Deactivated() on the old handler and Activated() on the new handler.
func (c *Conn) SetSessionHandler(handler SessionHandler) {
	c.mu.Lock()
	old := c.handler
	c.handler = handler
	c.mu.Unlock()
	if old != nil {
		old.Deactivated()
	}
	handler.Activated()
}

// String implements fmt.Stringer.
func (c *Conn) String() string {
	return fmt.Sprintf("%s (%s)", c.ID(), c.RemoteAddr())
}
