package intercept

import (
	"fmt"
	"reflect"

	"github.com/go-logr/logr"
	"github.com/robinbraemer/event"
	"go.minekube.com/common/minecraft/component"
	"go.uber.org/atomic"

	"go.minekube.com/intercept/pkg/netmc"
	"go.minekube.com/intercept/pkg/packettype"
	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/packet"
	"go.minekube.com/intercept/pkg/util/errs"
)

// StageName is the pipeline stage name of the Handler.
const StageName = "intercept-handler"

// Scheduler runs tasks on a connection's own execution context.
type Scheduler interface {
	RunOnConnection(connID string, task func()) error
}

// Pipeline is the part of a connection pipeline the Handler installs itself into.
type Pipeline interface {
	Has(name string) bool
	AddFirst(name string, s netmc.Stage) error
	Remove(name string) bool
}

// UnknownPacketEvent is fired when a connection sends or receives a packet
// whose class has no packet type. The connection is disconnected afterwards.
type UnknownPacketEvent struct {
	Owner     Owner
	Direction proto.Direction
	Class     reflect.Type
}

// PacketCancelledEvent is fired after listeners cancelled a packet.
type PacketCancelledEvent struct {
	Owner Owner
	Type  *packettype.PacketType
}

// PacketInterceptedEvent is fired for every classified packet, before listeners run.
type PacketInterceptedEvent struct {
	Owner Owner
	Type  *packettype.PacketType
}

// Handler is the interception stage of one connection.
//
// It classifies every packet with the registry, offers it to the listeners
// of its type and forwards it unless a listener cancelled it.
type Handler struct {
	owner     Owner
	registry  *packettype.Registry
	listeners *DispatchMap
	scheduler Scheduler
	events    event.Manager
	log       logr.Logger

	// poisoned is set on the first unknown packet. The connection is being
	// disconnected and no further packets are forwarded.
	poisoned atomic.Bool
	// disconnecting lets the one disconnect packet written by the
	// scheduled disconnect pass a poisoned handler.
	disconnecting atomic.Bool
}

// HandlerOptions are the collaborators of a Handler.
type HandlerOptions struct {
	Registry  *packettype.Registry
	Listeners *DispatchMap
	Scheduler Scheduler
	Events    event.Manager // optional
	Log       logr.Logger
}

// NewHandler returns the interception stage for owner.
func NewHandler(owner Owner, opts HandlerOptions) *Handler {
	events := opts.Events
	if events == nil {
		events = event.Nop
	}
	return &Handler{
		owner:     owner,
		registry:  opts.Registry,
		listeners: opts.Listeners,
		scheduler: opts.Scheduler,
		events:    events,
		log:       opts.Log.WithName("intercept").WithValues("connId", owner.ID()),
	}
}

// Install adds h at the head of pipeline. It is a no-op if an interception
// stage is already installed. It must be called on the connection's context.
func (h *Handler) Install(pipeline Pipeline) error {
	if pipeline.Has(StageName) {
		return nil
	}
	return pipeline.AddFirst(StageName, h)
}

// Uninstall schedules the removal of the interception stage from pipeline
// on the connection's context.
func (h *Handler) Uninstall(pipeline Pipeline) error {
	return h.scheduler.RunOnConnection(h.owner.ID(), func() {
		pipeline.Remove(StageName)
	})
}

// Inbound implements netmc.Stage.
func (h *Handler) Inbound(p proto.Packet, forward netmc.Forward) {
	h.intercept(p, proto.Inbound, forward)
}

// Outbound implements netmc.Stage.
func (h *Handler) Outbound(p proto.Packet, forward netmc.Forward) {
	h.intercept(p, proto.Outbound, forward)
}

func (h *Handler) intercept(p proto.Packet, direction proto.Direction, forward netmc.Forward) {
	if h.poisoned.Load() {
		if _, ok := p.(*packet.Disconnect); ok && direction == proto.Outbound &&
			h.disconnecting.CompareAndSwap(true, false) {
			forward(p)
		}
		return
	}
	t, ok := h.registry.TypeOfPacket(h.owner.Phase(), direction, p)
	if !ok {
		h.unknown(p, direction)
		return
	}

	if h.events.HasSubscriber((*PacketInterceptedEvent)(nil)) {
		h.events.Fire(&PacketInterceptedEvent{Owner: h.owner, Type: t})
	}

	listeners := h.listeners.ListenersFor(t)
	if len(listeners) == 0 {
		forward(p)
		return
	}

	e := NewEvent(NewContainer(t, p), h.owner, direction)
	// All listeners run, also after one cancelled.
	for _, l := range listeners {
		h.call(l, e)
	}

	if e.Cancelled() {
		h.log.V(2).Info("packet cancelled", "type", t.String())
		if h.events.HasSubscriber((*PacketCancelledEvent)(nil)) {
			h.events.Fire(&PacketCancelledEvent{Owner: h.owner, Type: t})
		}
		return
	}
	forward(e.Packet())
}

func (h *Handler) call(l Listener, e *Event) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error(fmt.Errorf("%v", r), "recovered panic in packet listener",
				"listener", fmt.Sprintf("%T", l), "type", e.Container().Type().String())
		}
	}()
	if e.Direction() == proto.Inbound {
		l.OnPacketReceiving(e)
	} else {
		l.OnPacketSending(e)
	}
}

// unknown drops p and disconnects the owner once.
func (h *Handler) unknown(p proto.Packet, direction proto.Direction) {
	if !h.poisoned.CompareAndSwap(false, true) {
		return
	}
	class := proto.TypeOf(p)
	err := fmt.Errorf("%w: %v (%s %s)", errs.ErrUnknownPacketType, class, h.owner.Phase(), direction)
	h.log.Error(err, "received packet of unknown type, disconnecting",
		"class", fmt.Sprint(class),
		"phase", h.owner.Phase().String(),
		"direction", direction.String(),
		"remoteAddr", fmt.Sprint(h.owner.RemoteAddr()))

	reason := &component.Text{
		Content: fmt.Sprintf("Internal error: unknown %s packet %v", direction, class),
	}
	if err := h.scheduler.RunOnConnection(h.owner.ID(), func() {
		h.disconnecting.Store(true)
		h.owner.Disconnect(reason)
	}); err != nil {
		h.log.V(1).Info("could not schedule disconnect", "error", err)
	}

	if h.events.HasSubscriber((*UnknownPacketEvent)(nil)) {
		h.events.Fire(&UnknownPacketEvent{Owner: h.owner, Direction: direction, Class: class})
	}
}

var _ netmc.Stage = (*Handler)(nil)
