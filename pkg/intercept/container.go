// Package intercept classifies every packet of a connection and offers it to
// registered listeners, which may replace or cancel it.
package intercept

import (
	"fmt"
	"net"
	"reflect"

	"go.minekube.com/common/minecraft/component"

	"go.minekube.com/intercept/pkg/packettype"
	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/state/states"
	"go.minekube.com/intercept/pkg/util/errs"
)

// Container holds an intercepted packet and its packet type.
//
// The packet may be replaced, but only by one of the same concrete type.
type Container struct {
	typ    *packettype.PacketType
	class  reflect.Type
	packet proto.Packet
}

// NewContainer returns a container for p of type t.
func NewContainer(t *packettype.PacketType, p proto.Packet) *Container {
	return &Container{typ: t, class: proto.TypeOf(p), packet: p}
}

// Packet returns the current packet.
func (c *Container) Packet() proto.Packet { return c.packet }

// Type returns the packet type, which never changes.
func (c *Container) Type() *packettype.PacketType { return c.typ }

// SetPacket replaces the packet. It returns an error wrapping
// errs.ErrTypeMismatch and keeps the current packet if p is of another
// concrete type.
func (c *Container) SetPacket(p proto.Packet) error {
	class := proto.TypeOf(p)
	if class == nil || class != c.class {
		return fmt.Errorf("%w: can not replace %s with %s in %s",
			errs.ErrTypeMismatch, c.class, class, c.typ)
	}
	c.packet = p
	return nil
}

// Owner is the connection an event belongs to.
type Owner interface {
	ID() string
	Protocol() proto.Protocol
	Phase() states.State
	RemoteAddr() net.Addr
	// Disconnect disconnects the peer with a reason.
	Disconnect(reason component.Component)
}

// Event is a cancellable packet event passed to listeners.
type Event struct {
	container *Container
	owner     Owner
	direction proto.Direction
	cancelled bool
}

// NewEvent returns an event for container sent or received by owner.
func NewEvent(container *Container, owner Owner, direction proto.Direction) *Event {
	return &Event{container: container, owner: owner, direction: direction}
}

// Container returns the packet container.
func (e *Event) Container() *Container { return e.container }

// Packet is a shortcut for Container().Packet().
func (e *Event) Packet() proto.Packet { return e.container.Packet() }

// Owner returns the connection the packet belongs to.
func (e *Event) Owner() Owner { return e.owner }

// Direction returns proto.Inbound for received and proto.Outbound for sent packets.
func (e *Event) Direction() proto.Direction { return e.direction }

// Cancelled reports whether the packet will be dropped.
func (e *Event) Cancelled() bool { return e.cancelled }

// SetCancelled sets whether the packet will be dropped.
func (e *Event) SetCancelled(cancelled bool) { e.cancelled = cancelled }
