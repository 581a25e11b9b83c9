// Package packettype describes the packet kinds of every connection phase
// and maps them to the host's concrete packet classes.
package packettype

import (
	"fmt"
	"reflect"

	"go.uber.org/atomic"

	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/state/states"
)

// PacketType describes one wire packet kind: the phase and direction it
// travels in, its id and a diagnostic name.
//
// PacketType values are only created by a Catalogue and compared by pointer.
type PacketType struct {
	phase     states.State
	direction proto.Direction
	id        proto.PacketID
	name      string
	dynamic   bool

	class atomic.Pointer[classLink] // bound once during bootstrap
}

type classLink struct{ t reflect.Type }

// Phase returns the connection phase the packet is used in.
func (t *PacketType) Phase() states.State { return t.phase }

// Direction returns proto.Inbound for client to server packets
// and proto.Outbound for server to client packets.
func (t *PacketType) Direction() proto.Direction { return t.direction }

// ID returns the wire id within the phase and direction.
func (t *PacketType) ID() proto.PacketID { return t.id }

// Name returns the diagnostic name.
func (t *PacketType) Name() string { return t.name }

// Dynamic is true for types synthesized during bootstrap
// for host packets the catalogue does not know.
func (t *PacketType) Dynamic() bool { return t.dynamic }

// Class returns the host packet class bound to t, if any.
func (t *PacketType) Class() (reflect.Type, bool) {
	if l := t.class.Load(); l != nil {
		return l.t, true
	}
	return nil, false
}

// bind links class to t. Binding the same class again is a no-op,
// binding a different one fails.
func (t *PacketType) bind(class reflect.Type) error {
	if t.class.CompareAndSwap(nil, &classLink{t: class}) {
		return nil
	}
	if bound, _ := t.Class(); bound != class {
		return fmt.Errorf("%s is already bound to %s, can not bind %s", t, bound, class)
	}
	return nil
}

// String implements fmt.Stringer.
func (t *PacketType) String() string {
	if t == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s/%s/%s/%s", t.phase, t.direction, t.id, t.name)
}
