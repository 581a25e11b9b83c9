// Package proto contains the edition agnostic building blocks of the wire protocol.
package proto

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
)

// ErrDecoderLeftBytes indicates a packet was known and successfully decoded by its registered decoder,
// but the decoder has not read all the packet's bytes.
var ErrDecoderLeftBytes = errors.New("decoder did not read all bytes of packet")

// Packet is the data layer of a packet and shall support multiple
// protocols by testing the Protocol contained in the passed PacketContext.
//
// The passed PacketContext is read-only and must not be modified.
type Packet interface {
	// Encode encodes the packet data into the writer.
	Encode(c *PacketContext, wr io.Writer) error
	// Decode expected data from a reader into the packet.
	Decode(c *PacketContext, rd io.Reader) (err error)
}

// PacketContext carries context information for a
// received packet or packet that is about to be sent.
type PacketContext struct {
	Direction Direction // The direction the packet is bound to.
	Protocol  Protocol  // The protocol version of the packet.
	PacketID  PacketID  // The ID of the packet, is always set.

	// Packet is the decoded packet found by PacketID in the connection's
	// current state registry. Nil if the PacketID is unknown.
	Packet Packet

	// The uncompressed form of packet id + data.
	Payload []byte // Empty when encoding.

	BytesRead int // Total bytes read from the wire for this frame
}

// KnownPacket indicates whether the PacketID is known in the connection's current state registry.
func (c *PacketContext) KnownPacket() bool {
	return c != nil && c.Packet != nil
}

// String implements fmt.Stringer.
func (c *PacketContext) String() string {
	return fmt.Sprintf("PacketContext:direction=%s,protocol=%s,"+
		"known=%t,id=%s,type=%s,payloadLen=%d",
		c.Direction, c.Protocol, c.KnownPacket(), c.PacketID,
		reflect.TypeOf(c.Packet), len(c.Payload))
}

// PacketID identifies a packet within a connection phase and direction.
type PacketID int

// String implements fmt.Stringer.
func (id PacketID) String() string {
	return fmt.Sprintf("0x%02X", int(id))
}

// Direction is the direction a packet is bound to.
//   - Receiving a packet from a client is ServerBound.
//   - Sending a packet to a client is ClientBound.
type Direction uint8

// Available packet bound directions.
const (
	ClientBound Direction = iota // A packet is bound to a client.
	ServerBound                  // A packet is bound to a server.
)

// Directions seen from the host server.
const (
	Inbound  = ServerBound // Read from a client.
	Outbound = ClientBound // Written to a client.
)

// Directions lists both directions, outbound first.
var Directions = []Direction{Outbound, Inbound}

// String implements fmt.Stringer.
func (d Direction) String() string {
	switch d {
	case ServerBound:
		return "Inbound"
	case ClientBound:
		return "Outbound"
	}
	return "UnknownBound"
}

// Flip returns the opposite direction.
func (d Direction) Flip() Direction {
	if d == ServerBound {
		return ClientBound
	}
	return ServerBound
}

// Version is a named protocol version.
type Version struct {
	Protocol          // The protocol number of the version.
	Names    []string // The names in this protocol version (at least one).
}

// FirstName returns the name of the first release using this protocol.
func (v *Version) FirstName() string {
	if len(v.Names) == 0 {
		return ""
	}
	return v.Names[0]
}

// LastName returns the name of the last release using this protocol.
func (v *Version) LastName() string {
	if len(v.Names) == 0 {
		return ""
	}
	return v.Names[len(v.Names)-1]
}

// String returns the user-friendly name of this protocol version.
// If this version has multiple names it returns {first}-{last} version.
func (v Version) String() string {
	if len(v.Names) > 1 {
		return fmt.Sprintf("%s-%s", v.FirstName(), v.LastName())
	}
	return v.FirstName()
}

// Protocol is a protocol version number.
type Protocol int

// String implements fmt.Stringer.
func (p Protocol) String() string {
	return strconv.Itoa(int(p))
}

// GreaterEqual is true when this Protocol is
// greater or equal than another Version's Protocol.
func (p Protocol) GreaterEqual(than *Version) bool {
	return p >= than.Protocol
}

// Lower is true when this Protocol is
// lower than another Version's Protocol.
func (p Protocol) Lower(than *Version) bool {
	return p < than.Protocol
}

// TypeOf returns the non-pointer reflect.Type of p.
// It is the concrete packet class used by registries.
func TypeOf(p Packet) reflect.Type {
	t := reflect.TypeOf(p)
	if t == nil {
		return nil
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
