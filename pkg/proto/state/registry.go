// Package state holds the host server's packet tables per connection state.
//
// The tables are internal to the host codec. Other components must not
// depend on their layout; the interception core reads them through a
// versioned adapter.
package state

import (
	"fmt"
	"reflect"

	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/state/states"
	"go.minekube.com/intercept/pkg/proto/version"
)

// Registry stores server/client bound packets of a state.
type Registry struct {
	states.State
	ServerBound *PacketRegistry
	ClientBound *PacketRegistry
}

func NewRegistry(state states.State) *Registry {
	return &Registry{
		State:       state,
		ServerBound: NewPacketRegistry(proto.ServerBound, state),
		ClientBound: NewPacketRegistry(proto.ClientBound, state),
	}
}

// PacketRegistry stores the packets of all protocol versions bound to one direction.
type PacketRegistry struct {
	Direction proto.Direction
	Protocols map[proto.Protocol]*ProtocolRegistry
	state     states.State
}

func NewPacketRegistry(direction proto.Direction, state states.State) *PacketRegistry {
	r := &PacketRegistry{
		Direction: direction,
		Protocols: map[proto.Protocol]*ProtocolRegistry{},
		state:     state,
	}
	for _, ver := range version.Versions {
		r.Protocols[ver.Protocol] = &ProtocolRegistry{
			Protocol:    ver.Protocol,
			PacketIDs:   map[proto.PacketID]reflect.Type{},
			PacketTypes: map[reflect.Type]proto.PacketID{},
		}
	}
	return r
}

// ProtocolRegistry gets the ProtocolRegistry for a protocol or nil if not found.
func (p *PacketRegistry) ProtocolRegistry(protocol proto.Protocol) *ProtocolRegistry {
	return p.Protocols[protocol]
}

// ProtocolRegistry stores packets of a protocol version.
type ProtocolRegistry struct {
	Protocol    proto.Protocol                   // The protocol version of the registered packets.
	PacketIDs   map[proto.PacketID]reflect.Type // Gets packet type by packet id.
	PacketTypes map[reflect.Type]proto.PacketID // Gets packet id by packet type, includes aliases.
}

// PacketID gets the packet id by the registered packet type.
func (r *ProtocolRegistry) PacketID(of proto.Packet) (id proto.PacketID, found bool) {
	if r == nil {
		return 0, false
	}
	id, found = r.PacketTypes[proto.TypeOf(of)]
	return
}

// CreatePacket returns a new zero valued instance of the type
// of the mapped packet id or nil if not found.
func (r *ProtocolRegistry) CreatePacket(id proto.PacketID) proto.Packet {
	if r == nil {
		return nil
	}
	packetType, ok := r.PacketIDs[id]
	if !ok {
		return nil
	}
	p, _ := reflect.New(packetType).Interface().(proto.Packet)
	return p
}

// Register registers a packet for the protocol versions starting at each mapping
// until the next mapping. A mapping with a negative id removes the packet from
// that version on.
func (p *PacketRegistry) Register(packetOf proto.Packet, mappings ...*PacketMapping) {
	packetType := proto.TypeOf(packetOf)
	p.eachVersion(mappings, func(registry *ProtocolRegistry, id proto.PacketID) {
		if _, ok := registry.PacketIDs[id]; ok {
			panic(fmt.Sprintf("can not register packet type %T with id %s in %s %s for "+
				"protocol %s because another packet is already registered",
				packetOf, id, p.state, p.Direction, registry.Protocol))
		}
		if _, ok := registry.PacketTypes[packetType]; ok {
			panic(fmt.Sprintf("%T is already registered for protocol %s", packetOf, registry.Protocol))
		}
		registry.PacketIDs[id] = packetType
		registry.PacketTypes[packetType] = id
	})
}

// RegisterAlias makes alias encode with the id of an already registered packet.
// The alias is never created by a decoder.
func (p *PacketRegistry) RegisterAlias(alias, of proto.Packet) {
	aliasType, ofType := proto.TypeOf(alias), proto.TypeOf(of)
	for _, registry := range p.Protocols {
		if id, ok := registry.PacketTypes[ofType]; ok {
			registry.PacketTypes[aliasType] = id
		}
	}
}

func (p *PacketRegistry) eachVersion(mappings []*PacketMapping, fn func(*ProtocolRegistry, proto.PacketID)) {
	for i, current := range mappings {
		to := proto.Protocol(-1)
		if i < len(mappings)-1 {
			to = mappings[i+1].Protocol
			if current.Protocol >= to {
				panic(fmt.Sprintf("next mapping version (%s) should be higher than current (%s)", to, current.Protocol))
			}
		}
		if current.ID < 0 {
			continue
		}
		for _, ver := range version.Versions {
			if ver.Protocol < current.Protocol || (to != -1 && ver.Protocol >= to) {
				continue
			}
			registry, ok := p.Protocols[ver.Protocol]
			if !ok {
				panic(fmt.Sprintf("unknown protocol version %s", ver.Protocol))
			}
			fn(registry, current.ID)
		}
	}
}

// FromDirectionOf returns the protocol registry of r for a direction.
func (r *Registry) FromDirectionOf(direction proto.Direction, protocol proto.Protocol) *ProtocolRegistry {
	return FromDirection(direction, r, protocol)
}

// FromDirection returns the protocol registry of a state for a direction.
func FromDirection(direction proto.Direction, state *Registry, protocol proto.Protocol) *ProtocolRegistry {
	if direction == proto.ServerBound {
		return state.ServerBound.ProtocolRegistry(protocol)
	}
	return state.ClientBound.ProtocolRegistry(protocol)
}

type PacketMapping struct {
	ID       proto.PacketID
	Protocol proto.Protocol
}

func m(id proto.PacketID, version *proto.Version) *PacketMapping {
	return &PacketMapping{
		ID:       id,
		Protocol: version.Protocol,
	}
}
