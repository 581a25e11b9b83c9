package packettype

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/state/states"
	"go.minekube.com/intercept/pkg/proto/version"
)

// Phase holds the packet types of one connection phase per direction.
type Phase struct {
	state  states.State
	byID   [2]map[proto.PacketID]*PacketType
	byName [2]map[string]*PacketType
}

func newPhase(s states.State) *Phase {
	p := &Phase{state: s}
	for _, d := range proto.Directions {
		p.byID[d] = map[proto.PacketID]*PacketType{}
		p.byName[d] = map[string]*PacketType{}
	}
	return p
}

// State returns the phase's connection state.
func (p *Phase) State() states.State { return p.state }

// Lookup returns the packet type with id in direction.
func (p *Phase) Lookup(direction proto.Direction, id proto.PacketID) (*PacketType, bool) {
	t, ok := p.byID[direction][id]
	return t, ok
}

// ByName returns the packet type named name in direction.
func (p *Phase) ByName(direction proto.Direction, name string) (*PacketType, bool) {
	t, ok := p.byName[direction][name]
	return t, ok
}

// Types returns the packet types of a direction ordered by id.
func (p *Phase) Types(direction proto.Direction) []*PacketType {
	types := make([]*PacketType, 0, len(p.byID[direction]))
	for _, t := range p.byID[direction] {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].id < types[j].id })
	return types
}

func (p *Phase) add(t *PacketType) error {
	if other, ok := p.byID[t.direction][t.id]; ok {
		return fmt.Errorf("duplicate id %s in %s %s: %s and %s", t.id, p.state, t.direction, other.name, t.name)
	}
	if _, ok := p.byName[t.direction][t.name]; ok {
		return fmt.Errorf("duplicate name %q in %s %s", t.name, p.state, t.direction)
	}
	p.byID[t.direction][t.id] = t
	p.byName[t.direction][t.name] = t
	return nil
}

// Catalogue is the set of packet types known for one protocol version.
//
// It is fully built by NewCatalogue. Bootstrap may add dynamic types
// before the owning Registry is published.
type Catalogue struct {
	version *proto.Version
	phases  map[states.State]*Phase
}

// NewCatalogue builds the catalogue of a protocol version from the packet definitions.
// Every call returns new PacketType instances.
func NewCatalogue(protocol proto.Protocol) (*Catalogue, error) {
	v, ok := version.Protocol(protocol)
	if !ok {
		return nil, fmt.Errorf("no packet catalogue for protocol %s", protocol)
	}
	c := &Catalogue{
		version: v,
		phases:  make(map[states.State]*Phase, len(states.States)),
	}
	for _, s := range states.States {
		c.phases[s] = newPhase(s)
	}
	for _, d := range definitions {
		id, ok := d.idFor(protocol)
		if !ok {
			continue
		}
		t := &PacketType{
			phase:     d.phase,
			direction: d.direction,
			id:        id,
			name:      d.name,
		}
		if err := c.phases[d.phase].add(t); err != nil {
			return nil, fmt.Errorf("invalid packet definitions for %s: %w", v, err)
		}
	}
	return c, nil
}

// Version returns the protocol version of the catalogue.
func (c *Catalogue) Version() *proto.Version { return c.version }

// Phase returns the phase of a connection state.
func (c *Catalogue) Phase(s states.State) *Phase { return c.phases[s] }

// Lookup returns the packet type with id in a phase and direction.
func (c *Catalogue) Lookup(s states.State, direction proto.Direction, id proto.PacketID) (*PacketType, bool) {
	p, ok := c.phases[s]
	if !ok {
		return nil, false
	}
	return p.Lookup(direction, id)
}

// ByName returns the packet type named name in a phase and direction.
func (c *Catalogue) ByName(s states.State, direction proto.Direction, name string) (*PacketType, bool) {
	p, ok := c.phases[s]
	if !ok {
		return nil, false
	}
	return p.ByName(direction, name)
}

// Types returns all packet types in connection order.
func (c *Catalogue) Types() []*PacketType {
	var types []*PacketType
	for _, s := range states.States {
		for _, d := range proto.Directions {
			types = append(types, c.phases[s].Types(d)...)
		}
	}
	return types
}

// Suggest returns up to max known packet names most similar to name.
func (c *Catalogue) Suggest(name string, max int) []string {
	type scored struct {
		name  string
		score float64
	}
	seen := map[string]bool{}
	var candidates []scored
	for _, t := range c.Types() {
		if seen[t.name] {
			continue
		}
		seen[t.name] = true
		score := levenshtein.Similarity(strings.ToLower(name), strings.ToLower(t.name), nil)
		if score > 0.3 {
			candidates = append(candidates, scored{t.name, score})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score == candidates[j].score {
			return candidates[i].name < candidates[j].name
		}
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > max {
		candidates = candidates[:max]
	}
	names := make([]string, len(candidates))
	for i, s := range candidates {
		names[i] = s.name
	}
	return names
}

func (c *Catalogue) addDynamic(s states.State, direction proto.Direction, id proto.PacketID, name string) (*PacketType, error) {
	p, ok := c.phases[s]
	if !ok {
		return nil, fmt.Errorf("unknown phase %s", s)
	}
	if _, taken := p.ByName(direction, name); taken {
		name = fmt.Sprintf("%s#%s", name, id)
	}
	t := &PacketType{
		phase:     s,
		direction: direction,
		id:        id,
		name:      name,
		dynamic:   true,
	}
	return t, p.add(t)
}
