package intercept

import (
	"fmt"
	"sync"

	"github.com/zyedidia/generic/multimap"
	"go.uber.org/atomic"

	"go.minekube.com/intercept/pkg/packettype"
	"go.minekube.com/intercept/pkg/proto"
)

// index is an immutable view of one direction.
type index map[*packettype.PacketType][]Listener

type registration struct {
	types [2][]*packettype.PacketType // by direction
}

// DispatchMap indexes listeners by the packet types they whitelist,
// separately for received and sent packets.
//
// Writers are serialized and publish a new immutable index per changed
// direction. Readers load the current index without locking, so a reader
// sees each direction either before or after a change, never in between.
type DispatchMap struct {
	views [2]atomic.Pointer[index]

	mu            sync.Mutex // Protects following fields
	listeners     [2]multimap.MultiMap[*packettype.PacketType, Listener]
	registrations map[Listener]*registration
	order         []Listener
}

var newIndex = multimap.NewMapSlice[*packettype.PacketType, Listener]

// NewDispatchMap returns an empty DispatchMap.
func NewDispatchMap() *DispatchMap {
	m := &DispatchMap{}
	m.reset()
	return m
}

func (m *DispatchMap) reset() {
	m.registrations = map[Listener]*registration{}
	m.order = nil
	for _, d := range proto.Directions {
		m.listeners[d] = newIndex()
		m.views[d].Store(&index{})
	}
}

// AddListener indexes l under every type of its whitelists.
// Adding a listener that is already added is a no-op.
func (m *DispatchMap) AddListener(l Listener) error {
	if l == nil {
		return fmt.Errorf("nil listener")
	}
	reg := &registration{}
	reg.types[proto.Inbound] = dedupe(l.ReceivingWhitelist())
	reg.types[proto.Outbound] = dedupe(l.SendingWhitelist())
	for _, d := range proto.Directions {
		for _, t := range reg.types[d] {
			if t == nil {
				return fmt.Errorf("listener %T whitelists a nil packet type", l)
			}
			if t.Direction() != d {
				return fmt.Errorf("listener %T whitelists %s as %s packet", l, t, d)
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.registrations[l]; ok {
		return nil
	}
	m.registrations[l] = reg
	m.order = append(m.order, l)
	for _, d := range proto.Directions {
		if len(reg.types[d]) == 0 {
			continue
		}
		for _, t := range reg.types[d] {
			m.listeners[d].Put(t, l)
		}
		m.publish(d, reg.types[d])
	}
	return nil
}

// RemoveListener removes l from both directions and reports whether it was added.
func (m *DispatchMap) RemoveListener(l Listener) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.registrations[l]
	if !ok {
		return false
	}
	delete(m.registrations, l)
	for i, o := range m.order {
		if o == l {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
	for _, d := range proto.Directions {
		if len(reg.types[d]) == 0 {
			continue
		}
		for _, t := range reg.types[d] {
			m.listeners[d].Remove(t, l)
		}
		m.publish(d, reg.types[d])
	}
	return true
}

// publish stores a new index of direction d with changed keys rebuilt.
func (m *DispatchMap) publish(d proto.Direction, changed []*packettype.PacketType) {
	old := *m.views[d].Load()
	next := make(index, len(old)+len(changed))
	for t, ls := range old {
		next[t] = ls
	}
	for _, t := range changed {
		if m.listeners[d].Count(t) == 0 {
			delete(next, t)
			continue
		}
		next[t] = m.ordered(m.listeners[d].Get(t))
	}
	m.views[d].Store(&next)
}

// ordered returns ls sorted by registration order.
func (m *DispatchMap) ordered(ls []Listener) []Listener {
	set := make(map[Listener]struct{}, len(ls))
	for _, l := range ls {
		set[l] = struct{}{}
	}
	out := make([]Listener, 0, len(ls))
	for _, l := range m.order {
		if _, ok := set[l]; ok {
			out = append(out, l)
		}
	}
	return out
}

// ListenersFor returns the listeners of t in registration order,
// using the index of t's own direction. The result must not be modified.
func (m *DispatchMap) ListenersFor(t *packettype.PacketType) []Listener {
	if t == nil {
		return nil
	}
	return (*m.views[t.Direction()].Load())[t]
}

// ContainsType reports whether any listener whitelists t.
func (m *DispatchMap) ContainsType(t *packettype.PacketType) bool {
	return len(m.ListenersFor(t)) != 0
}

// IsEmpty reports whether no listener is added.
func (m *DispatchMap) IsEmpty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order) == 0
}

// Listeners returns all added listeners in registration order.
func (m *DispatchMap) Listeners() []Listener {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Listener(nil), m.order...)
}

// Types returns the whitelisted types of direction d.
func (m *DispatchMap) Types(d proto.Direction) []*packettype.PacketType {
	view := *m.views[d].Load()
	types := make([]*packettype.PacketType, 0, len(view))
	for t := range view {
		types = append(types, t)
	}
	return types
}

// Clear removes all listeners.
func (m *DispatchMap) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
}

func dedupe(types []*packettype.PacketType) []*packettype.PacketType {
	seen := make(map[*packettype.PacketType]bool, len(types))
	out := make([]*packettype.PacketType, 0, len(types))
	for _, t := range types {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
