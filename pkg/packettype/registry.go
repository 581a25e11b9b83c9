package packettype

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/go-logr/logr"

	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/state/states"
)

// ErrBootstrap wraps every error that makes Bootstrap fail.
var ErrBootstrap = errors.New("packet type bootstrap failed")

// Registry maps host packet classes to packet types and back.
//
// A Registry is built by Bootstrap and is read-only afterwards,
// so it is safe for concurrent use without locking.
type Registry struct {
	catalogue   *Catalogue
	classToType map[classKey]*PacketType
	typeToClass map[*PacketType]reflect.Type
	bound       []*PacketType

	bundle          *PacketType
	bundleDelimiter reflect.Type
}

type classKey struct {
	phase     states.State
	direction proto.Direction
	class     reflect.Type
}

var packetInterface = reflect.TypeOf((*proto.Packet)(nil)).Elem()

// Bootstrap recovers the host tables from src and binds every entry to its
// packet type in catalogue. Entries the catalogue does not know get a dynamic
// packet type. Any inconsistency fails the whole bootstrap; callers must not
// accept connections without a Registry.
func Bootstrap(ctx context.Context, src TableSource, catalogue *Catalogue) (*Registry, error) {
	log := logr.FromContextOrDiscard(ctx).WithName("packettype")

	tables, err := src.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: reading host tables: %w", ErrBootstrap, err)
	}
	if tables.Protocol != catalogue.Version().Protocol {
		return nil, fmt.Errorf("%w: host tables are for protocol %s but catalogue is for %s",
			ErrBootstrap, tables.Protocol, catalogue.Version())
	}

	r := &Registry{
		catalogue:   catalogue,
		classToType: make(map[classKey]*PacketType, len(tables.Entries)),
		typeToClass: make(map[*PacketType]reflect.Type, len(tables.Entries)),
	}

	for _, e := range tables.Entries {
		if err = r.add(log, e); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBootstrap, err)
		}
	}

	if tables.BundleDelimiter != nil {
		if err = r.setBundleDelimiter(tables.BundleDelimiter); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBootstrap, err)
		}
	}

	log.V(1).Info("bootstrapped packet types",
		"protocol", catalogue.Version().String(),
		"bound", len(r.bound),
		"catalogue", len(catalogue.Types()))
	return r, nil
}

func (r *Registry) add(log logr.Logger, e Entry) error {
	if e.Class == nil {
		return fmt.Errorf("%s %s id %s has no class", e.Phase, e.Direction, e.ID)
	}
	if e.Class.Kind() != reflect.Struct || !reflect.PointerTo(e.Class).Implements(packetInterface) {
		return fmt.Errorf("%s %s id %s: %s is not a packet struct", e.Phase, e.Direction, e.ID, e.Class)
	}

	t, ok := r.catalogue.Lookup(e.Phase, e.Direction, e.ID)
	if !ok {
		var err error
		t, err = r.catalogue.addDynamic(e.Phase, e.Direction, e.ID, e.Class.Name())
		if err != nil {
			return err
		}
		log.Info("host packet is missing from the catalogue, using a dynamic packet type",
			"warning", true, "type", t.String(), "class", e.Class.String())
	}

	key := classKey{phase: e.Phase, direction: e.Direction, class: e.Class}
	if other, ok := r.classToType[key]; ok {
		return fmt.Errorf("%s is registered twice in %s %s (ids %s and %s)",
			e.Class, e.Phase, e.Direction, other.ID(), e.ID)
	}
	if _, ok := r.typeToClass[t]; ok {
		return fmt.Errorf("%s is registered twice", t)
	}
	if err := t.bind(e.Class); err != nil {
		return err
	}
	r.classToType[key] = t
	r.typeToClass[t] = e.Class
	r.bound = append(r.bound, t)
	return nil
}

func (r *Registry) setBundleDelimiter(delimiter reflect.Type) error {
	t, ok := r.catalogue.ByName(states.PlayState, proto.Outbound, BundleDelimiterName)
	if !ok {
		return fmt.Errorf("catalogue for %s has no %s packet type", r.catalogue.Version(), BundleDelimiterName)
	}
	if _, ok = r.typeToClass[t]; !ok {
		return fmt.Errorf("host has a bundle delimiter class %s, but no bundle class under %s", delimiter, t)
	}
	r.bundle = t
	r.bundleDelimiter = delimiter
	return nil
}

// TypeOf returns the packet type of a host class in a phase and direction.
// The bundle delimiter class sent in play always resolves to the bundle
// delimiter type.
func (r *Registry) TypeOf(phase states.State, direction proto.Direction, class reflect.Type) (*PacketType, bool) {
	if class != nil && class == r.bundleDelimiter &&
		phase == r.bundle.Phase() && direction == r.bundle.Direction() {
		return r.bundle, true
	}
	t, ok := r.classToType[classKey{phase: phase, direction: direction, class: class}]
	return t, ok
}

// TypeOfPacket is TypeOf for a packet instance.
func (r *Registry) TypeOfPacket(phase states.State, direction proto.Direction, p proto.Packet) (*PacketType, bool) {
	if p == nil {
		return nil, false
	}
	return r.TypeOf(phase, direction, proto.TypeOf(p))
}

// ClassOf returns the host class bound to t.
// Catalogue types the host does not implement return false.
func (r *Registry) ClassOf(t *PacketType) (reflect.Type, bool) {
	c, ok := r.typeToClass[t]
	return c, ok
}

// Types returns all bound packet types in bootstrap order.
func (r *Registry) Types() []*PacketType {
	return append([]*PacketType(nil), r.bound...)
}

// Catalogue returns the catalogue the registry was bootstrapped with.
func (r *Registry) Catalogue() *Catalogue { return r.catalogue }

// Lookup resolves a packet type by phase, direction and name.
func (r *Registry) Lookup(phase states.State, direction proto.Direction, name string) (*PacketType, bool) {
	return r.catalogue.ByName(phase, direction, name)
}

// BundleDelimiter returns the delimiter class, or nil.
func (r *Registry) BundleDelimiter() reflect.Type { return r.bundleDelimiter }
