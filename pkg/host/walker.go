package host

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/go-logr/logr"

	"go.minekube.com/intercept/pkg/packettype"
	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/state/states"
)

var typeOfType = reflect.TypeOf((*reflect.Type)(nil)).Elem()

// walker reads the table object graph:
//
//	root.<Phase>.<ServerBound|ClientBound>.Protocols[protocol].PacketIDs
type walker struct {
	protocol proto.Protocol
	root     any
}

func boundField(d proto.Direction) string {
	if d == proto.ServerBound {
		return "ServerBound"
	}
	return "ClientBound"
}

func (w *walker) tables(ctx context.Context, phases []phaseField) (*packettype.Tables, error) {
	log := logr.FromContextOrDiscard(ctx).WithName("host")

	root := reflect.ValueOf(w.root)
	rootPath := root.Type().String()
	root, err := deref(root, rootPath)
	if err != nil {
		return nil, err
	}

	t := &packettype.Tables{Protocol: w.protocol}
	for _, phase := range phases {
		phasePath := rootPath + "." + phase.field
		reg, err := structField(root, phase.field, phasePath)
		if err != nil {
			return nil, err
		}
		for _, d := range proto.Directions {
			path := phasePath + "." + boundField(d)
			ids, types, err := w.protocolTables(reg, boundField(d), path)
			if err != nil {
				return nil, err
			}
			entries, aliases, err := collect(phase.state, d, ids, types, path)
			if err != nil {
				return nil, err
			}
			t.Entries = append(t.Entries, entries...)
			if len(aliases) == 0 {
				continue
			}
			if phase.state != states.PlayState || d != proto.ClientBound || len(aliases) > 1 {
				return nil, fmt.Errorf("%w: %s has unexpected aliases %v", ErrUnexpectedShape, path, aliases)
			}
			t.BundleDelimiter = aliases[0]
		}
		log.V(1).Info("read host phase tables", "phase", phase.state.String(), "protocol", w.protocol.String())
	}
	return t, nil
}

// protocolTables returns the PacketIDs and PacketTypes maps of a direction.
func (w *walker) protocolTables(reg reflect.Value, dirField, path string) (ids, types reflect.Value, err error) {
	dir, err := structField(reg, dirField, path)
	if err != nil {
		return
	}
	protocols, err := field(dir, "Protocols", reflect.Map, path+".Protocols")
	if err != nil {
		return
	}
	keyType := protocols.Type().Key()
	protocolValue := reflect.ValueOf(w.protocol)
	if !protocolValue.Type().ConvertibleTo(keyType) {
		err = fmt.Errorf("%w: %s.Protocols is keyed by %s", ErrUnexpectedShape, path, keyType)
		return
	}
	path = fmt.Sprintf("%s.Protocols[%d]", path, w.protocol)
	pr := protocols.MapIndex(protocolValue.Convert(keyType))
	if !pr.IsValid() {
		err = fmt.Errorf("%w: %s is missing", ErrUnexpectedShape, path)
		return
	}
	if pr, err = deref(pr, path); err != nil {
		return
	}
	if ids, err = field(pr, "PacketIDs", reflect.Map, path+".PacketIDs"); err != nil {
		return
	}
	if ids.Type().Elem() != typeOfType || !isInt(ids.Type().Key()) {
		err = fmt.Errorf("%w: %s.PacketIDs is a %s", ErrUnexpectedShape, path, ids.Type())
		return
	}
	if types, err = field(pr, "PacketTypes", reflect.Map, path+".PacketTypes"); err != nil {
		return
	}
	if types.Type().Key() != typeOfType || !isInt(types.Type().Elem()) {
		err = fmt.Errorf("%w: %s.PacketTypes is a %s", ErrUnexpectedShape, path, types.Type())
	}
	return ids, types, err
}

// collect turns the id tables into entries. Classes mapped to an id
// that PacketIDs resolves to another class are returned as aliases.
func collect(s states.State, d proto.Direction, ids, types reflect.Value, path string) ([]packettype.Entry, []reflect.Type, error) {
	entries := make([]packettype.Entry, 0, ids.Len())
	byID := make(map[proto.PacketID]reflect.Type, ids.Len())
	for it := ids.MapRange(); it.Next(); {
		class, ok := it.Value().Interface().(reflect.Type)
		if !ok || class == nil {
			return nil, nil, fmt.Errorf("%w: %s.PacketIDs[%d] has no class", ErrUnexpectedShape, path, it.Key().Int())
		}
		id := proto.PacketID(it.Key().Int())
		byID[id] = class
		entries = append(entries, packettype.Entry{Phase: s, Direction: d, ID: id, Class: class})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	var aliases []reflect.Type
	for it := types.MapRange(); it.Next(); {
		class, _ := it.Key().Interface().(reflect.Type)
		id := proto.PacketID(it.Value().Int())
		owner, ok := byID[id]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s.PacketTypes maps %s to unknown id %s", ErrUnexpectedShape, path, class, id)
		}
		if owner != class {
			aliases = append(aliases, class)
		}
	}
	return entries, aliases, nil
}

func deref(v reflect.Value, path string) (reflect.Value, error) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v, fmt.Errorf("%w: %s is nil", ErrUnexpectedShape, path)
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return v, fmt.Errorf("%w: %s is a %s, not a struct", ErrUnexpectedShape, path, v.Kind())
	}
	return v, nil
}

func structField(v reflect.Value, name, path string) (reflect.Value, error) {
	f, err := field(v, name, reflect.Pointer, path)
	if err != nil {
		return f, err
	}
	return deref(f, path)
}

func field(v reflect.Value, name string, kind reflect.Kind, path string) (reflect.Value, error) {
	f := v.FieldByName(name)
	if !f.IsValid() {
		return f, fmt.Errorf("%w: %s is missing", ErrUnexpectedShape, path)
	}
	if !f.CanInterface() {
		return f, fmt.Errorf("%w: %s is not exported", ErrUnexpectedShape, path)
	}
	if f.Kind() != kind {
		return f, fmt.Errorf("%w: %s is a %s, not a %s", ErrUnexpectedShape, path, f.Kind(), kind)
	}
	return f, nil
}

func isInt(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}
