package host

import (
	"context"
	"reflect"

	"go.minekube.com/intercept/pkg/packettype"
	"go.minekube.com/intercept/pkg/proto"
)

// StaticSource is a TableSource with fixed entries.
type StaticSource struct {
	tables packettype.Tables
}

// Static returns a source that always reports entries for protocol.
func Static(protocol proto.Protocol, entries ...packettype.Entry) *StaticSource {
	return &StaticSource{tables: packettype.Tables{
		Protocol: protocol,
		Entries:  entries,
	}}
}

// WithBundleDelimiter sets the bundle delimiter class.
func (s *StaticSource) WithBundleDelimiter(class reflect.Type) *StaticSource {
	s.tables.BundleDelimiter = class
	return s
}

// Tables implements packettype.TableSource.
func (s *StaticSource) Tables(context.Context) (*packettype.Tables, error) {
	t := s.tables
	t.Entries = append([]packettype.Entry(nil), s.tables.Entries...)
	return &t, nil
}

var _ packettype.TableSource = (*StaticSource)(nil)
