package packettype

import (
	"context"
	"reflect"

	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/state/states"
)

// TableSource provides the host's packet tables for one protocol version.
// Implementations adapt however a host version stores its tables.
type TableSource interface {
	Tables(ctx context.Context) (*Tables, error)
}

// Tables are the recovered packet tables of the host.
type Tables struct {
	Protocol proto.Protocol
	Entries  []Entry
	// BundleDelimiter is the class the host writes at bundle boundaries.
	// It shares the id of the bundle class and has no entry of its own.
	// Nil if the host has no bundles.
	BundleDelimiter reflect.Type
}

// Entry maps an id of a phase and direction to a host packet class.
type Entry struct {
	Phase     states.State
	Direction proto.Direction
	ID        proto.PacketID
	Class     reflect.Type
}
