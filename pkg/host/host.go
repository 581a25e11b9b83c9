// Package host recovers the host server's private packet tables.
//
// The tables in the host codec are not a public contract, so every
// supported host layout gets its own adapter. Adapters walk the table
// object graph by field name and fail with ErrUnexpectedShape as soon as
// something does not look like the layout they were written for.
package host

import (
	"context"
	"errors"
	"fmt"

	"go.minekube.com/intercept/pkg/packettype"
	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/state/states"
	"go.minekube.com/intercept/pkg/proto/version"
)

// ErrUnexpectedShape is returned when the host tables do not have the
// layout an adapter expects, usually because the host version changed.
var ErrUnexpectedShape = errors.New("host packet tables have an unexpected shape")

type phaseField struct {
	state states.State
	field string
}

var (
	legacyPhases = []phaseField{
		{states.HandshakeState, "Handshake"},
		{states.StatusState, "Status"},
		{states.LoginState, "Login"},
		{states.PlayState, "Play"},
	}
	configPhases = []phaseField{
		{states.HandshakeState, "Handshake"},
		{states.StatusState, "Status"},
		{states.LoginState, "Login"},
		{states.ConfigState, "Config"},
		{states.PlayState, "Play"},
	}
)

// Select returns the adapter that reads the tables rooted at root
// for a host speaking protocol.
func Select(protocol proto.Protocol, root any) (packettype.TableSource, error) {
	v, ok := version.Protocol(protocol)
	if !ok {
		return nil, fmt.Errorf("no host table adapter for protocol %s", protocol)
	}
	if root == nil {
		return nil, fmt.Errorf("%w: nil table root", ErrUnexpectedShape)
	}
	w := walker{protocol: v.Protocol, root: root}
	if version.HasConfigPhase(v.Protocol) {
		return &configAdapter{walker: w}, nil
	}
	return &legacyAdapter{walker: w}, nil
}

// legacyAdapter reads hosts without a configuration phase.
type legacyAdapter struct{ walker }

func (a *legacyAdapter) Tables(ctx context.Context) (*packettype.Tables, error) {
	return a.tables(ctx, legacyPhases)
}

// configAdapter reads hosts with a configuration phase between login and play.
type configAdapter struct{ walker }

func (a *configAdapter) Tables(ctx context.Context) (*packettype.Tables, error) {
	t, err := a.tables(ctx, configPhases)
	if err != nil {
		return nil, err
	}
	for _, d := range proto.Directions {
		if !hasEntries(t.Entries, states.ConfigState, d) {
			return nil, fmt.Errorf("%w: Config.%s has no packets for protocol %s",
				ErrUnexpectedShape, boundField(d), a.protocol)
		}
	}
	return t, nil
}

func hasEntries(entries []packettype.Entry, s states.State, d proto.Direction) bool {
	for _, e := range entries {
		if e.Phase == s && e.Direction == d {
			return true
		}
	}
	return false
}

var (
	_ packettype.TableSource = (*legacyAdapter)(nil)
	_ packettype.TableSource = (*configAdapter)(nil)
)
