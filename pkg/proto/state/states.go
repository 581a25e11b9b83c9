package state

import (
	p "go.minekube.com/intercept/pkg/proto/packet"
	"go.minekube.com/intercept/pkg/proto/state/states"
	"go.minekube.com/intercept/pkg/proto/version"
)

// The registries storing the packets for a connection state.
var (
	Handshake = NewRegistry(states.HandshakeState)
	Status    = NewRegistry(states.StatusState)
	Login     = NewRegistry(states.LoginState)
	Config    = NewRegistry(states.ConfigState)
	Play      = NewRegistry(states.PlayState)
)

// Tables is the root of the host packet tables.
type Tables struct {
	Handshake *Registry
	Status    *Registry
	Login     *Registry
	Config    *Registry
	Play      *Registry
}

// Host holds the tables the host codec uses.
var Host = &Tables{
	Handshake: Handshake,
	Status:    Status,
	Login:     Login,
	Config:    Config,
	Play:      Play,
}

// ByState returns the registry of a state or nil.
func (t *Tables) ByState(s states.State) *Registry {
	switch s {
	case states.HandshakeState:
		return t.Handshake
	case states.StatusState:
		return t.Status
	case states.LoginState:
		return t.Login
	case states.ConfigState:
		return t.Config
	case states.PlayState:
		return t.Play
	}
	return nil
}

func init() {
	Handshake.ServerBound.Register(&p.Handshake{},
		m(0x00, version.Minecraft_1_19_4))

	Status.ServerBound.Register(&p.StatusRequest{},
		m(0x00, version.Minecraft_1_19_4))
	Status.ServerBound.Register(&p.StatusPing{},
		m(0x01, version.Minecraft_1_19_4))
	Status.ClientBound.Register(&p.StatusResponse{},
		m(0x00, version.Minecraft_1_19_4))
	Status.ClientBound.Register(&p.StatusPing{},
		m(0x01, version.Minecraft_1_19_4))

	Login.ServerBound.Register(&p.ServerLogin{},
		m(0x00, version.Minecraft_1_19_4))
	Login.ServerBound.Register(&p.LoginAcknowledged{},
		m(0x03, version.Minecraft_1_20_2))

	Login.ClientBound.Register(&p.Disconnect{},
		m(0x00, version.Minecraft_1_19_4))
	Login.ClientBound.Register(&p.ServerLoginSuccess{},
		m(0x02, version.Minecraft_1_19_4))
	Login.ClientBound.Register(&p.SetCompression{},
		m(0x03, version.Minecraft_1_19_4))

	Config.ServerBound.Register(&p.PluginMessage{},
		m(0x01, version.Minecraft_1_20_2),
		m(0x02, version.Minecraft_1_20_5))
	Config.ServerBound.Register(&p.FinishedUpdate{},
		m(0x02, version.Minecraft_1_20_2),
		m(0x03, version.Minecraft_1_20_5))
	Config.ServerBound.Register(&p.KeepAlive{},
		m(0x03, version.Minecraft_1_20_2),
		m(0x04, version.Minecraft_1_20_5))

	Config.ClientBound.Register(&p.PluginMessage{},
		m(0x00, version.Minecraft_1_20_2),
		m(0x01, version.Minecraft_1_20_5))
	Config.ClientBound.Register(&p.Disconnect{},
		m(0x01, version.Minecraft_1_20_2),
		m(0x02, version.Minecraft_1_20_5))
	Config.ClientBound.Register(&p.FinishedUpdate{},
		m(0x02, version.Minecraft_1_20_2),
		m(0x03, version.Minecraft_1_20_5))
	Config.ClientBound.Register(&p.KeepAlive{},
		m(0x03, version.Minecraft_1_20_2),
		m(0x04, version.Minecraft_1_20_5))

	Play.ServerBound.Register(&p.ChatMessage{},
		m(0x05, version.Minecraft_1_19_4),
		m(0x06, version.Minecraft_1_20_5))
	Play.ServerBound.Register(&p.StartUpdate{},
		m(0x0B, version.Minecraft_1_20_2),
		m(0x0C, version.Minecraft_1_20_5))
	Play.ServerBound.Register(&p.PluginMessage{},
		m(0x0D, version.Minecraft_1_19_4),
		m(0x0F, version.Minecraft_1_20_2),
		m(0x10, version.Minecraft_1_20_3),
		m(0x12, version.Minecraft_1_20_5))
	Play.ServerBound.Register(&p.KeepAlive{},
		m(0x12, version.Minecraft_1_19_4),
		m(0x14, version.Minecraft_1_20_2),
		m(0x15, version.Minecraft_1_20_3),
		m(0x18, version.Minecraft_1_20_5))

	Play.ClientBound.Register(&p.Bundle{},
		m(0x00, version.Minecraft_1_19_4))
	Play.ClientBound.RegisterAlias(&p.BundleDelimiter{}, &p.Bundle{})
	Play.ClientBound.Register(&p.PluginMessage{},
		m(0x17, version.Minecraft_1_19_4),
		m(0x18, version.Minecraft_1_20_2),
		m(0x19, version.Minecraft_1_20_5))
	Play.ClientBound.Register(&p.Disconnect{},
		m(0x1A, version.Minecraft_1_19_4),
		m(0x1B, version.Minecraft_1_20_2),
		m(0x1D, version.Minecraft_1_20_5))
	Play.ClientBound.Register(&p.KeepAlive{},
		m(0x23, version.Minecraft_1_19_4),
		m(0x24, version.Minecraft_1_20_2),
		m(0x26, version.Minecraft_1_20_5))
	Play.ClientBound.Register(&p.JoinGame{},
		m(0x28, version.Minecraft_1_19_4),
		m(0x29, version.Minecraft_1_20_2),
		m(0x2B, version.Minecraft_1_20_5))
	Play.ClientBound.Register(&p.StartUpdate{},
		m(0x65, version.Minecraft_1_20_2),
		m(0x67, version.Minecraft_1_20_3),
		m(0x69, version.Minecraft_1_20_5))
	Play.ClientBound.Register(&p.SystemChat{},
		m(0x64, version.Minecraft_1_19_4),
		m(0x67, version.Minecraft_1_20_2),
		m(0x69, version.Minecraft_1_20_3),
		m(0x6C, version.Minecraft_1_20_5))
}
