package packettype

import (
	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/state/states"
	v "go.minekube.com/intercept/pkg/proto/version"
)

// definition declares a packet kind and its id from each version on.
type definition struct {
	phase     states.State
	direction proto.Direction
	name      string
	ids       []since
}

type since struct {
	id   proto.PacketID // negative if removed
	from *proto.Version
}

func (d definition) idFor(protocol proto.Protocol) (proto.PacketID, bool) {
	id := proto.PacketID(-1)
	for _, s := range d.ids {
		if s.from.Protocol > protocol {
			break
		}
		id = s.id
	}
	return id, id >= 0
}

func at(id proto.PacketID, from *proto.Version) since { return since{id: id, from: from} }

func def(phase states.State, direction proto.Direction, name string, ids ...since) definition {
	return definition{phase: phase, direction: direction, name: name, ids: ids}
}

const (
	handshake = states.HandshakeState
	status    = states.StatusState
	login     = states.LoginState
	config    = states.ConfigState
	play      = states.PlayState

	in  = proto.Inbound
	out = proto.Outbound
)

// BundleDelimiterName is the name of the play packet type bundle delimiters resolve to.
const BundleDelimiterName = "BundleDelimiter"

var definitions = []definition{
	def(handshake, in, "Handshake", at(0x00, v.Minecraft_1_19_4)),

	def(status, in, "StatusRequest", at(0x00, v.Minecraft_1_19_4)),
	def(status, in, "PingRequest", at(0x01, v.Minecraft_1_19_4)),
	def(status, out, "StatusResponse", at(0x00, v.Minecraft_1_19_4)),
	def(status, out, "PongResponse", at(0x01, v.Minecraft_1_19_4)),

	def(login, in, "LoginStart", at(0x00, v.Minecraft_1_19_4)),
	def(login, in, "EncryptionResponse", at(0x01, v.Minecraft_1_19_4)),
	def(login, in, "LoginPluginResponse", at(0x02, v.Minecraft_1_19_4)),
	def(login, in, "LoginAcknowledged", at(0x03, v.Minecraft_1_20_2)),
	def(login, in, "CookieResponse", at(0x04, v.Minecraft_1_20_5)),
	def(login, out, "Disconnect", at(0x00, v.Minecraft_1_19_4)),
	def(login, out, "EncryptionRequest", at(0x01, v.Minecraft_1_19_4)),
	def(login, out, "LoginSuccess", at(0x02, v.Minecraft_1_19_4)),
	def(login, out, "SetCompression", at(0x03, v.Minecraft_1_19_4)),
	def(login, out, "LoginPluginRequest", at(0x04, v.Minecraft_1_19_4)),
	def(login, out, "CookieRequest", at(0x05, v.Minecraft_1_20_5)),

	def(config, in, "ClientInformation", at(0x00, v.Minecraft_1_20_2)),
	def(config, in, "CookieResponse", at(0x01, v.Minecraft_1_20_5)),
	def(config, in, "PluginMessage", at(0x01, v.Minecraft_1_20_2), at(0x02, v.Minecraft_1_20_5)),
	def(config, in, "FinishConfigurationAck", at(0x02, v.Minecraft_1_20_2), at(0x03, v.Minecraft_1_20_5)),
	def(config, in, "KeepAlive", at(0x03, v.Minecraft_1_20_2), at(0x04, v.Minecraft_1_20_5)),
	def(config, in, "Pong", at(0x04, v.Minecraft_1_20_2), at(0x05, v.Minecraft_1_20_5)),
	def(config, in, "ResourcePackResponse", at(0x05, v.Minecraft_1_20_2), at(0x06, v.Minecraft_1_20_5)),
	def(config, in, "KnownPacks", at(0x07, v.Minecraft_1_20_5)),
	def(config, out, "CookieRequest", at(0x00, v.Minecraft_1_20_5)),
	def(config, out, "PluginMessage", at(0x00, v.Minecraft_1_20_2), at(0x01, v.Minecraft_1_20_5)),
	def(config, out, "Disconnect", at(0x01, v.Minecraft_1_20_2), at(0x02, v.Minecraft_1_20_5)),
	def(config, out, "FinishConfiguration", at(0x02, v.Minecraft_1_20_2), at(0x03, v.Minecraft_1_20_5)),
	def(config, out, "KeepAlive", at(0x03, v.Minecraft_1_20_2), at(0x04, v.Minecraft_1_20_5)),
	def(config, out, "Ping", at(0x04, v.Minecraft_1_20_2), at(0x05, v.Minecraft_1_20_5)),
	def(config, out, "RegistryData", at(0x05, v.Minecraft_1_20_2), at(0x07, v.Minecraft_1_20_5)),
	def(config, out, "ResetChat", at(0x06, v.Minecraft_1_20_5)),
	def(config, out, "KnownPacks", at(0x0E, v.Minecraft_1_20_5)),

	def(play, in, "ConfirmTeleport", at(0x00, v.Minecraft_1_19_4)),
	def(play, in, "ChatCommand", at(0x04, v.Minecraft_1_19_4)),
	def(play, in, "ChatMessage", at(0x05, v.Minecraft_1_19_4), at(0x06, v.Minecraft_1_20_5)),
	def(play, in, "ClientInformation", at(0x08, v.Minecraft_1_19_4), at(0x09, v.Minecraft_1_20_2), at(0x0A, v.Minecraft_1_20_5)),
	def(play, in, "ConfigurationAck", at(0x0B, v.Minecraft_1_20_2), at(0x0C, v.Minecraft_1_20_5)),
	def(play, in, "PluginMessage", at(0x0D, v.Minecraft_1_19_4), at(0x0F, v.Minecraft_1_20_2), at(0x10, v.Minecraft_1_20_3), at(0x12, v.Minecraft_1_20_5)),
	def(play, in, "KeepAlive", at(0x12, v.Minecraft_1_19_4), at(0x14, v.Minecraft_1_20_2), at(0x15, v.Minecraft_1_20_3), at(0x18, v.Minecraft_1_20_5)),
	def(play, in, "SetPlayerPosition", at(0x14, v.Minecraft_1_19_4), at(0x16, v.Minecraft_1_20_2), at(0x17, v.Minecraft_1_20_3), at(0x1A, v.Minecraft_1_20_5)),
	def(play, out, BundleDelimiterName, at(0x00, v.Minecraft_1_19_4)),
	def(play, out, "SpawnEntity", at(0x01, v.Minecraft_1_19_4)),
	def(play, out, "BossBar", at(0x0B, v.Minecraft_1_19_4), at(0x0A, v.Minecraft_1_20_2)),
	def(play, out, "PluginMessage", at(0x17, v.Minecraft_1_19_4), at(0x18, v.Minecraft_1_20_2), at(0x19, v.Minecraft_1_20_5)),
	def(play, out, "Disconnect", at(0x1A, v.Minecraft_1_19_4), at(0x1B, v.Minecraft_1_20_2), at(0x1D, v.Minecraft_1_20_5)),
	def(play, out, "KeepAlive", at(0x23, v.Minecraft_1_19_4), at(0x24, v.Minecraft_1_20_2), at(0x26, v.Minecraft_1_20_5)),
	def(play, out, "ChunkData", at(0x24, v.Minecraft_1_19_4), at(0x25, v.Minecraft_1_20_2), at(0x27, v.Minecraft_1_20_5)),
	def(play, out, "JoinGame", at(0x28, v.Minecraft_1_19_4), at(0x29, v.Minecraft_1_20_2), at(0x2B, v.Minecraft_1_20_5)),
	def(play, out, "PlayerInfoUpdate", at(0x3A, v.Minecraft_1_19_4), at(0x3C, v.Minecraft_1_20_2), at(0x3E, v.Minecraft_1_20_5)),
	def(play, out, "Respawn", at(0x41, v.Minecraft_1_19_4), at(0x43, v.Minecraft_1_20_2), at(0x45, v.Minecraft_1_20_3), at(0x47, v.Minecraft_1_20_5)),
	def(play, out, "StartConfiguration", at(0x65, v.Minecraft_1_20_2), at(0x67, v.Minecraft_1_20_3), at(0x69, v.Minecraft_1_20_5)),
	def(play, out, "SystemChat", at(0x64, v.Minecraft_1_19_4), at(0x67, v.Minecraft_1_20_2), at(0x69, v.Minecraft_1_20_3), at(0x6C, v.Minecraft_1_20_5)),
	def(play, out, "TabListHeaderFooter", at(0x65, v.Minecraft_1_19_4), at(0x68, v.Minecraft_1_20_2), at(0x6A, v.Minecraft_1_20_3), at(0x6D, v.Minecraft_1_20_5)),
}
