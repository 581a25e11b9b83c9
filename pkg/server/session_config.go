package server

import (
	"bytes"

	"github.com/go-logr/logr"

	"go.minekube.com/intercept/pkg/netmc"
	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/packet"
	"go.minekube.com/intercept/pkg/proto/state"
	"go.minekube.com/intercept/pkg/proto/util"
	buildversion "go.minekube.com/intercept/pkg/version"
)

const brandChannel = "minecraft:brand"

type configSession struct {
	server *Server
	player *player
	log    logr.Logger

	nopSession
}

func newConfigSession(s *Server, p *player) netmc.SessionHandler {
	return &configSession{
		server: s,
		player: p,
		log:    p.conn.Log().WithName("configSession"),
	}
}

func (h *configSession) Activated() {
	conn := h.player.conn
	data := new(bytes.Buffer)
	_ = util.WriteString(data, buildversion.Brand())
	if err := conn.WritePacket(&packet.PluginMessage{Channel: brandChannel, Data: data.Bytes()}); err != nil {
		return
	}
	_ = conn.WritePacket(&packet.FinishedUpdate{})
}

func (h *configSession) HandlePacket(p proto.Packet) {
	switch typed := p.(type) {
	case *packet.FinishedUpdate:
		conn := h.player.conn
		conn.SetState(state.Play)
		conn.SetSessionHandler(newPlaySession(h.server, h.player))
	case *packet.PluginMessage:
		h.log.V(1).Info("received plugin message", "channel", typed.Channel, "len", len(typed.Data))
	case *packet.KeepAlive:
	default:
		h.log.V(1).Info("unexpected packet in configuration phase", "packet", proto.TypeOf(p).String())
	}
}
