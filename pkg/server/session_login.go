package server

import (
	"unicode/utf8"

	"github.com/go-logr/logr"
	"go.minekube.com/common/minecraft/component"

	"go.minekube.com/intercept/pkg/netmc"
	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/packet"
	"go.minekube.com/intercept/pkg/proto/state"
	"go.minekube.com/intercept/pkg/proto/version"
	"go.minekube.com/intercept/pkg/util/uuid"
)

const maxUsernameLength = 16

var serverFullReason = &component.Text{Content: "The server is full"}

type loginSession struct {
	server *Server
	conn   *netmc.Conn
	log    logr.Logger

	player *player // set after login success

	nopSession
}

func newLoginSession(s *Server, conn *netmc.Conn) netmc.SessionHandler {
	return &loginSession{
		server: s,
		conn:   conn,
		log:    conn.Log().WithName("loginSession"),
	}
}

func (h *loginSession) HandlePacket(p proto.Packet) {
	switch typed := p.(type) {
	case *packet.ServerLogin:
		h.handleServerLogin(typed)
	case *packet.LoginAcknowledged:
		h.handleLoginAcknowledged()
	default:
		_ = h.conn.Close()
	}
}

func (h *loginSession) handleServerLogin(login *packet.ServerLogin) {
	if h.player != nil {
		// Sent twice
		_ = h.conn.Close()
		return
	}
	n := utf8.RuneCountInString(login.Username)
	if n == 0 || n > maxUsernameLength {
		h.conn.Disconnect(&component.Text{Content: "Invalid username"})
		return
	}
	if limit := h.server.cfg.MaxPlayers; limit > 0 && h.server.PlayerCount() >= limit {
		h.conn.Disconnect(serverFullReason)
		return
	}

	if threshold := h.server.cfg.Compression.Threshold; threshold >= 0 {
		if err := h.conn.WritePacket(&packet.SetCompression{Threshold: threshold}); err != nil {
			return
		}
		if err := h.conn.SetCompressionThreshold(threshold); err != nil {
			h.log.Error(err, "could not enable compression")
			_ = h.conn.Close()
			return
		}
	}

	h.player = &player{
		conn:     h.conn,
		username: login.Username,
		id:       uuid.OfflinePlayerUUID(login.Username),
	}
	if err := h.conn.WritePacket(&packet.ServerLoginSuccess{
		UUID:     h.player.id,
		Username: h.player.username,
	}); err != nil {
		return
	}
	h.log.Info("player logged in", "username", h.player.username, "uuid", h.player.id)

	if version.HasConfigPhase(h.conn.Protocol()) {
		// Wait for the client to acknowledge the login.
		return
	}
	h.conn.SetState(state.Play)
	h.conn.SetSessionHandler(newPlaySession(h.server, h.player))
}

func (h *loginSession) handleLoginAcknowledged() {
	if h.player == nil || !version.HasConfigPhase(h.conn.Protocol()) {
		_ = h.conn.Close()
		return
	}
	h.conn.SetState(state.Config)
	h.conn.SetSessionHandler(newConfigSession(h.server, h.player))
}
