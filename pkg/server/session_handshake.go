package server

import (
	"fmt"

	"github.com/go-logr/logr"
	"go.minekube.com/common/minecraft/color"
	"go.minekube.com/common/minecraft/component"

	"go.minekube.com/intercept/pkg/netmc"
	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/packet"
	"go.minekube.com/intercept/pkg/proto/state"
	"go.minekube.com/intercept/pkg/proto/version"
)

var loginsQuotaReason = &component.Text{
	Content: "You are logging in too fast, please calm down and retry.",
	S:       component.Style{Color: color.Red},
}

// nopSession implements the netmc.SessionHandler methods sessions do not need.
type nopSession struct{}

func (nopSession) HandlePacket(proto.Packet) {}
func (nopSession) Disconnected()             {}
func (nopSession) Activated()                {}
func (nopSession) Deactivated()              {}

type handshakeSession struct {
	server *Server
	conn   *netmc.Conn
	log    logr.Logger

	nopSession
}

// newHandshakeSession returns a handler used for clients in the handshake state.
func newHandshakeSession(s *Server, conn *netmc.Conn) netmc.SessionHandler {
	return &handshakeSession{
		server: s,
		conn:   conn,
		log:    conn.Log().WithName("handshakeSession"),
	}
}

func (h *handshakeSession) HandlePacket(p proto.Packet) {
	switch typed := p.(type) {
	case *packet.Handshake:
		h.handleHandshake(typed)
	default:
		// Unexpected packet received.
		// Better to close the connection.
		_ = h.conn.Close()
	}
}

func (h *handshakeSession) handleHandshake(hs *packet.Handshake) {
	// Encode with the client's version if supported,
	// so at least the disconnect reaches older clients.
	protocol := h.server.version.Protocol
	clientVersion, supported := version.Protocol(proto.Protocol(hs.ProtocolVersion))
	if supported {
		protocol = clientVersion.Protocol
	}
	h.conn.SetProtocol(protocol)

	switch hs.NextStatus {
	case packet.StatusIntent:
		h.conn.SetState(state.Status)
		h.conn.SetSessionHandler(newStatusSession(h.server, h.conn))
	case packet.LoginIntent, packet.TransferIntent:
		h.conn.SetState(state.Login)
		if protocol != h.server.version.Protocol || !supported {
			h.log.V(1).Info("client version is not the host version, disconnecting",
				"clientProtocol", hs.ProtocolVersion)
			h.conn.Disconnect(&component.Text{
				Content: fmt.Sprintf("Please connect with Minecraft %s", h.server.version),
			})
			return
		}
		if q := h.server.loginsQuota; q != nil && q.Blocked(h.conn.RemoteAddr()) {
			h.conn.Disconnect(loginsQuotaReason)
			return
		}
		h.conn.SetSessionHandler(newLoginSession(h.server, h.conn))
	default:
		h.log.V(1).Info("client provided invalid next status state, closing connection",
			"nextStatus", hs.NextStatus)
		_ = h.conn.Close()
	}
}
