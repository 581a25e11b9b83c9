package server

import (
	"bytes"
	"encoding/json"

	"github.com/go-logr/logr"

	"go.minekube.com/intercept/pkg/netmc"
	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/packet"
	"go.minekube.com/intercept/pkg/util/favicon"
)

type statusSession struct {
	server *Server
	conn   *netmc.Conn
	log    logr.Logger

	receivedRequest bool

	nopSession
}

func newStatusSession(s *Server, conn *netmc.Conn) netmc.SessionHandler {
	return &statusSession{
		server: s,
		conn:   conn,
		log:    conn.Log().WithName("statusSession").WithValues("protocol", conn.Protocol()),
	}
}

func (h *statusSession) Activated() {
	h.log.V(1).Info("got server list status request")
}

func (h *statusSession) HandlePacket(p proto.Packet) {
	switch typed := p.(type) {
	case *packet.StatusRequest:
		h.handleStatusRequest()
	case *packet.StatusPing:
		// Pong and close
		_ = h.conn.WritePacket(typed)
		_ = h.conn.Close()
	default:
		// unexpected packet, simply close
		_ = h.conn.Close()
	}
}

// serverPing is a server list ping response.
type serverPing struct {
	Version struct {
		Name     string         `json:"name"`
		Protocol proto.Protocol `json:"protocol"`
	} `json:"version"`
	Players struct {
		Max    int `json:"max"`
		Online int `json:"online"`
	} `json:"players"`
	Description json.RawMessage `json:"description"`
	Favicon     favicon.Favicon `json:"favicon,omitempty"`
}

func (h *statusSession) handleStatusRequest() {
	if h.receivedRequest {
		// Already sent response
		_ = h.conn.Close()
		return
	}
	h.receivedRequest = true

	response, err := h.server.statusResponse()
	if err != nil {
		_ = h.conn.Close()
		h.log.Error(err, "error marshaling ping response to json")
		return
	}
	_ = h.conn.WritePacket(&packet.StatusResponse{Status: string(response)})
}

func (s *Server) statusResponse() ([]byte, error) {
	description := new(bytes.Buffer)
	if err := packet.JsonCodec.Marshal(description, s.motd); err != nil {
		return nil, err
	}
	var ping serverPing
	ping.Version.Name = s.version.String()
	ping.Version.Protocol = s.version.Protocol
	ping.Players.Max = s.cfg.MaxPlayers
	ping.Players.Online = s.PlayerCount()
	ping.Description = description.Bytes()
	ping.Favicon = s.favicon
	return json.Marshal(&ping)
}
