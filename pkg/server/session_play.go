package server

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/go-logr/logr"
	guuid "github.com/google/uuid"
	"go.minekube.com/common/minecraft/component"
	"go.uber.org/atomic"

	"go.minekube.com/intercept/pkg/netmc"
	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/packet"
)

// player is a logged in client.
type player struct {
	conn     *netmc.Conn
	username string
	id       guuid.UUID
}

// Username returns the player's name.
func (p *player) Username() string { return p.username }

// ID returns the player's offline mode UUID.
func (p *player) ID() guuid.UUID { return p.id }

// Conn returns the player's connection.
func (p *player) Conn() *netmc.Conn { return p.conn }

const (
	overworld     = "minecraft:overworld"
	viewDistance  = 8
	spectatorMode = 3
)

type playSession struct {
	server *Server
	player *player
	log    logr.Logger

	joined        atomic.Bool
	lastKeepAlive atomic.Int64

	nopSession
}

func newPlaySession(s *Server, p *player) netmc.SessionHandler {
	return &playSession{
		server: s,
		player: p,
		log:    p.conn.Log().WithName("playSession").WithValues("username", p.username),
	}
}

func (h *playSession) Activated() {
	conn := h.player.conn
	err := conn.WritePacket(&packet.JoinGame{
		EntityID:           1,
		DimensionNames:     []string{overworld},
		MaxPlayers:         h.server.cfg.MaxPlayers,
		ViewDistance:       viewDistance,
		SimulationDistance: viewDistance,
		Dimension:          overworld,
		HashedSeed:         0,
		GameMode:           spectatorMode,
	})
	if err != nil {
		return
	}
	h.joined.Store(true)
	h.server.players.Inc()
	h.server.runtime.Event().Fire(&PlayerJoinEvent{player: h.player})
	h.log.Info("player joined", "players", h.server.PlayerCount())

	go h.keepAlive(h.server.cfg.KeepAliveInterval)
}

func (h *playSession) Disconnected() {
	if !h.joined.CompareAndSwap(true, false) {
		return
	}
	h.server.players.Dec()
	h.server.runtime.Event().Fire(&PlayerQuitEvent{player: h.player})
	h.log.Info("player quit", "players", h.server.PlayerCount())
}

// keepAlive sends keep alive packets until the connection is closed.
func (h *playSession) keepAlive(interval time.Duration) {
	conn := h.player.conn
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-conn.Context().Done():
			return
		case <-ticker.C:
			id := rand.Int64()
			h.lastKeepAlive.Store(id)
			if err := conn.Send(&packet.KeepAlive{RandomID: id}); err != nil {
				return
			}
		}
	}
}

func (h *playSession) HandlePacket(p proto.Packet) {
	switch typed := p.(type) {
	case *packet.KeepAlive:
		if typed.RandomID != h.lastKeepAlive.Load() {
			h.log.V(1).Info("received unexpected keep alive", "id", typed.RandomID)
		}
	case *packet.ChatMessage:
		h.handleChat(typed)
	case *packet.PluginMessage:
		h.log.V(1).Info("received plugin message", "channel", typed.Channel, "len", len(typed.Data))
	default:
		h.log.V(2).Info("unhandled packet", "packet", proto.TypeOf(p).String())
	}
}

func (h *playSession) handleChat(msg *packet.ChatMessage) {
	if len(msg.Message) == 0 {
		return
	}
	_ = h.player.conn.WritePacket(&packet.SystemChat{
		Content: &component.Text{Content: fmt.Sprintf("<%s> %s", h.player.username, msg.Message)},
	})
}
