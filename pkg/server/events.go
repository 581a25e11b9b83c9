package server

import (
	guuid "github.com/google/uuid"

	"go.minekube.com/intercept/pkg/netmc"
)

// Player is a client in the play phase.
type Player interface {
	Username() string
	ID() guuid.UUID
	Conn() *netmc.Conn
}

// PlayerJoinEvent is fired when a player entered the play phase.
type PlayerJoinEvent struct {
	player *player
}

// Player returns the joined player.
func (e *PlayerJoinEvent) Player() Player { return e.player }

// PlayerQuitEvent is fired when a joined player disconnected.
type PlayerQuitEvent struct {
	player *player
}

// Player returns the player that quit.
func (e *PlayerQuitEvent) Player() Player { return e.player }
