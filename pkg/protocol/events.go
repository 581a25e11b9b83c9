package protocol

import (
	"go.minekube.com/intercept/pkg/intercept"
	"go.minekube.com/intercept/pkg/netmc"
)

// ListenerRegisteredEvent is fired after a listener was registered.
type ListenerRegisteredEvent struct {
	Listener intercept.Listener
	total    int
}

// Total returns the number of registered listeners after the registration.
func (e *ListenerRegisteredEvent) Total() int { return e.total }

// ListenerUnregisteredEvent is fired after a listener was unregistered.
type ListenerUnregisteredEvent struct {
	Listener intercept.Listener
	total    int
}

// Total returns the number of registered listeners after the removal.
func (e *ListenerUnregisteredEvent) Total() int { return e.total }

// ConnectionAttachedEvent is fired when a connection got its interception handler.
type ConnectionAttachedEvent struct {
	Conn *netmc.Conn
}

// ConnectionDetachedEvent is fired when an attached connection closed.
type ConnectionDetachedEvent struct {
	Conn *netmc.Conn
}
