package intercept

import "go.minekube.com/intercept/pkg/packettype"

// Listener observes the packet types it whitelists.
//
// The whitelists are read once when the listener is added to a DispatchMap.
// Listeners are compared with ==, use pointer types.
// The On methods run on the connection's event loop and must not block.
type Listener interface {
	ReceivingWhitelist() []*packettype.PacketType
	SendingWhitelist() []*packettype.PacketType
	OnPacketReceiving(e *Event)
	OnPacketSending(e *Event)
}

// PacketAdapter is a Listener built from functions.
type PacketAdapter struct {
	Receiving []*packettype.PacketType // inbound types
	Sending   []*packettype.PacketType // outbound types

	OnReceive func(e *Event)
	OnSend    func(e *Event)
}

func (a *PacketAdapter) ReceivingWhitelist() []*packettype.PacketType { return a.Receiving }
func (a *PacketAdapter) SendingWhitelist() []*packettype.PacketType   { return a.Sending }

func (a *PacketAdapter) OnPacketReceiving(e *Event) {
	if a.OnReceive != nil {
		a.OnReceive(e)
	}
}

func (a *PacketAdapter) OnPacketSending(e *Event) {
	if a.OnSend != nil {
		a.OnSend(e)
	}
}

var _ Listener = (*PacketAdapter)(nil)
