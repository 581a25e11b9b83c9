package packet

import (
	"io"

	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/util"
)

// Handshake intents.
const (
	StatusIntent   = 1
	LoginIntent    = 2
	TransferIntent = 3
)

type Handshake struct {
	ProtocolVersion int
	ServerAddress   string
	Port            int
	NextStatus      int
}

func (h *Handshake) Encode(_ *proto.PacketContext, wr io.Writer) (err error) {
	defer util.Recover(&err)
	w := util.PanicWriter(wr)
	w.VarInt(h.ProtocolVersion)
	w.String(h.ServerAddress)
	if err = util.WriteUint16(wr, uint16(h.Port)); err != nil {
		return err
	}
	w.VarInt(h.NextStatus)
	return nil
}

func (h *Handshake) Decode(_ *proto.PacketContext, rd io.Reader) (err error) {
	defer util.Recover(&err)
	r := util.PanicReader(rd)
	r.VarInt(&h.ProtocolVersion)
	r.String(&h.ServerAddress)
	port, err := util.ReadUint16(rd)
	if err != nil {
		return err
	}
	h.Port = int(port)
	r.VarInt(&h.NextStatus)
	return nil
}

var _ proto.Packet = (*Handshake)(nil)
