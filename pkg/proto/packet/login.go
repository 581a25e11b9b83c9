package packet

import (
	"io"

	"github.com/google/uuid"

	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/util"
	"go.minekube.com/intercept/pkg/proto/version"
)

// ServerLogin is the login start packet.
type ServerLogin struct {
	Username string
	PlayerID uuid.UUID
}

func (s *ServerLogin) Encode(_ *proto.PacketContext, wr io.Writer) (err error) {
	defer util.Recover(&err)
	w := util.PanicWriter(wr)
	w.String(s.Username)
	w.UUID(s.PlayerID)
	return nil
}

func (s *ServerLogin) Decode(_ *proto.PacketContext, rd io.Reader) (err error) {
	defer util.Recover(&err)
	r := util.PanicReader(rd)
	r.String(&s.Username)
	r.UUID(&s.PlayerID)
	return nil
}

type ServerLoginSuccess struct {
	UUID     uuid.UUID
	Username string
}

func (s *ServerLoginSuccess) Encode(c *proto.PacketContext, wr io.Writer) (err error) {
	defer util.Recover(&err)
	w := util.PanicWriter(wr)
	w.UUID(s.UUID)
	w.String(s.Username)
	w.VarInt(0) // no profile properties in offline mode
	if c.Protocol.GreaterEqual(version.Minecraft_1_20_5) {
		w.Bool(true) // strict error handling
	}
	return nil
}

func (s *ServerLoginSuccess) Decode(c *proto.PacketContext, rd io.Reader) (err error) {
	defer util.Recover(&err)
	r := util.PanicReader(rd)
	r.UUID(&s.UUID)
	r.String(&s.Username)
	var properties int
	r.VarInt(&properties)
	for i := 0; i < properties; i++ {
		var name, value string
		var signed bool
		r.String(&name)
		r.String(&value)
		r.Bool(&signed)
		if signed {
			var signature string
			r.String(&signature)
		}
	}
	if c.Protocol.GreaterEqual(version.Minecraft_1_20_5) {
		var strict bool
		r.Bool(&strict)
	}
	return nil
}

type SetCompression struct {
	Threshold int
}

func (s *SetCompression) Encode(_ *proto.PacketContext, wr io.Writer) error {
	return util.WriteVarInt(wr, s.Threshold)
}

func (s *SetCompression) Decode(_ *proto.PacketContext, rd io.Reader) (err error) {
	s.Threshold, err = util.ReadVarInt(rd)
	return
}

// LoginAcknowledged moves the connection from login to configuration.
type LoginAcknowledged struct{}

func (*LoginAcknowledged) Encode(*proto.PacketContext, io.Writer) error { return nil }
func (*LoginAcknowledged) Decode(*proto.PacketContext, io.Reader) error { return nil }

var (
	_ proto.Packet = (*ServerLogin)(nil)
	_ proto.Packet = (*ServerLoginSuccess)(nil)
	_ proto.Packet = (*SetCompression)(nil)
	_ proto.Packet = (*LoginAcknowledged)(nil)
)
