package packet

import (
	"io"

	"go.minekube.com/common/minecraft/component"

	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/util"
)

// JoinGame is the play phase login packet.
// Only the fields the host server sends are modelled.
type JoinGame struct {
	EntityID           int32
	Hardcore           bool
	DimensionNames     []string
	MaxPlayers         int
	ViewDistance       int
	SimulationDistance int
	Dimension          string
	HashedSeed         int64
	GameMode           byte
}

func (j *JoinGame) Encode(_ *proto.PacketContext, wr io.Writer) (err error) {
	defer util.Recover(&err)
	w := util.PanicWriter(wr)
	w.Int32(j.EntityID)
	w.Bool(j.Hardcore)
	w.VarInt(len(j.DimensionNames))
	for _, name := range j.DimensionNames {
		w.String(name)
	}
	w.VarInt(j.MaxPlayers)
	w.VarInt(j.ViewDistance)
	w.VarInt(j.SimulationDistance)
	w.String(j.Dimension)
	w.Int64(j.HashedSeed)
	w.Byte(j.GameMode)
	return nil
}

func (j *JoinGame) Decode(_ *proto.PacketContext, rd io.Reader) (err error) {
	defer util.Recover(&err)
	r := util.PanicReader(rd)
	r.Int32(&j.EntityID)
	r.Bool(&j.Hardcore)
	var n int
	r.VarInt(&n)
	j.DimensionNames = make([]string, n)
	for i := range j.DimensionNames {
		r.String(&j.DimensionNames[i])
	}
	r.VarInt(&j.MaxPlayers)
	r.VarInt(&j.ViewDistance)
	r.VarInt(&j.SimulationDistance)
	r.String(&j.Dimension)
	r.Int64(&j.HashedSeed)
	r.Byte(&j.GameMode)
	return nil
}

// ChatMessage is a chat message sent by the client.
type ChatMessage struct {
	Message   string
	Timestamp int64
	Salt      int64
	Trailer   []byte // signature and acknowledgements, kept as is
}

func (c *ChatMessage) Encode(_ *proto.PacketContext, wr io.Writer) (err error) {
	defer util.Recover(&err)
	w := util.PanicWriter(wr)
	w.String(c.Message)
	w.Int64(c.Timestamp)
	w.Int64(c.Salt)
	_, err = wr.Write(c.Trailer)
	return err
}

func (c *ChatMessage) Decode(_ *proto.PacketContext, rd io.Reader) (err error) {
	defer util.Recover(&err)
	r := util.PanicReader(rd)
	r.String(&c.Message)
	r.Int64(&c.Timestamp)
	r.Int64(&c.Salt)
	c.Trailer, err = io.ReadAll(rd)
	return err
}

// SystemChat is a server message shown in chat or the action bar.
type SystemChat struct {
	Content component.Component
	Overlay bool
}

func (s *SystemChat) Encode(_ *proto.PacketContext, wr io.Writer) error {
	if err := writeComponent(wr, s.Content); err != nil {
		return err
	}
	return util.WriteBool(wr, s.Overlay)
}

func (s *SystemChat) Decode(_ *proto.PacketContext, rd io.Reader) (err error) {
	s.Content, err = readComponent(rd)
	if err != nil {
		return err
	}
	s.Overlay, err = util.ReadBool(rd)
	return
}

var (
	_ proto.Packet = (*JoinGame)(nil)
	_ proto.Packet = (*ChatMessage)(nil)
	_ proto.Packet = (*SystemChat)(nil)
)
