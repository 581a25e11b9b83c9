package packet

import (
	"io"

	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/util"
)

// PluginMessage is a custom payload on a named channel.
type PluginMessage struct {
	Channel string
	Data    []byte
}

func (p *PluginMessage) Encode(_ *proto.PacketContext, wr io.Writer) error {
	if err := util.WriteString(wr, p.Channel); err != nil {
		return err
	}
	_, err := wr.Write(p.Data)
	return err
}

func (p *PluginMessage) Decode(_ *proto.PacketContext, rd io.Reader) (err error) {
	p.Channel, err = util.ReadString(rd)
	if err != nil {
		return err
	}
	p.Data, err = io.ReadAll(rd)
	return
}

// BrandChannel carries the client/server brand.
const BrandChannel = "minecraft:brand"

var _ proto.Packet = (*PluginMessage)(nil)
