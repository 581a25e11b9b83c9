package packet

import (
	"bytes"
	"errors"
	"io"

	"go.minekube.com/common/minecraft/component"
	"go.minekube.com/common/minecraft/component/codec"

	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/util"
)

// JsonCodec is the text component codec used on the wire.
var JsonCodec = &codec.Json{
	NoDownsampleColor: true,
	NoLegacyHover:     true,
}

// Disconnect is sent in the login, configuration and play phases.
type Disconnect struct {
	Reason component.Component
}

// NewDisconnect returns a Disconnect with a plain text reason.
func NewDisconnect(reason component.Component) *Disconnect {
	if reason == nil {
		reason = &component.Text{}
	}
	return &Disconnect{Reason: reason}
}

func (d *Disconnect) Encode(_ *proto.PacketContext, wr io.Writer) error {
	if d.Reason == nil {
		return errors.New("no reason specified")
	}
	return writeComponent(wr, d.Reason)
}

func (d *Disconnect) Decode(_ *proto.PacketContext, rd io.Reader) (err error) {
	d.Reason, err = readComponent(rd)
	return
}

func writeComponent(wr io.Writer, c component.Component) error {
	buf := new(bytes.Buffer)
	if err := JsonCodec.Marshal(buf, c); err != nil {
		return err
	}
	return util.WriteBytes(wr, buf.Bytes())
}

func readComponent(rd io.Reader) (component.Component, error) {
	b, err := util.ReadBytes(rd)
	if err != nil {
		return nil, err
	}
	return JsonCodec.Unmarshal(b)
}

var _ proto.Packet = (*Disconnect)(nil)
