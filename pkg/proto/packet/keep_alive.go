package packet

import (
	"io"

	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/util"
)

// KeepAlive is used in the configuration and play phases in both directions.
type KeepAlive struct {
	RandomID int64
}

func (k *KeepAlive) Encode(_ *proto.PacketContext, wr io.Writer) error {
	return util.WriteInt64(wr, k.RandomID)
}

func (k *KeepAlive) Decode(_ *proto.PacketContext, rd io.Reader) (err error) {
	k.RandomID, err = util.ReadInt64(rd)
	return
}

var _ proto.Packet = (*KeepAlive)(nil)
