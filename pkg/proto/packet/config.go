package packet

import (
	"io"

	"go.minekube.com/intercept/pkg/proto"
)

// FinishedUpdate is the finish configuration packet
// and its acknowledgement in the configuration phase.
type FinishedUpdate struct{}

func (*FinishedUpdate) Encode(*proto.PacketContext, io.Writer) error { return nil }
func (*FinishedUpdate) Decode(*proto.PacketContext, io.Reader) error { return nil }

// StartUpdate moves a playing connection back into the configuration phase.
// The client answers with the same packet as acknowledgement.
type StartUpdate struct{}

func (*StartUpdate) Encode(*proto.PacketContext, io.Writer) error { return nil }
func (*StartUpdate) Decode(*proto.PacketContext, io.Reader) error { return nil }

var (
	_ proto.Packet = (*FinishedUpdate)(nil)
	_ proto.Packet = (*StartUpdate)(nil)
)
