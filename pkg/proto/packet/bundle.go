package packet

import (
	"errors"
	"io"

	"go.minekube.com/intercept/pkg/proto"
)

// Bundle groups play packets the client must apply in the same tick.
// It is registered under the bundle delimiter id and is written as
// delimiter, packets, delimiter.
type Bundle struct {
	Packets []proto.Packet
}

var errBundleEncode = errors.New("bundle must be split into delimiters before encoding")

func (*Bundle) Encode(*proto.PacketContext, io.Writer) error { return errBundleEncode }

// Decode is a no-op: a received delimiter frame decodes into an empty bundle
// that the connection's bundle stage assembles.
func (*Bundle) Decode(*proto.PacketContext, io.Reader) error { return nil }

// BundleDelimiter marks the start and end of a bundle on the wire.
// It shares the id of Bundle.
type BundleDelimiter struct{}

func (*BundleDelimiter) Encode(*proto.PacketContext, io.Writer) error { return nil }
func (*BundleDelimiter) Decode(*proto.PacketContext, io.Reader) error { return nil }

var (
	_ proto.Packet = (*Bundle)(nil)
	_ proto.Packet = (*BundleDelimiter)(nil)
)
