package netmc

import (
	"github.com/go-logr/logr"

	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/packet"
)

// BundleStageName is the name of the stage that splits and assembles bundles.
const BundleStageName = "bundle"

// maxBundlePackets is the vanilla client limit.
const maxBundlePackets = 4096

// bundleStage sits at the tail of the pipeline. Outbound bundles are split
// into delimiter, packets, delimiter so that every stage closer to the
// network sees each packet on its own. Inbound delimiters are assembled
// back into one Bundle for the session handler.
type bundleStage struct {
	log logr.Logger

	collecting bool
	packets    []proto.Packet
}

func (s *bundleStage) Outbound(p proto.Packet, forward Forward) {
	b, ok := p.(*packet.Bundle)
	if !ok {
		forward(p)
		return
	}
	forward(&packet.BundleDelimiter{})
	for _, sub := range b.Packets {
		forward(sub)
	}
	forward(&packet.BundleDelimiter{})
}

func (s *bundleStage) Inbound(p proto.Packet, forward Forward) {
	switch p.(type) {
	case *packet.Bundle, *packet.BundleDelimiter:
		if !s.collecting {
			s.collecting = true
			s.packets = nil
			return
		}
		s.collecting = false
		packets := s.packets
		s.packets = nil
		forward(&packet.Bundle{Packets: packets})
		return
	}
	if !s.collecting {
		forward(p)
		return
	}
	s.packets = append(s.packets, p)
	if len(s.packets) > maxBundlePackets {
		s.log.V(1).Info("bundle too large, forwarding packets one by one", "packets", len(s.packets))
		s.collecting = false
		packets := s.packets
		s.packets = nil
		for _, sub := range packets {
			forward(sub)
		}
	}
}

var _ Stage = (*bundleStage)(nil)
