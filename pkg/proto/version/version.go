// Package version contains the protocol versions the host server speaks.
package version

import (
	"fmt"
	"strconv"

	"go.minekube.com/intercept/pkg/proto"
)

var (
	Unknown          = &proto.Version{Protocol: -1, Names: s("Unknown")}
	Minecraft_1_19_4 = &proto.Version{Protocol: 762, Names: s("1.19.4")}
	Minecraft_1_20_2 = &proto.Version{Protocol: 764, Names: s("1.20.2")}
	Minecraft_1_20_3 = &proto.Version{Protocol: 765, Names: s("1.20.3", "1.20.4")}
	Minecraft_1_20_5 = &proto.Version{Protocol: 766, Names: s("1.20.5", "1.20.6")}
	Minecraft_1_21   = &proto.Version{Protocol: 767, Names: s("1.21", "1.21.1")}

	// Versions ordered from lowest to highest
	Versions = []*proto.Version{
		Minecraft_1_19_4,
		Minecraft_1_20_2,
		Minecraft_1_20_3,
		Minecraft_1_20_5,
		Minecraft_1_21,
	}

	MinimumVersion = Versions[0]
	MaximumVersion = Versions[len(Versions)-1]
)

func s(s ...string) []string { return s }

// Protocol returns the Version for a protocol number.
func Protocol(protocol proto.Protocol) (*proto.Version, bool) {
	for _, v := range Versions {
		if v.Protocol == protocol {
			return v, true
		}
	}
	return Unknown, false
}

// Parse parses a protocol number ("767") or a release name ("1.21.1").
func Parse(s string) (*proto.Version, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if v, ok := Protocol(proto.Protocol(n)); ok {
			return v, nil
		}
		return nil, fmt.Errorf("unsupported protocol %d", n)
	}
	for _, v := range Versions {
		for _, name := range v.Names {
			if name == s {
				return v, nil
			}
		}
	}
	return nil, fmt.Errorf("unsupported version %q", s)
}

// HasConfigPhase is true for protocols with a configuration phase between login and play.
func HasConfigPhase(protocol proto.Protocol) bool {
	return protocol.GreaterEqual(Minecraft_1_20_2)
}
