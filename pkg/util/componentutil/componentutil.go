package componentutil

import (
	"errors"
	"strings"

	"go.minekube.com/common/minecraft/component"
	"go.minekube.com/common/minecraft/component/codec/legacy"

	"go.minekube.com/intercept/pkg/proto/packet"
)

// ParseTextComponent parses s as JSON text component if it starts with '{'
// and as legacy text with '&' color codes otherwise.
func ParseTextComponent(s string) (t *component.Text, err error) {
	var c component.Component
	if strings.HasPrefix(s, "{") {
		c, err = packet.JsonCodec.Unmarshal([]byte(s))
	} else {
		c, err = (&legacy.Legacy{Char: legacy.AmpersandChar}).Unmarshal([]byte(s))
	}
	if err != nil {
		return nil, err
	}
	t, ok := c.(*component.Text)
	if !ok {
		return nil, errors.New("invalid text component")
	}
	return t, nil
}
