package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.minekube.com/common/minecraft/color"
	"go.minekube.com/common/minecraft/component"
	"go.minekube.com/common/minecraft/component/codec/legacy"
)

func TestAnsiFromLegacy(t *testing.T) {
	assert.Equal(t, "plain text", AnsiFromLegacy("plain text", '&'))
	assert.Equal(t, "reset", AnsiFromLegacy("&rreset", '&'))

	out := AnsiFromLegacy("&aHello &lWorld", '&')
	assert.NotContains(t, out, "&")
	assert.Contains(t, out, "H")
	assert.Contains(t, out, "W")

	// other prefix chars are kept
	assert.Equal(t, "§aHi", AnsiFromLegacy("§aHi", '&'))
}

func TestAnsi(t *testing.T) {
	assert.Empty(t, Ansi(nil))
	assert.Contains(t, Ansi(&component.Text{Content: "plain"}), "plain")

	out := Ansi(&component.Text{
		Content: "Hello ",
		Extra:   []component.Component{&component.Text{Content: "World", S: component.Style{Color: color.Red}}},
	})
	assert.Contains(t, out, "Hello ")
	assert.Contains(t, out, "World")
	assert.NotContains(t, out, string(legacy.DefaultChar))
}
