package codec

import (
	"bytes"
	"compress/zlib"
	"errors"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/packet"
	"go.minekube.com/intercept/pkg/proto/state"
	"go.minekube.com/intercept/pkg/proto/util"
	"go.minekube.com/intercept/pkg/proto/version"
)

func buildStatusResponseFrame(status string, extra []byte) []byte {
	var payload bytes.Buffer
	_ = util.WriteVarInt(&payload, 0x00)
	_ = util.WriteString(&payload, status)
	payload.Write(extra)

	var frame bytes.Buffer
	_ = util.WriteVarInt(&frame, payload.Len())
	frame.Write(payload.Bytes())
	return frame.Bytes()
}

func TestDecoder_StatusResponse(t *testing.T) {
	status := `{"version":{"name":"1.21","protocol":767}}`
	dec := NewDecoder(bytes.NewReader(buildStatusResponseFrame(status, nil)), proto.ClientBound, logr.Discard())
	dec.SetState(state.Status)
	dec.SetProtocol(version.Minecraft_1_21.Protocol)

	ctx, err := dec.Decode()
	require.NoError(t, err)
	res, ok := ctx.Packet.(*packet.StatusResponse)
	require.True(t, ok, "expected *packet.StatusResponse, got %T", ctx.Packet)
	assert.Equal(t, status, res.Status)
}

func TestDecoder_LeftBytes(t *testing.T) {
	dec := NewDecoder(bytes.NewReader(buildStatusResponseFrame("{}", []byte{1, 2, 3})), proto.ClientBound, logr.Discard())
	dec.SetState(state.Status)

	ctx, err := dec.Decode()
	require.True(t, errors.Is(err, proto.ErrDecoderLeftBytes))
	require.NotNil(t, ctx)
	assert.IsType(t, &packet.StatusResponse{}, ctx.Packet)
}

func TestDecoder_UnknownID(t *testing.T) {
	frame := []byte{0x02, 0x7F, 0x00} // length 2, id 0x7F, one data byte
	dec := NewDecoder(bytes.NewReader(frame), proto.ServerBound, logr.Discard())

	ctx, err := dec.Decode()
	require.NoError(t, err)
	assert.False(t, ctx.KnownPacket())
	assert.Equal(t, proto.PacketID(0x7F), ctx.PacketID)
}

func TestEncoderDecoder_compression(t *testing.T) {
	tests := []struct {
		name    string
		message string
	}{
		{name: "below threshold", message: "hi"},
		{name: "above threshold", message: strings.Repeat("intercept", 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			enc := NewEncoder(buf, proto.ClientBound, logr.Discard())
			enc.SetState(state.Config)
			enc.SetProtocol(version.Minecraft_1_20_5.Protocol)
			require.NoError(t, enc.SetCompression(256, zlib.DefaultCompression))

			want := &packet.PluginMessage{Channel: packet.BrandChannel, Data: []byte(tt.message)}
			_, err := enc.WritePacket(want)
			require.NoError(t, err)

			dec := NewDecoder(buf, proto.ClientBound, logr.Discard())
			dec.SetState(state.Config)
			dec.SetProtocol(version.Minecraft_1_20_5.Protocol)
			dec.SetCompressionThreshold(256)

			ctx, err := dec.Decode()
			require.NoError(t, err)
			assert.Equal(t, proto.PacketID(0x01), ctx.PacketID)
			assert.Equal(t, want, ctx.Packet)
		})
	}
}

func TestEncoder_bundleDelimiter(t *testing.T) {
	buf := new(bytes.Buffer)
	enc := NewEncoder(buf, proto.ClientBound, logr.Discard())
	enc.SetState(state.Play)
	enc.SetProtocol(version.Minecraft_1_21.Protocol)

	_, err := enc.WritePacket(&packet.BundleDelimiter{})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00}, buf.Bytes())

	_, err = enc.WritePacket(&packet.Bundle{})
	require.Error(t, err)
}

func TestEncoder_unregistered(t *testing.T) {
	enc := NewEncoder(new(bytes.Buffer), proto.ClientBound, logr.Discard())
	enc.SetState(state.Login)
	_, err := enc.WritePacket(&packet.JoinGame{})
	require.Error(t, err)
}
