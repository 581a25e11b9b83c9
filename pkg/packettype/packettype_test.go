package packettype

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/packet"
	"go.minekube.com/intercept/pkg/proto/state/states"
	"go.minekube.com/intercept/pkg/proto/version"
)

type staticSource Tables

func (s *staticSource) Tables(context.Context) (*Tables, error) { return (*Tables)(s), nil }

type failingSource struct{ err error }

func (s failingSource) Tables(context.Context) (*Tables, error) { return nil, s.err }

func classOf(p proto.Packet) reflect.Type { return proto.TypeOf(p) }

func testCtx(t *testing.T) context.Context {
	return logr.NewContext(context.Background(), testr.New(t))
}

func sampleTables() *staticSource {
	return &staticSource{
		Protocol: version.Minecraft_1_20_5.Protocol,
		Entries: []Entry{
			{Phase: handshake, Direction: in, ID: 0x00, Class: classOf(&packet.Handshake{})},
			{Phase: status, Direction: in, ID: 0x01, Class: classOf(&packet.StatusPing{})},
			{Phase: status, Direction: out, ID: 0x01, Class: classOf(&packet.StatusPing{})},
			{Phase: config, Direction: out, ID: 0x04, Class: classOf(&packet.KeepAlive{})},
			{Phase: play, Direction: out, ID: 0x26, Class: classOf(&packet.KeepAlive{})},
			{Phase: play, Direction: out, ID: 0x00, Class: classOf(&packet.Bundle{})},
		},
		BundleDelimiter: classOf(&packet.BundleDelimiter{}),
	}
}

func TestNewCatalogue_AllVersions(t *testing.T) {
	for _, v := range version.Versions {
		t.Run(v.String(), func(t *testing.T) {
			c, err := NewCatalogue(v.Protocol)
			require.NoError(t, err)
			assert.Equal(t, v, c.Version())

			for _, s := range states.States {
				for _, d := range proto.Directions {
					seen := map[proto.PacketID]bool{}
					for _, pt := range c.Phase(s).Types(d) {
						assert.False(t, seen[pt.ID()], "duplicate id %s", pt)
						seen[pt.ID()] = true
						assert.Equal(t, s, pt.Phase())
						assert.Equal(t, d, pt.Direction())
						assert.False(t, pt.Dynamic())
					}
				}
			}
		})
	}
}

func TestNewCatalogue_ConfigPhaseOnlyFrom1202(t *testing.T) {
	legacy, err := NewCatalogue(version.Minecraft_1_19_4.Protocol)
	require.NoError(t, err)
	assert.Empty(t, legacy.Phase(config).Types(in))
	assert.Empty(t, legacy.Phase(config).Types(out))

	modern, err := NewCatalogue(version.Minecraft_1_20_2.Protocol)
	require.NoError(t, err)
	assert.NotEmpty(t, modern.Phase(config).Types(in))
}

func TestNewCatalogue_VersionedIDs(t *testing.T) {
	tests := []struct {
		v  *proto.Version
		id proto.PacketID
	}{
		{version.Minecraft_1_19_4, 0x23},
		{version.Minecraft_1_20_2, 0x24},
		{version.Minecraft_1_20_3, 0x24},
		{version.Minecraft_1_20_5, 0x26},
		{version.Minecraft_1_21, 0x26},
	}
	for _, tt := range tests {
		c, err := NewCatalogue(tt.v.Protocol)
		require.NoError(t, err)
		pt, ok := c.ByName(play, out, "KeepAlive")
		require.True(t, ok, tt.v.String())
		assert.Equal(t, tt.id, pt.ID(), tt.v.String())

		byID, ok := c.Lookup(play, out, tt.id)
		require.True(t, ok)
		assert.Same(t, pt, byID)
	}
}

func TestNewCatalogue_UnknownProtocol(t *testing.T) {
	_, err := NewCatalogue(1)
	require.Error(t, err)
}

func TestNewCatalogue_FreshInstances(t *testing.T) {
	a, err := NewCatalogue(version.Minecraft_1_20_5.Protocol)
	require.NoError(t, err)
	b, err := NewCatalogue(version.Minecraft_1_20_5.Protocol)
	require.NoError(t, err)

	ta, _ := a.ByName(handshake, in, "Handshake")
	tb, _ := b.ByName(handshake, in, "Handshake")
	assert.NotSame(t, ta, tb)
	assert.Equal(t, ta.String(), tb.String())
}

func TestBootstrap_Bijection(t *testing.T) {
	c, err := NewCatalogue(version.Minecraft_1_20_5.Protocol)
	require.NoError(t, err)
	r, err := Bootstrap(testCtx(t), sampleTables(), c)
	require.NoError(t, err)

	require.Len(t, r.Types(), len(sampleTables().Entries))
	for _, pt := range r.Types() {
		class, ok := r.ClassOf(pt)
		require.True(t, ok, pt.String())
		got, ok := r.TypeOf(pt.Phase(), pt.Direction(), class)
		require.True(t, ok)
		assert.Same(t, pt, got)

		bound, ok := pt.Class()
		require.True(t, ok)
		assert.Equal(t, class, bound)
	}
	for _, e := range sampleTables().Entries {
		pt, ok := r.TypeOf(e.Phase, e.Direction, e.Class)
		require.True(t, ok)
		class, _ := r.ClassOf(pt)
		assert.Equal(t, e.Class, class)
	}
}

func TestBootstrap_SameClassInSeveralPhases(t *testing.T) {
	c, err := NewCatalogue(version.Minecraft_1_20_5.Protocol)
	require.NoError(t, err)
	r, err := Bootstrap(testCtx(t), sampleTables(), c)
	require.NoError(t, err)

	ping := classOf(&packet.StatusPing{})
	req, ok := r.TypeOf(status, in, ping)
	require.True(t, ok)
	assert.Equal(t, "PingRequest", req.Name())
	pong, ok := r.TypeOf(status, out, ping)
	require.True(t, ok)
	assert.Equal(t, "PongResponse", pong.Name())

	ka, ok := r.TypeOfPacket(config, out, &packet.KeepAlive{})
	require.True(t, ok)
	assert.Equal(t, config, ka.Phase())
	ka, ok = r.TypeOfPacket(play, out, &packet.KeepAlive{})
	require.True(t, ok)
	assert.Equal(t, play, ka.Phase())

	_, ok = r.TypeOfPacket(play, in, &packet.KeepAlive{})
	assert.False(t, ok)
	_, ok = r.TypeOfPacket(play, in, nil)
	assert.False(t, ok)
}

func TestBootstrap_BundleDelimiter(t *testing.T) {
	c, err := NewCatalogue(version.Minecraft_1_20_5.Protocol)
	require.NoError(t, err)
	r, err := Bootstrap(testCtx(t), sampleTables(), c)
	require.NoError(t, err)

	want, ok := r.Lookup(play, out, BundleDelimiterName)
	require.True(t, ok)

	got, ok := r.TypeOfPacket(play, out, &packet.BundleDelimiter{})
	require.True(t, ok)
	assert.Same(t, want, got)

	// only sent delimiters in play are special
	for _, s := range states.States {
		_, ok := r.TypeOfPacket(s, in, &packet.BundleDelimiter{})
		assert.False(t, ok, s.String())
		if s != play {
			_, ok = r.TypeOfPacket(s, out, &packet.BundleDelimiter{})
			assert.False(t, ok, s.String())
		}
	}
	bundle, ok := r.TypeOfPacket(play, out, &packet.Bundle{})
	require.True(t, ok)
	assert.Same(t, want, bundle)
	assert.Equal(t, classOf(&packet.BundleDelimiter{}), r.BundleDelimiter())
}

func TestBootstrap_DelimiterWithoutBundle(t *testing.T) {
	c, err := NewCatalogue(version.Minecraft_1_20_5.Protocol)
	require.NoError(t, err)
	src := &staticSource{
		Protocol:        version.Minecraft_1_20_5.Protocol,
		BundleDelimiter: classOf(&packet.BundleDelimiter{}),
	}
	_, err = Bootstrap(testCtx(t), src, c)
	require.ErrorIs(t, err, ErrBootstrap)
}

func TestBootstrap_DynamicType(t *testing.T) {
	c, err := NewCatalogue(version.Minecraft_1_20_5.Protocol)
	require.NoError(t, err)
	src := &staticSource{
		Protocol: version.Minecraft_1_20_5.Protocol,
		Entries: []Entry{
			{Phase: play, Direction: in, ID: 0x7E, Class: classOf(&packet.KeepAlive{})},
		},
	}
	r, err := Bootstrap(testCtx(t), src, c)
	require.NoError(t, err)

	pt, ok := r.TypeOfPacket(play, in, &packet.KeepAlive{})
	require.True(t, ok)
	assert.True(t, pt.Dynamic())
	assert.Equal(t, proto.PacketID(0x7E), pt.ID())

	// KeepAlive is already a catalogue name in play/in
	assert.Equal(t, "KeepAlive#0x7E", pt.Name())
	got, ok := c.Lookup(play, in, 0x7E)
	require.True(t, ok)
	assert.Same(t, pt, got)
}

func TestBootstrap_Fatal(t *testing.T) {
	keepAlive := classOf(&packet.KeepAlive{})
	tests := []struct {
		name string
		src  TableSource
	}{
		{
			name: "source error",
			src:  failingSource{err: errors.New("boom")},
		},
		{
			name: "protocol mismatch",
			src:  &staticSource{Protocol: version.Minecraft_1_19_4.Protocol},
		},
		{
			name: "nil class",
			src: &staticSource{
				Protocol: version.Minecraft_1_20_5.Protocol,
				Entries:  []Entry{{Phase: play, Direction: out, ID: 0x26}},
			},
		},
		{
			name: "not a packet",
			src: &staticSource{
				Protocol: version.Minecraft_1_20_5.Protocol,
				Entries:  []Entry{{Phase: play, Direction: out, ID: 0x26, Class: reflect.TypeOf(struct{}{})}},
			},
		},
		{
			name: "class registered twice",
			src: &staticSource{
				Protocol: version.Minecraft_1_20_5.Protocol,
				Entries: []Entry{
					{Phase: play, Direction: out, ID: 0x26, Class: keepAlive},
					{Phase: play, Direction: out, ID: 0x27, Class: keepAlive},
				},
			},
		},
		{
			name: "id registered twice",
			src: &staticSource{
				Protocol: version.Minecraft_1_20_5.Protocol,
				Entries: []Entry{
					{Phase: play, Direction: out, ID: 0x26, Class: keepAlive},
					{Phase: play, Direction: out, ID: 0x26, Class: classOf(&packet.JoinGame{})},
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCatalogue(version.Minecraft_1_20_5.Protocol)
			require.NoError(t, err)
			r, err := Bootstrap(testCtx(t), tt.src, c)
			require.ErrorIs(t, err, ErrBootstrap)
			assert.Nil(t, r)
		})
	}
}

func TestBootstrap_ConflictingBind(t *testing.T) {
	c, err := NewCatalogue(version.Minecraft_1_20_5.Protocol)
	require.NoError(t, err)
	first := &staticSource{
		Protocol: version.Minecraft_1_20_5.Protocol,
		Entries:  []Entry{{Phase: play, Direction: out, ID: 0x26, Class: classOf(&packet.KeepAlive{})}},
	}
	_, err = Bootstrap(testCtx(t), first, c)
	require.NoError(t, err)

	// rebinding the same class is fine
	_, err = Bootstrap(testCtx(t), first, c)
	require.NoError(t, err)

	second := &staticSource{
		Protocol: version.Minecraft_1_20_5.Protocol,
		Entries:  []Entry{{Phase: play, Direction: out, ID: 0x26, Class: classOf(&packet.JoinGame{})}},
	}
	_, err = Bootstrap(testCtx(t), second, c)
	require.ErrorIs(t, err, ErrBootstrap)
}

func TestRegistry_ClassOfUnimplemented(t *testing.T) {
	c, err := NewCatalogue(version.Minecraft_1_20_5.Protocol)
	require.NoError(t, err)
	r, err := Bootstrap(testCtx(t), sampleTables(), c)
	require.NoError(t, err)

	boss, ok := r.Lookup(play, out, "BossBar")
	require.True(t, ok)
	_, ok = r.ClassOf(boss)
	assert.False(t, ok)
	_, ok = boss.Class()
	assert.False(t, ok)
}

func TestCatalogue_Suggest(t *testing.T) {
	c, err := NewCatalogue(version.Minecraft_1_20_5.Protocol)
	require.NoError(t, err)

	got := c.Suggest("keepaliv", 3)
	require.NotEmpty(t, got)
	assert.Equal(t, "KeepAlive", got[0])
	assert.LessOrEqual(t, len(got), 3)

	assert.Empty(t, c.Suggest("zzzzzzzzzzzzzzzzzzzzzzzz", 3))
}

func TestPacketType_String(t *testing.T) {
	c, err := NewCatalogue(version.Minecraft_1_20_5.Protocol)
	require.NoError(t, err)
	pt, ok := c.ByName(status, out, "PongResponse")
	require.True(t, ok)
	assert.Equal(t, "Status/Outbound/0x01/PongResponse", pt.String())

	var nilType *PacketType
	assert.Equal(t, "<nil>", nilType.String())
}
