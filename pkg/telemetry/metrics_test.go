package telemetry

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/robinbraemer/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"go.minekube.com/intercept/pkg/config"
	"go.minekube.com/intercept/pkg/intercept"
	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/state/states"
	"go.minekube.com/intercept/pkg/proto/version"
	"go.minekube.com/intercept/pkg/protocol"
	"go.minekube.com/intercept/pkg/server"
)

// sums collects the int64 sums of reader by instrument name.
func sums(t *testing.T, reader sdkmetric.Reader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				out[m.Name] += dp.Value
			}
		}
	}
	return out
}

func TestInstrument(t *testing.T) {
	ctx := logr.NewContext(context.Background(), testr.New(t))
	rt, err := protocol.New(ctx, protocol.Options{Protocol: version.Minecraft_1_20_5.Protocol})
	require.NoError(t, err)
	keepAlive := rt.MustLookup(states.PlayState, proto.Outbound, "KeepAlive")

	reader := sdkmetric.NewManualReader()
	m, err := NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	mgr := event.New()
	unsubscribe := m.Instrument(mgr)

	mgr.Fire(&intercept.PacketInterceptedEvent{Type: keepAlive})
	mgr.Fire(&intercept.PacketInterceptedEvent{Type: keepAlive})
	mgr.Fire(&intercept.PacketCancelledEvent{Type: keepAlive})
	mgr.Fire(&intercept.UnknownPacketEvent{Direction: proto.Inbound})
	mgr.Fire(&protocol.ListenerRegisteredEvent{})
	mgr.Fire(&protocol.ListenerRegisteredEvent{})
	mgr.Fire(&protocol.ListenerUnregisteredEvent{})
	mgr.Fire(&protocol.ConnectionAttachedEvent{})
	mgr.Fire(&protocol.ConnectionAttachedEvent{})
	mgr.Fire(&protocol.ConnectionDetachedEvent{})
	mgr.Fire(&server.PlayerJoinEvent{})
	mgr.Fire(&server.PlayerQuitEvent{})

	assert.Equal(t, map[string]int64{
		"intercept.packets.intercepted": 2,
		"intercept.packets.cancelled":   1,
		"intercept.packets.unknown":     1,
		"intercept.listeners":           1,
		"intercept.connections.active":  1,
		"intercept.connections.total":   2,
		"intercept.players.current":     0,
		"intercept.players.joins":       1,
	}, sums(t, reader))

	unsubscribe()
	mgr.Fire(&server.PlayerJoinEvent{})
	assert.Equal(t, int64(1), sums(t, reader)["intercept.players.joins"])
}

func TestInit_Disabled(t *testing.T) {
	m, cleanup, err := Init(context.Background(), &config.Config{})
	require.NoError(t, err)
	assert.Nil(t, m)
	cleanup()
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().String()
}

func TestInit_ServesMetrics(t *testing.T) {
	cfg := &config.Config{}
	cfg.Telemetry.Metrics.Enabled = true
	cfg.Telemetry.Metrics.Bind = freeAddr(t)
	cfg.Telemetry.Metrics.Path = "/metrics"

	ctx := logr.NewContext(context.Background(), testr.New(t))
	m, cleanup, err := Init(ctx, cfg)
	require.NoError(t, err)
	defer cleanup()
	require.NotNil(t, m)

	mgr := event.New()
	defer m.Instrument(mgr)()
	mgr.Fire(&protocol.ConnectionAttachedEvent{})

	res, err := http.Get("http://" + cfg.Telemetry.Metrics.Bind + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), "intercept_connections_total")
}

func TestInit_Nil(t *testing.T) {
	_, _, err := Init(context.Background(), nil)
	require.Error(t, err)
}
