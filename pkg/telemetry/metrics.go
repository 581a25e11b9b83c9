package telemetry

import (
	"context"
	"errors"

	"github.com/robinbraemer/event"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"go.minekube.com/intercept/pkg/intercept"
	"go.minekube.com/intercept/pkg/packettype"
	"go.minekube.com/intercept/pkg/protocol"
	"go.minekube.com/intercept/pkg/server"
)

const meterName = "go.minekube.com/intercept"

// Metrics records host events as OpenTelemetry instruments.
type Metrics struct {
	intercepted metric.Int64Counter
	cancelled   metric.Int64Counter
	unknown     metric.Int64Counter
	listeners   metric.Int64UpDownCounter
	connections metric.Int64UpDownCounter
	accepted    metric.Int64Counter
	players     metric.Int64UpDownCounter
	joins       metric.Int64Counter
}

// NewMetrics creates the instruments with a meter of mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	var (
		m    Metrics
		errs [8]error
	)
	m.intercepted, errs[0] = meter.Int64Counter("intercept.packets.intercepted",
		metric.WithDescription("Number of packets offered to listeners"))
	m.cancelled, errs[1] = meter.Int64Counter("intercept.packets.cancelled",
		metric.WithDescription("Number of packets dropped by listeners"))
	m.unknown, errs[2] = meter.Int64Counter("intercept.packets.unknown",
		metric.WithDescription("Number of packets without a packet type"))
	m.listeners, errs[3] = meter.Int64UpDownCounter("intercept.listeners",
		metric.WithDescription("Number of registered listeners"))
	m.connections, errs[4] = meter.Int64UpDownCounter("intercept.connections.active",
		metric.WithDescription("Number of intercepted connections"))
	m.accepted, errs[5] = meter.Int64Counter("intercept.connections.total",
		metric.WithDescription("Total number of intercepted connections"))
	m.players, errs[6] = meter.Int64UpDownCounter("intercept.players.current",
		metric.WithDescription("Current number of players in the play phase"))
	m.joins, errs[7] = meter.Int64Counter("intercept.players.joins",
		metric.WithDescription("Total number of player joins"))
	if err := errors.Join(errs[:]...); err != nil {
		return nil, err
	}
	return &m, nil
}

func typeAttrs(t *packettype.PacketType) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("phase", t.Phase().String()),
		attribute.String("direction", t.Direction().String()),
		attribute.String("type", t.Name()),
	)
}

// Instrument subscribes to the events fired on mgr.
// The returned func unsubscribes all of them.
func (m *Metrics) Instrument(mgr event.Manager) (unsubscribe func()) {
	ctx := context.Background()
	unsubs := []func(){
		event.Subscribe(mgr, 0, func(e *intercept.PacketInterceptedEvent) {
			m.intercepted.Add(ctx, 1, typeAttrs(e.Type))
		}),
		event.Subscribe(mgr, 0, func(e *intercept.PacketCancelledEvent) {
			m.cancelled.Add(ctx, 1, typeAttrs(e.Type))
		}),
		event.Subscribe(mgr, 0, func(e *intercept.UnknownPacketEvent) {
			m.unknown.Add(ctx, 1, metric.WithAttributes(
				attribute.String("direction", e.Direction.String())))
		}),
		event.Subscribe(mgr, 0, func(*protocol.ListenerRegisteredEvent) {
			m.listeners.Add(ctx, 1)
		}),
		event.Subscribe(mgr, 0, func(*protocol.ListenerUnregisteredEvent) {
			m.listeners.Add(ctx, -1)
		}),
		event.Subscribe(mgr, 0, func(*protocol.ConnectionAttachedEvent) {
			m.connections.Add(ctx, 1)
			m.accepted.Add(ctx, 1)
		}),
		event.Subscribe(mgr, 0, func(*protocol.ConnectionDetachedEvent) {
			m.connections.Add(ctx, -1)
		}),
		event.Subscribe(mgr, 0, func(*server.PlayerJoinEvent) {
			m.players.Add(ctx, 1)
			m.joins.Add(ctx, 1)
		}),
		event.Subscribe(mgr, 0, func(*server.PlayerQuitEvent) {
			m.players.Add(ctx, -1)
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
