package netmc

import (
	"context"
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"go.minekube.com/intercept/pkg/proto"
)

// TraceStageName is the name of the tracing stage.
const TraceStageName = "trace"

// traceStage records a span for every packet passing the head of the pipeline.
type traceStage struct {
	log    logr.Logger
	tracer trace.Tracer
}

func newTraceStage(log logr.Logger) *traceStage {
	return &traceStage{
		log:    log,
		tracer: otel.Tracer("netmc"),
	}
}

func (t *traceStage) Inbound(p proto.Packet, forward Forward) {
	t.span(p, proto.Inbound, forward)
}

func (t *traceStage) Outbound(p proto.Packet, forward Forward) {
	t.span(p, proto.Outbound, forward)
}

func (t *traceStage) span(p proto.Packet, direction proto.Direction, forward Forward) {
	attrs := []attribute.KeyValue{
		attribute.String("packet.direction", direction.String()),
		attribute.String("packet.type", fmt.Sprintf("%T", p)),
	}
	// Add detailed packet dump in debug mode
	if t.log.V(1).Enabled() {
		attrs = append(attrs, attribute.String("packet.dump", spew.Sdump(p)))
	}
	_, span := t.tracer.Start(context.Background(), "HandlePacket", trace.WithAttributes(attrs...))
	defer span.End()
	forward(p)
}

var _ Stage = (*traceStage)(nil)
