package netmc

import (
	"errors"
	"fmt"

	"go.minekube.com/intercept/pkg/proto"
)

// Forward passes a packet on to the next stage.
// A stage that does not call it drops the packet.
type Forward = func(proto.Packet)

// Stage is a step of a connection's Pipeline.
//
// Stages run on the connection's event loop, never concurrently with each
// other or with themselves for the same connection.
type Stage interface {
	// Inbound handles a packet read from the peer.
	Inbound(p proto.Packet, forward Forward)
	// Outbound handles a packet written to the peer.
	Outbound(p proto.Packet, forward Forward)
}

// ErrDuplicateStage is returned when adding a stage with a name already in use.
var ErrDuplicateStage = errors.New("duplicate pipeline stage")

type namedStage struct {
	name  string
	stage Stage
}

// Pipeline is the ordered list of stages between the codec and the session
// handler of a connection. The head is next to the network: inbound packets
// traverse stages head to tail, outbound packets tail to head.
//
// A Pipeline must only be used on its connection's event loop.
type Pipeline struct {
	stages []namedStage // replaced on change, never modified in place

	inbound  func(proto.Packet) // after the tail
	outbound func(proto.Packet) // after the head
}

func newPipeline(inbound, outbound func(proto.Packet)) *Pipeline {
	return &Pipeline{inbound: inbound, outbound: outbound}
}

// AddFirst adds a stage at the head.
func (p *Pipeline) AddFirst(name string, s Stage) error {
	return p.insert(0, name, s)
}

// AddLast adds a stage at the tail.
func (p *Pipeline) AddLast(name string, s Stage) error {
	return p.insert(len(p.stages), name, s)
}

// AddBefore adds a stage in front of the stage named base, closer to the head.
func (p *Pipeline) AddBefore(base, name string, s Stage) error {
	i := p.index(base)
	if i < 0 {
		return fmt.Errorf("no pipeline stage %q", base)
	}
	return p.insert(i, name, s)
}

func (p *Pipeline) insert(i int, name string, s Stage) error {
	if p.index(name) >= 0 {
		return fmt.Errorf("%w %q", ErrDuplicateStage, name)
	}
	stages := make([]namedStage, 0, len(p.stages)+1)
	stages = append(stages, p.stages[:i]...)
	stages = append(stages, namedStage{name: name, stage: s})
	stages = append(stages, p.stages[i:]...)
	p.stages = stages
	return nil
}

// Remove removes the stage named name and reports whether it existed.
func (p *Pipeline) Remove(name string) bool {
	i := p.index(name)
	if i < 0 {
		return false
	}
	stages := make([]namedStage, 0, len(p.stages)-1)
	stages = append(stages, p.stages[:i]...)
	p.stages = append(stages, p.stages[i+1:]...)
	return true
}

// Has reports whether a stage named name is installed.
func (p *Pipeline) Has(name string) bool { return p.index(name) >= 0 }

// Get returns the stage named name.
func (p *Pipeline) Get(name string) (Stage, bool) {
	if i := p.index(name); i >= 0 {
		return p.stages[i].stage, true
	}
	return nil, false
}

// Names returns the stage names from head to tail.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.name
	}
	return names
}

func (p *Pipeline) index(name string) int {
	for i, s := range p.stages {
		if s.name == name {
			return i
		}
	}
	return -1
}

// FireInbound runs p through the stages as if it was read from the peer.
func (p *Pipeline) FireInbound(pkt proto.Packet) {
	stages := p.stages
	var next func(i int) Forward
	next = func(i int) Forward {
		return func(pkt proto.Packet) {
			if i == len(stages) {
				p.inbound(pkt)
				return
			}
			stages[i].stage.Inbound(pkt, next(i+1))
		}
	}
	next(0)(pkt)
}

// FireOutbound runs p through the stages towards the peer.
func (p *Pipeline) FireOutbound(pkt proto.Packet) {
	stages := p.stages
	var next func(i int) Forward
	next = func(i int) Forward {
		return func(pkt proto.Packet) {
			if i < 0 {
				p.outbound(pkt)
				return
			}
			stages[i].stage.Outbound(pkt, next(i-1))
		}
	}
	next(len(stages) - 1)(pkt)
}

// StageFuncs adapts two functions to a Stage. A nil function forwards unchanged.
type StageFuncs struct {
	InboundFunc  func(p proto.Packet, forward Forward)
	OutboundFunc func(p proto.Packet, forward Forward)
}

func (s *StageFuncs) Inbound(p proto.Packet, forward Forward) {
	if s.InboundFunc == nil {
		forward(p)
		return
	}
	s.InboundFunc(p, forward)
}

func (s *StageFuncs) Outbound(p proto.Packet, forward Forward) {
	if s.OutboundFunc == nil {
		forward(p)
		return
	}
	s.OutboundFunc(p, forward)
}

var _ Stage = (*StageFuncs)(nil)
