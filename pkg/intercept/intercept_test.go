package intercept

import (
	"context"
	"net"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/robinbraemer/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.minekube.com/common/minecraft/component"

	"go.minekube.com/intercept/pkg/host"
	"go.minekube.com/intercept/pkg/netmc"
	"go.minekube.com/intercept/pkg/packettype"
	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/packet"
	"go.minekube.com/intercept/pkg/proto/state/states"
	"go.minekube.com/intercept/pkg/proto/version"
	"go.minekube.com/intercept/pkg/util/errs"
)

var testProtocol = version.Minecraft_1_20_5.Protocol

type testTypes struct {
	registry   *packettype.Registry
	keepAliveIn,
	chatIn,
	keepAliveOut,
	systemChatOut,
	joinGameOut *packettype.PacketType
}

func entry(s states.State, d proto.Direction, id proto.PacketID, p proto.Packet) packettype.Entry {
	return packettype.Entry{Phase: s, Direction: d, ID: id, Class: proto.TypeOf(p)}
}

func newTestTypes(t *testing.T) *testTypes {
	t.Helper()
	src := host.Static(testProtocol,
		entry(states.PlayState, proto.Inbound, 0x18, &packet.KeepAlive{}),
		entry(states.PlayState, proto.Inbound, 0x06, &packet.ChatMessage{}),
		entry(states.PlayState, proto.Outbound, 0x26, &packet.KeepAlive{}),
		entry(states.PlayState, proto.Outbound, 0x6C, &packet.SystemChat{}),
		entry(states.PlayState, proto.Outbound, 0x2B, &packet.JoinGame{}),
	)
	cat, err := packettype.NewCatalogue(testProtocol)
	require.NoError(t, err)
	reg, err := packettype.Bootstrap(context.Background(), src, cat)
	require.NoError(t, err)

	lookup := func(d proto.Direction, name string) *packettype.PacketType {
		pt, ok := reg.Lookup(states.PlayState, d, name)
		require.True(t, ok, name)
		return pt
	}
	return &testTypes{
		registry:      reg,
		keepAliveIn:   lookup(proto.Inbound, "KeepAlive"),
		chatIn:        lookup(proto.Inbound, "ChatMessage"),
		keepAliveOut:  lookup(proto.Outbound, "KeepAlive"),
		systemChatOut: lookup(proto.Outbound, "SystemChat"),
		joinGameOut:   lookup(proto.Outbound, "JoinGame"),
	}
}

type fakeOwner struct {
	id    string
	phase states.State

	mu          sync.Mutex
	disconnects []component.Component
	// onDisconnect, if set, is called by Disconnect.
	onDisconnect func(reason component.Component)
}

func (o *fakeOwner) ID() string               { return o.id }
func (o *fakeOwner) Protocol() proto.Protocol { return testProtocol }
func (o *fakeOwner) Phase() states.State      { return o.phase }
func (o *fakeOwner) RemoteAddr() net.Addr     { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1234} }
func (o *fakeOwner) Disconnect(reason component.Component) {
	o.mu.Lock()
	o.disconnects = append(o.disconnects, reason)
	o.mu.Unlock()
	if o.onDisconnect != nil {
		o.onDisconnect(reason)
	}
}

func (o *fakeOwner) disconnectCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.disconnects)
}

// inlineScheduler runs tasks immediately and records the connection ids.
type inlineScheduler struct {
	mu  sync.Mutex
	ids []string
}

func (s *inlineScheduler) RunOnConnection(connID string, task func()) error {
	s.mu.Lock()
	s.ids = append(s.ids, connID)
	s.mu.Unlock()
	task()
	return nil
}

// recordSink counts error log entries.
type recordSink struct {
	logr.LogSink
	mu     *sync.Mutex
	errors *[]string
}

func newRecordSink(t *testing.T) *recordSink {
	return &recordSink{LogSink: testr.New(t).GetSink(), mu: &sync.Mutex{}, errors: new([]string)}
}

func (s *recordSink) Error(err error, msg string, kv ...any) {
	s.mu.Lock()
	*s.errors = append(*s.errors, msg)
	s.mu.Unlock()
	s.LogSink.Error(err, msg, kv...)
}

func (s *recordSink) WithValues(kv ...any) logr.LogSink {
	return &recordSink{LogSink: s.LogSink.WithValues(kv...), mu: s.mu, errors: s.errors}
}

func (s *recordSink) WithName(name string) logr.LogSink {
	return &recordSink{LogSink: s.LogSink.WithName(name), mu: s.mu, errors: s.errors}
}

func (s *recordSink) errorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(*s.errors)
}

type forwarded struct{ packets []proto.Packet }

func (f *forwarded) forward(p proto.Packet) { f.packets = append(f.packets, p) }

func newTestHandler(t *testing.T, tt *testTypes, dm *DispatchMap, owner Owner) (*Handler, *inlineScheduler, *recordSink) {
	sched := &inlineScheduler{}
	sink := newRecordSink(t)
	h := NewHandler(owner, HandlerOptions{
		Registry:  tt.registry,
		Listeners: dm,
		Scheduler: sched,
		Log:       logr.New(sink),
	})
	return h, sched, sink
}

func TestContainer_SetPacket(t *testing.T) {
	tt := newTestTypes(t)
	original := &packet.KeepAlive{RandomID: 1}
	c := NewContainer(tt.keepAliveIn, original)
	assert.Same(t, original, c.Packet())
	assert.Same(t, tt.keepAliveIn, c.Type())

	err := c.SetPacket(&packet.ChatMessage{Message: "hi"})
	require.ErrorIs(t, err, errs.ErrTypeMismatch)
	assert.Same(t, original, c.Packet())

	require.ErrorIs(t, c.SetPacket(nil), errs.ErrTypeMismatch)
	assert.Same(t, original, c.Packet())

	replacement := &packet.KeepAlive{RandomID: 2}
	require.NoError(t, c.SetPacket(replacement))
	assert.Same(t, replacement, c.Packet())
	assert.Same(t, tt.keepAliveIn, c.Type())
}

func TestEvent(t *testing.T) {
	tt := newTestTypes(t)
	owner := &fakeOwner{id: "a", phase: states.PlayState}
	e := NewEvent(NewContainer(tt.keepAliveIn, &packet.KeepAlive{}), owner, proto.Inbound)
	assert.False(t, e.Cancelled())
	e.SetCancelled(true)
	assert.True(t, e.Cancelled())
	assert.Same(t, owner, e.Owner())
	assert.Equal(t, proto.Inbound, e.Direction())
}

func TestDispatchMap_Symmetry(t *testing.T) {
	tt := newTestTypes(t)
	dm := NewDispatchMap()
	assert.True(t, dm.IsEmpty())

	l := &PacketAdapter{
		Receiving: []*packettype.PacketType{tt.keepAliveIn, tt.chatIn},
		Sending:   []*packettype.PacketType{tt.systemChatOut},
	}
	require.NoError(t, dm.AddListener(l))

	for _, pt := range []*packettype.PacketType{tt.keepAliveIn, tt.chatIn, tt.systemChatOut} {
		assert.Equal(t, []Listener{l}, dm.ListenersFor(pt), pt.String())
		assert.True(t, dm.ContainsType(pt))
	}
	assert.Empty(t, dm.ListenersFor(tt.keepAliveOut))
	assert.False(t, dm.ContainsType(tt.keepAliveOut))
	assert.False(t, dm.IsEmpty())
	assert.Equal(t, []Listener{l}, dm.Listeners())

	assert.True(t, dm.RemoveListener(l))
	for _, pt := range []*packettype.PacketType{tt.keepAliveIn, tt.chatIn, tt.systemChatOut} {
		assert.Empty(t, dm.ListenersFor(pt), pt.String())
		assert.False(t, dm.ContainsType(pt))
	}
	assert.True(t, dm.IsEmpty())
	assert.False(t, dm.RemoveListener(l))
}

func TestDispatchMap_OrderAndDuplicates(t *testing.T) {
	tt := newTestTypes(t)
	dm := NewDispatchMap()
	a := &PacketAdapter{Receiving: []*packettype.PacketType{tt.keepAliveIn, tt.keepAliveIn}}
	b := &PacketAdapter{Receiving: []*packettype.PacketType{tt.keepAliveIn}}
	c := &PacketAdapter{Receiving: []*packettype.PacketType{tt.keepAliveIn}}

	require.NoError(t, dm.AddListener(a))
	require.NoError(t, dm.AddListener(b))
	require.NoError(t, dm.AddListener(a))
	require.NoError(t, dm.AddListener(c))
	assert.Equal(t, []Listener{a, b, c}, dm.ListenersFor(tt.keepAliveIn))

	dm.RemoveListener(b)
	assert.Equal(t, []Listener{a, c}, dm.ListenersFor(tt.keepAliveIn))
	assert.Equal(t, []Listener{a, c}, dm.Listeners())

	dm.Clear()
	assert.True(t, dm.IsEmpty())
	assert.Empty(t, dm.ListenersFor(tt.keepAliveIn))
}

func TestDispatchMap_InvalidWhitelist(t *testing.T) {
	tt := newTestTypes(t)
	dm := NewDispatchMap()

	require.Error(t, dm.AddListener(nil))
	require.Error(t, dm.AddListener(&PacketAdapter{Receiving: []*packettype.PacketType{tt.keepAliveOut}}))
	require.Error(t, dm.AddListener(&PacketAdapter{Sending: []*packettype.PacketType{nil}}))
	assert.True(t, dm.IsEmpty())
	assert.Empty(t, dm.ListenersFor(tt.keepAliveOut))
}

func TestDispatchMap_Concurrent(t *testing.T) {
	tt := newTestTypes(t)
	dm := NewDispatchMap()
	stable := &PacketAdapter{
		Receiving: []*packettype.PacketType{tt.keepAliveIn},
		Sending:   []*packettype.PacketType{tt.keepAliveOut},
	}
	require.NoError(t, dm.AddListener(stable))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				for _, pt := range []*packettype.PacketType{tt.keepAliveIn, tt.keepAliveOut} {
					ls := dm.ListenersFor(pt)
					// the stable listener is never missing and always first
					if assert.NotEmpty(t, ls) {
						assert.Same(t, stable, ls[0])
					}
				}
			}
		}()
	}
	for range 200 {
		l := &PacketAdapter{
			Receiving: []*packettype.PacketType{tt.keepAliveIn, tt.chatIn},
			Sending:   []*packettype.PacketType{tt.keepAliveOut},
		}
		require.NoError(t, dm.AddListener(l))
		assert.True(t, dm.RemoveListener(l))
	}
	close(stop)
	wg.Wait()
	assert.Equal(t, []Listener{stable}, dm.Listeners())
}

func TestHandler_PassThrough(t *testing.T) {
	tt := newTestTypes(t)
	h, _, _ := newTestHandler(t, tt, NewDispatchMap(), &fakeOwner{id: "a", phase: states.PlayState})

	var fw forwarded
	p := &packet.KeepAlive{RandomID: 7}
	h.Inbound(p, fw.forward)
	require.Len(t, fw.packets, 1)
	assert.Same(t, p, fw.packets[0])

	out := &packet.JoinGame{EntityID: 1}
	h.Outbound(out, fw.forward)
	require.Len(t, fw.packets, 2)
	assert.Same(t, out, fw.packets[1])
}

func TestHandler_CancelDrops(t *testing.T) {
	tt := newTestTypes(t)
	dm := NewDispatchMap()
	require.NoError(t, dm.AddListener(&PacketAdapter{
		Receiving: []*packettype.PacketType{tt.chatIn},
		OnReceive: func(e *Event) { e.SetCancelled(true) },
	}))
	h, _, _ := newTestHandler(t, tt, dm, &fakeOwner{id: "a", phase: states.PlayState})

	var fw forwarded
	h.Inbound(&packet.ChatMessage{Message: "blocked"}, fw.forward)
	assert.Empty(t, fw.packets)

	// other types are unaffected
	h.Inbound(&packet.KeepAlive{}, fw.forward)
	assert.Len(t, fw.packets, 1)
}

func TestHandler_NoShortCircuit(t *testing.T) {
	tt := newTestTypes(t)
	dm := NewDispatchMap()
	var calls []string
	require.NoError(t, dm.AddListener(&PacketAdapter{
		Sending: []*packettype.PacketType{tt.systemChatOut},
		OnSend: func(e *Event) {
			calls = append(calls, "first")
			e.SetCancelled(true)
		},
	}))
	require.NoError(t, dm.AddListener(&PacketAdapter{
		Sending: []*packettype.PacketType{tt.systemChatOut},
		OnSend: func(e *Event) {
			calls = append(calls, "second")
			assert.True(t, e.Cancelled())
		},
	}))
	require.NoError(t, dm.AddListener(&PacketAdapter{
		Sending: []*packettype.PacketType{tt.systemChatOut},
		OnSend: func(e *Event) {
			calls = append(calls, "third")
			e.SetCancelled(false)
		},
	}))
	h, _, _ := newTestHandler(t, tt, dm, &fakeOwner{id: "a", phase: states.PlayState})

	var fw forwarded
	h.Outbound(&packet.SystemChat{Content: &component.Text{Content: "x"}}, fw.forward)
	assert.Equal(t, []string{"first", "second", "third"}, calls)
	assert.Len(t, fw.packets, 1)
}

func TestHandler_Replace(t *testing.T) {
	tt := newTestTypes(t)
	dm := NewDispatchMap()
	replacement := &packet.ChatMessage{Message: "replaced"}
	var mismatch error
	require.NoError(t, dm.AddListener(&PacketAdapter{
		Receiving: []*packettype.PacketType{tt.chatIn},
		OnReceive: func(e *Event) {
			mismatch = e.Container().SetPacket(&packet.KeepAlive{})
			require.NoError(t, e.Container().SetPacket(replacement))
		},
	}))
	h, _, _ := newTestHandler(t, tt, dm, &fakeOwner{id: "a", phase: states.PlayState})

	var fw forwarded
	h.Inbound(&packet.ChatMessage{Message: "original"}, fw.forward)
	require.ErrorIs(t, mismatch, errs.ErrTypeMismatch)
	require.Len(t, fw.packets, 1)
	assert.Same(t, replacement, fw.packets[0])
}

func TestHandler_ListenerPanic(t *testing.T) {
	tt := newTestTypes(t)
	dm := NewDispatchMap()
	ran := false
	require.NoError(t, dm.AddListener(&PacketAdapter{
		Receiving: []*packettype.PacketType{tt.keepAliveIn},
		OnReceive: func(*Event) { panic("listener bug") },
	}))
	require.NoError(t, dm.AddListener(&PacketAdapter{
		Receiving: []*packettype.PacketType{tt.keepAliveIn},
		OnReceive: func(*Event) { ran = true },
	}))
	h, _, sink := newTestHandler(t, tt, dm, &fakeOwner{id: "a", phase: states.PlayState})

	var fw forwarded
	h.Inbound(&packet.KeepAlive{}, fw.forward)
	assert.True(t, ran)
	assert.Len(t, fw.packets, 1)
	assert.Equal(t, 1, sink.errorCount())
}

func TestHandler_UnknownTypeIsolation(t *testing.T) {
	tt := newTestTypes(t)
	dm := NewDispatchMap()
	bad := &fakeOwner{id: "bad", phase: states.PlayState}
	good := &fakeOwner{id: "good", phase: states.PlayState}

	h, sched, sink := newTestHandler(t, tt, dm, bad)
	other, _, otherSink := newTestHandler(t, tt, dm, good)

	mgr := event.New()
	var unknown []*UnknownPacketEvent
	event.Subscribe(mgr, 0, func(e *UnknownPacketEvent) { unknown = append(unknown, e) })
	h.events = mgr

	var fw forwarded
	// PluginMessage is not registered in play/in for this registry
	h.Inbound(&packet.PluginMessage{Channel: "x"}, fw.forward)
	h.Inbound(&packet.PluginMessage{Channel: "y"}, fw.forward)
	// after the first unknown packet nothing is forwarded anymore
	h.Inbound(&packet.KeepAlive{}, fw.forward)

	assert.Empty(t, fw.packets)
	assert.Equal(t, 1, bad.disconnectCount())
	assert.Equal(t, []string{"bad"}, sched.ids)
	assert.Equal(t, 1, sink.errorCount())
	require.Len(t, unknown, 1)
	assert.Equal(t, proto.TypeOf(&packet.PluginMessage{}), unknown[0].Class)
	assert.Same(t, bad, unknown[0].Owner)

	var otherFw forwarded
	other.Inbound(&packet.KeepAlive{}, otherFw.forward)
	assert.Len(t, otherFw.packets, 1)
	assert.Equal(t, 0, good.disconnectCount())
	assert.Equal(t, 0, otherSink.errorCount())
}

func TestHandler_UnknownTypeWritesDisconnect(t *testing.T) {
	tt := newTestTypes(t)
	owner := &fakeOwner{id: "a", phase: states.PlayState}
	h, _, _ := newTestHandler(t, tt, NewDispatchMap(), owner)

	var fw forwarded
	owner.onDisconnect = func(reason component.Component) {
		h.Outbound(packet.NewDisconnect(reason), fw.forward)
		// only one disconnect packet passes
		h.Outbound(packet.NewDisconnect(reason), fw.forward)
	}
	h.Inbound(&packet.PluginMessage{Channel: "x"}, fw.forward)
	h.Outbound(packet.NewDisconnect(&component.Text{Content: "later"}), fw.forward)
	h.Outbound(&packet.KeepAlive{}, fw.forward)

	require.Len(t, fw.packets, 1)
	d, ok := fw.packets[0].(*packet.Disconnect)
	require.True(t, ok)
	require.IsType(t, &component.Text{}, d.Reason)
	assert.Contains(t, d.Reason.(*component.Text).Content, "packet.PluginMessage")
	assert.Equal(t, 1, owner.disconnectCount())
}

func TestHandler_PhaseAware(t *testing.T) {
	tt := newTestTypes(t)
	owner := &fakeOwner{id: "a", phase: states.ConfigState}
	h, _, sink := newTestHandler(t, tt, NewDispatchMap(), owner)

	// KeepAlive is only registered for play
	var fw forwarded
	h.Inbound(&packet.KeepAlive{}, fw.forward)
	assert.Empty(t, fw.packets)
	assert.Equal(t, 1, owner.disconnectCount())
	assert.Equal(t, 1, sink.errorCount())
}

func TestHandler_CancelledEvent(t *testing.T) {
	tt := newTestTypes(t)
	dm := NewDispatchMap()
	require.NoError(t, dm.AddListener(&PacketAdapter{
		Sending: []*packettype.PacketType{tt.keepAliveOut},
		OnSend:  func(e *Event) { e.SetCancelled(true) },
	}))
	mgr := event.New()
	var cancelled []*packettype.PacketType
	event.Subscribe(mgr, 0, func(e *PacketCancelledEvent) { cancelled = append(cancelled, e.Type) })

	owner := &fakeOwner{id: "a", phase: states.PlayState}
	h := NewHandler(owner, HandlerOptions{
		Registry:  tt.registry,
		Listeners: dm,
		Scheduler: &inlineScheduler{},
		Events:    mgr,
		Log:       testr.New(t),
	})
	var fw forwarded
	h.Outbound(&packet.KeepAlive{}, fw.forward)
	h.Outbound(&packet.JoinGame{}, fw.forward)
	assert.Len(t, fw.packets, 1)
	assert.Equal(t, []*packettype.PacketType{tt.keepAliveOut}, cancelled)
}

type fakePipeline struct {
	stages  map[string]any
	removed []string
}

func (p *fakePipeline) Has(name string) bool { _, ok := p.stages[name]; return ok }
func (p *fakePipeline) AddFirst(name string, s netmc.Stage) error {
	p.stages[name] = s
	return nil
}
func (p *fakePipeline) Remove(name string) bool {
	p.removed = append(p.removed, name)
	_, ok := p.stages[name]
	delete(p.stages, name)
	return ok
}

func TestHandler_InstallIdempotent(t *testing.T) {
	tt := newTestTypes(t)
	owner := &fakeOwner{id: "a", phase: states.PlayState}
	h, sched, _ := newTestHandler(t, tt, NewDispatchMap(), owner)
	p := &fakePipeline{stages: map[string]any{}}

	require.NoError(t, h.Install(p))
	require.NoError(t, h.Install(p))
	second, _, _ := newTestHandler(t, tt, NewDispatchMap(), owner)
	require.NoError(t, second.Install(p))
	assert.Same(t, h, p.stages[StageName])

	require.NoError(t, h.Uninstall(p))
	assert.Equal(t, []string{"a"}, sched.ids)
	assert.Equal(t, []string{StageName}, p.removed)
	assert.False(t, p.Has(StageName))
}
