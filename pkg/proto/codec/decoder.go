package codec

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-logr/logr"

	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/state"
	"go.minekube.com/intercept/pkg/proto/util"
	"go.minekube.com/intercept/pkg/proto/version"
	"go.minekube.com/intercept/pkg/util/errs"
)

const (
	VanillaMaximumUncompressedSize = 8 * 1024 * 1024 // 8MiB
	UncompressedCap                = VanillaMaximumUncompressedSize
	maxFrameLength                 = 2097151 // 3 byte VarInt
)

// Decoder is a synchronized packet decoder.
type Decoder struct {
	log       logr.Logger
	direction proto.Direction

	mu                   sync.Mutex // Protects following fields and locked while reading a packet.
	rd                   io.Reader
	registry             *state.ProtocolRegistry
	state                *state.Registry
	compression          bool
	compressionThreshold int
	zrd                  io.ReadCloser
}

func NewDecoder(r io.Reader, direction proto.Direction, log logr.Logger) *Decoder {
	return &Decoder{
		rd:        &fullReader{r},
		direction: direction,
		state:     state.Handshake,
		registry:  state.FromDirection(direction, state.Handshake, version.MinimumVersion.Protocol),
		log:       log.WithName("decoder"),
	}
}

type fullReader struct{ io.Reader }

func (fr *fullReader) Read(p []byte) (int, error) { return io.ReadFull(fr.Reader, p) }

func (d *Decoder) SetState(state *state.Registry) {
	d.mu.Lock()
	d.state = state
	d.registry = state.FromDirectionOf(d.direction, d.registry.Protocol)
	d.mu.Unlock()
}

func (d *Decoder) SetProtocol(protocol proto.Protocol) {
	d.mu.Lock()
	d.registry = d.state.FromDirectionOf(d.direction, protocol)
	d.mu.Unlock()
}

func (d *Decoder) SetCompressionThreshold(threshold int) {
	d.mu.Lock()
	d.compressionThreshold = threshold
	d.compression = threshold >= 0
	d.mu.Unlock()
}

// Decode reads the next packet from the underlying reader.
// It blocks other calls to Decode until return.
func (d *Decoder) Decode() (*proto.PacketContext, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readPacket()
}

func (d *Decoder) readPacket() (ctx *proto.PacketContext, err error) {
	var retries int
retry:
	payload, n, err := d.readPayload()
	if err != nil {
		return nil, errs.WrapSilent(err)
	}
	if len(payload) == 0 {
		if retries > 10 {
			return nil, errors.New("got too many empty packets")
		}
		retries++
		goto retry
	}
	ctx, err = d.decodePayload(payload)
	if ctx != nil {
		ctx.BytesRead = n
	}
	if err == nil && d.log.V(2).Enabled() {
		d.log.V(2).Info("decoded packet", "context", ctx.String())
	}
	return ctx, err
}

func (d *Decoder) readPayload() (payload []byte, n int, err error) {
	payload, n, err = readVarIntFrame(d.rd)
	if err != nil {
		return nil, n, fmt.Errorf("error reading packet frame: %w", err)
	}
	if len(payload) == 0 || !d.compression {
		return payload, n, nil
	}
	// payload contains: claimedUncompressedSize + (compressed packet id & data)
	buf := bytes.NewBuffer(payload)
	claimedUncompressedSize, err := util.ReadVarInt(buf)
	if err != nil {
		return nil, n, fmt.Errorf("error reading claimed uncompressed size varint: %w", err)
	}
	if claimedUncompressedSize <= 0 {
		if actual := buf.Len(); actual > d.compressionThreshold {
			return nil, n, fmt.Errorf("actual uncompressed size %d is greater than threshold %d",
				actual, d.compressionThreshold)
		}
		return buf.Bytes(), n, nil
	}
	decompressed, err := d.decompress(claimedUncompressedSize, buf)
	return decompressed, n, err
}

func readVarIntFrame(rd io.Reader) (payload []byte, n int, err error) {
	length, n, err := util.ReadVarIntReturnN(rd)
	if err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	if length < 0 || length > maxFrameLength {
		return nil, n, fmt.Errorf("received invalid packet length %d", length)
	}
	payload = make([]byte, length)
	m, err := io.ReadFull(rd, payload)
	if err != nil {
		return nil, n, fmt.Errorf("error reading payload: %w", err)
	}
	return payload, n + m, nil
}

func (d *Decoder) decompress(claimedUncompressedSize int, rd io.Reader) (decompressed []byte, err error) {
	if claimedUncompressedSize < d.compressionThreshold {
		return nil, errs.NewSilentErr("uncompressed size %d is less than set threshold %d",
			claimedUncompressedSize, d.compressionThreshold)
	}
	if claimedUncompressedSize > UncompressedCap {
		return nil, errs.NewSilentErr("uncompressed size %d exceeds hard threshold of %d",
			claimedUncompressedSize, UncompressedCap)
	}
	if d.zrd == nil {
		d.zrd, err = zlib.NewReader(rd)
		if err != nil {
			return nil, err
		}
	} else if err = d.zrd.(zlib.Resetter).Reset(rd, nil); err != nil {
		return nil, fmt.Errorf("error resetting zlib reader: %w", err)
	}
	decompressed = make([]byte, claimedUncompressedSize)
	if _, err = io.ReadFull(d.zrd, decompressed); err != nil {
		return nil, fmt.Errorf("error decompressing payload: %w", err)
	}
	return decompressed, d.zrd.Close()
}

// decodePayload decodes the packet id + data of p.
// An id unknown to the current registry yields a context without Packet.
func (d *Decoder) decodePayload(p []byte) (ctx *proto.PacketContext, err error) {
	ctx = &proto.PacketContext{
		Direction: d.direction,
		Protocol:  d.registry.Protocol,
		Payload:   p,
	}
	payload := bytes.NewReader(p)

	packetID, err := util.ReadVarInt(payload)
	if err != nil {
		return nil, err
	}
	ctx.PacketID = proto.PacketID(packetID)

	ctx.Packet = d.registry.CreatePacket(ctx.PacketID)
	if ctx.Packet == nil {
		return ctx, nil
	}

	err = util.RecoverFunc(func() error {
		return ctx.Packet.Decode(ctx, payload)
	})
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.Join(err, io.ErrUnexpectedEOF)
		}
		return ctx, errs.NewSilentErr("error decoding packet (type: %T, id: %s, protocol: %s, direction: %s, state: %s): %w",
			ctx.Packet, ctx.PacketID, ctx.Protocol, ctx.Direction, d.state.State, err)
	}

	if payload.Len() != 0 {
		d.log.V(1).Info("packet decoder did not read all of packet's data",
			"ctx", ctx, "unreadBytes", payload.Len())
		return ctx, proto.ErrDecoderLeftBytes
	}
	return ctx, nil
}
