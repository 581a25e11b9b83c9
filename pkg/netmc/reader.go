package netmc

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/go-logr/logr"

	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/codec"
	"go.minekube.com/intercept/pkg/util/errs"
)

// ErrReadPacketRetry is returned by readPacket when the reader should retry reading the next packet.
var ErrReadPacketRetry = errors.New("error reading packet, retry")

type reader struct {
	log         logr.Logger
	readTimeout time.Duration
	c           net.Conn // underlying connection
	*codec.Decoder
}

func newReader(conn net.Conn, direction proto.Direction, readTimeout time.Duration, log logr.Logger) *reader {
	return &reader{
		c:           conn,
		readTimeout: readTimeout,
		log:         log.WithName("reader"),
		Decoder:     codec.NewDecoder(bufio.NewReader(conn), direction, log.V(2)),
	}
}

// readPacket reads the next packet. Errors other than ErrReadPacketRetry
// leave the connection broken.
func (r *reader) readPacket() (*proto.PacketContext, error) {
	if r.readTimeout > 0 {
		_ = r.c.SetReadDeadline(time.Now().Add(r.readTimeout))
	}

	packetCtx, err := r.Decode()
	if err != nil && !errors.Is(err, proto.ErrDecoderLeftBytes) { // Ignore this error.
		if r.handleReadErr(err) {
			r.log.V(1).Info("error reading packet, recovered", "error", err)
			return nil, ErrReadPacketRetry
		}
		r.log.V(1).Info("error reading packet, closing connection", "error", err)
		return nil, err
	}
	return packetCtx, nil
}

func (r *reader) handleReadErr(err error) (recoverable bool) {
	if errors.Is(err, syscall.EAGAIN) {
		return true
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			r.log.Info("read timeout", "error", err)
			return false
		}
		if errs.IsConnClosedErr(netErr.Err) {
			return false
		}
	}
	if errs.IsSilent(err) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, context.Canceled) ||
		errors.Is(err, io.ErrClosedPipe) || errors.Is(err, syscall.EBADF) ||
		strings.Contains(err.Error(), "use of closed file") {
		return false
	}
	r.log.Error(err, "error reading next packet, unrecoverable and closing connection")
	return false
}
