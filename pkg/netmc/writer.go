package netmc

import (
	"bufio"
	"net"
	"time"

	"github.com/go-logr/logr"

	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/codec"
)

type writer struct {
	log              logr.Logger
	writeTimeout     time.Duration
	compressionLevel int
	c                net.Conn // underlying connection
	writeBuf         *bufio.Writer
	*codec.Encoder
}

func newWriter(conn net.Conn, direction proto.Direction, writeTimeout time.Duration, compressionLevel int, log logr.Logger) *writer {
	writeBuf := bufio.NewWriter(conn)
	return &writer{
		log:              log.WithName("writer"),
		writeTimeout:     writeTimeout,
		compressionLevel: compressionLevel,
		c:                conn,
		writeBuf:         writeBuf,
		Encoder:          codec.NewEncoder(writeBuf, direction, log.V(2)),
	}
}

func (w *writer) flush() error {
	if w.writeTimeout > 0 {
		// fails if the connection is already closed
		if err := w.c.SetWriteDeadline(time.Now().Add(w.writeTimeout)); err != nil {
			return err
		}
	}
	return w.writeBuf.Flush()
}

func (w *writer) setCompressionThreshold(threshold int) error {
	return w.Encoder.SetCompression(threshold, w.compressionLevel)
}
