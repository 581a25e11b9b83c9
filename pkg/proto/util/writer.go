package util

import (
	"encoding/binary"
	"io"

	"github.com/google/uuid"
)

func WriteString(wr io.Writer, val string) error {
	return WriteBytes(wr, []byte(val))
}

func WriteBytes(wr io.Writer, b []byte) error {
	if err := WriteVarInt(wr, len(b)); err != nil {
		return err
	}
	_, err := wr.Write(b)
	return err
}

func WriteVarInt(wr io.Writer, val int) error {
	_, err := WriteVarIntN(wr, val)
	return err
}

// WriteVarIntN writes a VarInt and returns the number of bytes written.
func WriteVarIntN(wr io.Writer, val int) (int, error) {
	var buf [5]byte
	n := PutVarInt(buf[:], val)
	return wr.Write(buf[:n])
}

// PutVarInt encodes val into b, which must hold at least 5 bytes.
func PutVarInt(b []byte, val int) (n int) {
	uval := uint32(val)
	for uval >= 0x80 {
		b[n] = byte(uval) | 0x80
		uval >>= 7
		n++
	}
	b[n] = byte(uval)
	return n + 1
}

// VarIntLen returns the encoded size of val.
func VarIntLen(val int) int {
	var buf [5]byte
	return PutVarInt(buf[:], val)
}

func WriteBool(wr io.Writer, val bool) error {
	if val {
		return WriteUint8(wr, 1)
	}
	return WriteUint8(wr, 0)
}

func WriteUint8(wr io.Writer, val uint8) error {
	_, err := wr.Write([]byte{val})
	return err
}

func WriteUint16(wr io.Writer, val uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], val)
	_, err := wr.Write(b[:])
	return err
}

func WriteInt32(wr io.Writer, val int32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(val))
	_, err := wr.Write(b[:])
	return err
}

func WriteInt64(wr io.Writer, val int64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(val))
	_, err := wr.Write(b[:])
	return err
}

func WriteUUID(wr io.Writer, id uuid.UUID) error {
	_, err := wr.Write(id[:])
	return err
}
