package util

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

var errVarIntTooBig = errors.New("decode: VarInt is too big")

func ReadString(rd io.Reader) (string, error) {
	return ReadStringMax(rd, bufio.MaxScanTokenSize)
}

func ReadStringMax(rd io.Reader, max int) (string, error) {
	length, err := ReadVarInt(rd)
	if err != nil {
		return "", err
	}
	if length < 0 {
		return "", fmt.Errorf("got negative string length %d", length)
	}
	if length > max*4 { // UTF-8 characters have up to 4 bytes
		return "", fmt.Errorf("bad string length (got %d, max. %d)", length, max)
	}
	str := make([]byte, length)
	if _, err = io.ReadFull(rd, str); err != nil {
		return "", err
	}
	return string(str), nil
}

func ReadBytes(rd io.Reader) ([]byte, error) {
	return ReadBytesLen(rd, bufio.MaxScanTokenSize)
}

func ReadBytesLen(rd io.Reader, maxLength int) ([]byte, error) {
	length, err := ReadVarInt(rd)
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, fmt.Errorf("decode, bytes length is < 0: %d", length)
	}
	if length > maxLength {
		return nil, fmt.Errorf("decode, bytes length %d is above given maximum: %d", length, maxLength)
	}
	b := make([]byte, length)
	_, err = io.ReadFull(rd, b)
	return b, err
}

func ReadVarInt(rd io.Reader) (int, error) {
	v, _, err := ReadVarIntReturnN(rd)
	return v, err
}

// ReadVarIntReturnN reads a VarInt and returns the number of bytes it occupied.
func ReadVarIntReturnN(rd io.Reader) (result int, n int, err error) {
	var uresult uint32
	for {
		b, err := ReadUint8(rd)
		if err != nil {
			return 0, n, err
		}
		uresult |= uint32(b&0x7F) << uint32(n*7)
		n++
		if n > 5 {
			return 0, n, errVarIntTooBig
		}
		if b&0x80 == 0 {
			break
		}
	}
	return int(int32(uresult)), n, nil
}

func ReadBool(rd io.Reader) (bool, error) {
	v, err := ReadUint8(rd)
	return v != 0, err
}

func ReadUint8(rd io.Reader) (uint8, error) {
	if br, ok := rd.(io.ByteReader); ok {
		return br.ReadByte()
	}
	var b [1]byte
	_, err := io.ReadFull(rd, b[:])
	return b[0], err
}

func ReadUint16(rd io.Reader) (uint16, error) {
	var b [2]byte
	_, err := io.ReadFull(rd, b[:])
	return binary.BigEndian.Uint16(b[:]), err
}

func ReadInt32(rd io.Reader) (int32, error) {
	var b [4]byte
	_, err := io.ReadFull(rd, b[:])
	return int32(binary.BigEndian.Uint32(b[:])), err
}

func ReadInt64(rd io.Reader) (int64, error) {
	var b [8]byte
	_, err := io.ReadFull(rd, b[:])
	return int64(binary.BigEndian.Uint64(b[:])), err
}

func ReadUUID(rd io.Reader) (id uuid.UUID, err error) {
	_, err = io.ReadFull(rd, id[:])
	return id, err
}
