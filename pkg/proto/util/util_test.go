package util

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarInt(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name    string
		data    []byte
		wantVal int
		wantErr error
	}{
		{name: "single byte", data: []byte{0x01}, wantVal: 1},
		{name: "two bytes", data: []byte{0xAC, 0x02}, wantVal: 300},
		{name: "zero", data: []byte{0x00}, wantVal: 0},
		{name: "max varint", data: []byte{0xff, 0xff, 0xff, 0xff, 0x07}, wantVal: 2147483647},
		{name: "negative one", data: []byte{0xff, 0xff, 0xff, 0xff, 0x0f}, wantVal: -1},
		{name: "varint too big", data: []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0x01}, wantErr: errVarIntTooBig},
		{name: "empty buffer", data: []byte{}, wantErr: io.EOF},
		{name: "incomplete varint", data: []byte{0xff}, wantErr: io.EOF},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ReadVarInt(bytes.NewBuffer(tc.data))
			if tc.wantErr != nil {
				require.True(t, errors.Is(err, tc.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantVal, got)
		})
	}
}

func TestVarIntLen(t *testing.T) {
	for _, v := range []int{0, 1, 127, 128, 300, 2097151, -1} {
		buf := new(bytes.Buffer)
		n, err := WriteVarIntN(buf, v)
		require.NoError(t, err)
		assert.Equal(t, n, VarIntLen(v))
		assert.Equal(t, n, buf.Len())
	}
	assert.Equal(t, 5, VarIntLen(-1))
}

func TestReadStringMax(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, WriteString(buf, "hello world"))
	_, err := ReadStringMax(buf, 2)
	require.Error(t, err)
}

func TestPanicReaderRecover(t *testing.T) {
	decode := func(rd io.Reader) (id uuid.UUID, name string, err error) {
		defer Recover(&err)
		r := PanicReader(rd)
		r.UUID(&id)
		r.String(&name)
		return
	}

	want := uuid.New()
	buf := new(bytes.Buffer)
	w := PanicWriter(buf)
	w.UUID(want)
	w.String("Steve")

	id, name, err := decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, want, id)
	assert.Equal(t, "Steve", name)

	_, _, err = decode(bytes.NewReader(buf.Bytes()[:20]))
	require.Error(t, err)
}
