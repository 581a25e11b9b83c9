package util

import (
	"io"

	"github.com/google/uuid"
)

// Recover sets err to the recovered panic if it is an error.
// Panics that are not errors are re-panicked.
//
// Usage:
//
//	func fn() (err error) {
//		defer Recover(&err)
//		// code that may panic(err)
//	}
func Recover(err *error) {
	if r := recover(); r != nil {
		if e, ok := r.(error); ok {
			*err = e
		} else {
			panic(r)
		}
	}
}

// RecoverFunc runs fn and converts an error panic into a returned error.
func RecoverFunc(fn func() error) (err error) {
	defer Recover(&err)
	return fn()
}

// PReader reads protocol values and panics on error.
// Use it together with Recover in packet decoders.
type PReader struct{ r io.Reader }

func PanicReader(r io.Reader) *PReader { return &PReader{r} }

func (r *PReader) VarInt(i *int) {
	v, err := ReadVarInt(r.r)
	check(err)
	*i = v
}

func (r *PReader) String(s *string) {
	v, err := ReadString(r.r)
	check(err)
	*s = v
}

func (r *PReader) Bytes(b *[]byte) {
	v, err := ReadBytes(r.r)
	check(err)
	*b = v
}

func (r *PReader) Bool(b *bool) {
	v, err := ReadBool(r.r)
	check(err)
	*b = v
}

func (r *PReader) Byte(b *byte) {
	v, err := ReadUint8(r.r)
	check(err)
	*b = v
}

func (r *PReader) Int32(i *int32) {
	v, err := ReadInt32(r.r)
	check(err)
	*i = v
}

func (r *PReader) Int64(i *int64) {
	v, err := ReadInt64(r.r)
	check(err)
	*i = v
}

func (r *PReader) UUID(id *uuid.UUID) {
	v, err := ReadUUID(r.r)
	check(err)
	*id = v
}

// PWriter writes protocol values and panics on error.
type PWriter struct{ w io.Writer }

func PanicWriter(w io.Writer) *PWriter { return &PWriter{w} }

func (w *PWriter) VarInt(i int)      { check(WriteVarInt(w.w, i)) }
func (w *PWriter) String(s string)   { check(WriteString(w.w, s)) }
func (w *PWriter) Bytes(b []byte)    { check(WriteBytes(w.w, b)) }
func (w *PWriter) Bool(b bool)       { check(WriteBool(w.w, b)) }
func (w *PWriter) Byte(b byte)       { check(WriteUint8(w.w, b)) }
func (w *PWriter) Int32(i int32)     { check(WriteInt32(w.w, i)) }
func (w *PWriter) Int64(i int64)     { check(WriteInt64(w.w, i)) }
func (w *PWriter) UUID(id uuid.UUID) { check(WriteUUID(w.w, id)) }

func check(err error) {
	if err != nil {
		panic(err)
	}
}
