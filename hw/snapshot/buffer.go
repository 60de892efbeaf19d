package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"
)

// ErrFormat is matched (errors.Is) by every error reported while decoding
// snapshot data.
var ErrFormat = errors.New("snapshot: invalid format")

// FormatError describes why a snapshot chunk could not be decoded.
type FormatError struct {
	Chunk string // chunk name ("ted", "sid")
	Msg   string
	Err   error // underlying error, if any
}

func (e *FormatError) Error() string {
	s := "snapshot: " + e.Chunk + ": " + e.Msg
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// Writer serializes snapshot fields in big-endian order.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 256)}
}

func (w *Writer) Uint32(v uint32) { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }
func (w *Writer) Int32(v int32)   { w.Uint32(uint32(v)) }
func (w *Writer) Byte(v uint8)    { w.buf = append(w.buf, v) }

func (w *Writer) Bool(v bool) {
	if v {
		w.Byte(1)
		return
	}
	w.Byte(0)
}

// Raw appends p as is.
func (w *Writer) Raw(p []byte) { w.buf = append(w.buf, p...) }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// Data returns the serialized bytes.
func (w *Writer) Data() []byte { return w.buf }

func (w *Writer) WriteTo(dst io.Writer) (int64, error) {
	n, err := dst.Write(w.buf)
	return int64(n), err
}

// Reader decodes snapshot fields in big-endian order. The first decoding
// error is sticky: subsequent reads return zero values and Err reports it.
type Reader struct {
	chunk string
	data  []byte
	pos   int
	err   error
}

func NewReader(chunk string, data []byte) *Reader {
	return &Reader{chunk: chunk, data: data}
}

// ReadFrom reads all of r and returns a Reader over it.
func ReadFrom(chunk string, r io.Reader) (*Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %s: %w", chunk, err)
	}
	return NewReader(chunk, data), nil
}

func (r *Reader) fail(msg string, err error) {
	if r.err == nil {
		r.err = &FormatError{Chunk: r.chunk, Msg: msg, Err: err}
	}
}

func (r *Reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.data)-r.pos < n {
		r.fail(fmt.Sprintf("truncated data at offset %d", r.pos), io.ErrUnexpectedEOF)
		r.pos = len(r.data)
		return nil
	}
	p := r.data[r.pos : r.pos+n]
	r.pos += n
	return p
}

// Version reads the 4-byte version tag and checks it against the accepted
// versions.
func (r *Reader) Version(accepted ...uint32) uint32 {
	v := r.Uint32()
	if r.err != nil {
		return 0
	}
	if !slices.Contains(accepted, v) {
		r.fail(fmt.Sprintf("incompatible version %#08x", v), nil)
		return 0
	}
	return v
}

func (r *Reader) Uint32() uint32 {
	p := r.next(4)
	if p == nil {
		return 0
	}
	return binary.BigEndian.Uint32(p)
}

func (r *Reader) Int32() int32 { return int32(r.Uint32()) }

func (r *Reader) Byte() uint8 {
	p := r.next(1)
	if p == nil {
		return 0
	}
	return p[0]
}

func (r *Reader) Bool() bool { return r.Byte() != 0 }

// Raw fills dst with the next len(dst) bytes.
func (r *Reader) Raw(dst []byte) {
	if p := r.next(len(dst)); p != nil {
		copy(dst, p)
	}
}

// Invalid records a semantic decoding error.
func (r *Reader) Invalid(format string, args ...any) {
	r.fail(fmt.Sprintf(format, args...), nil)
}

func (r *Reader) Err() error { return r.err }

// Remaining returns the number of bytes left to decode.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

// Finish reports the first decoding error, or an error if some data has
// not been consumed.
func (r *Reader) Finish() error {
	if r.err == nil && r.pos != len(r.data) {
		r.fail(fmt.Sprintf("trailing garbage at end of data (%d bytes)", len(r.data)-r.pos), nil)
	}
	return r.err
}
