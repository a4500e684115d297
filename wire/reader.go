package wire

import (
	"encoding/binary"
	"unicode/utf8"

	"calldata-rpc/codecerr"
)

// Reader decodes values from the front of a byte slice.
type Reader struct {
	data []byte
	off  int
}

// NewReader returns a Reader over data. The data is not copied.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the number of bytes consumed.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// Rest returns the unread bytes without consuming them.
func (r *Reader) Rest() []byte {
	return r.data[r.off:]
}

func (r *Reader) take(n int, kind codecerr.Kind) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, codecerr.Truncated(kind, r.off, n, r.Remaining())
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.take(1, codecerr.KindMalformedInteger)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.take(2, codecerr.KindMalformedInteger)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.take(4, codecerr.KindMalformedInteger)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.take(8, codecerr.KindMalformedInteger)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) ReadU128() (Uint128, error) {
	b, err := r.take(16, codecerr.KindMalformedInteger)
	if err != nil {
		return Uint128{}, err
	}
	return Uint128{
		Lo: binary.LittleEndian.Uint64(b[:8]),
		Hi: binary.LittleEndian.Uint64(b[8:]),
	}, nil
}

func (r *Reader) ReadI8() (int8, error) {
	v, err := r.ReadU8()
	return int8(v), err
}

func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

func (r *Reader) ReadI128() (Int128, error) {
	v, err := r.ReadU128()
	return Int128(v), err
}

// ReadBool accepts any non-zero byte as true.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.take(1, codecerr.KindTruncatedBuffer)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

// ReadLen reads a length or element count prefix.
func (r *Reader) ReadLen() (int, error) {
	b, err := r.take(LenSize, codecerr.KindTruncatedBuffer)
	if err != nil {
		return 0, err
	}
	return int(binary.LittleEndian.Uint32(b)), nil
}

// ReadString reads a length-prefixed string and validates it as UTF-8.
func (r *Reader) ReadString() (string, error) {
	start := r.off
	lb, err := r.take(LenSize, codecerr.KindTruncatedText)
	if err != nil {
		return "", err
	}
	n := int(binary.LittleEndian.Uint32(lb))
	b, err := r.take(n, codecerr.KindTruncatedText)
	if err != nil {
		r.off = start
		return "", err
	}
	if !utf8.Valid(b) {
		r.off = start
		return "", codecerr.InvalidUTF8(start+LenSize, b)
	}
	return string(b), nil
}

// ReadBytes reads a length-prefixed byte sequence. The result is a copy.
func (r *Reader) ReadBytes() ([]byte, error) {
	start := r.off
	n, err := r.ReadLen()
	if err != nil {
		return nil, err
	}
	b, err := r.take(n, codecerr.KindTruncatedBuffer)
	if err != nil {
		r.off = start
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// ReadFixed reads exactly n raw bytes. The result is a copy.
func (r *Reader) ReadFixed(n int) ([]byte, error) {
	b, err := r.take(n, codecerr.KindTruncatedFixedBytes)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}
