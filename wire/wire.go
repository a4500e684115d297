// Package wire implements the byte-level call-data encoding.
//
// Every value is encoded without self-description; the reader must know the
// type in advance.
//
//	integers     width/8 bytes, little-endian, two's complement when signed
//	bool         1 byte, 0x00 or 0x01 (any non-zero byte decodes as true)
//	text         u32le byte length, UTF-8 bytes
//	sequence<T>  u32le element count, elements back to back
//	fixed[N]     exactly N raw bytes, no prefix
//
// A Writer only appends and never fails. A Reader consumes from the front and
// returns a *codecerr.Error (decode phase) as soon as the buffer cannot satisfy
// a read; it never returns a partial value.
package wire

// Fixed byte array sizes accepted by the call-data format.
const (
	HashSize      = 32
	SignatureSize = 64
)

// LenSize is the size of every length or count prefix.
const LenSize = 4
