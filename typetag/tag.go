// Package typetag maps textual type tags such as "i32", "Vec<u8>", "[32]" or
// "address" to the codec rules that parse, encode, decode and format values
// of that type.
//
// The vocabulary is closed. Every tag is parsed once into a TypeTag and looked
// up in a single dispatch table built at init time; there is no chain of
// string comparisons per call.
//
// Go representations of values:
//
//	i8..i64, u8..u64   int8..int64, uint8..uint64
//	i128, u128         wire.Int128, wire.Uint128
//	bool, String       bool, string
//	Vec<T>             []T of the element representation
//	[32], [64]         [32]byte, [64]byte
//	address            Address
package typetag

import (
	"fmt"
	"strings"
)

// Kind is the variant of a TypeTag.
type Kind uint8

const (
	KindInt Kind = iota + 1
	KindBool
	KindText
	KindSequence
	KindFixedBytes
	KindAddress
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindText:
		return "text"
	case KindSequence:
		return "sequence"
	case KindFixedBytes:
		return "fixed_bytes"
	case KindAddress:
		return "address"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// TypeTag identifies one type of the closed vocabulary. The zero value is
// invalid. Two tags are the same type iff their String forms are equal.
type TypeTag struct {
	kind   Kind
	bits   int  // integer width, or fixed byte array size * 8
	signed bool
	elem   *TypeTag
}

// Int returns the integer tag of the given bit width.
func Int(bits int, signed bool) TypeTag {
	return TypeTag{kind: KindInt, bits: bits, signed: signed}
}

// Bool returns the boolean tag.
func Bool() TypeTag { return TypeTag{kind: KindBool} }

// Text returns the string tag.
func Text() TypeTag { return TypeTag{kind: KindText} }

// AddressTag returns the address tag.
func AddressTag() TypeTag { return TypeTag{kind: KindAddress, bits: 256} }

// FixedBytes returns the tag of a byte array of size bytes.
func FixedBytes(size int) TypeTag {
	return TypeTag{kind: KindFixedBytes, bits: size * 8}
}

// Sequence returns the tag of a variable-length sequence of elem.
func Sequence(elem TypeTag) TypeTag {
	return TypeTag{kind: KindSequence, elem: &elem}
}

func (t TypeTag) Kind() Kind    { return t.kind }
func (t TypeTag) Bits() int     { return t.bits }
func (t TypeTag) Signed() bool  { return t.signed }
func (t TypeTag) Size() int     { return t.bits / 8 }
func (t TypeTag) IsValid() bool { return t.kind != 0 }

// Elem returns the element tag of a sequence.
func (t TypeTag) Elem() (TypeTag, bool) {
	if t.kind != KindSequence || t.elem == nil {
		return TypeTag{}, false
	}
	return *t.elem, true
}

// Numeric reports whether literal text for t is a list of integers, which is
// what the sequence shape pre-check accepts.
func (t TypeTag) Numeric() bool {
	switch t.kind {
	case KindFixedBytes:
		return true
	case KindSequence:
		return t.elem != nil && t.elem.kind == KindInt
	}
	return false
}

// String returns the canonical spelling.
func (t TypeTag) String() string {
	switch t.kind {
	case KindInt:
		if t.signed {
			return fmt.Sprintf("i%d", t.bits)
		}
		return fmt.Sprintf("u%d", t.bits)
	case KindBool:
		return "bool"
	case KindText:
		return "String"
	case KindAddress:
		return "address"
	case KindFixedBytes:
		return fmt.Sprintf("[%d]", t.bits/8)
	case KindSequence:
		if t.elem == nil {
			return "Vec<>"
		}
		return "Vec<" + t.elem.String() + ">"
	}
	return ""
}

// Parse resolves tag against the vocabulary. It reports false for any
// spelling that is not part of it.
func Parse(tag string) (TypeTag, bool) {
	c, ok := table[tag]
	if !ok {
		return TypeTag{}, false
	}
	return c.Tag, true
}

// Vocabulary returns every accepted tag spelling in canonical order.
func Vocabulary() []string {
	out := make([]string, len(vocabulary))
	copy(out, vocabulary)
	return out
}

// MustParse is Parse that panics on unknown tags. Intended for constants.
func MustParse(tag string) TypeTag {
	t, ok := Parse(tag)
	if !ok {
		panic("typetag: unknown tag " + strings.TrimSpace(tag))
	}
	return t
}
