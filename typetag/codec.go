package typetag

import (
	"errors"
	"strconv"
	"strings"

	"calldata-rpc/codecerr"
	"calldata-rpc/wire"
)

const tagAddress = "address"

// Codec is the group of rules for one tag of the vocabulary.
type Codec struct {
	Tag TypeTag

	// Parse converts literal text to the Go representation of Tag.
	Parse func(text string) (any, error)
	// Encode appends v, which must be the Go representation of Tag.
	Encode func(w *wire.Writer, v any) error
	// Decode reads one value from r. A failed decode does not advance r.
	Decode func(r *wire.Reader) (any, error)
	// Format renders v for display.
	Format func(v any) string
}

// Write parses text and appends its encoding to w. Nothing is written when
// text does not parse.
func (c *Codec) Write(w *wire.Writer, text string) error {
	v, err := c.Parse(text)
	if err != nil {
		return err
	}
	return c.Encode(w, v)
}

// Read decodes one value from r and formats it.
func (c *Codec) Read(r *wire.Reader) (string, error) {
	v, err := c.Decode(r)
	if err != nil {
		return "", err
	}
	return c.Format(v), nil
}

// Lookup returns the codec of tag.
func Lookup(tag string) (*Codec, bool) {
	c, ok := table[tag]
	return c, ok
}

// rules is the typed form of a Codec before it is erased into the table.
type rules[T any] struct {
	parse  func(string) (T, error)
	put    func(*wire.Writer, T)
	get    func(*wire.Reader) (T, error)
	format func(T) string
}

func (ru rules[T]) codec(tag TypeTag) *Codec {
	name := tag.String()
	return &Codec{
		Tag: tag,
		Parse: func(text string) (any, error) {
			v, err := ru.parse(text)
			if err != nil {
				return nil, parseError(name, err)
			}
			return v, nil
		},
		Encode: func(w *wire.Writer, v any) error {
			t, ok := v.(T)
			if !ok {
				return codecerr.TypeMismatch(name, v)
			}
			ru.put(w, t)
			return nil
		},
		Decode: func(r *wire.Reader) (any, error) {
			v, err := ru.get(r)
			if err != nil {
				return nil, codecerr.WithTag(err, name)
			}
			return v, nil
		},
		Format: func(v any) string {
			t, _ := v.(T)
			return ru.format(t)
		},
	}
}

func parseError(tag string, err error) error {
	if errors.Is(err, codecerr.ErrCannotParse) {
		return err
	}
	return codecerr.CannotParseCause(tag, err)
}

func sequenceOf[T any](elem rules[T], numeric bool) rules[[]T] {
	return rules[[]T]{
		parse: func(text string) ([]T, error) {
			parts, err := splitList(text, numeric)
			if err != nil {
				return nil, err
			}
			vs := make([]T, len(parts))
			for i, p := range parts {
				if vs[i], err = elem.parse(p); err != nil {
					return nil, err
				}
			}
			return vs, nil
		},
		put: func(w *wire.Writer, vs []T) {
			wire.WriteSeq(w, vs, elem.put)
		},
		get: func(r *wire.Reader) ([]T, error) {
			return wire.ReadSeq(r, elem.get)
		},
		format: func(vs []T) string {
			parts := make([]string, len(vs))
			for i, v := range vs {
				parts[i] = elem.format(v)
			}
			return "[" + strings.Join(parts, ", ") + "]"
		},
	}
}

func signed[T int8 | int16 | int32 | int64](bits int, put func(*wire.Writer, T), get func(*wire.Reader) (T, error)) rules[T] {
	parse := parseSigned(bits)
	return rules[T]{
		parse: func(s string) (T, error) {
			v, err := parse(s)
			return T(v), err
		},
		put: put,
		get: get,
		format: func(v T) string {
			return strconv.FormatInt(int64(v), 10)
		},
	}
}

func unsigned[T uint8 | uint16 | uint32 | uint64](bits int, put func(*wire.Writer, T), get func(*wire.Reader) (T, error)) rules[T] {
	parse := parseUnsigned(bits)
	return rules[T]{
		parse: func(s string) (T, error) {
			v, err := parse(s)
			return T(v), err
		},
		put: put,
		get: get,
		format: func(v T) string {
			return strconv.FormatUint(uint64(v), 10)
		},
	}
}

var (
	i8   = signed(8, (*wire.Writer).WriteI8, (*wire.Reader).ReadI8)
	i16  = signed(16, (*wire.Writer).WriteI16, (*wire.Reader).ReadI16)
	i32  = signed(32, (*wire.Writer).WriteI32, (*wire.Reader).ReadI32)
	i64  = signed(64, (*wire.Writer).WriteI64, (*wire.Reader).ReadI64)
	i128 = rules[wire.Int128]{
		parse:  wire.ParseInt128,
		put:    (*wire.Writer).WriteI128,
		get:    (*wire.Reader).ReadI128,
		format: wire.Int128.String,
	}

	u8   = unsigned(8, (*wire.Writer).WriteU8, (*wire.Reader).ReadU8)
	u16  = unsigned(16, (*wire.Writer).WriteU16, (*wire.Reader).ReadU16)
	u32  = unsigned(32, (*wire.Writer).WriteU32, (*wire.Reader).ReadU32)
	u64  = unsigned(64, (*wire.Writer).WriteU64, (*wire.Reader).ReadU64)
	u128 = rules[wire.Uint128]{
		parse:  wire.ParseUint128,
		put:    (*wire.Writer).WriteU128,
		get:    (*wire.Reader).ReadU128,
		format: wire.Uint128.String,
	}

	boolean = rules[bool]{
		parse:  parseBool,
		put:    (*wire.Writer).WriteBool,
		get:    (*wire.Reader).ReadBool,
		format: strconv.FormatBool,
	}

	text = rules[string]{
		parse:  func(s string) (string, error) { return s, nil },
		put:    (*wire.Writer).WriteString,
		get:    (*wire.Reader).ReadString,
		format: strconv.Quote,
	}

	address = rules[Address]{
		parse: ParseAddress,
		put: func(w *wire.Writer, a Address) {
			w.WriteFixed(a[:])
		},
		get: func(r *wire.Reader) (Address, error) {
			b, err := r.ReadFixed(wire.HashSize)
			if err != nil {
				return Address{}, err
			}
			return Address(b), nil
		},
		format: Address.String,
	}

	hash = rules[[wire.HashSize]byte]{
		parse: func(s string) ([wire.HashSize]byte, error) {
			b, err := parseByteList(s, wire.HashSize)
			if err != nil {
				return [wire.HashSize]byte{}, err
			}
			return [wire.HashSize]byte(b), nil
		},
		put: func(w *wire.Writer, v [wire.HashSize]byte) {
			w.WriteFixed(v[:])
		},
		get: func(r *wire.Reader) ([wire.HashSize]byte, error) {
			b, err := r.ReadFixed(wire.HashSize)
			if err != nil {
				return [wire.HashSize]byte{}, err
			}
			return [wire.HashSize]byte(b), nil
		},
		format: func(v [wire.HashSize]byte) string {
			return formatByteList(v[:])
		},
	}

	signature = rules[[wire.SignatureSize]byte]{
		parse: func(s string) ([wire.SignatureSize]byte, error) {
			b, err := parseByteList(s, wire.SignatureSize)
			if err != nil {
				return [wire.SignatureSize]byte{}, err
			}
			return [wire.SignatureSize]byte(b), nil
		},
		put: func(w *wire.Writer, v [wire.SignatureSize]byte) {
			w.WriteFixed(v[:])
		},
		get: func(r *wire.Reader) ([wire.SignatureSize]byte, error) {
			b, err := r.ReadFixed(wire.SignatureSize)
			if err != nil {
				return [wire.SignatureSize]byte{}, err
			}
			return [wire.SignatureSize]byte(b), nil
		},
		format: func(v [wire.SignatureSize]byte) string {
			return formatByteList(v[:])
		},
	}
)

var (
	table      = make(map[string]*Codec, 27)
	vocabulary []string
)

func register[T any](tag TypeTag, ru rules[T]) {
	name := tag.String()
	table[name] = ru.codec(tag)
	vocabulary = append(vocabulary, name)
}

func init() {
	register(Int(8, true), i8)
	register(Int(16, true), i16)
	register(Int(32, true), i32)
	register(Int(64, true), i64)
	register(Int(128, true), i128)
	register(Int(8, false), u8)
	register(Int(16, false), u16)
	register(Int(32, false), u32)
	register(Int(64, false), u64)
	register(Int(128, false), u128)
	register(Bool(), boolean)
	register(Text(), text)
	register(AddressTag(), address)
	register(FixedBytes(wire.HashSize), hash)
	register(FixedBytes(wire.SignatureSize), signature)

	register(Sequence(Int(8, true)), sequenceOf(i8, true))
	register(Sequence(Int(16, true)), sequenceOf(i16, true))
	register(Sequence(Int(32, true)), sequenceOf(i32, true))
	register(Sequence(Int(64, true)), sequenceOf(i64, true))
	register(Sequence(Int(128, true)), sequenceOf(i128, true))
	register(Sequence(Int(8, false)), sequenceOf(u8, true))
	register(Sequence(Int(16, false)), sequenceOf(u16, true))
	register(Sequence(Int(32, false)), sequenceOf(u32, true))
	register(Sequence(Int(64, false)), sequenceOf(u64, true))
	register(Sequence(Int(128, false)), sequenceOf(u128, true))
	register(Sequence(Bool()), sequenceOf(boolean, false))
	register(Sequence(Text()), sequenceOf(text, false))
}
