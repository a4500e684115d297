package calldata

import (
	"calldata-rpc/codecerr"
	"calldata-rpc/typetag"
	"calldata-rpc/wire"
)

// Option configures a Builder.
type Option func(*Builder)

// WithStrictTags makes tags outside the vocabulary an unknown_tag error
// instead of a silent no-op.
func WithStrictTags() Option {
	return func(b *Builder) {
		b.strict = true
	}
}

// Builder accumulates encoded arguments in call order. It is not safe for
// concurrent use.
type Builder struct {
	args   [][]byte
	strict bool
}

// NewBuilder returns an empty Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) lookup(tag string) (*typetag.Codec, error) {
	c, ok := typetag.Lookup(tag)
	if !ok && b.strict {
		return nil, codecerr.UnknownTag(codecerr.PhaseEncode, tag)
	}
	return c, nil
}

// Insert appends v, the Go representation of tag (see package typetag).
// Unknown tags are skipped unless the builder is strict.
func (b *Builder) Insert(tag string, v any) error {
	c, err := b.lookup(tag)
	if c == nil {
		return err
	}
	w := wire.NewWriter(16)
	if err := c.Encode(w, v); err != nil {
		return err
	}
	b.args = append(b.args, w.Bytes())
	return nil
}

// InsertFromStr parses text as a literal of tag and appends it. On error
// nothing is appended and earlier arguments are untouched. Unknown tags are
// skipped unless the builder is strict.
func (b *Builder) InsertFromStr(tag, text string) error {
	c, err := b.lookup(tag)
	if c == nil {
		return err
	}
	w := wire.NewWriter(len(text))
	if err := c.Write(w, text); err != nil {
		return err
	}
	b.args = append(b.args, w.Bytes())
	return nil
}

// Len returns the number of arguments inserted so far.
func (b *Builder) Len() int {
	return len(b.args)
}

// Arguments returns the encoded arguments in insertion order.
func (b *Builder) Arguments() [][]byte {
	out := make([][]byte, len(b.args))
	copy(out, b.args)
	return out
}

// MakeData returns the full call-data buffer for method together with the
// standalone argument list, which view calls send without the version and
// method wrapper.
func (b *Builder) MakeData(method string) (data, args []byte) {
	cd := CallData{
		Version:  Version,
		Envelope: Envelope{MethodName: method, Arguments: b.args},
	}
	return cd.Bytes(), EncodeArguments(b.args)
}
