// Package calldata assembles and disassembles the versioned call-data buffers
// used to invoke contract methods, and decodes their return values.
//
// Layout:
//
//	CallData     = u32le version (0) | CallEnvelope
//	CallEnvelope = Text(method_name) | ArgumentList
//	ArgumentList = u32le count | count * (u32le len | encoded argument)
//
// Buffers exchanged with other programs are carried as unpadded base64url
// text; see EncodeText and DecodeText.
package calldata

import (
	"encoding/base64"
	"fmt"
	"strings"

	"calldata-rpc/codecerr"
	"calldata-rpc/typetag"
	"calldata-rpc/wire"
)

// Version is the only call-data format version.
const Version uint32 = 0

// Envelope is a method name together with its encoded arguments.
type Envelope struct {
	MethodName string
	Arguments  [][]byte
}

// CallData is a versioned envelope. It is a value: build it, serialize it,
// and throw it away.
type CallData struct {
	Version  uint32
	Envelope Envelope
}

// EncodeArguments serializes an argument list.
func EncodeArguments(args [][]byte) []byte {
	size := wire.LenSize
	for _, a := range args {
		size += wire.LenSize + len(a)
	}
	w := wire.NewWriter(size)
	wire.WriteSeq(w, args, (*wire.Writer).WriteBytes)
	return w.Bytes()
}

// Bytes serializes the envelope.
func (e Envelope) Bytes() []byte {
	args := EncodeArguments(e.Arguments)
	w := wire.NewWriter(wire.LenSize + len(e.MethodName) + len(args))
	w.WriteString(e.MethodName)
	w.WriteFixed(args)
	return w.Bytes()
}

// Bytes serializes the call data.
func (c *CallData) Bytes() []byte {
	env := c.Envelope.Bytes()
	w := wire.NewWriter(4 + len(env))
	w.WriteU32(c.Version)
	w.WriteFixed(env)
	return w.Bytes()
}

// ParseArguments splits a serialized argument list back into its entries.
// Trailing bytes after the last entry are an error.
func ParseArguments(b []byte) ([][]byte, error) {
	r := wire.NewReader(b)
	args, err := wire.ReadSeq(r, (*wire.Reader).ReadBytes)
	if err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, trailing(r)
	}
	return args, nil
}

// ParseCallData reads a serialized CallData. The buffer must hold exactly one
// version 0 call with nothing after it.
func ParseCallData(b []byte) (*CallData, error) {
	r := wire.NewReader(b)
	version, err := r.ReadU32()
	if err != nil {
		return nil, codecerr.WithTag(err, "version")
	}
	if version != Version {
		return nil, codecerr.New(codecerr.PhaseDecode, codecerr.KindInvalidEnvelope).
			Offset(0).
			Detail("unsupported version %d", version).
			Build()
	}
	method, err := r.ReadString()
	if err != nil {
		return nil, codecerr.WithTag(err, "method_name")
	}
	args, err := wire.ReadSeq(r, (*wire.Reader).ReadBytes)
	if err != nil {
		return nil, codecerr.WithTag(err, "arguments")
	}
	if r.Remaining() != 0 {
		return nil, trailing(r)
	}
	return &CallData{
		Version:  version,
		Envelope: Envelope{MethodName: method, Arguments: args},
	}, nil
}

func trailing(r *wire.Reader) error {
	return codecerr.New(codecerr.PhaseDecode, codecerr.KindInvalidEnvelope).
		Offset(r.Offset()).
		Detail("%d trailing bytes", r.Remaining()).
		Build()
}

// Display renders the call for people. Argument i is decoded with tags[i]
// when given and known; otherwise its raw bytes are shown as base64url.
func (c *CallData) Display(tags ...string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "version: %d\n", c.Version)
	fmt.Fprintf(&b, "method_name: %q\n", c.Envelope.MethodName)
	fmt.Fprintf(&b, "arguments: %d\n", len(c.Envelope.Arguments))
	for i, arg := range c.Envelope.Arguments {
		var tag string
		if i < len(tags) {
			tag = tags[i]
		}
		codec, ok := typetag.Lookup(tag)
		if !ok {
			fmt.Fprintf(&b, "  [%d] %s\n", i, EncodeText(arg))
			continue
		}
		s, err := codec.Read(wire.NewReader(arg))
		if err != nil {
			return "", fmt.Errorf("argument %d: %w", i, err)
		}
		fmt.Fprintf(&b, "  [%d] %s: %s\n", i, tag, s)
	}
	return b.String(), nil
}

// EncodeText renders b as unpadded base64url.
func EncodeText(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeText parses unpadded base64url. Trailing '=' padding is tolerated.
func DecodeText(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(strings.TrimSpace(s), "="))
	if err != nil {
		return nil, codecerr.New(codecerr.PhaseDecode, codecerr.KindInvalidEnvelope).
			Cause(err).
			Detail("not base64url text").
			Build()
	}
	return b, nil
}
