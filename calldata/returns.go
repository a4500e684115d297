package calldata

import (
	"calldata-rpc/codecerr"
	"calldata-rpc/typetag"
	"calldata-rpc/wire"
)

// DecodeOptions control the read path.
type DecodeOptions struct {
	// Strict turns an unknown tag into an unknown_tag error instead of an
	// empty result.
	Strict bool
}

// DecodeValue decodes raw as a single value of tag and formats it. Bytes
// after the value are ignored.
func DecodeValue(raw []byte, tag string, opts DecodeOptions) (string, error) {
	c, ok := typetag.Lookup(tag)
	if !ok {
		if opts.Strict {
			return "", codecerr.UnknownTag(codecerr.PhaseDecode, tag)
		}
		return "", nil
	}
	return c.Read(wire.NewReader(raw))
}

// DecodeReturn strips the length-prefixed wrapper of a return envelope and
// decodes the value inside it.
func DecodeReturn(envelope []byte, tag string, opts DecodeOptions) (string, error) {
	raw, err := wire.NewReader(envelope).ReadBytes()
	if err != nil {
		return "", codecerr.WithTag(err, "return_value")
	}
	return DecodeValue(raw, tag, opts)
}

// FromCallback decodes a base64url return envelope as a value of tag.
func FromCallback(text, tag string, opts DecodeOptions) (string, error) {
	envelope, err := DecodeText(text)
	if err != nil {
		return "", err
	}
	return DecodeReturn(envelope, tag, opts)
}

// WrapReturn builds the return envelope around an encoded value.
func WrapReturn(raw []byte) []byte {
	w := wire.NewWriter(wire.LenSize + len(raw))
	w.WriteBytes(raw)
	return w.Bytes()
}
