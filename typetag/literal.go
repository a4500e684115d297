package typetag

import (
	"encoding/base64"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"calldata-rpc/codecerr"
	"calldata-rpc/wire"
)

// numericList is the shape every integer list literal must have before it is
// split into elements.
var numericList = regexp.MustCompile(`^\[[\s\d,\-]*\]$`)

var (
	errSignPrefix = errors.New("explicit '+' sign is not accepted")
	errNotBool    = errors.New(`expected "true" or "false"`)
	errBrackets   = errors.New("sequence literal must be enclosed in [ ]")
	errShape      = errors.New("integer list contains characters other than digits, '-', ',' and whitespace")
)

// splitList breaks a bracketed literal into trimmed element strings. An
// empty or whitespace-only body yields no elements.
func splitList(text string, numeric bool) ([]string, error) {
	if len(text) < 2 || text[0] != '[' || text[len(text)-1] != ']' {
		return nil, errBrackets
	}
	if numeric && !numericList.MatchString(text) {
		return nil, errShape
	}
	body := text[1 : len(text)-1]
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}
	parts := strings.Split(body, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts, nil
}

func parseSigned(bits int) func(string) (int64, error) {
	return func(s string) (int64, error) {
		if strings.HasPrefix(s, "+") {
			return 0, errSignPrefix
		}
		return strconv.ParseInt(s, 10, bits)
	}
}

func parseUnsigned(bits int) func(string) (uint64, error) {
	return func(s string) (uint64, error) {
		return strconv.ParseUint(s, 10, bits)
	}
}

func parseBool(s string) (bool, error) {
	switch s {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, errNotBool
}

// parseByteList parses a numeric list literal of exactly n u8 values.
func parseByteList(text string, n int) ([]byte, error) {
	parts, err := splitList(text, true)
	if err != nil {
		return nil, err
	}
	if len(parts) != n {
		return nil, errors.New("expected " + strconv.Itoa(n) + " values, got " + strconv.Itoa(len(parts)))
	}
	out := make([]byte, n)
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return nil, err
		}
		out[i] = byte(v)
	}
	return out, nil
}

// Address is a 32-byte account address. Its text form is base64url without
// padding.
type Address [wire.HashSize]byte

// ParseAddress decodes the base64url text form. Trailing '=' padding is
// tolerated.
func ParseAddress(s string) (Address, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return Address{}, codecerr.CannotParseCause(tagAddress, err)
	}
	if len(raw) != wire.HashSize {
		return Address{}, codecerr.CannotParseCause(tagAddress,
			codecerr.New(codecerr.PhaseParse, codecerr.KindInvalidAddressLength).
				Tag(tagAddress).
				Detail("decoded %d bytes, want %d", len(raw), wire.HashSize).
				Build())
	}
	return Address(raw), nil
}

func (a Address) String() string {
	return base64.RawURLEncoding.EncodeToString(a[:])
}

func formatByteList(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) * 4)
	sb.WriteByte('[')
	for i, v := range b {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Itoa(int(v)))
	}
	sb.WriteByte(']')
	return sb.String()
}
