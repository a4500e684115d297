package typetag

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calldata-rpc/codecerr"
	"calldata-rpc/wire"
)

func encode(t *testing.T, tag, text string) []byte {
	t.Helper()
	c, ok := Lookup(tag)
	require.True(t, ok, tag)
	w := wire.NewWriter(0)
	require.NoError(t, c.Write(w, text), "%s %q", tag, text)
	return w.Bytes()
}

func decode(t *testing.T, tag string, b []byte) string {
	t.Helper()
	c, ok := Lookup(tag)
	require.True(t, ok, tag)
	r := wire.NewReader(b)
	s, err := c.Read(r)
	require.NoError(t, err, tag)
	assert.Zero(t, r.Remaining(), tag)
	return s
}

func TestVocabulary(t *testing.T) {
	want := []string{
		"i8", "i16", "i32", "i64", "i128",
		"u8", "u16", "u32", "u64", "u128",
		"bool", "String", "address", "[32]", "[64]",
		"Vec<i8>", "Vec<i16>", "Vec<i32>", "Vec<i64>", "Vec<i128>",
		"Vec<u8>", "Vec<u16>", "Vec<u32>", "Vec<u64>", "Vec<u128>",
		"Vec<bool>", "Vec<String>",
	}
	assert.Equal(t, want, Vocabulary())

	for _, name := range want {
		tag, ok := Parse(name)
		require.True(t, ok, name)
		assert.Equal(t, name, tag.String())
	}

	for _, bad := range []string{"", "i256", "string", "Vec<address>", "Vec<[32]>", "Vec<Vec<u8>>", "[16]", " i8"} {
		_, ok := Parse(bad)
		assert.False(t, ok, bad)
	}
}

func TestTagShape(t *testing.T) {
	tag := MustParse("Vec<u16>")
	assert.Equal(t, KindSequence, tag.Kind())
	assert.True(t, tag.Numeric())
	elem, ok := tag.Elem()
	require.True(t, ok)
	assert.Equal(t, Int(16, false), elem)

	assert.False(t, MustParse("Vec<bool>").Numeric())
	assert.True(t, MustParse("[64]").Numeric())
	assert.Equal(t, 64, MustParse("[64]").Size())
	assert.Equal(t, KindAddress, MustParse("address").Kind())

	assert.Panics(t, func() { MustParse("nope") })
}

func TestScalarEncoding(t *testing.T) {
	cases := []struct {
		tag  string
		text string
		want []byte
	}{
		{"i8", "-1", []byte{0xff}},
		{"u8", "255", []byte{0xff}},
		{"i16", "-30000", []byte{0xd0, 0x8a}},
		{"u32", "4294967295", []byte{0xff, 0xff, 0xff, 0xff}},
		{"i64", "-2", []byte{0xfe, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
		{"u128", "1", append([]byte{1}, make([]byte, 15)...)},
		{"i128", "-1", bytes.Repeat([]byte{0xff}, 16)},
		{"bool", "true", []byte{0x01}},
		{"bool", "false", []byte{0x00}},
		{"String", "foo", []byte{3, 0, 0, 0, 'f', 'o', 'o'}},
		{"String", "", []byte{0, 0, 0, 0}},
		{"Vec<i8>", "[-1]", []byte{1, 0, 0, 0, 0xff}},
		{"Vec<u16>", "[ 1 , 2 ]", []byte{2, 0, 0, 0, 1, 0, 2, 0}},
		{"Vec<bool>", "[true,false,true]", []byte{3, 0, 0, 0, 1, 0, 1}},
		{"Vec<String>", "[a, bc]", []byte{2, 0, 0, 0, 1, 0, 0, 0, 'a', 2, 0, 0, 0, 'b', 'c'}},
		{"Vec<u8>", "[]", []byte{0, 0, 0, 0}},
		{"Vec<String>", "[ ]", []byte{0, 0, 0, 0}},
	}
	for _, tc := range cases {
		t.Run(tc.tag+" "+tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, encode(t, tc.tag, tc.text))
		})
	}
}

func TestParseRejects(t *testing.T) {
	cases := []struct {
		tag  string
		text string
	}{
		{"i8", "128"},
		{"i8", "+1"},
		{"i8", " 1"},
		{"u8", "256"},
		{"u8", "-1"},
		{"u16", "+1"},
		{"u64", "18446744073709551616"},
		{"i128", "1e3"},
		{"bool", "True"},
		{"bool", "1"},
		{"Vec<i8>", "1,2"},
		{"Vec<i8>", "[1,a]"},
		{"Vec<i8>", "[1,,2]"},
		{"Vec<u32>", "x[1,2]y"},
		{"Vec<bool>", "x[true]y"},
		{"Vec<bool>", "[true,yes]"},
		{"Vec<String>", "a,b"},
		{"[32]", "[1,2,3]"},
		{"[64]", "[256" + strings.Repeat(",0", 63) + "]"},
	}
	for _, tc := range cases {
		t.Run(tc.tag+" "+tc.text, func(t *testing.T) {
			c, ok := Lookup(tc.tag)
			require.True(t, ok)
			w := wire.NewWriter(0)
			err := c.Write(w, tc.text)
			require.ErrorIs(t, err, codecerr.ErrCannotParse)
			assert.Equal(t, "cannot parse "+tc.tag, strings.SplitN(err.Error(), " (", 2)[0])
			assert.Zero(t, w.Len(), "failed parse must not write")

			var ce *codecerr.Error
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.tag, ce.Tag)
			assert.False(t, ce.Fatal())
		})
	}
}

func TestFixedBytesLength(t *testing.T) {
	list := func(n int) string {
		vs := make([]string, n)
		for i := range vs {
			vs[i] = "7"
		}
		return "[" + strings.Join(vs, ",") + "]"
	}
	c, _ := Lookup("[32]")

	for _, n := range []int{31, 33} {
		err := c.Write(wire.NewWriter(0), list(n))
		assert.ErrorIs(t, err, codecerr.ErrCannotParse, n)
	}

	got := encode(t, "[32]", list(32))
	assert.Equal(t, bytes.Repeat([]byte{7}, 32), got, "no length prefix")
	assert.Equal(t, "["+strings.Repeat("7, ", 31)+"7]", decode(t, "[32]", got))

	got = encode(t, "[64]", list(64))
	assert.Len(t, got, 64)
}

func TestAddress(t *testing.T) {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i * 7)
	}
	text := base64.RawURLEncoding.EncodeToString(raw)

	got := encode(t, "address", text)
	assert.Equal(t, raw, got)
	assert.Equal(t, text, decode(t, "address", got))

	for _, n := range []int{31, 33} {
		short := base64.RawURLEncoding.EncodeToString(make([]byte, n))
		_, err := ParseAddress(short)
		require.ErrorIs(t, err, codecerr.ErrCannotParse, n)
		assert.ErrorIs(t, err, codecerr.ErrInvalidAddressLength, n)
		assert.Equal(t, "address", err.(*codecerr.Error).Tag)
	}

	_, err := ParseAddress("not base64!")
	assert.ErrorIs(t, err, codecerr.ErrCannotParse)

	padded := base64.URLEncoding.EncodeToString(raw)
	a, err := ParseAddress(padded)
	require.NoError(t, err)
	assert.Equal(t, text, a.String())
}

func TestDecodeFormat(t *testing.T) {
	cases := []struct {
		tag  string
		in   []byte
		want string
	}{
		{"bool", []byte{0x01}, "true"},
		{"bool", []byte{0x02}, "true"},
		{"bool", []byte{0x00}, "false"},
		{"i8", []byte{0xff}, "-1"},
		{"u16", []byte{123, 0}, "123"},
		{"i128", encode(t, "i128", "-111199999999999"), "-111199999999999"},
		{"u128", encode(t, "u128", "111199999999999"), "111199999999999"},
		{"String", []byte{5, 0, 0, 0, 'a', 's', 'd', 'a', 's'}, `"asdas"`},
		{"Vec<u8>", []byte{3, 0, 0, 0, 0, 1, 2}, "[0, 1, 2]"},
		{"Vec<i8>", []byte{3, 0, 0, 0, 0, 1, 0xfe}, "[0, 1, -2]"},
		{"Vec<u16>", []byte{1, 0, 0, 0, 99, 0}, "[99]"},
		{"Vec<i64>", encode(t, "Vec<i64>", "[-1,-6123123123]"), "[-1, -6123123123]"},
		{"Vec<bool>", []byte{3, 0, 0, 0, 1, 0, 0}, "[true, false, false]"},
		{"Vec<String>", encode(t, "Vec<String>", "[true,false,false]"), `["true", "false", "false"]`},
		{"Vec<u32>", []byte{0, 0, 0, 0}, "[]"},
		{"String", []byte{3, 0, 0, 0, 'a', 0x1b, 'b'}, `"a\x1bb"`},
		{"address", bytes.Repeat([]byte{0xab}, 32), "q6urq6urq6urq6urq6urq6urq6urq6urq6urq6urq6s"},
	}
	for _, tc := range cases {
		t.Run(tc.tag, func(t *testing.T) {
			assert.Equal(t, tc.want, decode(t, tc.tag, tc.in))
		})
	}
}

func TestDecodeErrorsAreFatalAndTagged(t *testing.T) {
	cases := []struct {
		tag  string
		in   []byte
		want *codecerr.Error
	}{
		{"u32", []byte{1, 2}, codecerr.ErrMalformedInteger},
		{"String", []byte{9, 0, 0, 0, 'a'}, codecerr.ErrTruncatedText},
		{"String", []byte{1, 0, 0, 0, 0xff}, codecerr.ErrInvalidUTF8},
		{"[32]", make([]byte, 31), codecerr.ErrTruncatedFixedBytes},
		{"address", make([]byte, 10), codecerr.ErrTruncatedFixedBytes},
		{"bool", nil, codecerr.ErrTruncatedBuffer},
		{"Vec<u64>", []byte{2, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0}, codecerr.ErrMalformedInteger},
	}
	for _, tc := range cases {
		t.Run(tc.tag, func(t *testing.T) {
			c, _ := Lookup(tc.tag)
			r := wire.NewReader(tc.in)
			_, err := c.Read(r)
			require.ErrorIs(t, err, tc.want)
			assert.Zero(t, r.Offset())

			var ce *codecerr.Error
			require.ErrorAs(t, err, &ce)
			assert.True(t, ce.Fatal())
			assert.Equal(t, tc.tag, ce.Tag)
		})
	}
}

func TestEncodeTypeMismatch(t *testing.T) {
	c, _ := Lookup("u8")
	err := c.Encode(wire.NewWriter(0), int8(1))
	assert.ErrorIs(t, err, codecerr.ErrTypeMismatch)

	c, _ = Lookup("Vec<String>")
	w := wire.NewWriter(0)
	require.NoError(t, c.Encode(w, []string{"x"}))
	assert.Equal(t, []byte{1, 0, 0, 0, 1, 0, 0, 0, 'x'}, w.Bytes())
}

func TestRoundTripAllTags(t *testing.T) {
	samples := map[string]string{
		"i8": "-128", "i16": "32767", "i32": "-2147483648", "i64": "9223372036854775807",
		"i128": "-170141183460469231731687303715884105728",
		"u8":   "0", "u16": "65535", "u32": "1", "u64": "18446744073709551615",
		"u128": "340282366920938463463374607431768211455",
		"bool": "true", "String": "héllo",
		"Vec<i8>": "[-1,0,1]", "Vec<i16>": "[-1]", "Vec<i32>": "[7,8]", "Vec<i64>": "[0]",
		"Vec<i128>": "[-1,0,1,-65656565,0]",
		"Vec<u8>":   "[0]", "Vec<u16>": "[65535,6535]", "Vec<u32>": "[65535,6535,1919]",
		"Vec<u64>":  "[65535,6535,1919112123223]", "Vec<u128>": "[18446744073709551616]",
		"Vec<bool>": "[true,false]", "Vec<String>": "[string data,asdaf,1d1 as2]",
	}
	for tag, text := range samples {
		b := encode(t, tag, text)
		c, _ := Lookup(tag)
		v, err := c.Decode(wire.NewReader(b))
		require.NoError(t, err, tag)

		w := wire.NewWriter(len(b))
		require.NoError(t, c.Encode(w, v), tag)
		assert.Equal(t, b, w.Bytes(), tag)
	}
}
