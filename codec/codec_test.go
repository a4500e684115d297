package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calldata-rpc/codecerr"
	"calldata-rpc/message"
)

func sample() *message.Message {
	return &message.Message{
		ServiceMethod: "Codec.Build",
		Payload:       []byte(`{"method_name":"hello","arguments":[]}`),
		Error:         "cannot parse u8",
		Kind:          "cannot_parse",
	}
}

func TestCodecsRoundTrip(t *testing.T) {
	for _, ct := range []CodecType{CodecTypeJSON, CodecTypeBinary} {
		t.Run(ct.String(), func(t *testing.T) {
			cdc := GetCodec(ct)
			assert.Equal(t, ct, cdc.Type())

			data, err := cdc.Encode(sample())
			require.NoError(t, err)

			var got message.Message
			require.NoError(t, cdc.Decode(data, &got))
			assert.Equal(t, *sample(), got)
		})
	}
}

func TestBinaryLayout(t *testing.T) {
	data, err := (&BinaryCodec{}).Encode(&message.Message{ServiceMethod: "A.B", Payload: []byte{9}})
	require.NoError(t, err)
	assert.Equal(t, []byte{
		3, 0, 0, 0, 'A', '.', 'B',
		1, 0, 0, 0, 9,
		0, 0, 0, 0,
		0, 0, 0, 0,
	}, data)
}

func TestBinaryDecodeRejectsGarbage(t *testing.T) {
	cdc := &BinaryCodec{}
	data, err := cdc.Encode(sample())
	require.NoError(t, err)

	var msg message.Message
	err = cdc.Decode(data[:len(data)-3], &msg)
	assert.ErrorIs(t, err, codecerr.ErrTruncatedText)

	err = cdc.Decode(append(data, 0), &msg)
	assert.Error(t, err)

	_, err = cdc.Encode("not a message")
	assert.Error(t, err)
}

func TestParseType(t *testing.T) {
	ct, err := ParseType("binary")
	require.NoError(t, err)
	assert.Equal(t, CodecTypeBinary, ct)

	ct, err = ParseType("")
	require.NoError(t, err)
	assert.Equal(t, CodecTypeJSON, ct)

	_, err = ParseType("protobuf")
	assert.Error(t, err)
}

func benchmarkCodec(b *testing.B, ct CodecType) {
	cdc := GetCodec(ct)
	msg := &message.Message{
		ServiceMethod: "Codec.Callback",
		Payload:       []byte(`{"value":"BAAAAKomAAA","type":"u32"}`),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		data, _ := cdc.Encode(msg)
		var out message.Message
		cdc.Decode(data, &out)
	}
}

func BenchmarkCodecJSON(b *testing.B)   { benchmarkCodec(b, CodecTypeJSON) }
func BenchmarkCodecBinary(b *testing.B) { benchmarkCodec(b, CodecTypeBinary) }
