package codecerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCannotParseRendering(t *testing.T) {
	assert.Equal(t, "cannot parse Vec<u8>", CannotParse("Vec<u8>").Error())
	assert.Equal(t, "cannot parse u8 (caused by: boom)", CannotParseCause("u8", errors.New("boom")).Error())
}

func TestBuilderRendering(t *testing.T) {
	err := New(PhaseDecode, KindTruncatedText).Tag("String").Offset(4).Detail("need %d bytes", 9).Build()
	assert.Equal(t, "[decode] truncated_text String at offset 4: need 9 bytes", err.Error())
	assert.True(t, err.Fatal())

	err = New(PhaseEncode, KindTypeMismatch).Build()
	assert.Equal(t, "[encode] type_mismatch", err.Error())
	assert.False(t, err.Fatal())
}

func TestIsMatchesKindAndPhase(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Truncated(KindTruncatedBuffer, 0, 4, 1))
	assert.ErrorIs(t, err, ErrTruncatedBuffer)
	assert.NotErrorIs(t, err, ErrTruncatedText)
	assert.ErrorIs(t, err, &Error{Phase: PhaseDecode, Kind: KindTruncatedBuffer})
	assert.NotErrorIs(t, err, &Error{Phase: PhaseParse, Kind: KindTruncatedBuffer})
	assert.Equal(t, KindTruncatedBuffer, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestCauseChain(t *testing.T) {
	inner := New(PhaseParse, KindInvalidAddressLength).Tag("address").Build()
	err := CannotParseCause("address", inner)
	assert.ErrorIs(t, err, ErrCannotParse)
	assert.ErrorIs(t, err, ErrInvalidAddressLength)
}

func TestWithTag(t *testing.T) {
	base := Truncated(KindMalformedInteger, 0, 4, 2)
	tagged := WithTag(base, "u32")
	assert.Equal(t, "u32", tagged.(*Error).Tag)
	assert.Empty(t, base.Tag, "original untouched")

	assert.Equal(t, tagged, WithTag(tagged, "other"))

	plain := errors.New("plain")
	assert.Equal(t, plain, WithTag(plain, "u32"))
}

func TestRemote(t *testing.T) {
	err := Remote("cannot_parse", "cannot parse u8")
	assert.ErrorIs(t, err, ErrCannotParse)
	assert.Equal(t, "cannot parse u8", err.Error())

	err = Remote("timeout", "deadline exceeded")
	assert.Equal(t, Kind("timeout"), err.Kind)
	assert.Equal(t, "deadline exceeded", err.Error())
}
