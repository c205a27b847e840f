package reference_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/travel-checkout/internal/reference"
)

func newCodec(t *testing.T, opts reference.Options) *reference.Codec {
	t.Helper()
	codec, err := reference.NewCodec(opts)
	require.NoError(t, err)
	return codec
}

func TestCodec_RoundTrip(t *testing.T) {
	codecs := map[string]reference.Options{
		"default":         {},
		"min_length":      {MinLength: 10},
		"salted":          {Salt: "wanderlust", MinLength: 6},
		"custom_alphabet": {Alphabet: "k3G7QAe51FCsPW92uEOyq4Bg6Sp8YzVTmnU0liwDdHXLajZrfxNhobJIRcMvKt"},
	}

	ids := []uint64{0, 1, 2, 41, 42, 43, 999, 1000, 123456789, math.MaxInt64, math.MaxUint64}

	for name, opts := range codecs {
		t.Run(name, func(t *testing.T) {
			codec := newCodec(t, opts)
			for _, id := range ids {
				token, err := codec.EncodeID(id)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, len(token), opts.MinLength)
				assert.Equal(t, []uint64{id}, codec.Decode(token), "token %q", token)

				got, err := codec.DecodeID(token)
				require.NoError(t, err)
				assert.Equal(t, id, got)
			}
		})
	}
}

func TestCodec_EncodeIsDeterministic(t *testing.T) {
	first := newCodec(t, reference.Options{MinLength: 8, Salt: "tours"})
	second := newCodec(t, reference.Options{MinLength: 8, Salt: "tours"})

	for _, id := range []uint64{1, 42, 7777} {
		a, err := first.EncodeID(id)
		require.NoError(t, err)
		b, err := first.EncodeID(id)
		require.NoError(t, err)
		c, err := second.EncodeID(id)
		require.NoError(t, err)

		assert.Equal(t, a, b)
		assert.Equal(t, a, c)
	}
}

func TestCodec_MultipleIDs(t *testing.T) {
	codec := newCodec(t, reference.Options{})

	token, err := codec.Encode([]uint64{42, 7, 0})
	require.NoError(t, err)
	assert.Equal(t, []uint64{42, 7, 0}, codec.Decode(token))

	_, err = codec.DecodeID(token)
	assert.ErrorIs(t, err, reference.ErrInvalidReference)
}

func TestCodec_SequentialIDsDoNotLookSequential(t *testing.T) {
	codec := newCodec(t, reference.Options{MinLength: 6, Salt: "wanderlust"})

	a, err := codec.EncodeID(100)
	require.NoError(t, err)
	b, err := codec.EncodeID(101)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 6)
	assert.Len(t, b, 6)
}

func TestCodec_SaltChangesTokens(t *testing.T) {
	plain := newCodec(t, reference.Options{})
	salted := newCodec(t, reference.Options{Salt: "wanderlust"})

	a, err := plain.EncodeID(42)
	require.NoError(t, err)
	b, err := salted.EncodeID(42)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestCodec_DecodeRejectsGarbage(t *testing.T) {
	codec := newCodec(t, reference.Options{MinLength: 6})

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "dash", token: "abc-def"},
		{name: "space", token: "abc def"},
		{name: "slash", token: "../etc"},
		{name: "unicode", token: "abcdéf"},
		{name: "percent", token: "%2e%2e"},
		{name: "sql", token: "1' OR '1'='1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, []uint64{}, codec.Decode(tt.token))

			_, err := codec.DecodeID(tt.token)
			assert.ErrorIs(t, err, reference.ErrInvalidReference)
		})
	}
}

func TestCodec_DecodeRejectsNonCanonical(t *testing.T) {
	codec := newCodec(t, reference.Options{MinLength: 10})

	token, err := codec.EncodeID(42)
	require.NoError(t, err)

	// Dropping padding keeps every character inside the alphabet but the
	// result is no longer what Encode would produce.
	short := token[:len(token)-3]
	assert.Equal(t, []uint64{}, codec.Decode(short))
}

func TestNewCodec_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts reference.Options
	}{
		{name: "short_alphabet", opts: reference.Options{Alphabet: "ab"}},
		{name: "repeated_characters", opts: reference.Options{Alphabet: "aabcdefghijk"}},
		{name: "negative_min_length", opts: reference.Options{MinLength: -1}},
		{name: "min_length_too_large", opts: reference.Options{MinLength: 256}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codec, err := reference.NewCodec(tt.opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, reference.ErrInvalidOptions)
			assert.Nil(t, codec)
		})
	}
}

func TestCodec_EncodeEmpty(t *testing.T) {
	codec := newCodec(t, reference.Options{})

	_, err := codec.Encode(nil)
	assert.ErrorIs(t, err, reference.ErrInvalidReference)
}
