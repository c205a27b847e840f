// Package reference turns internal numeric ids into short public tokens and back.
package reference

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sqids/sqids-go"
)

var (
	ErrInvalidReference = errors.New("invalid reference")
	ErrInvalidOptions   = errors.New("invalid reference codec options")
)

// DefaultAlphabet is the sqids default alphabet.
const DefaultAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type Options struct {
	Alphabet  string
	MinLength int
	Salt      string
}

// Codec is safe for concurrent use; it holds no mutable state after construction.
type Codec struct {
	alphabet string
	sqids    *sqids.Sqids
}

func NewCodec(opts Options) (*Codec, error) {
	alphabet := opts.Alphabet
	if alphabet == "" {
		alphabet = DefaultAlphabet
	}

	if opts.MinLength < 0 || opts.MinLength > 255 {
		return nil, fmt.Errorf("%w: min length must be within 0..255, got %d", ErrInvalidOptions, opts.MinLength)
	}

	if opts.Salt != "" {
		alphabet = shuffle(alphabet, opts.Salt)
	}

	s, err := sqids.New(sqids.Options{
		Alphabet:  alphabet,
		MinLength: uint8(opts.MinLength),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	return &Codec{alphabet: alphabet, sqids: s}, nil
}

// Encode produces the token for ids. The same ids always give the same token.
func (c *Codec) Encode(ids []uint64) (string, error) {
	if len(ids) == 0 {
		return "", fmt.Errorf("%w: nothing to encode", ErrInvalidReference)
	}

	token, err := c.sqids.Encode(ids)
	if err != nil {
		return "", fmt.Errorf("failed to encode reference: %w", err)
	}

	return token, nil
}

func (c *Codec) EncodeID(id uint64) (string, error) {
	return c.Encode([]uint64{id})
}

// Decode returns the ids behind token, or an empty slice when the token has
// characters outside the alphabet or is not the canonical encoding of its ids.
func (c *Codec) Decode(token string) []uint64 {
	if token == "" {
		return []uint64{}
	}

	for _, r := range token {
		if !strings.ContainsRune(c.alphabet, r) {
			return []uint64{}
		}
	}

	ids := c.sqids.Decode(token)
	if len(ids) == 0 {
		return []uint64{}
	}

	canonical, err := c.sqids.Encode(ids)
	if err != nil || canonical != token {
		return []uint64{}
	}

	return ids
}

// DecodeID expects a token that carries exactly one id.
func (c *Codec) DecodeID(token string) (uint64, error) {
	ids := c.Decode(token)
	if len(ids) != 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidReference, token)
	}

	return ids[0], nil
}

// shuffle permutes alphabet deterministically by salt.
func shuffle(alphabet, salt string) string {
	a := []rune(alphabet)
	s := []rune(salt)

	for i, v, p := len(a)-1, 0, 0; i > 0; i-- {
		v %= len(s)
		n := int(s[v])
		p += n
		j := (n + v + p) % i
		a[i], a[j] = a[j], a[i]
		v++
	}

	return string(a)
}
