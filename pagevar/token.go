package pagevar

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// TokenWords is the number of 32 bit words of entropy in a Token (160 bits).
const TokenWords = 5

// Token is the one time handshake shared between the injected script and the listener.
// It is only ever compared, never parsed.
type Token string

// NewToken reads TokenWords random uint32s from r (crypto/rand if nil) and serializes them
// the way a Uint32Array prints: decimal words joined by commas. There is no fallback source,
// if r fails the error wraps ErrNoEntropy.
func NewToken(r io.Reader) (Token, error) {
	if r == nil {
		r = rand.Reader
	}

	buf := make([]byte, TokenWords*4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", errors.Wrap(ErrNoEntropy, err.Error())
	}

	words := make([]string, TokenWords)
	for i := 0; i < TokenWords; i++ {
		words[i] = strconv.FormatUint(uint64(binary.LittleEndian.Uint32(buf[i*4:])), 10)
	}
	return Token(strings.Join(words, ",")), nil
}

// Equal reports whether s is exactly this token.
func (t Token) Equal(s string) bool {
	if len(t) == 0 || len(s) != len(t) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(t), []byte(s)) == 1
}

func (t Token) String() string {
	return string(t)
}
