package pagevar_test

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"gitlab.com/pagevar/pagevar"
)

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("no entropy here")
}

func TestNewTokenFormat(t *testing.T) {
	tok, err := pagevar.NewToken(nil)
	if err != nil {
		t.Fatalf("error generating token: %s\n", err)
	}

	words := strings.Split(tok.String(), ",")
	if len(words) != pagevar.TokenWords {
		t.Fatalf("expected %d words got %d (%s)\n", pagevar.TokenWords, len(words), tok)
	}
	for _, w := range words {
		if _, err := strconv.ParseUint(w, 10, 32); err != nil {
			t.Fatalf("word %q is not a uint32: %s\n", w, err)
		}
	}
}

func TestNewTokenDeterministicReader(t *testing.T) {
	src := bytes.Repeat([]byte{1, 0, 0, 0}, pagevar.TokenWords)
	tok, err := pagevar.NewToken(bytes.NewReader(src))
	if err != nil {
		t.Fatalf("error generating token: %s\n", err)
	}
	if tok != "1,1,1,1,1" {
		t.Fatalf("expected 1,1,1,1,1 got %s\n", tok)
	}
}

func TestNewTokenNoEntropy(t *testing.T) {
	_, err := pagevar.NewToken(failingReader{})
	if !errors.Is(err, pagevar.ErrNoEntropy) {
		t.Fatalf("expected ErrNoEntropy got %v\n", err)
	}

	// short reads are not padded out
	_, err = pagevar.NewToken(bytes.NewReader([]byte{1, 2, 3}))
	if !errors.Is(err, pagevar.ErrNoEntropy) {
		t.Fatalf("expected ErrNoEntropy for short read got %v\n", err)
	}
}

func TestNewTokenUnique(t *testing.T) {
	const n = 10000
	seen := make(map[pagevar.Token]struct{}, n)
	for i := 0; i < n; i++ {
		tok, err := pagevar.NewToken(nil)
		if err != nil {
			t.Fatalf("error generating token %d: %s\n", i, err)
		}
		if _, exists := seen[tok]; exists {
			t.Fatalf("collision after %d tokens: %s\n", i, tok)
		}
		seen[tok] = struct{}{}
	}
}

func TestTokenEqual(t *testing.T) {
	tok := pagevar.Token("1,2,3,4,5")
	if !tok.Equal("1,2,3,4,5") {
		t.Fatalf("token should equal itself")
	}
	for _, other := range []string{"", "1,2,3,4,6", "1,2,3,4,5 ", "1,2,3,4"} {
		if tok.Equal(other) {
			t.Fatalf("token should not equal %q", other)
		}
	}
	if pagevar.Token("").Equal("") {
		t.Fatalf("empty token must never match")
	}
}
