package extractor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/pagevar/extractor"
	"gitlab.com/pagevar/pagevar"
)

func TestListenerTokenIsolation(t *testing.T) {
	t1, err := pagevar.NewToken(nil)
	require.NoError(t, err)

	l := extractor.NewListener(t1)
	for i := 0; i < 100; i++ {
		t2, err := pagevar.NewToken(nil)
		require.NoError(t, err)
		require.NotEqual(t, t1, t2)
		l.Handle(pagevar.Message{pagevar.HandshakeKey: t2.String(), "v": "forged"})
	}
	assert.False(t, l.Result().Settled())
}

func TestListenerDropsMalformed(t *testing.T) {
	tok := pagevar.Token("1,2,3,4,5")
	l := extractor.NewListener(tok)

	malformed := []pagevar.Message{
		nil,
		{},
		{"v": "no handshake"},
		{pagevar.HandshakeKey: nil},
		{pagevar.HandshakeKey: 12345.0},
		{pagevar.HandshakeKey: []interface{}{"1,2,3,4,5"}},
		{pagevar.HandshakeKey: ""},
		{"handshake": "1,2,3,4,5"},
	}
	for _, msg := range malformed {
		l.Handle(msg)
	}
	assert.False(t, l.Result().Settled())
}

func TestListenerFirstMatchWins(t *testing.T) {
	tok := pagevar.Token("1,2,3,4,5")
	l := extractor.NewListener(tok)

	l.Handle(pagevar.Message{pagevar.HandshakeKey: "1,2,3,4,5", "v": "first"})
	l.Handle(pagevar.Message{pagevar.HandshakeKey: "1,2,3,4,5", "v": "second"})

	require.True(t, l.Result().Settled())
	msg, err := l.Result().Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", msg["v"])
}
