package pagevar_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/pagevar/pagevar"
)

func TestResultSettlesOnce(t *testing.T) {
	r := pagevar.NewResult()
	require.False(t, r.Settled())

	first := pagevar.Message{pagevar.HandshakeKey: "t", "v": "first"}
	second := pagevar.Message{pagevar.HandshakeKey: "t", "v": "second"}

	assert.True(t, r.Resolve(first))
	assert.False(t, r.Resolve(second))
	assert.False(t, r.Reject(pagevar.ErrTimedOut))
	require.True(t, r.Settled())

	msg, err := r.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", msg["v"])
}

func TestResultConcurrentSettle(t *testing.T) {
	r := pagevar.NewResult()
	var wg sync.WaitGroup
	wins := make(chan bool, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			wins <- r.Resolve(pagevar.Message{"i": float64(i)})
		}(i)
	}
	wg.Wait()
	close(wins)

	count := 0
	for won := range wins {
		if won {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestResultSettledAt(t *testing.T) {
	r := pagevar.NewResult()
	assert.True(t, r.SettledAt().IsZero())

	before := time.Now()
	r.Resolve(pagevar.Message{})
	at := r.SettledAt()
	assert.False(t, at.Before(before))

	time.Sleep(10 * time.Millisecond)
	r.Reject(pagevar.ErrTimedOut)
	assert.Equal(t, at, r.SettledAt())
}

func TestResultReject(t *testing.T) {
	r := pagevar.NewResult()
	require.True(t, r.Reject(pagevar.ErrCancelled))
	msg, err := r.Wait(context.Background())
	assert.Nil(t, msg)
	assert.Equal(t, pagevar.ErrCancelled, err)
}

func TestResultWaitContext(t *testing.T) {
	r := pagevar.NewResult()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.Wait(ctx)
	assert.Equal(t, context.DeadlineExceeded, err)
	// waiting out does not settle
	assert.False(t, r.Settled())
}

func TestMessageAccessors(t *testing.T) {
	msg := pagevar.Message{pagevar.HandshakeKey: "tok", "nullVar": nil}

	tok, ok := msg.Token()
	assert.True(t, ok)
	assert.Equal(t, "tok", tok)

	v, ok := msg.Value("nullVar")
	assert.True(t, ok)
	assert.Nil(t, v)

	_, ok = msg.Value("missingVar")
	assert.False(t, ok)

	_, ok = pagevar.Message{pagevar.HandshakeKey: 12.0}.Token()
	assert.False(t, ok)
}
