package browser

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wirepair/gcd/gcdapi"
	"gitlab.com/pagevar/pagevar"
)

func TestScriptEvaluationErr(t *testing.T) {
	err := newScriptEvaluationErr(&gcdapi.RuntimeExceptionDetails{
		Text:      "Uncaught",
		Exception: &gcdapi.RuntimeRemoteObject{Description: "ReferenceError: x is not defined"},
	})
	if !strings.Contains(err.Error(), "ReferenceError") {
		t.Fatalf("expected exception description in %q", err.Error())
	}

	err = newScriptEvaluationErr(&gcdapi.RuntimeExceptionDetails{Text: "Uncaught"})
	if err.ExceptionText != "Uncaught" {
		t.Fatalf("expected text fallback got %q", err.ExceptionText)
	}
}

func TestLocalLeaserWithoutChrome(t *testing.T) {
	leaser := &LocalLeaser{browsers: nil, chromePath: ""}
	if _, err := leaser.Acquire(); err != ErrNoChrome {
		t.Fatalf("expected ErrNoChrome got %v", err)
	}
	if count, _ := NewLocalLeaser("/opt/custom/chrome").Count(); count != "0" {
		t.Fatalf("expected no browsers got %s", count)
	}
	if NewLocalLeaser("/opt/custom/chrome").ChromePath() != "/opt/custom/chrome" {
		t.Fatalf("expected explicit chrome path to win")
	}
}

func TestWorldDeliver(t *testing.T) {
	w := &World{name: "test"}
	ctx := context.Background()

	first := make([]pagevar.Message, 0)
	stop, err := w.Listen(ctx, func(msg pagevar.Message) { first = append(first, msg) })
	require.NoError(t, err)
	second := make([]pagevar.Message, 0)
	_, err = w.Listen(ctx, func(msg pagevar.Message) { second = append(second, msg) })
	require.NoError(t, err)

	w.deliver(`{"data":{"handShake":"1,1,1,1,1","v":[1,"a"]}}`)
	w.deliver(`{"data":"not an object"}`)
	w.deliver(`{}`)
	w.deliver(`not json`)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, []interface{}{float64(1), "a"}, first[0]["v"])

	first[0]["v"] = "changed"
	assert.Equal(t, []interface{}{float64(1), "a"}, second[0]["v"])

	stop()
	w.deliver(`{"data":{"again":true}}`)
	assert.Len(t, first, 1)
	assert.Len(t, second, 2)

	w.invalidate()
	_, err = w.Listen(ctx, func(pagevar.Message) {})
	assert.Equal(t, ErrWorldDestroyed, err)
}
