package sandbox

import (
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cloneOf(t *testing.T, src string) (interface{}, bool, error) {
	t.Helper()
	vm := goja.New()
	v, err := vm.RunString(src)
	require.NoError(t, err)
	return newCloner(time.Time{}).clone(v)
}

func TestClonePrimitives(t *testing.T) {
	var cloneTests = []struct {
		src      string
		expected interface{}
		defined  bool
	}{
		{"undefined", nil, false},
		{"null", nil, true},
		{"42", float64(42), true},
		{"1.5", 1.5, true},
		{"'str'", "str", true},
		{"true", true, true},
	}

	for _, tt := range cloneTests {
		got, defined, err := cloneOf(t, tt.src)
		require.NoError(t, err, tt.src)
		assert.Equal(t, tt.defined, defined, tt.src)
		assert.Equal(t, tt.expected, got, tt.src)
	}
}

func TestCloneObjects(t *testing.T) {
	got, _, err := cloneOf(t, `({a: 1, b: [2, undefined, "x"], c: {d: null}, e: undefined})`)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"a": float64(1),
		"b": []interface{}{float64(2), nil, "x"},
		"c": map[string]interface{}{"d": nil},
	}, got)
}

func TestCloneSharedReference(t *testing.T) {
	got, _, err := cloneOf(t, `var shared = {n: 1}; ({left: shared, right: shared})`)
	require.NoError(t, err)
	m := got.(map[string]interface{})
	assert.Equal(t, m["left"], m["right"])
}

func TestCloneDateAndError(t *testing.T) {
	got, _, err := cloneOf(t, `new Date(0)`)
	require.NoError(t, err)
	when, ok := got.(time.Time)
	require.True(t, ok, "expected time.Time got %T", got)
	assert.True(t, when.Equal(time.Unix(0, 0)))

	got, _, err = cloneOf(t, `new TypeError("bad")`)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"name": "TypeError", "message": "bad"}, got)
}

func TestCloneRejects(t *testing.T) {
	for _, src := range []string{
		`(function() {})`,
		`({nested: {fn: function() {}}})`,
		`[1, Symbol("s")]`,
		`Symbol("top")`,
	} {
		_, _, err := cloneOf(t, src)
		assert.Error(t, err, src)
	}

	_, _, err := cloneOf(t, `var a = {}; a.self = a; a`)
	assert.True(t, errors.Is(err, errCyclic))
}

func TestCloneSparseArrays(t *testing.T) {
	v, defined, err := cloneOf(t, `var a = []; a[3] = 1; a`)
	require.NoError(t, err)
	assert.True(t, defined)
	assert.Equal(t, []interface{}{nil, nil, nil, float64(1)}, v)

	_, _, err = cloneOf(t, `var huge = []; huge[30000000] = 1; huge`)
	assert.Error(t, err)

	_, _, err = cloneOf(t, `var max = []; max[Math.pow(2, 32) - 2] = 1; max`)
	assert.Error(t, err)
}

func TestCloneStopsAtDeadline(t *testing.T) {
	vm := goja.New()
	v, err := vm.RunString(`Array.from({length: 5000}, function(_, i) { return {i: i}; })`)
	require.NoError(t, err)

	_, _, err = newCloner(time.Now().Add(-time.Second)).clone(v)
	assert.True(t, errors.Is(err, errCloneTimeout), "expected timeout got %v", err)

	out, _, err := newCloner(time.Now().Add(time.Minute)).clone(v)
	require.NoError(t, err)
	assert.Len(t, out, 5000)
}

func TestCopyValueIsDeep(t *testing.T) {
	orig := map[string]interface{}{"list": []interface{}{"a"}, "obj": map[string]interface{}{"k": "v"}}
	cp := copyValue(orig).(map[string]interface{})
	cp["list"].([]interface{})[0] = "changed"
	cp["obj"].(map[string]interface{})["k"] = "changed"
	assert.Equal(t, "a", orig["list"].([]interface{})[0])
	assert.Equal(t, "v", orig["obj"].(map[string]interface{})["k"])
}
