package script_test

import (
	"strings"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/pagevar/extractor/script"
)

type posted struct {
	data   map[string]interface{}
	target string
}

// testWindow is just enough of a page world to run the propagate script
func testWindow(t *testing.T) (*goja.Runtime, *[]posted) {
	vm := goja.New()
	var out []posted
	window := vm.GlobalObject()
	require.NoError(t, vm.Set("window", window))
	require.NoError(t, window.Set("postMessage", func(call goja.FunctionCall) goja.Value {
		data, _ := call.Argument(0).Export().(map[string]interface{})
		out = append(out, posted{data: data, target: call.Argument(1).String()})
		return goja.Undefined()
	}))
	return vm, &out
}

func TestLiteralEscaping(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`plain`, `"plain"`},
		{`a"b`, `"a\"b"`},
		{`it's`, `"it's"`},
		{`</script>`, `"\u003c/script\u003e"`},
		{"line\u2028sep", `"line\u2028sep"`},
		{"back\\slash", `"back\\slash"`},
	}
	for _, tt := range tests {
		got, err := script.Literal(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestPropagateShape(t *testing.T) {
	src, err := script.Propagate("1,2,3,4,5", "exampleVar")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(src, "(function propagateVariable"))
	assert.True(t, strings.HasSuffix(src, `)("1,2,3,4,5", "exampleVar");`))
	assert.NotContains(t, src, "</script>")
}

func TestPropagateRuns(t *testing.T) {
	vm, out := testWindow(t)
	_, err := vm.RunString(`var exampleVar = {a: 1, b: [2, 3]};`)
	require.NoError(t, err)

	src, err := script.Propagate("9,9,9,9,9", "exampleVar")
	require.NoError(t, err)
	_, err = vm.RunString(src)
	require.NoError(t, err)

	require.Len(t, *out, 1)
	msg := (*out)[0]
	assert.Equal(t, "*", msg.target)
	assert.Equal(t, "9,9,9,9,9", msg.data["handShake"])
	assert.Contains(t, msg.data, "exampleVar")
}

func TestPropagateHostileName(t *testing.T) {
	name := `x"); window.pwned = true; ("</script>`
	vm, out := testWindow(t)
	require.NoError(t, vm.GlobalObject().Set(name, "ok"))

	src, err := script.Propagate("tok", name)
	require.NoError(t, err)
	_, err = vm.RunString(src)
	require.NoError(t, err)

	pwned := vm.Get("pwned")
	assert.True(t, pwned == nil || goja.IsUndefined(pwned))
	require.Len(t, *out, 1)
	assert.Equal(t, "ok", (*out)[0].data[name])
}

func TestCallArgs(t *testing.T) {
	src, err := script.Call("function (a, b) { return a + b; }", "x", "y")
	require.NoError(t, err)
	v, err := goja.New().RunString(src)
	require.NoError(t, err)
	assert.Equal(t, "xy", v.String())
}
