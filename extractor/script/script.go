// Package script builds the JavaScript we evaluate or inject into pages. The sources live
// in .js files next to this one and are called as function expressions with JSON encoded
// arguments, so caller supplied strings are never spliced into code.
package script

import (
	"bytes"
	_ "embed" // for the .js sources
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// PropagateScript reads window[variableName] and posts it along with the handshake
//
//go:embed propagate.js
var PropagateScript string

// AppendScript inserts an inline script element, run from the isolated world
//
//go:embed append_script.js
var AppendScript string

// RemoveScript removes injected script elements by reference attribute
//
//go:embed remove_script.js
var RemoveScript string

// ForwardMessages hands every message event's data, as JSON, to a binding function
//
//go:embed forward_messages.js
var ForwardMessages string

// Literal encodes s as a JS string literal. <, > and & are escaped so the literal can
// sit inside a <script> element, as are U+2028 and U+2029.
func Literal(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(s); err != nil {
		return "", errors.Wrap(err, "failed to encode literal")
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// Call returns source for immediately invoking fnSource with args.
func Call(fnSource string, args ...string) (string, error) {
	var b strings.Builder
	b.WriteString("(")
	b.WriteString(strings.TrimSpace(fnSource))
	b.WriteString(")(")
	for i, arg := range args {
		lit, err := Literal(arg)
		if err != nil {
			return "", err
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(lit)
	}
	b.WriteString(");")
	return b.String(), nil
}

// Propagate is the page world program for one extraction
func Propagate(token, variableName string) (string, error) {
	return Call(PropagateScript, token, variableName)
}
