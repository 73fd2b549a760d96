package pagevar

// HandshakeKey is the message field carrying the token. The injected script and the
// listener both hard code it.
const HandshakeKey = "handShake"

// Message is a broadcast as received by the isolated world after the channel's
// serialization: JS numbers are float64, arrays []interface{}, objects
// map[string]interface{}, dates time.Time. Properties holding undefined do not survive
// the crossing and show up as missing keys.
type Message map[string]interface{}

// Token returns the handshake field if it is present and a string.
func (m Message) Token() (string, bool) {
	v, ok := m[HandshakeKey]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Value of the extracted variable. The bool is false when the page had no such variable
// (or it held undefined), a null variable returns nil, true.
func (m Message) Value(name string) (interface{}, bool) {
	v, ok := m[name]
	return v, ok
}

// MessageHandler receives every message seen on the page's channel.
type MessageHandler func(msg Message)
