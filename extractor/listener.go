package extractor

import "gitlab.com/pagevar/pagevar"

// Listener authenticates broadcasts purely by token, it does not trust where a message
// came from since any script on the page can post to the same channel.
type Listener struct {
	token  pagevar.Token
	result *pagevar.Result
}

// NewListener for messages carrying token
func NewListener(token pagevar.Token) *Listener {
	return &Listener{token: token, result: pagevar.NewResult()}
}

// Handle is a pagevar.MessageHandler. Anything without our token is dropped without a
// trace, the first message with it settles the result.
func (l *Listener) Handle(msg pagevar.Message) {
	got, ok := msg.Token()
	if !ok || !l.token.Equal(got) {
		return
	}
	l.result.Resolve(msg)
}

// Result the listener settles
func (l *Listener) Result() *pagevar.Result {
	return l.result
}
