package pagevar

import "context"

// ScriptElementID is the id attribute of every injected script element. It is fixed and
// shared by all extractions, use Script.Ref to find a particular one.
const ScriptElementID = "chromeExtensionDataPropagator"

// RefAttribute holds Script.Ref on the injected element.
const RefAttribute = "data-extraction"

// Script to be inserted into the page's document as an inline script element.
type Script struct {
	ID     string // id attribute
	Ref    string // unique, non secret, value of RefAttribute
	Source string // text content, runs in the page world
}

// StopFunc unsubscribes a MessageHandler.
type StopFunc func()

// Page is a document shared by a page world and the isolated world we run in.
type Page interface {
	// AppendScript inserts the script element into the document body. Whether it then runs
	// is up to the page (content security policy), no error is returned if it is blocked.
	AppendScript(ctx context.Context, script *Script) error
	// RemoveScript removes elements with RefAttribute == ref
	RemoveScript(ctx context.Context, ref string) error
	// Listen subscribes fn to every message event on the page's window, from any world.
	Listen(ctx context.Context, fn MessageHandler) (StopFunc, error)
}
