package browser

import (
	"github.com/pkg/errors"
	"github.com/wirepair/gcd/gcdapi"
)

// TabDisconnectedHandler is called when the tab crashes or the inspector was disconnected
type TabDisconnectedHandler func(tab *Tab, reason string)

// revive:exported
var (
	ErrNavigationTimedOut = errors.New("navigation timed out")
	ErrTabCrashed         = errors.New("tab crashed")
	ErrTabClosing         = errors.New("closing")
	ErrNavigating         = errors.New("error in navigation")
	ErrBrowserClosing     = errors.New("unable to load, as closing down")
	ErrNoTopFrame         = errors.New("top frame not found")
	ErrWorldDestroyed     = errors.New("isolated world was destroyed")
)

// InvalidTabErr when we are unable to access a tab
type InvalidTabErr struct {
	Message string
}

func (e *InvalidTabErr) Error() string {
	return "Unable to access tab: " + e.Message
}

// ScriptEvaluationErr returned when an injected script caused an error
type ScriptEvaluationErr struct {
	Message          string
	ExceptionText    string
	ExceptionDetails *gcdapi.RuntimeExceptionDetails
}

func (e *ScriptEvaluationErr) Error() string {
	return e.Message + " " + e.ExceptionText
}

func newScriptEvaluationErr(exp *gcdapi.RuntimeExceptionDetails) *ScriptEvaluationErr {
	e := &ScriptEvaluationErr{
		Message:          "script threw an exception:",
		ExceptionText:    exp.Text,
		ExceptionDetails: exp,
	}
	if exp.Exception != nil && exp.Exception.Description != "" {
		e.ExceptionText = exp.Exception.Description
	}
	return e
}
