package pagevar

import "time"

// RecordState of a finished extraction
type RecordState int8

// revive:disable:var-naming
const (
	RecordInvalid RecordState = iota
	RecordResolved
	RecordTimedOut
	RecordCancelled
	RecordFailed
)

var RecordStateMap = map[RecordState]string{
	RecordInvalid:   "invalid",
	RecordResolved:  "resolved",
	RecordTimedOut:  "timed out",
	RecordCancelled: "cancelled",
	RecordFailed:    "failed",
}

func (s RecordState) String() string {
	if str, ok := RecordStateMap[s]; ok {
		return str
	}
	return "unknown"
}

// Record of an extraction, kept by the history store
type Record struct {
	ID        string      `graph:"id"`
	URL       string      `graph:"url"`
	Variable  string      `graph:"variable"`
	State     RecordState `graph:"state"`
	Present   bool        `graph:"present"` // false if the page had no such variable
	Value     interface{} `graph:"value"`   // as decoded from the message
	Error     string      `graph:"error"`
	Started   time.Time   `graph:"started"`
	Completed time.Time   `graph:"completed"`
}
