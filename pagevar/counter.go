package pagevar

import "sync/atomic"

var pageCounter int64

// GetPageID a global page (tab or sandbox) ID
func GetPageID() int64 {
	return atomic.AddInt64(&pageCounter, 1)
}
