package model

import (
	"math/rand"
	"sync/atomic"
	"time"
)

var lastMessageID atomic.Int64

// NewMessageID returns a time-based message id. A random offset spreads ids
// generated within the same millisecond, and a monotonic clamp guarantees
// two consecutive calls never collide.
func NewMessageID() int64 {
	id := time.Now().UnixMilli()*1000 + rand.Int63n(1000)
	for {
		last := lastMessageID.Load()
		if id <= last {
			id = last + 1
		}
		if lastMessageID.CompareAndSwap(last, id) {
			return id
		}
	}
}
