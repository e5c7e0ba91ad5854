// Package generation implements the last-request-wins guard used by every
// dependent fetch. Each request takes a Ticket; its response may only be
// applied while that ticket is still the latest one issued.
package generation

import "sync/atomic"

type Ticket uint64

type Counter struct {
	latest atomic.Uint64
}

// Next issues a new ticket, superseding every ticket issued before it
func (c *Counter) Next() Ticket {
	return Ticket(c.latest.Add(1))
}

// Invalidate supersedes all outstanding tickets without issuing a new one
func (c *Counter) Invalidate() {
	c.latest.Add(1)
}

// Current reports whether t is still the most recently issued ticket
func (c *Counter) Current(t Ticket) bool {
	return t != 0 && uint64(t) == c.latest.Load()
}
