// Package debounce coalesces bursts of changes per key into a single
// delayed commit inside a Bubble Tea program. Each Schedule call issues a
// fresh token; only a fire message carrying the newest token for its key
// is accepted, so earlier ticks fall through harmlessly.
package debounce

import (
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultDelay is the quiet period before a commit fires.
const DefaultDelay = 500 * time.Millisecond

var owners atomic.Uint64

// FireMsg is delivered when a scheduled tick elapses.
type FireMsg struct {
	Owner uint64
	Key   string
	Seq   uint64
}

// Debouncer tracks the newest token per key. It is owned by a single
// model and is not safe for concurrent use.
type Debouncer struct {
	owner   uint64
	delay   time.Duration
	seq     uint64
	pending map[string]uint64
}

// New returns a debouncer with the given quiet period; non-positive
// delays fall back to DefaultDelay.
func New(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{
		owner:   owners.Add(1),
		delay:   delay,
		pending: make(map[string]uint64),
	}
}

// Delay returns the quiet period.
func (d *Debouncer) Delay() time.Duration { return d.delay }

// Schedule (re)starts the quiet period for key. Any tick issued earlier
// for the same key is superseded.
func (d *Debouncer) Schedule(key string) tea.Cmd {
	d.seq++
	seq := d.seq
	d.pending[key] = seq
	owner := d.owner
	return tea.Tick(d.delay, func(time.Time) tea.Msg {
		return FireMsg{Owner: owner, Key: key, Seq: seq}
	})
}

// Accept reports whether msg is the newest tick for its key and belongs
// to this debouncer. An accepted tick is consumed.
func (d *Debouncer) Accept(msg FireMsg) bool {
	if msg.Owner != d.owner {
		return false
	}
	seq, ok := d.pending[msg.Key]
	if !ok || seq != msg.Seq {
		return false
	}
	delete(d.pending, msg.Key)
	return true
}

// Owns reports whether msg was issued by this debouncer, current or not.
func (d *Debouncer) Owns(msg FireMsg) bool { return msg.Owner == d.owner }

// Pending reports whether key has an outstanding tick.
func (d *Debouncer) Pending(key string) bool {
	_, ok := d.pending[key]
	return ok
}

// Len returns the number of keys with an outstanding tick.
func (d *Debouncer) Len() int { return len(d.pending) }

// Cancel drops the outstanding tick for key.
func (d *Debouncer) Cancel(key string) {
	delete(d.pending, key)
}

// CancelAll drops every outstanding tick.
func (d *Debouncer) CancelAll() {
	clear(d.pending)
}
