// Package window tracks the sender's in-flight sequence numbers and
// their acknowledgement status, and advances the left edge as acks
// arrive in order.
//
// Unlike a cumulative-ack TCP window, every slot here acks individually;
// the left edge only ever pops a contiguous run of already-acked slots
// from the front, leaving later out-of-order acks marked but unpopped
// until the slots ahead of them are acked too.
package window

import "container/list"

// Slot is one outstanding (or acked) sequence number.
type Slot struct {
	Seq   uint32
	Acked bool
}

// Window is an ordered set of Slot, oldest-sent first.
type Window struct {
	l *list.List
}

// New returns an empty Window.
func New() *Window {
	return &Window{l: list.New()}
}

// Push appends a new, unacked slot for seq.
func (w *Window) Push(seq uint32) {
	w.l.PushBack(&Slot{Seq: seq})
}

// MarkAcked marks the slot for seq as acked. It is a no-op if seq is not
// present (e.g. a duplicate ack for a slot already slid past).
func (w *Window) MarkAcked(seq uint32) {
	for e := w.l.Front(); e != nil; e = e.Next() {
		if s := e.Value.(*Slot); s.Seq == seq {
			s.Acked = true
			return
		}
	}
}

// Advance pops acked slots from the front while they remain acked,
// stopping at the first unacked (or missing) slot. Returns the number
// popped.
func (w *Window) Advance() int {
	popped := 0
	for e := w.l.Front(); e != nil; e = w.l.Front() {
		if !e.Value.(*Slot).Acked {
			break
		}
		w.l.Remove(e)
		popped++
	}
	return popped
}

// Size returns the current occupancy of the window.
func (w *Window) Size() int {
	return w.l.Len()
}

// Contains reports whether seq currently has a slot (acked or not).
func (w *Window) Contains(seq uint32) bool {
	for e := w.l.Front(); e != nil; e = e.Next() {
		if e.Value.(*Slot).Seq == seq {
			return true
		}
	}
	return false
}

// Slots returns a snapshot of the current slots in send order, for tests.
func (w *Window) Slots() []Slot {
	out := make([]Slot, 0, w.l.Len())
	for e := w.l.Front(); e != nil; e = e.Next() {
		out = append(out, *e.Value.(*Slot))
	}
	return out
}
