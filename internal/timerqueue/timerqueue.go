// Package timerqueue implements the sender's per-packet retransmission
// timer bookkeeping as a plain FIFO: entries are always appended with a
// non-decreasing send time, so the head of the queue is always the oldest
// in-flight packet.
package timerqueue

import (
	"container/list"

	"github.com/tspeterkim/CS118-Lab2/internal/wire"
)

// Entry is one in-flight transmission awaiting an ack: the exact packet
// that was sent, and when. Keeping the whole packet (not just its seq)
// means a retransmit resends the original bytes verbatim even though seq
// numbers repeat across a transfer once they wrap past MAX_SEQ.
type Entry struct {
	Packet   wire.Packet
	SendTime int64 // unix milliseconds
}

// Queue is a FIFO of Entry, ordered oldest-first. Capacity is bounded by
// the window cap (<=15), so a linear scan on RemoveBySeq is acceptable.
type Queue struct {
	l *list.List
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{l: list.New()}
}

// Push appends a new entry to the tail.
func (q *Queue) Push(pkt wire.Packet, now int64) {
	q.l.PushBack(Entry{Packet: pkt, SendTime: now})
}

// RemoveBySeq removes the first entry matching seq, if any. Reports
// whether an entry was removed. Because a given entry's Packet.Seq is
// fixed at push time, this only ever matches the specific in-flight
// transmission it was pushed for.
func (q *Queue) RemoveBySeq(seq uint32) bool {
	for e := q.l.Front(); e != nil; e = e.Next() {
		if e.Value.(Entry).Packet.Seq == seq {
			q.l.Remove(e)
			return true
		}
	}
	return false
}

// Head returns the oldest entry without removing it.
func (q *Queue) Head() (Entry, bool) {
	e := q.l.Front()
	if e == nil {
		return Entry{}, false
	}
	return e.Value.(Entry), true
}

// RotateHead removes the head and re-appends it with a fresh send time,
// used when the head's packet is retransmitted on timeout.
func (q *Queue) RotateHead(now int64) (Entry, bool) {
	e := q.l.Front()
	if e == nil {
		return Entry{}, false
	}
	entry := e.Value.(Entry)
	q.l.Remove(e)
	entry.SendTime = now
	q.l.PushBack(entry)
	return entry, true
}

// Len returns the number of in-flight entries.
func (q *Queue) Len() int {
	return q.l.Len()
}

// Empty reports whether the queue has no in-flight entries.
func (q *Queue) Empty() bool {
	return q.l.Len() == 0
}

// InOrder reports whether the queue's send times are non-decreasing
// head-to-tail. Exposed for invariant tests only.
func (q *Queue) InOrder() bool {
	prev := int64(-1)
	for e := q.l.Front(); e != nil; e = e.Next() {
		t := e.Value.(Entry).SendTime
		if t < prev {
			return false
		}
		prev = t
	}
	return true
}
