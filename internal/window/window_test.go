package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdvanceStopsAtFirstUnacked(t *testing.T) {
	w := New()
	w.Push(0)
	w.Push(1000)
	w.Push(2000)

	w.MarkAcked(0)
	w.MarkAcked(2000) // out-of-order ack; slot 1000 ahead of it still unacked

	popped := w.Advance()
	assert.Equal(t, 1, popped)
	assert.Equal(t, 2, w.Size())

	slots := w.Slots()
	assert.Equal(t, uint32(1000), slots[0].Seq)
	assert.False(t, slots[0].Acked)
	assert.True(t, slots[1].Acked)
}

func TestAdvancePopsContiguousAckedRun(t *testing.T) {
	w := New()
	w.Push(0)
	w.Push(1000)
	w.Push(2000)
	w.MarkAcked(0)
	w.MarkAcked(1000)

	popped := w.Advance()
	assert.Equal(t, 2, popped)
	assert.Equal(t, 1, w.Size())
}

func TestMarkAckedOnAbsentSeqIsNoop(t *testing.T) {
	w := New()
	w.Push(0)
	w.MarkAcked(9999)
	assert.Equal(t, 0, w.Advance())
	assert.Equal(t, 1, w.Size())
}

func TestContains(t *testing.T) {
	w := New()
	w.Push(1000)
	assert.True(t, w.Contains(1000))
	assert.False(t, w.Contains(2000))
}

func TestSeqValuesAreOrderedBySendOrder(t *testing.T) {
	w := New()
	w.Push(2000)
	w.Push(0)
	w.Push(1000)

	slots := w.Slots()
	want := []uint32{2000, 0, 1000}
	for i, s := range slots {
		assert.Equal(t, want[i], s.Seq)
	}
}
