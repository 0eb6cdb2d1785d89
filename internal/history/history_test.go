package history

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snap(i int) []byte {
	return []byte(fmt.Sprintf(`{"state":%d}`, i))
}

func TestCommitDeduplicates(t *testing.T) {
	h := New(DefaultCapacity, snap(0))
	assert.False(t, h.Commit(snap(0)))
	assert.True(t, h.Commit(snap(1)))
	assert.False(t, h.Commit(snap(1)))
	assert.Equal(t, 1, h.Len())
}

func TestBoundsAfterOverflow(t *testing.T) {
	h := New(20, snap(0))
	for i := 1; i <= 25; i++ {
		require.True(t, h.Commit(snap(i)))
	}
	assert.Equal(t, 20, h.Len())
	assert.Equal(t, snap(25), h.Current().Snapshot)

	var last []byte
	for i := 0; i < 20; i++ {
		s, ok := h.Undo()
		require.True(t, ok, "undo %d", i+1)
		last = s
	}
	// states 0..4 were evicted
	assert.Equal(t, snap(5), last)

	s, ok := h.Undo()
	assert.False(t, ok)
	assert.Equal(t, snap(5), s)
	assert.False(t, h.CanUndo())
}

func TestUndoRedo(t *testing.T) {
	h := New(5, snap(0))
	h.Commit(snap(1))
	h.Commit(snap(2))

	s, ok := h.Undo()
	require.True(t, ok)
	assert.Equal(t, snap(1), s)
	assert.True(t, h.CanRedo())

	s, ok = h.Redo()
	require.True(t, ok)
	assert.Equal(t, snap(2), s)

	s, ok = h.Redo()
	assert.False(t, ok)
	assert.Equal(t, snap(2), s)
}

func TestNewCommitClearsRedo(t *testing.T) {
	h := New(5, snap(0))
	h.Commit(snap(1))
	h.Undo()
	h.Commit(snap(2))

	assert.False(t, h.CanRedo())
	s, ok := h.Redo()
	assert.False(t, ok)
	assert.Equal(t, snap(2), s)
}

func TestUndoOnFreshHistoryIsNoop(t *testing.T) {
	h := New(0, snap(0))
	s, ok := h.Undo()
	assert.False(t, ok)
	assert.Equal(t, snap(0), s)
}

func TestSequenceIsMonotonic(t *testing.T) {
	h := New(3, snap(0))
	first := h.Current().Seq
	h.Commit(snap(1))
	h.Undo()
	h.Commit(snap(2))
	assert.Greater(t, h.Current().Seq, first)

	h.Reset(snap(9))
	assert.Equal(t, 0, h.Len())
	assert.Equal(t, snap(9), h.Current().Snapshot)
}

func TestSnapshotsAreCopied(t *testing.T) {
	buf := snap(1)
	h := New(3, snap(0))
	h.Commit(buf)
	buf[0] = 'X'
	assert.Equal(t, snap(1), h.Current().Snapshot)
}
