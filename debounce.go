package main

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	textCommitDebounce     = 500 * time.Millisecond
	categoryCommitDebounce = 150 * time.Millisecond
)

// cellKey identifies one editable cell: a product and a column.
type cellKey struct {
	productID string
	column    columnID
}

type commitDueMsg struct {
	key cellKey
	seq uint64
}

type pendingCommit struct {
	seq    uint64
	commit tea.Cmd
}

// debouncer coalesces rapid edits to the same cell into one commit.
// Scheduling a new commit for a cell supersedes any pending one; a
// stale timer message resolves to nil. Cancellation on row disposal is
// mandatory so a recycled cell never commits to a gone product.
type debouncer struct {
	seq     uint64
	pending map[cellKey]pendingCommit
}

func newDebouncer() *debouncer {
	return &debouncer{pending: make(map[cellKey]pendingCommit)}
}

// Schedule registers commit to run after delay, replacing any pending
// commit for the same cell, and returns the timer command.
func (d *debouncer) Schedule(key cellKey, delay time.Duration, commit tea.Cmd) tea.Cmd {
	d.seq++
	seq := d.seq
	d.pending[key] = pendingCommit{seq: seq, commit: commit}
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return commitDueMsg{key: key, seq: seq}
	})
}

// Resolve returns the commit for a due timer, or nil if it was
// superseded or cancelled in the meantime.
func (d *debouncer) Resolve(key cellKey, seq uint64) tea.Cmd {
	entry, ok := d.pending[key]
	if !ok || entry.seq != seq {
		return nil
	}
	delete(d.pending, key)
	return entry.commit
}

func (d *debouncer) Cancel(key cellKey) {
	delete(d.pending, key)
}

// CancelProduct drops every pending commit for the given product.
func (d *debouncer) CancelProduct(productID string) {
	for key := range d.pending {
		if key.productID == productID {
			delete(d.pending, key)
		}
	}
}

func (d *debouncer) PendingCount() int {
	return len(d.pending)
}
