package main

import (
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drainBulk(req bulkRequest) []bulkMsg {
	ch := make(chan bulkMsg)
	go runBulk(req, ch)
	var msgs []bulkMsg
	for msg := range ch {
		msgs = append(msgs, msg)
	}
	return msgs
}

func TestRunBulkAppliesSequentially(t *testing.T) {
	var mu sync.Mutex
	var applied []string
	inFlight := 0
	maxInFlight := 0

	req := bulkRequest{
		title: "Set unit",
		ids:   []string{"p1", "p2", "p3"},
		apply: func(id string) error {
			mu.Lock()
			inFlight++
			if inFlight > maxInFlight {
				maxInFlight = inFlight
			}
			applied = append(applied, id)
			inFlight--
			mu.Unlock()
			return nil
		},
	}
	msgs := drainBulk(req)

	assert.Equal(t, []string{"p1", "p2", "p3"}, applied)
	assert.Equal(t, 1, maxInFlight)

	started, ok := msgs[0].(bulkStartedMsg)
	require.True(t, ok)
	assert.Equal(t, 3, started.Total)

	finished, ok := msgs[len(msgs)-1].(bulkFinishedMsg)
	require.True(t, ok)
	assert.Equal(t, 3, finished.Affected)
	assert.Equal(t, 0, finished.Failed)
}

func TestRunBulkCountsFailuresAndContinues(t *testing.T) {
	boom := errors.New("boom")
	req := bulkRequest{
		title: "Set price",
		ids:   []string{"p1", "p2", "p3"},
		apply: func(id string) error {
			if id == "p2" {
				return boom
			}
			return nil
		},
	}
	msgs := drainBulk(req)

	var progress []bulkProgressMsg
	for _, msg := range msgs {
		if p, ok := msg.(bulkProgressMsg); ok {
			progress = append(progress, p)
		}
	}
	require.Len(t, progress, 3)
	assert.NoError(t, progress[0].Err)
	assert.ErrorIs(t, progress[1].Err, boom)
	assert.NoError(t, progress[2].Err)

	finished := msgs[len(msgs)-1].(bulkFinishedMsg)
	assert.Equal(t, 2, finished.Affected)
	assert.Equal(t, 1, finished.Failed)
}

// pumpBulk drives the runner the way the event loop does: run the
// wait command, hand the message back, run whatever Handle returns.
func pumpBulk(t *testing.T, r *bulkRunner, cmd tea.Cmd) []bulkMsg {
	t.Helper()
	var msgs []bulkMsg
	for cmd != nil {
		msg, ok := cmd().(bulkMsg)
		require.True(t, ok)
		msgs = append(msgs, msg)
		cmd = r.Handle(msg)
	}
	return msgs
}

func TestBulkRunnerPumpAppliesEveryProduct(t *testing.T) {
	r := newBulkRunner()
	var applied []string
	cleared := false

	cmd := r.Enqueue(bulkRequest{
		title: "Set unit",
		ids:   []string{"p1", "p2", "p3"},
		apply: func(id string) error {
			applied = append(applied, id)
			return nil
		},
		onFinish: func(int) { cleared = true },
	})
	msgs := pumpBulk(t, r, cmd)

	assert.Equal(t, []string{"p1", "p2", "p3"}, applied)
	assert.True(t, cleared)
	assert.False(t, r.Busy())

	finished, ok := msgs[len(msgs)-1].(bulkFinishedMsg)
	require.True(t, ok)
	assert.Equal(t, 3, finished.Affected)
}

func TestBulkRunnerPumpRunsQueuedRequests(t *testing.T) {
	r := newBulkRunner()
	var applied []string
	record := func(id string) error {
		applied = append(applied, id)
		return nil
	}

	cmd := r.Enqueue(bulkRequest{title: "first", ids: []string{"a"}, apply: record})
	require.Nil(t, r.Enqueue(bulkRequest{title: "second", ids: []string{"b"}, apply: record}))
	pumpBulk(t, r, cmd)

	assert.Equal(t, []string{"a", "b"}, applied)
	assert.False(t, r.Busy())
}

func TestBulkRunnerQueuesSecondRequest(t *testing.T) {
	r := newBulkRunner()

	cmd := r.Enqueue(bulkRequest{title: "first", ids: []string{"p1"}, apply: func(string) error { return nil }})
	require.NotNil(t, cmd)
	assert.True(t, r.Busy())

	// A second enqueue while busy must not start a goroutine yet.
	cmd = r.Enqueue(bulkRequest{title: "second", ids: []string{"p2"}, apply: func(string) error { return nil }})
	assert.Nil(t, cmd)

	// Finishing the first drains the queue.
	next := r.Handle(bulkFinishedMsg{Title: "first"})
	require.NotNil(t, next)
	assert.True(t, r.Busy())
}

func TestBulkRunnerOnFinishRuns(t *testing.T) {
	r := newBulkRunner()
	cleared := false
	r.Enqueue(bulkRequest{
		title:    "bulk",
		ids:      []string{"p1"},
		apply:    func(string) error { return nil },
		onFinish: func(affected int) { cleared = true },
	})
	r.Handle(bulkFinishedMsg{Title: "bulk", Affected: 1})
	assert.True(t, cleared)
	assert.False(t, r.Busy())
}
