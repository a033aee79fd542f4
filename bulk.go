package main

import (
	tea "github.com/charmbracelet/bubbletea"
)

// bulkMsg events mirror the lifecycle of one bulk request.
type bulkMsg interface{ isBulk() }

type bulkStartedMsg struct {
	Title string
	Total int
}

func (bulkStartedMsg) isBulk() {}

type bulkProgressMsg struct {
	Title     string
	Index     int
	ProductID string
	Err       error
}

func (bulkProgressMsg) isBulk() {}

type bulkFinishedMsg struct {
	Title    string
	Affected int
	Failed   int
}

func (bulkFinishedMsg) isBulk() {}

type bulkChannelClosedMsg struct{}

func (bulkChannelClosedMsg) isBulk() {}

// bulkRequest applies one change to a list of product ids, strictly
// one at a time: each apply call finishes before the next starts, so
// the persistence layer never sees more than one in-flight write from
// a bulk action.
type bulkRequest struct {
	title    string
	ids      []string
	apply    func(productID string) error
	onFinish func(affected int)
}

type bulkRunner struct {
	queue   []bulkRequest
	current *bulkRequest
	running bool
	ch      chan bulkMsg
}

func newBulkRunner() *bulkRunner {
	return &bulkRunner{}
}

func (r *bulkRunner) Enqueue(req bulkRequest) tea.Cmd {
	r.queue = append(r.queue, req)
	return r.nextCmd()
}

func (r *bulkRunner) Busy() bool {
	return r.running
}

func (r *bulkRunner) Handle(msg bulkMsg) tea.Cmd {
	switch msg := msg.(type) {
	case bulkStartedMsg, bulkProgressMsg:
		// The channel is unbuffered: the goroutine blocks until the
		// next wait command picks its message up, so every progress
		// message must re-arm the wait.
		if r.ch == nil {
			return nil
		}
		return waitForBulkMsg(r.ch)
	case bulkFinishedMsg:
		if r.current != nil && r.current.onFinish != nil {
			r.current.onFinish(msg.Affected)
		}
		r.running = false
		r.current = nil
		r.ch = nil
		return r.nextCmd()
	case bulkChannelClosedMsg:
		r.running = false
		r.current = nil
		r.ch = nil
		return r.nextCmd()
	}
	return nil
}

func (r *bulkRunner) nextCmd() tea.Cmd {
	if r.running {
		return nil
	}
	if len(r.queue) == 0 {
		return nil
	}
	req := r.queue[0]
	r.queue = r.queue[1:]
	r.current = &req
	r.running = true

	ch := make(chan bulkMsg)
	r.ch = ch
	go runBulk(req, ch)
	return waitForBulkMsg(ch)
}

func runBulk(req bulkRequest, ch chan<- bulkMsg) {
	defer close(ch)

	ch <- bulkStartedMsg{Title: req.title, Total: len(req.ids)}

	affected := 0
	failed := 0
	for i, id := range req.ids {
		err := req.apply(id)
		if err != nil {
			failed++
		} else {
			affected++
		}
		ch <- bulkProgressMsg{Title: req.title, Index: i, ProductID: id, Err: err}
	}
	ch <- bulkFinishedMsg{Title: req.title, Affected: affected, Failed: failed}
}

func waitForBulkMsg(ch <-chan bulkMsg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return bulkChannelClosedMsg{}
		}
		return msg
	}
}

// deleteState is the confirmation machine for bulk deletion; deleting
// is irreversible, so it never runs from idle directly.
type deleteState int

const (
	deleteIdle deleteState = iota
	deleteConfirming
	deleteExecuting
)
