package main

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func namedCommit(name string) tea.Cmd {
	return func() tea.Msg { return name }
}

func TestResolveRunsLatestCommitOnly(t *testing.T) {
	d := newDebouncer()
	key := cellKey{productID: "p1", column: colName}

	d.Schedule(key, time.Millisecond, namedCommit("first"))
	firstSeq := d.pending[key].seq
	d.Schedule(key, time.Millisecond, namedCommit("second"))
	secondSeq := d.pending[key].seq

	// The superseded timer resolves to nothing.
	assert.Nil(t, d.Resolve(key, firstSeq))

	cmd := d.Resolve(key, secondSeq)
	require.NotNil(t, cmd)
	assert.Equal(t, "second", cmd())

	// A commit fires exactly once.
	assert.Nil(t, d.Resolve(key, secondSeq))
	assert.Equal(t, 0, d.PendingCount())
}

func TestRapidEditsCoalesceToOneCommit(t *testing.T) {
	d := newDebouncer()
	key := cellKey{productID: "p1", column: colName}

	var seqs []uint64
	for _, value := range []string{"M", "Mi", "Milk"} {
		d.Schedule(key, time.Millisecond, namedCommit(value))
		seqs = append(seqs, d.pending[key].seq)
	}

	var fired []string
	for _, seq := range seqs {
		if cmd := d.Resolve(key, seq); cmd != nil {
			fired = append(fired, cmd().(string))
		}
	}
	assert.Equal(t, []string{"Milk"}, fired)
}

func TestDifferentCellsDoNotInterfere(t *testing.T) {
	d := newDebouncer()
	name := cellKey{productID: "p1", column: colName}
	sku := cellKey{productID: "p1", column: colSKU}

	d.Schedule(name, time.Millisecond, namedCommit("name"))
	nameSeq := d.pending[name].seq
	d.Schedule(sku, time.Millisecond, namedCommit("sku"))
	skuSeq := d.pending[sku].seq

	require.NotNil(t, d.Resolve(name, nameSeq))
	require.NotNil(t, d.Resolve(sku, skuSeq))
}

func TestCancelProductDropsAllPendingForProduct(t *testing.T) {
	d := newDebouncer()
	k1 := cellKey{productID: "p1", column: colName}
	k2 := cellKey{productID: "p1", column: colSKU}
	k3 := cellKey{productID: "p2", column: colName}

	d.Schedule(k1, time.Millisecond, namedCommit("a"))
	s1 := d.pending[k1].seq
	d.Schedule(k2, time.Millisecond, namedCommit("b"))
	d.Schedule(k3, time.Millisecond, namedCommit("c"))
	s3 := d.pending[k3].seq

	d.CancelProduct("p1")

	assert.Nil(t, d.Resolve(k1, s1))
	assert.Equal(t, 1, d.PendingCount())
	assert.NotNil(t, d.Resolve(k3, s3))
}

func TestCancelSingleKey(t *testing.T) {
	d := newDebouncer()
	key := cellKey{productID: "p1", column: colName}

	d.Schedule(key, time.Millisecond, namedCommit("x"))
	seq := d.pending[key].seq
	d.Cancel(key)
	assert.Nil(t, d.Resolve(key, seq))
}
