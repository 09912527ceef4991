// Package tracker keeps the position of the mirror on one chain.
package tracker

import (
	"sync"

	"github.com/tarancss/eosapi/lib/store"
)

// Status possible values, control whether a Tracker is working or is/has to stop
const (
	WORK int = 0
	STOP int = 1
)

// Tracker holds the last block mirrored and a ring with the ids of the latest blocks, used to detect forks.
type Tracker struct {
	l      sync.Mutex
	status int
	Chain  string
	Block  uint64   // last block written
	Ids    []string // ids of the latest blocks, Ids[Idx] being the id of Block
	Idx    int
}

// New returns a tracker resuming from c. When c has no ring (ie. a new chain) one of size max is created and Block is
// set so that the first block mirrored is start.
func New(c store.Cursor, start uint64, max int) *Tracker {
	if max < 1 {
		max = 1
	}

	t := &Tracker{status: WORK}
	if len(c.Ids) == 0 {
		t.Chain = c.Chain
		t.Ids = make([]string, max)

		if start > 0 {
			t.Block = start - 1
		}

		return t
	}

	t.FromStore(c)

	return t
}

// Next returns the number of the next block to mirror.
func (t *Tracker) Next() uint64 {
	t.l.Lock()
	defer t.l.Unlock()

	return t.Block + 1
}

// Chained checks if prev is the id of the last block written. An empty ring accepts any block.
func (t *Tracker) Chained(prev string) bool {
	t.l.Lock()
	defer t.l.Unlock()

	return t.Ids[t.Idx] == prev || t.Ids[t.Idx] == ""
}

// UpdateChain moves the tracker to the next block, whose id is id.
func (t *Tracker) UpdateChain(id string) {
	t.l.Lock()
	defer t.l.Unlock()

	t.Block++
	t.Idx = (t.Idx + 1) % len(t.Ids)
	t.Ids[t.Idx] = id
}

// ToStore returns the cursor to be saved to store
func (t *Tracker) ToStore() store.Cursor {
	t.l.Lock()
	defer t.l.Unlock()

	ids := make([]string, len(t.Ids))
	copy(ids, t.Ids)

	return store.Cursor{Chain: t.Chain, Block: t.Block, Ids: ids, Idx: t.Idx}
}

// FromStore loads the tracker with a cursor read from store. A cursor without ring is ignored.
func (t *Tracker) FromStore(c store.Cursor) {
	if len(c.Ids) == 0 {
		return
	}

	t.l.Lock()
	defer t.l.Unlock()

	t.Chain = c.Chain
	t.Block = c.Block
	t.Ids = make([]string, len(c.Ids))
	copy(t.Ids, c.Ids)
	t.Idx = c.Idx % len(c.Ids)
}

// Stop sets status to STOP
func (t *Tracker) Stop() {
	t.l.Lock()
	t.status = STOP
	t.l.Unlock()
}

// Status returns the current Tracker status
func (t *Tracker) Status() int {
	t.l.Lock()
	defer t.l.Unlock()

	return t.status
}
