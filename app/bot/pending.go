package bot

import (
	"sync"

	"github.com/ayvex/tgscrap/pkg/tlink"
)

// pendingRequest is one half-completed .scrap flow: either a resolved
// target awaiting its count, or a bare marker that the user was asked
// for a link.
type pendingRequest struct {
	link      tlink.Link
	hasTarget bool
}

// Tracker holds the per-requester pending state for the two-step
// scrap protocol. One entry per requester; a new .scrap overwrites any
// previous entry (last request wins). Entries never expire: an
// abandoned flow keeps its slot until the same user completes or
// restarts it, at the cost of one map entry.
type Tracker struct {
	mu sync.Mutex
	m  map[int64]pendingRequest
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{m: make(map[int64]pendingRequest)}
}

// AwaitLink records that the user was asked for a link. A later bare
// number from this user is an error ("no pending link"), not a count.
func (t *Tracker) AwaitLink(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m[id] = pendingRequest{}
}

// AwaitCount stores a resolved target and waits for the count reply.
func (t *Tracker) AwaitCount(id int64, link tlink.Link) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m[id] = pendingRequest{link: link, hasTarget: true}
}

// Take consumes the pending entry for id. The second return is false
// when the user has no pending flow, in which case a bare number from
// them means nothing to this protocol.
func (t *Tracker) Take(id int64) (tlink.Link, bool, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.m[id]
	if !ok {
		return tlink.Link{}, false, false
	}
	delete(t.m, id)
	return p.link, p.hasTarget, true
}

// Len reports the number of pending flows.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.m)
}
