package main

import "sync"

// Queue is the session-local working set of undecided profiles. The slice is
// ordered bottom-first: items[0] is the deepest card and items[len-1] is the
// one currently presented (top of stack).
//
// The mutex is here because live-insert events arrive on relay goroutines
// while decision pops arrive on the request stream; everything else about a
// session is single-streamed.
type Queue struct {
	mu    sync.Mutex
	items []Profile
	// seen holds every id ever enqueued in this session, so a profile is
	// never presented twice even if a later fetch or a duplicate event
	// returns it again.
	seen map[string]struct{}
}

func newQueue() *Queue {
	return &Queue{seen: make(map[string]struct{})}
}

// PrependPage merges a freshly fetched page below everything already queued.
// The page arrives newest-created first; keeping that order at the front of
// the slice puts the newest profile deepest, so queued material is always
// exhausted before the new page surfaces. Returns how many entries were
// actually added after de-duplication.
func (q *Queue) PrependPage(page []Profile) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	fresh := make([]Profile, 0, len(page))
	for _, p := range page {
		if _, dup := q.seen[p.ID]; dup {
			continue
		}
		q.seen[p.ID] = struct{}{}
		fresh = append(fresh, p)
	}
	if len(fresh) == 0 {
		return 0
	}
	q.items = append(fresh, q.items...)
	return len(fresh)
}

// SpliceFront inserts a live-published profile at the very bottom of the
// stack, farthest from the card currently presented. Idempotent: duplicate
// deliveries of the same profile are dropped.
func (q *Queue) SpliceFront(p Profile) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, dup := q.seen[p.ID]; dup {
		return false
	}
	q.seen[p.ID] = struct{}{}
	q.items = append([]Profile{p}, q.items...)
	return true
}

// Top returns the profile currently presented without removing it.
func (q *Queue) Top() (Profile, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Profile{}, false
	}
	return q.items[len(q.items)-1], true
}

// PopTopIf removes and returns the top entry when its id matches want.
// The check and the removal are atomic so a concurrent splice cannot slip
// a different card under the caller.
func (q *Queue) PopTopIf(want string) (Profile, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	if n == 0 || q.items[n-1].ID != want {
		return Profile{}, false
	}
	top := q.items[n-1]
	q.items = q.items[:n-1]
	return top, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Snapshot returns a copy of the queue in storage order (top of stack last).
func (q *Queue) Snapshot() []Profile {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Profile, len(q.items))
	copy(out, q.items)
	return out
}
