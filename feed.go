package main

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

const (
	pageSize     = 10
	lowWaterMark = 3
)

// FeedSession is one viewer's open swipe session. All queue mutation for the
// session funnels through here: paginated fetches, decision pops, and live
// splices from the relay.
type FeedSession struct {
	ID       string
	ViewerID string

	queue     *Queue
	store     ProfileStore
	decisions DecisionLog
	relay     *Relay

	mu         sync.Mutex
	nextOffset int
	fetching   bool

	unsubscribe func()
}

// FeedManager owns the registry of open sessions and wires each one to the
// relay with an explicit subscribe/unsubscribe pair.
type FeedManager struct {
	mu       sync.RWMutex
	sessions map[string]*FeedSession

	store     ProfileStore
	decisions DecisionLog
	relay     *Relay
}

func NewFeedManager(store ProfileStore, decisions DecisionLog, relay *Relay) *FeedManager {
	return &FeedManager{
		sessions:  make(map[string]*FeedSession),
		store:     store,
		decisions: decisions,
		relay:     relay,
	}
}

// StartSession opens a session for viewerID, performs the initial page fetch,
// and subscribes the session to live change events.
func (m *FeedManager) StartSession(ctx context.Context, viewerID string) (*FeedSession, error) {
	s := &FeedSession{
		ID:        uuid.NewString(),
		ViewerID:  viewerID,
		queue:     newQueue(),
		store:     m.store,
		decisions: m.decisions,
		relay:     m.relay,
	}

	if err := s.fetchPage(ctx, 0); err != nil {
		return nil, err
	}

	events, cancel := m.relay.Subscribe()
	s.unsubscribe = cancel
	go func() {
		for evt := range events {
			s.HandleEvent(evt)
		}
	}()

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

// Session looks up an open session by id.
func (m *FeedManager) Session(id string) (*FeedSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// CloseSession detaches the session from the relay and forgets it.
func (m *FeedManager) CloseSession(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok && s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// fetchPage pulls one page from the profile store and merges it below the
// queued material. The exclusion set is collected first: every profile this
// viewer has already decided on, plus (inside the query) the viewer's own
// profiles. An empty decided set produces a structurally different query, so
// the store special-cases it; see postgresStore.FetchPage.
func (s *FeedSession) fetchPage(ctx context.Context, offset int) error {
	decided, err := s.decisions.DecidedProfileIDs(ctx, s.ViewerID)
	if err != nil {
		return err
	}
	page, next, err := s.store.FetchPage(ctx, s.ViewerID, decided, offset, pageSize)
	if err != nil {
		return err
	}
	pageFetches.Inc()
	s.queue.PrependPage(page)

	s.mu.Lock()
	if next > s.nextOffset {
		s.nextOffset = next
	}
	s.mu.Unlock()
	return nil
}

// maybeReplenish fires a background fetch when the queue has run shallow and
// no fetch is already in flight. It never blocks the caller: a failed fetch
// just leaves the queue short, and the next decision re-checks the depth.
func (s *FeedSession) maybeReplenish() {
	if s.queue.Len() >= lowWaterMark {
		return
	}

	s.mu.Lock()
	if s.fetching {
		s.mu.Unlock()
		return
	}
	s.fetching = true
	offset := s.nextOffset
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.fetching = false
			s.mu.Unlock()
		}()
		if err := s.fetchPage(context.Background(), offset); err != nil {
			fetchFailures.Inc()
			log.Printf("feed: replenish fetch failed for viewer %s at offset %d: %v", s.ViewerID, offset, err)
		}
	}()
}

// HandleEvent is the session's merge function for live change events. It can
// be called directly with synthetic events in tests; in production it runs on
// the relay subscription goroutine.
//
// Only newly published profiles mutate the queue. Decisions by other viewers
// are activity, not queue state: new exclusions are only honored on the next
// round-trip fetch.
func (s *FeedSession) HandleEvent(evt ChangeEvent) {
	if evt.Table != tableProfiles || evt.Op != opInsert || evt.Profile == nil {
		return
	}
	if evt.Profile.OwnerID == s.ViewerID {
		return
	}
	if s.queue.SpliceFront(*evt.Profile) {
		log.Printf("feed: spliced new profile %s into session %s", evt.Profile.ID, s.ID)
	}
}

// Depth returns the current queue length.
func (s *FeedSession) Depth() int {
	return s.queue.Len()
}

// --- HTTP surface ---

type feedSnapshot struct {
	SessionID  string    `json:"session_id"`
	Queue      []Profile `json:"queue"`
	Depth      int       `json:"depth"`
	NextOffset int       `json:"next_offset"`
	// TotalCandidates counts every profile visible to the viewer, decided or
	// not. Only populated on session start.
	TotalCandidates int `json:"total_candidates,omitempty"`
}

func (s *FeedSession) snapshot() feedSnapshot {
	items := s.queue.Snapshot()
	s.mu.Lock()
	next := s.nextOffset
	s.mu.Unlock()
	return feedSnapshot{
		SessionID:  s.ID,
		Queue:      items,
		Depth:      len(items),
		NextOffset: next,
	}
}

// POST /feed/start
func startFeedHandler(m *FeedManager) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		viewerID := r.Context().Value(viewerIDKey).(string)

		session, err := m.StartSession(r.Context(), viewerID)
		if err != nil {
			log.Printf("feed: initial fetch failed for viewer %s: %v", viewerID, err)
			writeError(w, http.StatusBadGateway, "fetch_failed")
			return
		}

		snap := session.snapshot()
		if total, err := m.store.CountVisible(r.Context(), viewerID); err == nil {
			snap.TotalCandidates = total
		} else {
			log.Printf("feed: count query failed for viewer %s: %v", viewerID, err)
		}
		writeJSON(w, http.StatusCreated, snap)
	})
}

// GET /feed?session_id=...
func feedHandler(m *FeedManager) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		viewerID := r.Context().Value(viewerIDKey).(string)

		session, ok := m.Session(r.URL.Query().Get("session_id"))
		if !ok || session.ViewerID != viewerID {
			writeError(w, http.StatusNotFound, "unknown_session")
			return
		}
		writeJSON(w, http.StatusOK, session.snapshot())
	})
}
