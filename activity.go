package main

import (
	"net/http"
	"sync"
	"time"
)

// ActivityEntry is one row of the read-only activity log: somebody decided,
// or somebody published.
type ActivityEntry struct {
	Kind      string    `json:"kind"` // "decision" | "profile"
	ViewerID  string    `json:"viewer_id,omitempty"`
	ProfileID string    `json:"profile_id"`
	Outcome   Outcome   `json:"outcome,omitempty"`
	Alias     string    `json:"alias,omitempty"`
	At        time.Time `json:"at"`
}

// ActivityLog is a relay subscriber that keeps a bounded window of recent
// events. It never feeds anything back into queue state; it only reads.
type ActivityLog struct {
	mu      sync.Mutex
	entries []ActivityEntry
	limit   int

	unsubscribe func()
}

func NewActivityLog(relay *Relay, limit int) *ActivityLog {
	l := &ActivityLog{limit: limit}
	events, cancel := relay.Subscribe()
	l.unsubscribe = cancel
	go func() {
		for evt := range events {
			l.Record(evt)
		}
	}()
	return l
}

// Record appends one change event to the window. Exported so tests can feed
// synthetic events without a relay.
func (l *ActivityLog) Record(evt ChangeEvent) {
	var entry ActivityEntry
	switch {
	case evt.Table == tableDecisions && evt.Decision != nil:
		entry = ActivityEntry{
			Kind:      "decision",
			ViewerID:  evt.Decision.ViewerID,
			ProfileID: evt.Decision.ProfileID,
			Outcome:   evt.Decision.Outcome,
			At:        evt.Decision.CreatedAt,
		}
	case evt.Table == tableProfiles && evt.Profile != nil:
		entry = ActivityEntry{
			Kind:      "profile",
			ProfileID: evt.Profile.ID,
			Alias:     evt.Profile.Alias,
			At:        evt.Profile.CreatedAt,
		}
	default:
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.limit {
		l.entries = l.entries[len(l.entries)-l.limit:]
	}
}

// Recent returns the window newest-first.
func (l *ActivityLog) Recent() []ActivityEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ActivityEntry, len(l.entries))
	for i, e := range l.entries {
		out[len(l.entries)-1-i] = e
	}
	return out
}

func (l *ActivityLog) Close() {
	if l.unsubscribe != nil {
		l.unsubscribe()
	}
}

// GET /activity
func activityHandler(l *ActivityLog) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		writeJSON(w, http.StatusOK, map[string][]ActivityEntry{"activity": l.Recent()})
	})
}
