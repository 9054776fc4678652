package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"
)

var (
	errEmptyQueue       = errors.New("empty_queue")
	errDecisionMismatch = errors.New("decision_mismatch")
)

// SubmitDecision consumes the top-of-stack card. The removal is optimistic
// and synchronous; persistence happens on a background goroutine whose
// failure is only ever logged. A missed write means the profile may resurface
// on a fresh session, which the design prefers over a stuck card.
func (s *FeedSession) SubmitDecision(profileID string, outcome Outcome) (*Decision, error) {
	top, ok := s.queue.Top()
	if !ok {
		return nil, errEmptyQueue
	}
	if top.ID != profileID {
		return nil, errDecisionMismatch
	}
	if _, ok := s.queue.PopTopIf(profileID); !ok {
		// Lost a race with another submission for the same top; treat it
		// like a stale card.
		return nil, errDecisionMismatch
	}

	s.maybeReplenish()

	d := &Decision{
		ViewerID:  s.ViewerID,
		ProfileID: top.ID,
		Outcome:   outcome,
		CreatedAt: time.Now().UTC(),
	}
	go s.persistDecision(d)
	return d, nil
}

func (s *FeedSession) persistDecision(d *Decision) {
	if err := s.decisions.InsertDecision(context.Background(), d); err != nil {
		decisionWriteFailures.Inc()
		log.Printf("decision: persist failed for viewer %s on profile %s: %v", d.ViewerID, d.ProfileID, err)
		return
	}
	decisionsPersisted.Inc()
	// Other sessions see this as activity only; it never pops their cards.
	s.relay.Publish(ChangeEvent{Table: tableDecisions, Op: opInsert, Decision: d})
}

// POST /decisions
func decisionsHandler(m *FeedManager) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		viewerID := r.Context().Value(viewerIDKey).(string)

		var req struct {
			SessionID string `json:"session_id"`
			ProfileID string `json:"profile_id"`
			Outcome   string `json:"outcome"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if !ValidOutcome(req.Outcome) {
			writeError(w, http.StatusBadRequest, "invalid_outcome")
			return
		}

		session, ok := m.Session(req.SessionID)
		if !ok || session.ViewerID != viewerID {
			writeError(w, http.StatusNotFound, "unknown_session")
			return
		}

		d, err := session.SubmitDecision(req.ProfileID, Outcome(req.Outcome))
		switch err {
		case nil:
		case errEmptyQueue:
			writeError(w, http.StatusConflict, "empty_queue")
			return
		case errDecisionMismatch:
			writeError(w, http.StatusConflict, "not_top_of_stack")
			return
		default:
			writeError(w, http.StatusInternalServerError, "decision_error")
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"decision": d,
			"depth":    session.Depth(),
		})
	})
}
