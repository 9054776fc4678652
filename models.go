package main

import "time"

// Profile is a published candidate card. Immutable after creation except by
// owner-initiated replace/delete, which other services handle.
type Profile struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Alias       string    `json:"alias"`
	Age         int       `json:"age"`
	Bio         string    `json:"bio"`
	PortraitURL string    `json:"portrait_url,omitempty"`
	Contact     string    `json:"contact_handle"`
	CreatedAt   time.Time `json:"created_at"`
}

// Outcome is the viewer's verdict on a profile.
type Outcome string

const (
	OutcomeAccept Outcome = "ACCEPT"
	OutcomeReject Outcome = "REJECT"
)

// ValidOutcome reports whether s is one of the two accepted verdicts.
func ValidOutcome(s string) bool {
	return s == string(OutcomeAccept) || s == string(OutcomeReject)
}

// Decision ties a viewer to a profile. Append-only: at most one row may ever
// exist per (viewer, profile) pair, enforced by a unique constraint.
type Decision struct {
	ViewerID  string    `json:"viewer_id"`
	ProfileID string    `json:"profile_id"`
	Outcome   Outcome   `json:"outcome"`
	CreatedAt time.Time `json:"created_at"`
}

// Score is the ephemeral 1-99 trust rating shown on a card. Never persisted;
// recomputed each time a profile is displayed.
type Score struct {
	Value  int    `json:"score"`
	Reason string `json:"reason"`
}

// Change event tables and operations, mirroring the relay's wire format.
const (
	tableProfiles  = "profiles"
	tableDecisions = "decisions"
	opInsert       = "INSERT"
)

// ChangeEvent is a best-effort change notification delivered to every live
// subscriber. It is a hint to re-merge, not a source of truth: delivery is
// at-least-once and unordered relative to direct query results.
type ChangeEvent struct {
	Table    string    `json:"table"`
	Op       string    `json:"op"`
	Profile  *Profile  `json:"profile,omitempty"`
	Decision *Decision `json:"decision,omitempty"`
}
