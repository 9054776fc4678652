package main

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Initialize JWT secret for tests
func init() {
	jwtSecret = []byte("test-secret-key-for-testing")
}

// signTestToken issues a viewer token the way the account service would.
func signTestToken(t *testing.T, viewerID string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"viewer_id": viewerID,
		"expires":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(jwtSecret)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return signed
}

type fetchCall struct {
	ViewerID string
	Exclude  []string
	Offset   int
	Limit    int
}

// fakeStore is an in-memory ProfileStore + DecisionLog. Profiles are held in
// creation-time-descending order, matching the real query. Fetches and
// decision persists are signalled on channels so tests can observe the
// fire-and-forget paths.
type fakeStore struct {
	mu       sync.Mutex
	profiles []Profile
	decided  map[string]map[string]Outcome

	fetchErr          error
	insertDecisionErr error

	fetches  chan fetchCall
	persists chan *Decision
}

func newFakeStore(profiles ...Profile) *fakeStore {
	return &fakeStore{
		profiles: profiles,
		decided:  make(map[string]map[string]Outcome),
		fetches:  make(chan fetchCall, 32),
		persists: make(chan *Decision, 32),
	}
}

func (f *fakeStore) FetchPage(ctx context.Context, viewerID string, exclude []string, offset, limit int) ([]Profile, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	select {
	case f.fetches <- fetchCall{ViewerID: viewerID, Exclude: exclude, Offset: offset, Limit: limit}:
	default:
	}

	if f.fetchErr != nil {
		return nil, offset, f.fetchErr
	}

	excluded := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}
	var visible []Profile
	for _, p := range f.profiles {
		if p.OwnerID == viewerID {
			continue
		}
		if _, skip := excluded[p.ID]; skip {
			continue
		}
		visible = append(visible, p)
	}
	if offset >= len(visible) {
		return nil, offset, nil
	}
	end := offset + limit
	if end > len(visible) {
		end = len(visible)
	}
	page := make([]Profile, end-offset)
	copy(page, visible[offset:end])
	return page, offset + len(page), nil
}

func (f *fakeStore) InsertProfile(ctx context.Context, p *Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == "" {
		p.ID = fmt.Sprintf("generated-%d", len(f.profiles)+1)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	// Newest first, like the real ordering.
	f.profiles = append([]Profile{*p}, f.profiles...)
	return nil
}

func (f *fakeStore) GetProfile(ctx context.Context, id string) (*Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.profiles {
		if f.profiles[i].ID == id {
			p := f.profiles[i]
			return &p, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) CountVisible(ctx context.Context, viewerID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.profiles {
		if p.OwnerID != viewerID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) InsertDecision(ctx context.Context, d *Decision) error {
	f.mu.Lock()
	err := f.insertDecisionErr
	if err == nil {
		if f.decided[d.ViewerID] == nil {
			f.decided[d.ViewerID] = make(map[string]Outcome)
		}
		f.decided[d.ViewerID][d.ProfileID] = d.Outcome
	}
	f.mu.Unlock()

	select {
	case f.persists <- d:
	default:
	}
	return err
}

func (f *fakeStore) DecidedProfileIDs(ctx context.Context, viewerID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id := range f.decided[viewerID] {
		ids = append(ids, id)
	}
	return ids, nil
}

// makeProfiles builds n candidate profiles, newest first, all owned by
// distinct publishers.
func makeProfiles(n int) []Profile {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	out := make([]Profile, n)
	for i := 0; i < n; i++ {
		out[i] = Profile{
			ID:        fmt.Sprintf("profile-%02d", i+1),
			OwnerID:   fmt.Sprintf("publisher-%02d", i+1),
			Alias:     fmt.Sprintf("Candidate %d", i+1),
			Age:       25 + i,
			Bio:       "Enjoys long walks, board games and honest conversation.",
			Contact:   fmt.Sprintf("@candidate%d", i+1),
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
		}
	}
	return out
}

// waitFetch waits for the next recorded fetch call or fails the test.
func waitFetch(t *testing.T, store *fakeStore) fetchCall {
	t.Helper()
	select {
	case call := <-store.fetches:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a page fetch")
		return fetchCall{}
	}
}

// waitPersist waits for the next decision persistence attempt.
func waitPersist(t *testing.T, store *fakeStore) *Decision {
	t.Helper()
	select {
	case d := <-store.persists:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a decision persist")
		return nil
	}
}

// requireNoFetch asserts that no fetch happens within the grace window.
func requireNoFetch(t *testing.T, store *fakeStore) {
	t.Helper()
	select {
	case call := <-store.fetches:
		t.Fatalf("unexpected fetch: %+v", call)
	case <-time.After(150 * time.Millisecond):
	}
}
