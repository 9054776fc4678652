package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scorableProfile(bio string) *Profile {
	return &Profile{
		ID:      "profile-under-test",
		OwnerID: "publisher-1",
		Alias:   "Sam",
		Age:     29,
		Bio:     bio,
		Contact: "@sam",
	}
}

func TestHeuristicDeterminism(t *testing.T) {
	engine := NewScoreEngine("") // no classifier configured
	p := scorableProfile("I love hiking, loyal friends and very long conversations about music.")

	first := engine.ScoreProfile(context.Background(), p)
	second := engine.ScoreProfile(context.Background(), p)

	assert.Equal(t, first.Value, second.Value, "score must not flicker between renders")
	assert.Equal(t, first.Reason, second.Reason)
	assert.GreaterOrEqual(t, first.Value, scoreFloor)
	assert.LessOrEqual(t, first.Value, scoreCeil)
}

func TestSparseBioShortCircuit(t *testing.T) {
	var calls int32
	classifier := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusOK, map[string]interface{}{"score": 42, "reason": "remote verdict"})
	}))
	defer classifier.Close()

	engine := NewScoreEngine(classifier.URL)

	t.Run("nine characters takes the penalty path", func(t *testing.T) {
		s := engine.ScoreProfile(context.Background(), scorableProfile("  123456789  "))
		assert.Equal(t, sparseBioScore, s.Value)
		assert.Equal(t, sparseBioReason, s.Reason)
		assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "penalty path must not call the classifier")
	})

	t.Run("ten characters goes remote", func(t *testing.T) {
		s := engine.ScoreProfile(context.Background(), scorableProfile("exactly10c"))
		assert.Equal(t, 42, s.Value)
		assert.Equal(t, "remote verdict", s.Reason)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}

func TestClassifierFallbacks(t *testing.T) {
	p := scorableProfile("Friendly, curious, likes cooking and weekend cycling trips together.")
	want := heuristicScore(p)

	t.Run("no classifier configured", func(t *testing.T) {
		got := NewScoreEngine("").ScoreProfile(context.Background(), p)
		assert.Equal(t, want, got)
	})

	t.Run("malformed response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json at all"))
		}))
		defer srv.Close()
		got := NewScoreEngine(srv.URL).ScoreProfile(context.Background(), p)
		assert.Equal(t, want, got)
	})

	t.Run("error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()
		got := NewScoreEngine(srv.URL).ScoreProfile(context.Background(), p)
		assert.Equal(t, want, got)
	})

	t.Run("expired deadline", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"score": 5, "reason": "too late"})
		}))
		defer srv.Close()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		got := NewScoreEngine(srv.URL).ScoreProfile(ctx, p)
		assert.Equal(t, want, got)
	})
}

func TestRemoteScoreClampedDefensively(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"score": 150, "reason": "overexcited service"})
	}))
	defer srv.Close()

	s := NewScoreEngine(srv.URL).ScoreProfile(context.Background(), scorableProfile("A perfectly ordinary biography."))
	assert.Equal(t, scoreCeil, s.Value)
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, scoreCeil, clampScore(400))
	assert.Equal(t, scoreFloor, clampScore(-50))
	assert.Equal(t, scoreFloor, clampScore(0))
	assert.Equal(t, 50, clampScore(50))
	assert.Equal(t, scoreCeil, clampScore(99))
}

func TestHeuristicSignals(t *testing.T) {
	t.Run("terse bio", func(t *testing.T) {
		s := heuristicScore(scorableProfile("hey whats up"))
		// base 15 + 25 terse, jitter within [-7, 7]
		assert.InDelta(t, 40, s.Value, 7)
		assert.Equal(t, "evasively terse bio", s.Reason)
	})

	t.Run("drama queen bio saturates the scale", func(t *testing.T) {
		p := scorableProfile("no drama, very loyal, must treat me like a queen, literally SO DONE with liars!!!!")
		s := heuristicScore(p)
		// Cliche +35, transactional +55, status +25, one demand token +12 and
		// the exclamation signal +10 land the raw total well past the ceiling
		// (>= 90 before jitter), so it clamps.
		assert.Equal(t, scoreCeil, s.Value)
		assert.Equal(t, "transactional language", s.Reason)
	})

	t.Run("overloaded bio clamps at 99", func(t *testing.T) {
		p := scorableProfile("MUST SPOIL ME ALWAYS!!!! never cheap, buy me gifts only, prove yourself, I am a good person, LOYAL QUEEN ENERGY, no drama ever!!!!")
		s := heuristicScore(p)
		assert.Equal(t, scoreCeil, s.Value)
	})
}

func TestIdentityJitter(t *testing.T) {
	ids := []string{"", "a", "profile-01", "9c858901-8a57-4791-81fe-4c455b099bc9"}
	for _, id := range ids {
		first := identityJitter(id)
		second := identityJitter(id)
		require.Equal(t, first, second, "jitter must be stable for id %q", id)
		assert.GreaterOrEqual(t, first, -7)
		assert.LessOrEqual(t, first, 7)
	}
}

func TestJitterDistinguishesIdenticalBios(t *testing.T) {
	a := scorableProfile("Looking for someone kind to share slow mornings and good coffee with.")
	b := scorableProfile(a.Bio)
	a.ID = "profile-aa"
	b.ID = "profile-ab"

	sa := heuristicScore(a)
	sb := heuristicScore(b)
	// Same bio, different identity: the jitter spreads them apart while each
	// stays reproducible.
	assert.NotEqual(t, identityJitter(a.ID), identityJitter(b.ID))
	assert.Equal(t, sa, heuristicScore(a))
	assert.Equal(t, sb, heuristicScore(b))
}
