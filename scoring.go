package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	scoreFloor = 1
	scoreCeil  = 99

	// Bios shorter than this (after trimming) are not worth a classifier
	// call; they get a fixed penalty instead.
	minScorableBioLen = 10
	sparseBioScore    = 75
	sparseBioReason   = "insufficient disclosure"

	classifierTimeout = 2500 * time.Millisecond
)

// ScoreEngine produces the 1-99 trust rating for a card. It prefers the
// remote classifier but the heuristic below is the availability guarantee:
// the score always renders synchronously with the card, classifier or not.
type ScoreEngine struct {
	classifierURL string
	client        *http.Client
}

func NewScoreEngine(classifierURL string) *ScoreEngine {
	return &ScoreEngine{
		classifierURL: classifierURL,
		client:        &http.Client{},
	}
}

// ScoreProfile never returns an error: every failure mode of the remote call
// falls through to the deterministic heuristic.
func (e *ScoreEngine) ScoreProfile(ctx context.Context, p *Profile) Score {
	bio := strings.TrimSpace(p.Bio)
	if utf8.RuneCountInString(bio) < minScorableBioLen {
		// Cost-control short-circuit, not a fallback: don't burn a
		// classifier call on an empty disclosure.
		return Score{Value: sparseBioScore, Reason: sparseBioReason}
	}

	if s, err := e.classify(ctx, p); err == nil {
		return s
	} else {
		classifierFallbacks.Inc()
		log.Printf("scoring: classifier unavailable for profile %s, using heuristic: %v", p.ID, err)
	}
	return heuristicScore(p)
}

type classifierRequest struct {
	Bio   string `json:"bio"`
	Age   int    `json:"age"`
	Alias string `json:"alias"`
}

type classifierResponse struct {
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// classify calls the remote classifier with a client-side deadline,
// independent of whatever timeout the service enforces on its end.
func (e *ScoreEngine) classify(ctx context.Context, p *Profile) (Score, error) {
	if e.classifierURL == "" {
		return Score{}, fmt.Errorf("no classifier configured")
	}

	ctx, cancel := context.WithTimeout(ctx, classifierTimeout)
	defer cancel()

	body, err := json.Marshal(classifierRequest{Bio: p.Bio, Age: p.Age, Alias: p.Alias})
	if err != nil {
		return Score{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.classifierURL, bytes.NewReader(body))
	if err != nil {
		return Score{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return Score{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Score{}, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var out classifierResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Score{}, fmt.Errorf("classifier response did not parse: %w", err)
	}
	if out.Reason == "" {
		return Score{}, fmt.Errorf("classifier response missing reason")
	}
	// Clamp again on our side regardless of what the service promised.
	return Score{Value: clampScore(out.Score), Reason: out.Reason}, nil
}

// Phrase sets for the heuristic. These are fixed on purpose: the fallback
// must give identical output for identical input, so a profile's score never
// flickers between renders.
var (
	clichePhrases = []string{
		"no drama", "drama free", "drama-free", "hate drama", "zero drama",
		"loyalty is everything", "loyalty means everything", "very loyal",
		"trust is everything", "loyal to a fault", "honesty is key",
	}
	transactionalPhrases = []string{
		"spoil me", "treat me like a queen", "treat me like a king",
		"cashapp", "cash app", "venmo", "paypal", "sugar daddy", "sugar mommy",
		"gifts only", "pay my", "finance me", "buy me",
	}
	statusWords = []string{
		"queen", "king", "princess", "prince", "goddess", "alpha", "boss babe",
		"royalty", "vip",
	}
	challengePhrases = []string{
		"prove yourself", "prove to me", "earn my", "impress me", "win me over",
	}
	selfFlatteryPhrases = []string{
		"good person", "kind hearted", "kind-hearted", "heart of gold",
		"nicest person", "too nice", "too kind",
	}
	demandWords = []string{
		"must", "should", "never", "require", "requires", "required",
		"expect", "expects", "demand", "always",
	}
	firstPersonWords = map[string]bool{
		"i": true, "me": true, "my": true, "mine": true, "myself": true,
		"im": true, "i'm": true, "ive": true, "i've": true,
	}
)

// heuristicScore is the deterministic, network-free fallback. Pure function
// of the profile fields; no randomness beyond the identity-derived jitter.
func heuristicScore(p *Profile) Score {
	bio := strings.ToLower(p.Bio)
	words := strings.Fields(bio)
	wordCount := len(words)

	score := 15
	reason := "baseline heuristic"
	strongest := 0

	note := func(points int, label string) {
		score += points
		if points > strongest {
			strongest = points
			reason = label
		}
	}

	if wordCount < 4 {
		note(25, "evasively terse bio")
	} else if wordCount > 60 {
		note(15, "overshared bio")
	}

	if containsAny(bio, clichePhrases) {
		note(35, "defensive cliches")
	}
	if containsAny(bio, transactionalPhrases) {
		note(55, "transactional language")
	}

	if wordCount > 10 {
		self := 0
		for _, w := range words {
			if firstPersonWords[trimWordPunct(w)] {
				self++
			}
		}
		if float64(self)/float64(wordCount) > 0.15 {
			note(15, "heavy self-reference")
		}
	}

	if containsAny(bio, statusWords) {
		note(25, "status signaling")
	}
	if containsAny(strings.ToLower(p.Alias), statusWords) {
		note(20, "status signaling in alias")
	}

	demands := 0
	for _, w := range words {
		for _, d := range demandWords {
			if trimWordPunct(w) == d {
				demands++
				break
			}
		}
	}
	if demands > 0 {
		note(12*demands, "demanding tone")
	}
	if containsAny(bio, challengePhrases) {
		note(20, "challenge framing")
	}

	if capsRuns(p.Bio) >= 3 {
		note(15, "shouty typography")
	}
	if strings.Count(p.Bio, "!") > 3 {
		note(10, "excitable punctuation")
	}

	if containsAny(bio, selfFlatteryPhrases) {
		note(25, "self-flattery")
	}

	// Per-identity jitter so two identical bios don't show bit-identical
	// scores, while the same profile always scores the same.
	score += identityJitter(p.ID)

	return Score{Value: clampScore(score), Reason: reason}
}

func containsAny(s string, phrases []string) bool {
	for _, ph := range phrases {
		if strings.Contains(s, ph) {
			return true
		}
	}
	return false
}

func trimWordPunct(w string) string {
	return strings.TrimFunc(w, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
}

// capsRuns counts ALL-CAPS words of length >= 4.
func capsRuns(s string) int {
	runs := 0
	for _, w := range strings.Fields(s) {
		w = trimWordPunct(w)
		letters := 0
		upper := true
		for _, r := range w {
			if !unicode.IsLetter(r) {
				continue
			}
			letters++
			if !unicode.IsUpper(r) {
				upper = false
				break
			}
		}
		if upper && letters >= 4 {
			runs++
		}
	}
	return runs
}

// identityJitter derives a stable offset in [-7, +7] from the profile id.
// Any stable hash would do; summing byte values keeps it obvious.
func identityJitter(id string) int {
	sum := 0
	for _, b := range []byte(id) {
		sum += int(b)
	}
	return sum%15 - 7
}

func clampScore(n int) int {
	if n < scoreFloor {
		return scoreFloor
	}
	if n > scoreCeil {
		return scoreCeil
	}
	return n
}
