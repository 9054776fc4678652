package main

import (
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// JWT secret from environment variable or fallback
func getJWTSecret() []byte {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return []byte(secret)
	}
	return []byte("your_secret_key_please_change_in_production")
}

var jwtSecret = getJWTSecret()

const activityWindow = 50

func main() {
	db := initDB()
	store := newPostgresStore(db)

	relay := NewRelay()
	feed := NewFeedManager(store, store, relay)
	activity := NewActivityLog(relay, activityWindow)
	engine := NewScoreEngine(os.Getenv("CLASSIFIER_URL"))

	mux := http.NewServeMux()

	// Swipe feed
	mux.Handle("/feed/start", startFeedHandler(feed))
	mux.Handle("/feed", feedHandler(feed))
	mux.Handle("/decisions", decisionsHandler(feed))

	// Profiles & trust scores
	mux.Handle("/profiles", publishProfileHandler(store, relay))
	mux.Handle("/profiles/", profilesDispatcher(store, engine)) // GET /profiles/{id}[/score]

	// Live updates & activity log
	mux.Handle("/ws/live", wsLiveHandler(relay))
	mux.Handle("/activity", activityHandler(activity))

	// Health check endpoint for Docker
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	log.Printf("Starting TrustFeed backend on %s...", addr)
	if err := http.ListenAndServe(addr, withCORS(mux)); err != nil {
		log.Fatal("Server stopped:", err)
	}
}
