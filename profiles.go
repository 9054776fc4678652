package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ProfileIntake is the validated publish payload. The owner comes from the
// auth context, never from the body.
type ProfileIntake struct {
	Alias       string `json:"alias" validate:"required,min=2,max=40"`
	Age         int    `json:"age" validate:"required,gte=18,lte=120"`
	Bio         string `json:"bio" validate:"max=2000"`
	PortraitURL string `json:"portrait_url" validate:"omitempty,url"`
	Contact     string `json:"contact_handle" validate:"required,max=80"`
}

var validate = validator.New()

// POST /profiles
func publishProfileHandler(store ProfileStore, relay *Relay) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		viewerID := r.Context().Value(viewerIDKey).(string)

		var in ProfileIntake
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if err := validate.Struct(in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_profile")
			return
		}

		p := &Profile{
			OwnerID:     viewerID,
			Alias:       strings.TrimSpace(in.Alias),
			Age:         in.Age,
			Bio:         strings.TrimSpace(in.Bio),
			PortraitURL: in.PortraitURL,
			Contact:     strings.TrimSpace(in.Contact),
		}
		if err := store.InsertProfile(r.Context(), p); err != nil {
			log.Println("Error saving profile to database:", err)
			writeError(w, http.StatusInternalServerError, "publish_error")
			return
		}

		// Every open session hears about this and splices it in; the
		// publisher's own sessions drop it on the owner check.
		relay.Publish(ChangeEvent{Table: tableProfiles, Op: opInsert, Profile: p})

		writeJSON(w, http.StatusCreated, p)
	})
}

// Dispatcher for /profiles/{id} and /profiles/{id}/score
func profilesDispatcher(store ProfileStore, engine *ScoreEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) < 2 || parts[0] != "profiles" {
			http.NotFound(w, r)
			return
		}
		switch {
		case len(parts) == 2:
			getProfileHandler(store).ServeHTTP(w, r)
		case len(parts) == 3 && parts[2] == "score":
			profileScoreHandler(store, engine).ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	}
}

// GET /profiles/{id}
func getProfileHandler(store ProfileStore) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		p, err := store.GetProfile(r.Context(), parts[1])
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, "not_found")
			return
		} else if err != nil {
			log.Println("Error loading profile:", err)
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		writeJSON(w, http.StatusOK, p)
	})
}

// GET /profiles/{id}/score
func profileScoreHandler(store ProfileStore, engine *ScoreEngine) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		p, err := store.GetProfile(r.Context(), parts[1])
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, "not_found")
			return
		} else if err != nil {
			log.Println("Error loading profile for scoring:", err)
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		writeJSON(w, http.StatusOK, engine.ScoreProfile(r.Context(), p))
	})
}
