package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ViewerIDKey is the key type for storing the viewer id in context
type ViewerIDKey string

const viewerIDKey ViewerIDKey = "viewerID"

// authenticate wraps a handler and fails closed: an anonymous request never
// reaches queue or decision state. Token issuing belongs to the account
// service; this backend only verifies.
func authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewerID, ok := getViewerIDFromRequest(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "auth_required")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), viewerIDKey, viewerID)))
	}
}

func getViewerIDFromBearer(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	return parseViewerIDFromJWT(strings.TrimPrefix(auth, "Bearer "))
}

// getViewerIDFromRequest tries the Authorization header first, then falls
// back to a token query param for WebSocket upgrades (browsers can't set
// headers there).
func getViewerIDFromRequest(r *http.Request) (string, bool) {
	if id, ok := getViewerIDFromBearer(r); ok {
		return id, true
	}
	if q := r.URL.Query().Get("token"); q != "" {
		return parseViewerIDFromJWT(q)
	}
	return "", false
}

func parseViewerIDFromJWT(tokenStr string) (string, bool) {
	claims := jwt.MapClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", false
	}

	viewerID, ok := claims["viewer_id"].(string)
	if !ok || viewerID == "" {
		return "", false
	}
	return viewerID, true
}
