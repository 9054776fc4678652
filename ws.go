package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// For development: allow the Vite dev origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsLiveHandler streams relay change events to a browser session. The client
// never sends anything meaningful back; the read loop exists only to notice
// the close.
func wsLiveHandler(relay *Relay) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewerID, ok := getViewerIDFromRequest(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "auth_required")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WS upgrade error for viewer %s: %v", viewerID, err)
			return
		}

		events, cancel := relay.Subscribe()
		wsClients.Inc()

		done := make(chan struct{})
		go liveReader(conn, done)
		go liveWriter(conn, events, cancel, done)
	}
}

func liveReader(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func liveWriter(conn *websocket.Conn, events <-chan ChangeEvent, cancel func(), done chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		cancel()
		conn.Close()
		wsClients.Dec()
	}()

	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			// ping to keep the connection alive
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
