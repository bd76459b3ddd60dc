package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"expenses/internal/log"
)

const eventBuffer = 16

// handleEvents streams change events as server-sent events. Each event is
// written as "event: <kind>" with the JSON-encoded event as data. A comment
// line is sent every heartbeat so idle proxies keep the connection open.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		ErrorResponse(http.StatusServiceUnavailable, "event stream disabled").Write(w)
		return
	}
	rc := http.NewResponseController(w)

	sub := s.hub.Subscribe(eventBuffer)
	defer sub.Close()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-store")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		log.FromContext(r.Context()).Warn("Event stream cannot flush",
			log.FieldError, err)
		return
	}

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.done:
			return
		case e, ok := <-sub.C:
			if !ok {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Kind, data); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
