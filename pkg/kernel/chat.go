package kernel

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/manthysbr/partsdesk/internal/core/services"
)

// maxBodyBytes bounds request bodies well above the longest valid message.
const maxBodyBytes = 64 << 10

const sseKeepAlive = 25 * time.Second

type chatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// handleChat runs one turn. POST /api/chat
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.chat.Chat(r.Context(), req.SessionID, req.Message)
	if err != nil {
		s.writeFailure(w, "chat turn failed", err, "session_id", req.SessionID)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleSessionMessages returns the transcript. GET /api/sessions/{id}/messages?limit=N
func (s *Server) handleSessionMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var limit *int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit: %v", err))
		return
	}
	n := 0
	if limit != nil {
		if *limit < 0 {
			writeError(w, http.StatusBadRequest, "limit cannot be negative")
			return
		}
		n = *limit
	}

	msgs, err := s.chat.History(r.Context(), id, n)
	if err != nil {
		s.writeFailure(w, "history lookup failed", err, "session_id", id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId": id,
		"messages":  msgs,
		"count":     len(msgs),
	})
}

// handleResetSession forgets the session context. DELETE /api/sessions/{id}
func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.chat.Reset(r.Context(), id); err != nil {
		s.writeFailure(w, "session reset failed", err, "session_id", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSessionEvents streams turn lifecycle events for a session.
// GET /api/sessions/{id}/events
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Subscribe before the headers go out so no event published after the
	// client sees 200 is missed.
	ch, unsub := s.chat.Events(id)
	defer unsub()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := writeSSE(w, evt); err != nil {
				s.logger.Warn("failed to write event", "session_id", id, "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, evt services.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
	return err
}
