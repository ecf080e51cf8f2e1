package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"laila/internal/agent"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleInvocations(w http.ResponseWriter, r *http.Request) {
	var req InvocationRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		slog.Warn("invalid invocation body", "error", err)
		// An unreadable body carries no prompt.
		req = InvocationRequest{}
	}
	if req.SessionID == "" {
		req.SessionID = r.Header.Get(SessionHeader)
	}

	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		s.streamInvocation(w, r, req)
		return
	}

	writeJSON(w, http.StatusOK, Invoke(r.Context(), s.processor, req, nil))
}

func (s *Server) streamInvocation(w http.ResponseWriter, r *http.Request, req InvocationRequest) {
	sse := NewSSEWriter(w)
	resp := Invoke(r.Context(), s.processor, req, func(ev agent.Event) {
		switch ev.Type {
		case agent.EventToken:
			sse.Send("token", map[string]any{"content": ev.Data})
		case agent.EventToolCall:
			sse.Send("tool_call", ev.Data)
		case agent.EventToolResult:
			sse.Send("tool_result", ev.Data)
		case agent.EventError:
			sse.Send("error", map[string]any{"error": ev.Data})
		case agent.EventDone:
			sse.Send("done", map[string]any{})
		}
	})
	sse.Send("result", resp)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "Healthy"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response", "error", err)
	}
}
