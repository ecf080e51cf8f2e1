package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laila/internal/agent"
)

type fakeProcessor struct {
	reply   string
	err     error
	panics  bool
	calls   int
	session string
	prompt  string
	events  []agent.Event
}

func (f *fakeProcessor) Process(_ context.Context, sessionID, prompt string, emit func(agent.Event)) (string, error) {
	f.calls++
	f.session = sessionID
	f.prompt = prompt
	if f.panics {
		panic("nil map write")
	}
	if emit != nil {
		for _, ev := range f.events {
			emit(ev)
		}
	}
	return f.reply, f.err
}

func post(t *testing.T, s *Server, body string, header http.Header) (*httptest.ResponseRecorder, InvocationResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/invocations", strings.NewReader(body))
	for k, v := range header {
		req.Header[http.CanonicalHeaderKey(k)] = v
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var resp InvocationResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestInvocationEmptyPrompt(t *testing.T) {
	p := &fakeProcessor{}
	rec, resp := post(t, NewServer(p), `{"session_id":"s-1"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, InvocationResponse{Error: "No prompt provided", SessionID: "s-1"}, resp)
	assert.Zero(t, p.calls)
}

func TestInvocationInvalidBody(t *testing.T) {
	p := &fakeProcessor{}
	_, resp := post(t, NewServer(p), `{not json`, nil)

	assert.Equal(t, "No prompt provided", resp.Error)
	assert.NotEmpty(t, resp.SessionID)
	assert.Zero(t, p.calls)
}

func TestInvocationSuccess(t *testing.T) {
	p := &fakeProcessor{reply: "Issue created: #12"}
	_, resp := post(t, NewServer(p), `{"prompt":"file a bug","session_id":"s-2"}`, nil)

	assert.Equal(t, InvocationResponse{Response: "Issue created: #12", SessionID: "s-2"}, resp)
	assert.Equal(t, "file a bug", p.prompt)
	assert.Equal(t, "s-2", p.session)
}

func TestInvocationSessionFallback(t *testing.T) {
	p := &fakeProcessor{reply: "ok"}
	s := NewServer(p)

	_, resp := post(t, s, `{"prompt":"hi"}`, http.Header{SessionHeader: {"runtime-session"}})
	assert.Equal(t, "runtime-session", resp.SessionID)

	_, resp = post(t, s, `{"prompt":"hi","session_id":"body-session"}`, http.Header{SessionHeader: {"runtime-session"}})
	assert.Equal(t, "body-session", resp.SessionID)

	_, resp = post(t, s, `{"prompt":"hi"}`, nil)
	assert.Len(t, resp.SessionID, 36)
	assert.Equal(t, resp.SessionID, p.session)
}

func TestInvocationSpecialistFailureIsResponse(t *testing.T) {
	failure := "I could not create the issue.\n\nStatus: Failed\n\nError: connection refused"
	p := &fakeProcessor{reply: failure}
	_, resp := post(t, NewServer(p), `{"prompt":"file a bug","session_id":"s"}`, nil)

	assert.Empty(t, resp.Error)
	assert.Equal(t, failure, resp.Response)
}

func TestInvocationProcessorError(t *testing.T) {
	p := &fakeProcessor{err: errors.New("model call: throttled")}
	_, resp := post(t, NewServer(p), `{"prompt":"x","session_id":"s"}`, nil)

	assert.Equal(t, InvocationResponse{Error: "model call: throttled", SessionID: "s"}, resp)
}

func TestInvocationPanicBecomesEnvelope(t *testing.T) {
	p := &fakeProcessor{panics: true}
	rec, resp := post(t, NewServer(p), `{"prompt":"x","session_id":"s"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, InvocationResponse{Error: "nil map write", SessionID: "s"}, resp)
}

func TestInvocationStream(t *testing.T) {
	p := &fakeProcessor{
		reply: "done!",
		events: []agent.Event{
			{Type: agent.EventToolCall, Data: map[string]string{"name": "retrieve"}},
			{Type: agent.EventToolResult, Data: map[string]string{"name": "retrieve", "content": "guide"}},
			{Type: agent.EventDone, Data: "done!"},
		},
	}
	rec, _ := post(t, NewServer(p), `{"prompt":"x","session_id":"s"}`, http.Header{"Accept": {"text/event-stream"}})

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "event: tool_call\ndata: {\"name\":\"retrieve\"}\n\n")
	assert.Contains(t, body, "event: tool_result\n")
	assert.Contains(t, body, "event: done\n")
	assert.Contains(t, body, "event: result\ndata: {\"response\":\"done!\",\"session_id\":\"s\"}\n\n")
	assert.Less(t, strings.Index(body, "event: done"), strings.Index(body, "event: result"))
}

type brokenWriter struct {
	header http.Header
}

func (b *brokenWriter) Header() http.Header       { return b.header }
func (b *brokenWriter) Write([]byte) (int, error) { return 0, errors.New("client gone") }
func (b *brokenWriter) WriteHeader(int)           {}

func TestSSEWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	sse := NewSSEWriter(rec)
	require.NoError(t, sse.Send("done", "ok"))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "event: done\ndata: \"ok\"\n\n", rec.Body.String())
	assert.True(t, rec.Flushed)

	err := NewSSEWriter(&brokenWriter{header: http.Header{}}).Send("done", "ok")
	assert.ErrorContains(t, err, "client gone")

	err = sse.Send("bad", func() {})
	assert.ErrorContains(t, err, "encoding bad event")
}

func TestPing(t *testing.T) {
	rec := httptest.NewRecorder()
	NewServer(&fakeProcessor{}).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"Healthy"}`, rec.Body.String())
}

func TestMetrics(t *testing.T) {
	s := NewServer(&fakeProcessor{reply: "ok"})
	post(t, s, `{"prompt":"x","session_id":"s"}`, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "laila_invocations_total")
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer(&fakeProcessor{}).ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()
	require.NoError(t, <-done)
}
