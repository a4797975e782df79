package analysis

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewpaige1/prepass-api/apperr"
)

// fakeGateway emulates the chat completion endpoint.
type fakeGateway struct {
	t        *testing.T
	calls    atomic.Int32
	statuses []int // status per call, 200 once exhausted
	content  string
	lastBody map[string]any
}

func (f *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := int(f.calls.Add(1))
	assert.Equal(f.t, "/chat/completions", r.URL.Path)
	assert.Equal(f.t, "Bearer test-key", r.Header.Get("Authorization"))

	body, _ := io.ReadAll(r.Body)
	var decoded map[string]any
	require.NoError(f.t, json.Unmarshal(body, &decoded))
	f.lastBody = decoded

	w.Header().Set("Content-Type", "application/json")
	if n <= len(f.statuses) && f.statuses[n-1] != http.StatusOK {
		w.WriteHeader(f.statuses[n-1])
		_, _ = w.Write([]byte(`{"error": {"message": "gateway says no", "type": "error"}}`))
		return
	}

	resp := map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   "google/gemini-2.5-flash",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": f.content},
		}},
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestAnalyzer(t *testing.T, gw *fakeGateway) *GatewayAnalyzer {
	t.Helper()
	gw.t = t
	srv := httptest.NewServer(gw)
	t.Cleanup(srv.Close)

	return NewGatewayAnalyzer(GatewayConfig{
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		MaxRetries: 3,
		Timeout:    5 * time.Second,
		Backoff:    time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAnalyze_EmptyRequestNeverCallsGateway(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"nothing", Request{}},
		{"whitespace text", Request{Text: "  \n\t "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{content: validPayload}
			a := newTestAnalyzer(t, gw)

			assert.True(t, tt.req.Empty())
			_, err := a.Analyze(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, apperr.IsKind(err, apperr.KindInput))
			assert.Equal(t, int32(0), gw.calls.Load())
		})
	}
}

func TestAnalyze_Text(t *testing.T) {
	gw := &fakeGateway{content: "```json\n" + validPayload + "\n```"}
	a := newTestAnalyzer(t, gw)

	res, err := a.Analyze(context.Background(), Request{Text: "Mitochondria make ATP"})
	require.NoError(t, err)
	assert.Len(t, res.Flashcards, 2)
	assert.Len(t, res.Quizzes, 1)

	assert.Equal(t, "google/gemini-2.5-flash", gw.lastBody["model"])
	messages := gw.lastBody["messages"].([]any)
	require.Len(t, messages, 2)
	user := messages[1].(map[string]any)
	assert.Contains(t, user["content"], "Mitochondria make ATP")
}

func TestAnalyze_AttachmentsAreMultipart(t *testing.T) {
	gw := &fakeGateway{content: validPayload}
	a := newTestAnalyzer(t, gw)

	req := Request{
		Text:   "see photo",
		Images: []Attachment{{Name: "a.png", MIMEType: "image/png", Data: pngOf(t, 4, 4)}},
		PDFs:   []Attachment{{Name: "b.pdf", MIMEType: MimePDF, Data: pdfBytes}},
	}
	_, err := a.Analyze(context.Background(), req)
	require.NoError(t, err)

	user := gw.lastBody["messages"].([]any)[1].(map[string]any)
	parts := user["content"].([]any)
	require.Len(t, parts, 4)

	var urls []string
	for _, p := range parts {
		part := p.(map[string]any)
		if part["type"] == "image_url" {
			urls = append(urls, part["image_url"].(map[string]any)["url"].(string))
		}
	}
	require.Len(t, urls, 2)
	assert.Contains(t, urls[0], "data:image/png;base64,")
	assert.Contains(t, urls[1], "data:application/pdf;base64,")
}

func TestAnalyze_StatusMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		reason    apperr.Reason
		message   string
		wantCalls int32
	}{
		{"rate limited", http.StatusTooManyRequests, apperr.ReasonRateLimited, "Rate limit exceeded. Please try again in a moment.", 1},
		{"credits exhausted", http.StatusPaymentRequired, apperr.ReasonQuotaExhausted, "AI credits exhausted. Please add more credits.", 1},
		{"bad request", http.StatusBadRequest, apperr.ReasonNone, "AI service error: 400", 1},
		{"server down", http.StatusBadGateway, apperr.ReasonNone, "AI service error: 502", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{statuses: []int{tt.status, tt.status, tt.status}, content: validPayload}
			a := newTestAnalyzer(t, gw)

			_, err := a.Analyze(context.Background(), Request{Text: "notes"})
			require.Error(t, err)
			assert.True(t, apperr.IsKind(err, apperr.KindService))
			assert.Equal(t, tt.reason, apperr.ReasonOf(err))
			assert.Equal(t, tt.message, apperr.UserMessage(err, ""))
			assert.Equal(t, tt.wantCalls, gw.calls.Load())
		})
	}
}

func TestAnalyze_RetriesTransientFailure(t *testing.T) {
	gw := &fakeGateway{statuses: []int{http.StatusServiceUnavailable}, content: validPayload}
	a := newTestAnalyzer(t, gw)

	res, err := a.Analyze(context.Background(), Request{Text: "notes"})
	require.NoError(t, err)
	assert.Len(t, res.Flashcards, 2)
	assert.Equal(t, int32(2), gw.calls.Load())
}

func TestAnalyze_ErrorPayloadSurfaced(t *testing.T) {
	gw := &fakeGateway{content: `{"error": "No study notes found in image"}`}
	a := newTestAnalyzer(t, gw)

	_, err := a.Analyze(context.Background(), Request{Text: "??"})
	require.Error(t, err)
	assert.Equal(t, "No study notes found in image", apperr.UserMessage(err, ""))
}

func TestAnalyze_EmptyContent(t *testing.T) {
	gw := &fakeGateway{content: ""}
	a := newTestAnalyzer(t, gw)

	_, err := a.Analyze(context.Background(), Request{Text: "notes"})
	require.Error(t, err)
	assert.Equal(t, "No content in AI response", apperr.UserMessage(err, ""))
}
