package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
)

type fakeCompleter struct {
	reply  string
	chunks []string
	err    error

	gotMessage  string
	gotProvider string
	gotModel    string
}

func (f *fakeCompleter) Complete(_ context.Context, message, provider, model string) (string, error) {
	f.gotMessage, f.gotProvider, f.gotModel = message, provider, model
	return f.reply, f.err
}

func (f *fakeCompleter) Stream(_ context.Context, message, provider, model string) (*schema.StreamReader[*schema.Message], error) {
	f.gotMessage, f.gotProvider, f.gotModel = message, provider, model
	if f.err != nil {
		return nil, f.err
	}
	messages := make([]*schema.Message, 0, len(f.chunks))
	for _, chunk := range f.chunks {
		messages = append(messages, schema.AssistantMessage(chunk, nil))
	}
	return schema.StreamReaderFromArray(messages), nil
}

func setupRouter(completer Completer) *chi.Mux {
	r := chi.NewRouter()
	New(completer).RegisterRoutes(r)
	return r
}

func postCompletion(t *testing.T, r http.Handler, body map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/chat/completion", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestCompleteReturnsReply(t *testing.T) {
	fake := &fakeCompleter{reply: "hello there"}
	r := setupRouter(fake)

	resp := postCompletion(t, r, map[string]string{
		"message":  "hi",
		"provider": "gemini",
		"model":    "gemini-2.0-flash",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body struct {
		Reply string `json:"reply"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Reply != "hello there" {
		t.Fatalf("unexpected reply: %q", body.Reply)
	}
	if fake.gotProvider != "gemini" || fake.gotModel != "gemini-2.0-flash" {
		t.Fatalf("routing mismatch: provider=%s model=%s", fake.gotProvider, fake.gotModel)
	}
}

func TestCompleteDefaultsProvider(t *testing.T) {
	fake := &fakeCompleter{reply: "ok"}
	r := setupRouter(fake)

	resp := postCompletion(t, r, map[string]string{"message": "hi", "model": "m"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if fake.gotProvider != defaultProvider {
		t.Fatalf("expected default provider, got %s", fake.gotProvider)
	}
}

func TestCompleteMissingMessage(t *testing.T) {
	r := setupRouter(&fakeCompleter{})

	resp := postCompletion(t, r, map[string]string{"model": "m"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestCompleteBackendFailure(t *testing.T) {
	r := setupRouter(&fakeCompleter{err: errors.New("boom")})

	resp := postCompletion(t, r, map[string]string{"message": "hi", "model": "m"})
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
}

func TestCompleteUnavailableWithoutBackend(t *testing.T) {
	r := setupRouter(nil)

	resp := postCompletion(t, r, map[string]string{"message": "hi", "model": "m"})
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestStreamDeliversChunks(t *testing.T) {
	fake := &fakeCompleter{chunks: []string{"hel", "lo"}}
	r := setupRouter(fake)

	req := httptest.NewRequest(http.MethodGet, "/chat/completion/stream?message=hi&model=m", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got := resp.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("unexpected content type: %s", got)
	}

	body := resp.Body.String()
	for _, want := range []string{"event: start", `"content":"hel"`, `"content":"lo"`, "event: end"} {
		if !strings.Contains(body, want) {
			t.Fatalf("stream body missing %q:\n%s", want, body)
		}
	}
}

func TestStreamBackendFailure(t *testing.T) {
	r := setupRouter(&fakeCompleter{err: errors.New("boom")})

	req := httptest.NewRequest(http.MethodGet, "/chat/completion/stream?message=hi&model=m", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
}
