package utils

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendSSEEventFrame(t *testing.T) {
	resp := httptest.NewRecorder()

	SendSSEEvent(resp, resp, "chunk", map[string]string{"content": "hi"})

	body := resp.Body.String()
	if !strings.HasPrefix(body, "event: chunk\ndata: ") {
		t.Fatalf("unexpected frame prefix: %q", body)
	}
	if !strings.HasSuffix(body, "\n\n") {
		t.Fatalf("frame must end with a blank line: %q", body)
	}
}

func TestSendSSEChunkFrame(t *testing.T) {
	resp := httptest.NewRecorder()

	SendSSEChunk(resp, resp, map[string]string{"event": "status"})

	body := resp.Body.String()
	if !strings.HasPrefix(body, "data: ") || !strings.HasSuffix(body, "\n\n") {
		t.Fatalf("unexpected frame: %q", body)
	}
}

// brokenWriter fails every write, as a closed client connection would.
type brokenWriter struct {
	header  http.Header
	flushed bool
}

func (b *brokenWriter) Header() http.Header {
	if b.header == nil {
		b.header = make(http.Header)
	}
	return b.header
}

func (b *brokenWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }
func (b *brokenWriter) WriteHeader(int)           {}
func (b *brokenWriter) Flush()                    { b.flushed = true }

func TestSendSSEEventWriteFailure(t *testing.T) {
	w := &brokenWriter{}

	SendSSEEvent(w, w, "chunk", map[string]string{"content": "hi"})

	if w.flushed {
		t.Fatal("must not flush after a failed write")
	}
}

func TestSendSSEChunkWriteFailure(t *testing.T) {
	w := &brokenWriter{}

	SendSSEChunk(w, w, map[string]string{"event": "status"})

	if w.flushed {
		t.Fatal("must not flush after a failed write")
	}
}
