package completion

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"

	"github.com/nova-labs/nova-chat/server/pkg/utils"
)

// Completer is the model backend this handler fronts.
type Completer interface {
	Complete(ctx context.Context, message, provider, model string) (string, error)
	Stream(ctx context.Context, message, provider, model string) (*schema.StreamReader[*schema.Message], error)
}

const (
	defaultProvider   = "openrouter"
	completionTimeout = 60 * time.Second
)

// Handler serves assistant replies, as a single JSON response or as SSE.
type Handler struct {
	completer Completer
}

// New creates the completion handler. A nil completer means no provider is
// configured; requests then answer 503.
func New(completer Completer) *Handler {
	return &Handler{completer: completer}
}

// RegisterRoutes mounts the completion routes on the given router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/completion", h.handleComplete)
	r.Get("/chat/completion/stream", h.handleStream)
}

type completionRequest struct {
	Message  string `json:"message"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

func (r *completionRequest) validate() string {
	if r.Message == "" {
		return "message is required"
	}
	if r.Model == "" {
		return "model is required"
	}
	if r.Provider == "" {
		r.Provider = defaultProvider
	}
	return ""
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	if h.completer == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "completion unavailable")
		return
	}

	var req completionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		utils.RespondError(w, http.StatusBadRequest, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), completionTimeout)
	defer cancel()

	reply, err := h.completer.Complete(ctx, req.Message, req.Provider, req.Model)
	if err != nil {
		log.Printf("[completion] generation failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "completion failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

// streamEvent is the payload carried by each SSE frame.
type streamEvent struct {
	Content  string `json:"content,omitempty"`
	Finished bool   `json:"finished,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	if h.completer == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "completion unavailable")
		return
	}

	req := completionRequest{
		Message:  r.URL.Query().Get("message"),
		Provider: r.URL.Query().Get("provider"),
		Model:    r.URL.Query().Get("model"),
	}
	if msg := req.validate(); msg != "" {
		utils.RespondError(w, http.StatusBadRequest, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), completionTimeout)
	defer cancel()

	stream, err := h.completer.Stream(ctx, req.Message, req.Provider, req.Model)
	if err != nil {
		log.Printf("[completion] stream failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "completion failed")
		return
	}
	defer stream.Close()

	utils.SetupSSEHeaders(w)
	utils.SendSSEEvent(w, flusher, "start", streamEvent{})

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			utils.SendSSEEvent(w, flusher, "end", streamEvent{Finished: true})
			return
		}
		if err != nil {
			log.Printf("[completion] stream recv failed: %v", err)
			utils.SendSSEEvent(w, flusher, "error", streamEvent{Error: "completion failed"})
			return
		}
		if chunk.Content != "" {
			utils.SendSSEEvent(w, flusher, "chunk", streamEvent{Content: chunk.Content})
		}
	}
}
