package chat

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nova-labs/nova-chat/server/internal/model/chat"
	"github.com/nova-labs/nova-chat/server/internal/store"
	"github.com/nova-labs/nova-chat/server/pkg/utils"
)

// Handler exposes chat session CRUD over HTTP.
type Handler struct {
	store store.Store
}

// New creates the chat handler.
func New(st store.Store) *Handler {
	return &Handler{store: st}
}

// RegisterRoutes mounts the chat routes on the given router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chats", h.handleList)
	r.Get("/chats/{chatID}", h.handleGet)
	r.Post("/chats", h.handleCreate)
	r.Put("/chats", h.handleUpdate)
	r.Delete("/chats/{chatID}", h.handleDelete)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	chats, err := h.store.List(r.Context())
	if err != nil {
		log.Printf("[chat] list failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "error fetching chats")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"chats": chats})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")

	session, err := h.store.Get(r.Context(), chatID)
	if err != nil {
		h.respondStoreError(w, "fetching", err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"chat": session})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var session chat.Session
	if err := json.NewDecoder(r.Body).Decode(&session); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.store.Create(r.Context(), session)
	if err != nil {
		h.respondStoreError(w, "creating", err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var session chat.Session
	if err := json.NewDecoder(r.Body).Decode(&session); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.store.Update(r.Context(), session)
	if err != nil {
		h.respondStoreError(w, "updating", err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")

	if err := h.store.Delete(r.Context(), chatID); err != nil {
		h.respondStoreError(w, "deleting", err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Chat deleted successfully"})
}

// respondStoreError maps store sentinels onto HTTP statuses. Anything not in
// the taxonomy is a store failure and stays server-side.
func (h *Handler) respondStoreError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, store.ErrValidation):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, "Chat not found")
	case errors.Is(err, store.ErrConflict):
		utils.RespondError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("[chat] error %s chat: %v", action, err)
		utils.RespondError(w, http.StatusInternalServerError, "Error "+action+" chat")
	}
}
