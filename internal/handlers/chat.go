package handlers

import (
	"net/http"

	"github.com/aawaaz/complaint-server/internal/services"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChatHandler serves the per-complaint chat rooms
type ChatHandler struct {
	chat   *services.ChatService
	actors ActorResolver
	logger *zap.SugaredLogger
}

// NewChatHandler creates a chat handler
func NewChatHandler(chat *services.ChatService, actors ActorResolver, logger *zap.SugaredLogger) *ChatHandler {
	return &ChatHandler{chat: chat, actors: actors, logger: logger}
}

// chatWith reads the counterpart selector from the query, then the body
func chatWith(r *http.Request) (string, error) {
	if v := r.URL.Query().Get("chatWith"); v != "" {
		return v, nil
	}
	var req struct {
		ChatWith string `json:"chatWith"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return "", err
	}
	return req.ChatWith, nil
}

type roomFunc func(a services.Actor, complaintID uuid.UUID, with string) (interface{}, error)

func (h *ChatHandler) room(w http.ResponseWriter, r *http.Request, status int, serve roomFunc) {
	id, ok := pathID(w, r, "complaintId")
	if !ok {
		return
	}
	with, err := chatWith(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	a, ok := actor(w, r, h.actors, h.logger)
	if !ok {
		return
	}
	out, err := serve(*a, id, with)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, status, out)
}

// Init handles POST /api/chat/init/{complaintId}
func (h *ChatHandler) Init(w http.ResponseWriter, r *http.Request) {
	h.room(w, r, http.StatusOK, func(a services.Actor, id uuid.UUID, with string) (interface{}, error) {
		return h.chat.Init(r.Context(), a, id, with)
	})
}

// Get handles GET /api/chat/{complaintId}
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.room(w, r, http.StatusOK, func(a services.Actor, id uuid.UUID, with string) (interface{}, error) {
		return h.chat.Get(r.Context(), a, id, with)
	})
}

// Send handles POST /api/chat/{complaintId}/message
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "complaintId")
	if !ok {
		return
	}
	var req services.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ChatWith == "" {
		req.ChatWith = r.URL.Query().Get("chatWith")
	}
	a, ok := actor(w, r, h.actors, h.logger)
	if !ok {
		return
	}
	msg, err := h.chat.Send(r.Context(), *a, id, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, msg)
}

// MarkRead handles POST /api/chat/{complaintId}/read
func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	h.room(w, r, http.StatusOK, func(a services.Actor, id uuid.UUID, with string) (interface{}, error) {
		if err := h.chat.MarkRead(r.Context(), a, id, with); err != nil {
			return nil, err
		}
		return map[string]string{"message": "Messages marked as read"}, nil
	})
}

// Unread handles GET /api/chat/{complaintId}/unread
func (h *ChatHandler) Unread(w http.ResponseWriter, r *http.Request) {
	h.room(w, r, http.StatusOK, func(a services.Actor, id uuid.UUID, with string) (interface{}, error) {
		n, err := h.chat.Unread(r.Context(), a, id, with)
		if err != nil {
			return nil, err
		}
		return map[string]int{"unreadCount": n}, nil
	})
}
