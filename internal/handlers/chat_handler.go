// File: internal/handlers/chat_handler.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/iyusef/go-chatstream/internal/cache"
	"github.com/iyusef/go-chatstream/internal/dtos"
	"github.com/iyusef/go-chatstream/internal/middleware"
	chatsvc "github.com/iyusef/go-chatstream/internal/services/chat"
)

type ChatHandler struct {
	ChatService *chatsvc.Service
	Pipeline    *chatsvc.Pipeline
	Publisher   *chatsvc.Publisher
	ListCache   *cache.ChatListCache
}

func NewChatHandler(cs *chatsvc.Service, pipeline *chatsvc.Pipeline, publisher *chatsvc.Publisher, listCache *cache.ChatListCache) *ChatHandler {
	return &ChatHandler{
		ChatService: cs,
		Pipeline:    pipeline,
		Publisher:   publisher,
		ListCache:   listCache,
	}
}

// CreateChat handles POST /api/chats.
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}

	var req dtos.CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	chat, err := h.ChatService.CreateChat(r.Context(), userID, req.Title, req.Model, req.SystemPrompt)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dtos.NewChatResponse(chat))
}

// ListChats handles GET /api/chats with cache-aside on the Redis listing.
func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	if h.ListCache != nil {
		if chats, total, err := h.ListCache.Get(r.Context(), userID, limit, offset); err == nil {
			writeJSON(w, http.StatusOK, dtos.NewChatListResponse(chats, total, limit, offset))
			return
		}
	}

	chats, total, err := h.ChatService.ListChats(r.Context(), userID, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if h.ListCache != nil {
		h.ListCache.Put(r.Context(), userID, limit, offset, chats, total)
	}
	writeJSON(w, http.StatusOK, dtos.NewChatListResponse(chats, total, limit, offset))
}

// GetChat handles GET /api/chats/{id}.
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}

	chat, err := h.ChatService.GetChat(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.NewChatResponse(chat))
}

// DeleteChat handles DELETE /api/chats/{id}.
func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}

	if err := h.ChatService.DeleteChat(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetChatMessages handles GET /api/chats/{id}/messages.
func (h *ChatHandler) GetChatMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}

	messages, err := h.ChatService.ListMessages(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.NewMessageListResponse(messages))
}

// SendMessage handles POST /api/chats/{id}/messages. The response carries both
// message ids and whether generation was queued; the client then opens the
// stream endpoint for the assistant message.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}

	var req dtos.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	outcome, err := h.Pipeline.SendUserMessage(r.Context(), userID, mux.Vars(r)["id"], req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, dtos.DispatchResponse{
		UserMessageID:      outcome.UserMessage,
		AssistantMessageID: outcome.AssistantMessage,
		Queued:             outcome.Queued,
	})
}

// EditMessage handles PUT /api/chats/{id}/messages/{messageID}.
func (h *ChatHandler) EditMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}

	var req dtos.EditMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	vars := mux.Vars(r)
	outcome, err := h.Pipeline.EditUserMessage(r.Context(), userID, vars["id"], vars["messageID"], req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, dtos.DispatchResponse{
		UserMessageID:      outcome.UserMessage,
		AssistantMessageID: outcome.AssistantMessage,
		Queued:             outcome.Queued,
	})
}

// RegenerateMessage handles POST /api/chats/{id}/messages/{messageID}/regenerate.
func (h *ChatHandler) RegenerateMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	outcome, err := h.Pipeline.RegenerateAssistantMessage(r.Context(), userID, vars["id"], vars["messageID"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, dtos.DispatchResponse{
		UserMessageID:      outcome.UserMessage,
		AssistantMessageID: outcome.AssistantMessage,
		Queued:             outcome.Queued,
	})
}

// StreamMessage handles GET /api/chats/{id}/messages/{messageID}/stream as
// Server-Sent Events. queued=false in the query tells the publisher no worker
// was started for this message.
func (h *ChatHandler) StreamMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	if _, err := h.ChatService.GetMessage(r.Context(), userID, vars["id"], vars["messageID"]); err != nil {
		writeServiceError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	queued := r.URL.Query().Get("queued") != "false"

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	emit := func(frame chatsvc.StreamFrame) error {
		payload, err := json.Marshal(frame)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", frame.Type, payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := h.Publisher.Stream(r.Context(), vars["messageID"], queued, emit); err != nil &&
		!errors.Is(err, context.Canceled) {
		// Headers are gone; nothing more to send the client.
		return
	}
}

func authedUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// writeJSON is a helper for sending JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError is a helper for sending JSON error responses.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps typed service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var chatErr *chatsvc.ChatError
	if errors.As(err, &chatErr) {
		switch chatErr.Type {
		case chatsvc.ErrTypeValidation:
			writeError(w, chatErr.Message, http.StatusBadRequest)
		case chatsvc.ErrTypeNotFound:
			writeError(w, "Not found", http.StatusNotFound)
		case chatsvc.ErrTypeUnauthorized:
			writeError(w, "Forbidden", http.StatusForbidden)
		case chatsvc.ErrTypeConflict:
			writeError(w, chatErr.Message, http.StatusConflict)
		default:
			writeError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}
	writeError(w, "Internal server error", http.StatusInternalServerError)
}
