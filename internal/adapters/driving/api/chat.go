package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

func decodeChatRequest(w http.ResponseWriter, r *http.Request) (domain.ChatRequest, error) {
	var req domain.ChatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, fmt.Errorf("%w: invalid request body: %w", domain.ErrValidation, err)
	}
	return req, nil
}

// Chat answers a question and returns the aggregate response.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	req, err := decodeChatRequest(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.chat.Ask(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ChatStream answers a question as a server-sent event stream. Validation
// failures are reported as a plain JSON error before the stream opens.
func (h *Handler) ChatStream(w http.ResponseWriter, r *http.Request) {
	req, err := decodeChatRequest(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	events, err := h.chat.Stream(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	sse := newSSEWriter(w)
	for ev := range events {
		if err := sse.Event(string(ev.Type), ev.Payload()); err != nil {
			// The client went away; cancelling the request context stops
			// the pipeline, which closes events.
			logger.Debug("Write %s event: %v", ev.Type, err)
			for range events {
			}
			return
		}
	}
}

type conversationList struct {
	Conversations []domain.ConversationSummary `json:"conversations"`
	Total         int                          `json:"total"`
}

// ListConversations returns conversation summaries.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := h.conversations.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if convs == nil {
		convs = []domain.ConversationSummary{}
	}
	writeJSON(w, http.StatusOK, conversationList{Conversations: convs, Total: len(convs)})
}

// GetConversation returns one conversation with its messages.
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := h.conversations.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// DeleteConversation removes a conversation.
func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.conversations.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "conversation_id": id})
}
