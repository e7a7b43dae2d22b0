// Package api – AI chat endpoint.
package api

import (
	"context"
	"net/http"

	"github.com/maventax/maven-client/internal/domain"
)

// ChatRequest is one turn sent to the assistant. ConversationID is empty for
// the first turn of a thread; the server assigns one in the response and the
// caller replays it on every later turn.
type ChatRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatResponse is the assistant's reply for one turn.
type ChatResponse struct {
	Response       string               `json:"response"`
	ConversationID string               `json:"conversation_id"`
	LegalSources   []domain.LegalSource `json:"legal_sources"`
}

// SendChat submits one conversation turn and returns the assistant reply.
func (c *Client) SendChat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var out ChatResponse
	if err := c.call(ctx, "chat.send", http.MethodPost, "ai/chat/", nil, req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}
