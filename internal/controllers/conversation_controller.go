// Package controllers – ConversationController
//
// ConversationController owns the message timeline of one assistant
// conversation: optimistic appends, single-flight submission, thread identity,
// and failure surfacing as inline assistant messages.
//
// Conventions:
//   - The user's message is appended before the network call and is never
//     rolled back; a failed turn is answered by a synthetic assistant message
//     flagged as an error.
//   - Only one turn may be in flight; concurrent Send calls fail fast with
//     ErrBusy instead of queueing.
//   - The thread identifier is adopted from the first successful reply and
//     never changes afterwards.
//   - After Close, an in-flight completion is discarded without touching the
//     timeline.
package controllers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/maventax/maven-client/internal/api"
	"github.com/maventax/maven-client/internal/domain"
)

// ChatAPI is the slice of the REST client the conversation depends on.
type ChatAPI interface {
	SendChat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error)
}

// ConversationSnapshot is a point-in-time copy of the conversation state.
type ConversationSnapshot struct {
	Messages       []domain.Message
	ConversationID string
	Loading        bool
}

// ConversationController drives one conversation thread. Safe for concurrent
// use.
type ConversationController struct {
	api ChatAPI
	log zerolog.Logger
	now func() time.Time

	mu             sync.Mutex
	messages       []domain.Message
	conversationID string
	nextID         int64
	sending        bool
	closed         bool
}

// NewConversationController seeds a fresh thread with a greeting addressed to
// user. user may be nil for an anonymous greeting.
func NewConversationController(chatAPI ChatAPI, user *domain.UserProfile, log zerolog.Logger) *ConversationController {
	c := &ConversationController{
		api: chatAPI,
		log: log,
		now: time.Now,
	}
	c.append(domain.RoleAssistant, greeting(user), nil, false)
	return c
}

// greeting builds the seeded opening message.
func greeting(user *domain.UserProfile) string {
	name := ""
	if user != nil {
		if user.FirstName != "" {
			name = " " + user.FirstName
		} else if user.Username != "" {
			name = " " + user.Username
		}
	}
	return "Hello" + name + "! I'm Maven, your tax assistant. Ask me anything about " +
		"your filings, VAT, or withholding obligations."
}

// Send submits one turn. The user message is appended optimistically; on
// success the assistant reply is returned and appended, on failure a synthetic
// error message is appended instead and the API error is returned.
func (c *ConversationController) Send(ctx context.Context, text string) (*domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.sending {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.sending = true
	c.appendLocked(domain.RoleUser, text, nil, false)
	convID := c.conversationID
	c.mu.Unlock()

	tr := otel.Tracer("controllers/Conversation")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(attribute.String("conversation.id", convID)))
	defer span.End()

	resp, err := c.api.SendChat(ctx, api.ChatRequest{Query: text, ConversationID: convID})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sending = false
	if c.closed {
		// The view is gone; drop the result on the floor.
		return nil, ErrClosed
	}
	if err != nil {
		c.appendLocked(domain.RoleAssistant, userMessage(err), nil, true)
		c.log.Warn().Err(err).Msg("conversation turn failed")
		return nil, err
	}

	if c.conversationID == "" {
		c.conversationID = resp.ConversationID
		span.SetAttributes(attribute.String("conversation.id", resp.ConversationID))
	} else if resp.ConversationID != "" && resp.ConversationID != c.conversationID {
		// The thread identity is sticky; a divergent server id is ignored.
		c.log.Warn().
			Str("have", c.conversationID).
			Str("got", resp.ConversationID).
			Msg("server returned a different conversation id, keeping the original")
	}
	msg := c.appendLocked(domain.RoleAssistant, resp.Response, resp.LegalSources, false)
	return &msg, nil
}

// Close detaches the controller. In-flight turns complete silently; later
// Send calls fail with ErrClosed.
func (c *ConversationController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Loading reports whether a turn is in flight.
func (c *ConversationController) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending
}

// ConversationID returns the adopted thread id, or "" before the first
// successful turn.
func (c *ConversationController) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversationID
}

// Snapshot copies the conversation state for rendering.
func (c *ConversationController) Snapshot() ConversationSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := make([]domain.Message, len(c.messages))
	copy(msgs, c.messages)
	return ConversationSnapshot{
		Messages:       msgs,
		ConversationID: c.conversationID,
		Loading:        c.sending,
	}
}

func (c *ConversationController) append(role, content string, sources []domain.LegalSource, isErr bool) domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.appendLocked(role, content, sources, isErr)
}

// appendLocked assigns the next local id and appends. Caller holds mu.
func (c *ConversationController) appendLocked(role, content string, sources []domain.LegalSource, isErr bool) domain.Message {
	c.nextID++
	msg := domain.Message{
		ID:           c.nextID,
		Role:         role,
		Content:      content,
		Timestamp:    c.now(),
		LegalSources: sources,
		IsError:      isErr,
	}
	c.messages = append(c.messages, msg)
	return msg
}

// userMessage extracts display text from an API error chain.
func userMessage(err error) string {
	var ae *api.Error
	if errors.As(err, &ae) {
		return ae.UserMessage()
	}
	return "Something went wrong. Please try again."
}
