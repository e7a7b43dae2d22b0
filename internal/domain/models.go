// Package domain defines the client-side data model: the authenticated user,
// conversation messages, document projections, and the persisted session row.
// Server-owned entities (documents, stats) appear here as read projections —
// the client never treats them as the source of truth.
package domain

import (
	"encoding/json"
	"time"
)

// UserProfile is the authenticated identity returned by the auth endpoints.
//
// Fields mirror the backend's user serializer; everything beyond the ID is
// display data the client passes through unchanged.
type UserProfile struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Message roles within a conversation thread.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// LegalSource is a citation attached to an assistant reply.
type LegalSource struct {
	Reference string `json:"reference"`
	Title     string `json:"title"`
	URL       string `json:"url,omitempty"`
}

// Message is a single utterance in the conversation view.
//
// Fields:
//   - ID: locally assigned, monotonically increasing; used only for UI keying
//     and never correlated with server identifiers.
//   - Role: RoleUser or RoleAssistant.
//   - Content: message body text.
//   - Timestamp: local time the message was appended.
//   - LegalSources: citations attached to assistant replies.
//   - IsError: marks a synthetic assistant message describing a failure.
type Message struct {
	ID           int64
	Role         string
	Content      string
	Timestamp    time.Time
	LegalSources []LegalSource
	IsError      bool
}

// Document classification labels understood by the backend.
const (
	DocTypeTaxReturn          = "tax_return"
	DocTypeVAT                = "vat"
	DocTypeWHT                = "wht"
	DocTypeInvoice            = "invoice"
	DocTypeReceipt            = "receipt"
	DocTypeBankStatement      = "bank_statement"
	DocTypeFinancialStatement = "financial_statement"
	DocTypeOther              = "other"
)

// DocumentTypes lists every classification label in display order.
var DocumentTypes = []string{
	DocTypeTaxReturn,
	DocTypeVAT,
	DocTypeWHT,
	DocTypeInvoice,
	DocTypeReceipt,
	DocTypeBankStatement,
	DocTypeFinancialStatement,
	DocTypeOther,
}

// ValidDocumentType reports whether t is a classification the backend accepts.
func ValidDocumentType(t string) bool {
	for _, v := range DocumentTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Server-side processing states of an ingested document.
const (
	DocStatusProcessing = "processing"
	DocStatusCompleted  = "completed"
	DocStatusFailed     = "failed"
)

// DocumentRecord is the read projection of a server-owned document. The
// client only mutates its local copy by optimistic removal after a confirmed
// delete; everything else is replaced wholesale on refetch.
type DocumentRecord struct {
	ID               int64           `json:"id"`
	OriginalFilename string          `json:"original_filename"`
	DocumentType     string          `json:"document_type"`
	MimeType         string          `json:"mime_type"`
	FileSize         int64           `json:"file_size"`
	Status           string          `json:"status"`
	IsProcessed      bool            `json:"is_processed"`
	CreatedAt        time.Time       `json:"created_at"`
	ProcessedAt      *time.Time      `json:"processed_at,omitempty"`
	ExtractionData   json.RawMessage `json:"extraction_data,omitempty"`
	AnalysisResults  json.RawMessage `json:"analysis_results,omitempty"`
}

// DocumentStats summarizes the user's document corpus.
type DocumentStats struct {
	TotalDocuments     int64 `json:"total_documents"`
	ProcessedDocuments int64 `json:"processed_documents"`
}

// SessionEntry is one persisted key/value pair of the local session. The web
// client kept the token and the serialized user under two storage keys; the
// same scheme is retained as rows in a small SQLite table.
type SessionEntry struct {
	Key       string    `gorm:"type:varchar(32);primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName returns the database table name for SessionEntry.
func (SessionEntry) TableName() string { return "session_state" }

// Persisted session storage keys.
const (
	SessionKeyToken = "token"
	SessionKeyUser  = "user"
)
