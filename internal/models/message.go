package models

import "time"

// QueryIntent is a closed classification of the user's utterance.
type QueryIntent string

const (
	IntentConversational QueryIntent = "conversational"
	IntentLookup         QueryIntent = "lookup"
	IntentAnalysis       QueryIntent = "analysis"
)

// ConfidenceLevel is the discrete trust indicator shown next to an
// assistant answer. It is derived, never stored on its own.
type ConfidenceLevel string

const (
	ConfidenceHigh           ConfidenceLevel = "high"
	ConfidenceNeedsReview    ConfidenceLevel = "needs_review"
	ConfidenceNotFound       ConfidenceLevel = "not_found"
	ConfidenceConversational ConfidenceLevel = "conversational"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Source is one citation attached to an assistant message: which chunk
// backed the answer, where it sits in the document, and the similarity
// that justified including it.
type Source struct {
	DocumentID string  `json:"document_id"`
	Position   int     `json:"position"`
	PageNumber int     `json:"page_number"`
	Quote      string  `json:"quote"`
	Similarity float64 `json:"similarity"`
}

// Message is one persisted turn in a conversation. Messages are immutable
// once written; edits create new messages.
type Message struct {
	ID             string
	ConversationID string
	Role           string
	Content        string
	Sources        []Source
	Confidence     ConfidenceLevel
	CreatedAt      time.Time
}

// Conversation groups messages for one (tenant, document, user) pair.
// Starting a new conversation leaves the old one retrievable but no
// longer current.
type Conversation struct {
	ID         string
	TenantID   string
	DocumentID string
	UserID     string
	Current    bool
	CreatedAt  time.Time
}
