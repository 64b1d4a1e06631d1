package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"policy-rag/internal/helper"
	"policy-rag/internal/models"
)

type Conversation struct {
	bun.BaseModel `bun:"table:conversations,alias:conv"`
	ID            string    `bun:"id,pk"`
	TenantID      string    `bun:"tenant_id,notnull"`
	DocumentID    string    `bun:"document_id,notnull"`
	UserID        string    `bun:"user_id,notnull"`
	Current       bool      `bun:"current,notnull,default:true"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

type Message struct {
	bun.BaseModel  `bun:"table:messages,alias:m"`
	ID             string          `bun:"id,pk"`
	ConversationID string          `bun:"conversation_id,notnull"`
	Role           string          `bun:"role,notnull"`
	Content        string          `bun:"content,notnull"`
	Sources        []models.Source `bun:"sources,type:jsonb"`
	Confidence     string          `bun:"confidence"`
	CreatedAt      time.Time       `bun:"created_at,notnull,default:current_timestamp"`
}

// CurrentConversation returns the current conversation for a (tenant,
// document, user), creating one on the first query against a document.
func CurrentConversation(ctx context.Context, db *bun.DB, tenantID, docID, userID string) (*models.Conversation, error) {
	conv := new(Conversation)
	err := db.NewSelect().
		Model(conv).
		Where("tenant_id = ? AND document_id = ? AND user_id = ? AND current", tenantID, docID, userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return NewConversation(ctx, db, tenantID, docID, userID)
	}
	if err != nil {
		return nil, err
	}
	return conversationModel(conv), nil
}

// NewConversation starts a fresh conversation and demotes the previous
// current one. The old conversation stays retrievable.
func NewConversation(ctx context.Context, db *bun.DB, tenantID, docID, userID string) (*models.Conversation, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}

	if _, err := db.NewUpdate().
		Model((*Conversation)(nil)).
		Set("current = FALSE").
		Where("tenant_id = ? AND document_id = ? AND user_id = ? AND current", tenantID, docID, userID).
		Exec(ctx); err != nil {
		return nil, err
	}

	conv := &Conversation{
		ID:         id,
		TenantID:   tenantID,
		DocumentID: docID,
		UserID:     userID,
		Current:    true,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := db.NewInsert().Model(conv).Exec(ctx); err != nil {
		return nil, err
	}
	return conversationModel(conv), nil
}

// SaveMessage persists one immutable conversation turn.
func SaveMessage(ctx context.Context, db *bun.DB, msg *models.Message) error {
	if msg.ID == "" {
		id, err := helper.GenerateUUID()
		if err != nil {
			return err
		}
		msg.ID = id
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	row := &Message{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Role:           msg.Role,
		Content:        msg.Content,
		Sources:        msg.Sources,
		Confidence:     string(msg.Confidence),
		CreatedAt:      msg.CreatedAt,
	}
	_, err := db.NewInsert().Model(row).Exec(ctx)
	return err
}

// RecentMessages returns the last limit messages of a conversation in
// chronological order, for prompt history.
func RecentMessages(ctx context.Context, db *bun.DB, conversationID string, limit int) ([]models.Message, error) {
	var rows []Message
	err := db.NewSelect().
		Model(&rows).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	msgs := make([]models.Message, len(rows))
	for i, row := range rows {
		// reverse into chronological order
		msgs[len(rows)-1-i] = models.Message{
			ID:             row.ID,
			ConversationID: row.ConversationID,
			Role:           row.Role,
			Content:        row.Content,
			Sources:        row.Sources,
			Confidence:     models.ConfidenceLevel(row.Confidence),
			CreatedAt:      row.CreatedAt,
		}
	}
	return msgs, nil
}

// Store adapts the package functions to the interface the rag service
// consumes.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CurrentConversation(ctx context.Context, tenantID, docID, userID string) (*models.Conversation, error) {
	return CurrentConversation(ctx, s.db, tenantID, docID, userID)
}

func (s *Store) SaveMessage(ctx context.Context, msg *models.Message) error {
	return SaveMessage(ctx, s.db, msg)
}

func (s *Store) RecentMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	return RecentMessages(ctx, s.db, conversationID, limit)
}

func conversationModel(conv *Conversation) *models.Conversation {
	return &models.Conversation{
		ID:         conv.ID,
		TenantID:   conv.TenantID,
		DocumentID: conv.DocumentID,
		UserID:     conv.UserID,
		Current:    conv.Current,
		CreatedAt:  conv.CreatedAt,
	}
}
