// Package rag orchestrates one question/answer turn: retrieve, rerank,
// classify confidence, assemble the prompt, and stream the model's
// answer while persisting both sides of the exchange.
package rag

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"policy-rag/internal/config"
	"policy-rag/internal/confidence"
	"policy-rag/internal/helper"
	"policy-rag/internal/intent"
	"policy-rag/internal/llmservice"
	"policy-rag/internal/models"
	"policy-rag/internal/reranker"
	"policy-rag/internal/retriever"
)

// MessageStore persists conversations and their messages.
type MessageStore interface {
	CurrentConversation(ctx context.Context, tenantID, docID, userID string) (*models.Conversation, error)
	SaveMessage(ctx context.Context, msg *models.Message) error
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error)
}

// StreamFunc generates a chat completion token by token. It matches
// llmservice.StreamChat and is injectable for tests.
type StreamFunc func(ctx context.Context, llmConfig *config.LLMConfig, messages []llmservice.ChatMessage, onToken func(token string) error) error

// Service wires the retrieval pipeline together. The reranker is
// optional; when absent or failing, answers fall back to vector order.
type Service struct {
	retriever *retriever.Retriever
	reranker  *reranker.Reranker
	store     MessageStore
	cfg       *config.Config
	streamFn  StreamFunc
}

func NewService(r *retriever.Retriever, rr *reranker.Reranker, store MessageStore, cfg *config.Config) *Service {
	return &Service{
		retriever: r,
		reranker:  rr,
		store:     store,
		cfg:       cfg,
		streamFn:  llmservice.StreamChat,
	}
}

// AskInput identifies who is asking what about which document.
type AskInput struct {
	TenantID   string
	DocumentID string
	UserID     string
	Query      string
}

// Ask runs one full turn. It persists the user message up front, then
// returns a Stream whose tokens arrive as the model generates them. The
// assistant message is persisted only if the stream completes cleanly;
// cancelling ctx mid-stream discards the partial response.
func (s *Service) Ask(ctx context.Context, in AskInput) (*Stream, error) {
	conv, err := s.store.CurrentConversation(ctx, in.TenantID, in.DocumentID, in.UserID)
	if err != nil {
		return nil, err
	}

	history, err := s.store.RecentMessages(ctx, conv.ID, s.cfg.RAG.HistoryLimit)
	if err != nil {
		return nil, err
	}

	userMsg, err := newMessage(conv.ID, models.RoleUser, in.Query)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	queryIntent := intent.Classify(in.Query)

	var chunks []models.RetrievedChunk
	if queryIntent != models.IntentConversational {
		chunks, err = s.retriever.Retrieve(ctx, in.Query, in.TenantID, in.DocumentID)
		if err != nil {
			return nil, err
		}
		chunks = s.maybeRerank(ctx, in.Query, chunks)
	}

	cal := confidence.Calibration{
		VectorHigh: s.cfg.RAG.VectorHigh,
		VectorLow:  s.cfg.RAG.VectorLow,
		RerankHigh: s.cfg.RAG.RerankHigh,
		RerankLow:  s.cfg.RAG.RerankLow,
	}
	level := confidence.FromChunks(chunks, queryIntent, cal)

	messages := assemblePrompt(chunks, history, in.Query)

	st := newStream()
	go s.run(ctx, st, conv.ID, messages, chunks, level)
	return st, nil
}

// maybeRerank reorders chunks by reranker relevance. A reranker outage
// must not take answering down with it, so errors degrade to the
// vector-similarity order.
func (s *Service) maybeRerank(ctx context.Context, query string, chunks []models.RetrievedChunk) []models.RetrievedChunk {
	if s.reranker == nil || !s.cfg.Reranker.Enabled || len(chunks) == 0 {
		return chunks
	}
	reranked, err := s.reranker.Rerank(ctx, query, chunks)
	if err != nil {
		log.Warn().Err(err).Msg("reranker unavailable, falling back to vector order")
		return chunks
	}
	return reranked
}

func (s *Service) run(ctx context.Context, st *Stream, conversationID string, messages []llmservice.ChatMessage, chunks []models.RetrievedChunk, level models.ConfidenceLevel) {
	defer close(st.tokens)

	var answer strings.Builder
	err := s.streamFn(ctx, &s.cfg.ChatLLM, messages, func(token string) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case st.tokens <- token:
			answer.WriteString(token)
			return nil
		}
	})
	if err != nil {
		st.finish(nil, err)
		return
	}

	msg, err := newMessage(conversationID, models.RoleAssistant, answer.String())
	if err != nil {
		st.finish(nil, err)
		return
	}
	msg.Confidence = level
	if level == models.ConfidenceHigh || level == models.ConfidenceNeedsReview {
		msg.Sources = buildSources(chunks, s.cfg.RAG.MaxSources)
	}

	// Persist with a fresh context: the caller cancelling after the last
	// token must not lose a fully generated answer.
	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.store.SaveMessage(saveCtx, msg); err != nil {
		st.finish(nil, err)
		return
	}
	st.finish(msg, nil)
}

func newMessage(conversationID, role, content string) (*models.Message, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	return &models.Message{
		ID:             id,
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}, nil
}
