package rag

import (
	"fmt"
	"strings"

	"policy-rag/internal/llmservice"
	"policy-rag/internal/models"
	"policy-rag/internal/parser"
)

const quoteLimit = 240

// assemblePrompt builds the chat messages for one query: the system
// prompt carrying the retrieved excerpts, the recent conversation
// history, then the new user query. The system prompt tells the model to
// answer from the excerpts only, cite pages, and admit when information
// is missing. Conversational turns still get a natural reply, never a
// canned refusal.
func assemblePrompt(chunks []models.RetrievedChunk, history []models.Message, query string) []llmservice.ChatMessage {
	var context strings.Builder
	if len(chunks) == 0 {
		context.WriteString("(no relevant excerpts were found in the document)")
	}
	for i, c := range chunks {
		if i > 0 {
			context.WriteString("\n\n")
		}
		fmt.Fprintf(&context, models.ContextBlockTemplate, i+1, c.Chunk.PageNumber, c.Chunk.Content)
	}

	messages := make([]llmservice.ChatMessage, 0, len(history)+2)
	messages = append(messages, llmservice.ChatMessage{
		Role:    "system",
		Content: fmt.Sprintf(models.SystemPromptTemplate, context.String()),
	})
	for _, m := range history {
		messages = append(messages, llmservice.ChatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, llmservice.ChatMessage{Role: models.RoleUser, Content: query})
	return messages
}

// buildSources picks the citations to persist with the assistant
// message: the top chunks in their final ranking order, each carrying
// the similarity that justified its inclusion.
func buildSources(chunks []models.RetrievedChunk, max int) []models.Source {
	if max <= 0 || len(chunks) == 0 {
		return nil
	}
	if len(chunks) < max {
		max = len(chunks)
	}
	sources := make([]models.Source, 0, max)
	for _, c := range chunks[:max] {
		quote := parser.PlainText(c.Chunk.Content)
		if len(quote) > quoteLimit {
			quote = quote[:quoteLimit]
		}
		sources = append(sources, models.Source{
			DocumentID: c.Chunk.DocumentID,
			Position:   c.Chunk.Position,
			PageNumber: c.Chunk.PageNumber,
			Quote:      quote,
			Similarity: c.Similarity,
		})
	}
	return sources
}
