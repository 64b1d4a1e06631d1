package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"policy-rag/internal/chromemdb"
	"policy-rag/internal/chunker"
	"policy-rag/internal/config"
	"policy-rag/internal/db"
	"policy-rag/internal/embedding"
	"policy-rag/internal/helper"
	"policy-rag/internal/models"
	"policy-rag/internal/parser"
	"policy-rag/internal/rag"
	"policy-rag/internal/reranker"
	"policy-rag/internal/retriever"
)

const (
	defaultConfigPath = "./configs/config.yaml"
	localDBPath       = "./chromemdb"
	localCollection   = "policy_chunks"
	localVersion      = 1
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", defaultConfigPath, "Path to the config file")
	filePath := flag.String("file", "", "Path to a document file to ingest")
	query := flag.String("query", "", "Question to ask about the document")
	docID := flag.String("doc", "", "Document ID")
	tenantID := flag.String("tenant", "default", "Tenant ID")
	userID := flag.String("user", "cli", "User ID")
	dryRun := flag.Bool("dry-run", false, "Parse and chunk only, do not embed or store")
	local := flag.Bool("local", false, "Use the local chromem store instead of Postgres")
	newConversation := flag.Bool("new-conversation", false, "Start a fresh conversation before asking")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	if *filePath != "" && *query != "" {
		log.Fatal().Msg("Provide either -file or -query, not both")
	}
	if *docID == "" {
		log.Fatal().Msg("The -doc flag is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch {
	case *filePath != "":
		ingestDocument(ctx, cfg, *filePath, *docID, *tenantID, *dryRun, *local)
	case *query != "":
		askQuestion(ctx, cfg, *query, *docID, *tenantID, *userID, *local, *newConversation)
	default:
		log.Fatal().Msg("Provide a document with -file or a question with -query")
	}
}

func ingestDocument(ctx context.Context, cfg *config.Config, filePath, docID, tenantID string, dryRun, local bool) {
	parsed, err := parser.New(&cfg.Parser).ParseFile(ctx, filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error parsing document")
	}
	log.Info().Int("pages", parsed.PageCount).Msg("Parsed document")

	var bunDB *bun.DB
	version := localVersion
	if !local {
		bunDB = connectBun(cfg)
		defer bunDB.Close()
		if err := db.InitDB(ctx, bunDB); err != nil {
			log.Fatal().Err(err).Msg("Error initializing database")
		}
		version, err = db.NextVersion(ctx, bunDB, docID, tenantID, filePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Error allocating document version")
		}
	}

	engine := chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	chunks, err := engine.ChunkDocument(docID, tenantID, version, parsed.Markdown)
	if err != nil {
		log.Fatal().Err(err).Msg("Error chunking document")
	}
	log.Info().Int("chunks", len(chunks)).Int("version", version).Msg("Chunked document")

	if dryRun {
		helper.PrettyPrint(chunks)
		return
	}

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	if err := embedding.EmbedChunks(ctx, embedder, chunks); err != nil {
		log.Fatal().Err(err).Msg("Error embedding chunks")
	}

	if local {
		store, err := chromemdb.NewVectorDBManager(localDBPath, localCollection)
		if err != nil {
			log.Fatal().Err(err).Msg("Error opening local vector store")
		}
		if err := store.AddChunks(ctx, chunks); err != nil {
			log.Fatal().Err(err).Msg("Error storing chunks")
		}
	} else {
		if err := db.StoreChunks(ctx, bunDB, chunks); err != nil {
			log.Fatal().Err(err).Msg("Error storing chunks")
		}
		// queries switch to the new version only once it is complete
		if err := db.PromoteVersion(ctx, bunDB, docID, tenantID, version); err != nil {
			log.Fatal().Err(err).Msg("Error promoting document version")
		}
	}
	log.Info().Str("document_id", docID).Int("version", version).Msg("Document ingested")
}

func askQuestion(ctx context.Context, cfg *config.Config, query, docID, tenantID, userID string, local, newConversation bool) {
	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	var (
		searcher retriever.VectorSearcher
		msgStore rag.MessageStore
	)
	if local {
		store, err := chromemdb.NewVectorDBManager(localDBPath, localCollection)
		if err != nil {
			log.Fatal().Err(err).Msg("Error opening local vector store")
		}
		searcher = store.Versioned(localVersion)
		msgStore = newMemoryStore()
	} else {
		bunDB := connectBun(cfg)
		defer bunDB.Close()
		searcher = db.NewSearcher(bunDB)
		msgStore = db.NewStore(bunDB)
		if newConversation {
			if _, err := db.NewConversation(ctx, bunDB, tenantID, docID, userID); err != nil {
				log.Fatal().Err(err).Msg("Error starting conversation")
			}
		}
	}

	var rr *reranker.Reranker
	if cfg.Reranker.Enabled {
		rr = reranker.New(&cfg.Reranker)
	}

	svc := rag.NewService(retriever.New(searcher, embedder, cfg.RAG.TopK), rr, msgStore, cfg)

	stream, err := svc.Ask(ctx, rag.AskInput{
		TenantID:   tenantID,
		DocumentID: docID,
		UserID:     userID,
		Query:      query,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Error asking question")
	}

	for token := range stream.Tokens() {
		fmt.Print(token)
	}
	fmt.Println()

	msg, err := stream.Wait()
	if err != nil {
		log.Fatal().Err(err).Msg("Error streaming answer")
	}

	fmt.Printf("\nconfidence: %s\n", msg.Confidence)
	for _, src := range msg.Sources {
		fmt.Printf("source: page %d, chunk %d (similarity %.2f)\n  %q\n", src.PageNumber, src.Position, src.Similarity, src.Quote)
	}
}

func connectBun(cfg *config.Config) *bun.DB {
	sqldb, err := db.ConnectDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	return db.NewDB(sqldb, cfg.Database.Debug)
}

// memoryStore keeps conversation state for the lifetime of one CLI run.
// The local mode has no Postgres to persist into.
type memoryStore struct {
	mu       sync.Mutex
	conv     *models.Conversation
	messages []models.Message
}

func newMemoryStore() *memoryStore {
	return &memoryStore{}
}

func (m *memoryStore) CurrentConversation(_ context.Context, tenantID, docID, userID string) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conv == nil {
		id, err := helper.GenerateUUID()
		if err != nil {
			return nil, err
		}
		m.conv = &models.Conversation{
			ID:         id,
			TenantID:   tenantID,
			DocumentID: docID,
			UserID:     userID,
			Current:    true,
			CreatedAt:  time.Now().UTC(),
		}
	}
	return m.conv, nil
}

func (m *memoryStore) SaveMessage(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *memoryStore) RecentMessages(_ context.Context, conversationID string, limit int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Message
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}
