package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/wikivec/wikivec/internal/models"
	"github.com/wikivec/wikivec/internal/types"
	"github.com/wikivec/wikivec/pkg/config"
	"github.com/wikivec/wikivec/pkg/llm"
	"github.com/wikivec/wikivec/pkg/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Field   string      `json:"field,omitempty"`
	Limit   int         `json:"limit,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type SearchResult struct {
	ID    int     `json:"id"`
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Score float32 `json:"score"`
}

type WSServer struct {
	config      *config.Config
	embedder    types.Embedder
	vectorStore types.VectorStore
}

func NewWSServer(cfg *config.Config) (*WSServer, error) {
	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:             cfg.Embedder.Model,
		BaseURL:           cfg.Embedder.BaseURL,
		APIKey:            cfg.Embedder.APIKey,
		RequestsPerMinute: cfg.Embedder.RequestsPerMinute,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %v", err)
	}

	vectorStore, err := store.NewWithConfig(store.Config{
		Driver:      cfg.Database.Driver,
		ConnString:  cfg.Database.URL,
		QdrantAddr:  cfg.Database.QdrantAddr,
		SQLitePath:  cfg.Database.SQLitePath,
		Collection:  cfg.Database.Collection,
		VectorDim:   cfg.Database.VectorDim,
		BatchSize:   cfg.Database.BatchSize,
		SearchLimit: cfg.Database.SearchLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %v", err)
	}

	return &WSServer{
		config:      cfg,
		embedder:    embedder,
		vectorStore: vectorStore,
	}, nil
}

// newWithDeps wires a server from pre-built components.
func newWithDeps(cfg *config.Config, embedder types.Embedder, vectorStore types.VectorStore) *WSServer {
	return &WSServer{
		config:      cfg,
		embedder:    embedder,
		vectorStore: vectorStore,
	}
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Error unmarshaling message: %v", err)
			continue
		}

		s.handleMessage(conn, msg)
	}
}

func (s *WSServer) handleMessage(conn *websocket.Conn, msg Message) {
	query := msg.Content
	if query == "" {
		s.sendMessage(conn, "error", "empty query")
		return
	}

	field := msg.Field
	if field == "" {
		field = s.config.UI.Field
	}
	limit := msg.Limit
	if limit == 0 {
		limit = s.config.UI.TopK
	}

	ctx := context.Background()

	embeddings, err := s.embedder.CreateEmbedding(ctx, []string{query})
	if err != nil {
		s.sendMessage(conn, "error", fmt.Sprintf("Failed to create query embeddings: %v", err))
		return
	}
	flatEmbeddings := s.embedder.FlattenEmbeddings(embeddings)

	articles, err := s.vectorStore.Query(ctx, flatEmbeddings, field, limit)
	if err != nil {
		s.sendMessage(conn, "error", fmt.Sprintf("Error querying articles: %v", err))
		return
	}

	s.sendResults(conn, query, articles)
}

func (s *WSServer) sendResults(conn *websocket.Conn, query string, articles []models.ScoredArticle) {
	results := make([]SearchResult, len(articles))
	for i, a := range articles {
		results[i] = SearchResult{
			ID:    a.ID,
			Title: a.Title,
			URL:   a.URL,
			Score: a.Score,
		}
	}

	msg := Message{
		Type:    "results",
		Content: query,
		Data:    results,
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending results: %v", err)
	}
}

func (s *WSServer) sendMessage(conn *websocket.Conn, msgType string, content string) {
	msg := Message{
		Type:    msgType,
		Content: content,
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

// Routes returns the server's HTTP handler.
func (s *WSServer) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// Run serves the search API until the listener fails.
func (s *WSServer) Run(port string) error {
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting search server on port %s", port)
	return http.ListenAndServe(":"+port, s.Routes())
}

func (s *WSServer) Close() {
	if s.vectorStore != nil {
		s.vectorStore.Close()
	}
}
