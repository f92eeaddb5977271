package types

import (
	"context"
	"time"

	"github.com/wikivec/wikivec/internal/models"
)

// Named vector fields every store driver must support.
const (
	FieldTitle   = "title"
	FieldContent = "content"
)

// Core interfaces
type VectorStore interface {
	Upsert(ctx context.Context, articles []models.Article) error
	Query(ctx context.Context, embedding []float32, field string, limit int) ([]models.ScoredArticle, error)
	Close()
}

type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
	FlattenEmbeddings(embeddings [][]float32) []float32
}

type Fetcher interface {
	Fetch(ctx context.Context, dest string) error
}

type Config struct {
	Embedder EmbedderConfig
	Database DatabaseConfig
	Dataset  DatasetConfig
	UI       UIConfig
}

type EmbedderConfig struct {
	BaseURL           string
	Model             string
	APIKey            string
	RequestsPerMinute int
}

type DatabaseConfig struct {
	Driver      string
	URL         string
	QdrantAddr  string
	SQLitePath  string
	Collection  string
	VectorDim   int
	BatchSize   int
	SearchLimit int
}

type DatasetConfig struct {
	URL        string
	Dir        string
	CSVName    string
	UserAgent  string
	Timeout    time.Duration
	OnProgress func(written int64)
}

type UIConfig struct {
	Field string // which named vector to search: "title" or "content"
	TopK  int
}
