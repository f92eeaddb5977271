package store

import (
	"fmt"

	"github.com/wikivec/wikivec/internal/types"
)

// Config selects and configures a vector store driver.
type Config struct {
	Driver      string // "qdrant", "pgvector" or "sqlite"
	ConnString  string // PostgreSQL connection string
	QdrantAddr  string // Qdrant grpc host:port
	SQLitePath  string // SQLite database file
	Collection  string
	VectorDim   int
	BatchSize   int
	SearchLimit int
}

func applyDefaults(config *Config) {
	if config.Collection == "" {
		config.Collection = "articles"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 1536 // Default for OpenAI embeddings
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}
	if config.SearchLimit == 0 {
		config.SearchLimit = 5
	}
}

// NewWithConfig creates the vector store named by config.Driver.
func NewWithConfig(config Config) (types.VectorStore, error) {
	applyDefaults(&config)

	switch config.Driver {
	case "qdrant", "":
		if config.QdrantAddr == "" {
			config.QdrantAddr = "localhost:6334"
		}
		return NewQdrant(config)
	case "pgvector":
		return NewPgvector(config)
	case "sqlite":
		if config.SQLitePath == "" {
			config.SQLitePath = "wikivec.db"
		}
		return NewSQLite(config)
	default:
		return nil, fmt.Errorf("unknown vector store driver: %s", config.Driver)
	}
}

// vectorColumn maps a named vector field to its storage column.
func vectorColumn(field string) (string, error) {
	switch field {
	case types.FieldTitle:
		return "title_vector", nil
	case types.FieldContent:
		return "content_vector", nil
	default:
		return "", fmt.Errorf("unknown vector field: %s", field)
	}
}
