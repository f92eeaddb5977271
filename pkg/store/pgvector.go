package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/wikivec/wikivec/internal/models"
	"github.com/wikivec/wikivec/internal/types"
)

// PgvectorStore keeps articles in a pgvector table with one column per
// named vector field.
type PgvectorStore struct {
	config Config
	pool   *pgxpool.Pool
}

func NewPgvector(config Config) (*PgvectorStore, error) {
	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	ps := &PgvectorStore{
		config: config,
		pool:   pool,
	}

	if err := ps.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return ps, nil
}

func (ps *PgvectorStore) initialize() error {
	ctx := context.Background()

	// Enable pgvector extension
	_, err := ps.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY,
			url TEXT NOT NULL,
			title TEXT,
			content TEXT,
			title_vector vector(%d),
			content_vector vector(%d),
			vector_id INTEGER
		)`, ps.config.Collection, ps.config.VectorDim, ps.config.VectorDim)

	_, err = ps.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	// One cosine index per vector column
	for _, col := range []string{"title_vector", "content_vector"} {
		createIndex := fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s_%s_idx
			ON %s
			USING ivfflat (%s vector_cosine_ops)
			WITH (lists = 100)`,
			ps.config.Collection, col, ps.config.Collection, col)

		if _, err := ps.pool.Exec(ctx, createIndex); err != nil {
			return fmt.Errorf("failed to create index: %v", err)
		}
	}

	return nil
}

func (ps *PgvectorStore) Upsert(ctx context.Context, articles []models.Article) error {
	tx, err := ps.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, url, title, content, title_vector, content_vector, vector_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			url = EXCLUDED.url,
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			title_vector = EXCLUDED.title_vector,
			content_vector = EXCLUDED.content_vector,
			vector_id = EXCLUDED.vector_id`,
		ps.config.Collection)

	for _, a := range articles {
		_, err = tx.Exec(ctx, stmt,
			a.ID,
			a.URL,
			a.Title,
			a.Text,
			pgvector.NewVector(a.TitleVector),
			pgvector.NewVector(a.ContentVector),
			a.VectorID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert article %d: %v", a.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

func (ps *PgvectorStore) Query(ctx context.Context, embedding []float32, field string, limit int) ([]models.ScoredArticle, error) {
	col, err := vectorColumn(field)
	if err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = ps.config.SearchLimit
	}

	query := fmt.Sprintf(`
		SELECT id, url, title, content, vector_id, 1 - (%s <=> $1) AS score
		FROM %s
		ORDER BY %s <=> $1
		LIMIT $2`,
		col, ps.config.Collection, col)

	rows, err := ps.pool.Query(ctx, query, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %v", err)
	}
	defer rows.Close()

	var results []models.ScoredArticle
	for rows.Next() {
		var sa models.ScoredArticle
		var score float64
		err := rows.Scan(
			&sa.ID,
			&sa.URL,
			&sa.Title,
			&sa.Text,
			&sa.VectorID,
			&score,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		sa.Score = float32(score)
		results = append(results, sa)
	}

	return results, rows.Err()
}

func (ps *PgvectorStore) Close() {
	if ps.pool != nil {
		ps.pool.Close()
	}
}

var _ types.VectorStore = (*PgvectorStore)(nil)
