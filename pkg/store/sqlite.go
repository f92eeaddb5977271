package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/wikivec/wikivec/internal/models"
	"github.com/wikivec/wikivec/internal/types"
)

// SQLiteStore keeps articles in a local SQLite file with JSON-encoded
// vector columns and scores them with brute-force cosine similarity. Meant
// for local runs where no vector database server is available.
type SQLiteStore struct {
	config Config
	db     *sql.DB
}

func NewSQLite(config Config) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", config.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	ss := &SQLiteStore{
		config: config,
		db:     db,
	}

	if err := ss.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return ss, nil
}

func (ss *SQLiteStore) initialize() error {
	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY,
			url TEXT NOT NULL,
			title TEXT,
			content TEXT,
			title_vector TEXT NOT NULL,
			content_vector TEXT NOT NULL,
			vector_id INTEGER
		)`, ss.config.Collection)

	if _, err := ss.db.Exec(createTable); err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}
	return nil
}

func (ss *SQLiteStore) Upsert(ctx context.Context, articles []models.Article) error {
	tx, err := ss.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	stmt := fmt.Sprintf(`
		INSERT OR REPLACE INTO %s (id, url, title, content, title_vector, content_vector, vector_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, ss.config.Collection)

	for _, a := range articles {
		titleVec, err := json.Marshal(a.TitleVector)
		if err != nil {
			return err
		}
		contentVec, err := json.Marshal(a.ContentVector)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, stmt,
			a.ID,
			a.URL,
			a.Title,
			a.Text,
			string(titleVec),
			string(contentVec),
			a.VectorID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert article %d: %v", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}
	return nil
}

func (ss *SQLiteStore) Query(ctx context.Context, embedding []float32, field string, limit int) ([]models.ScoredArticle, error) {
	col, err := vectorColumn(field)
	if err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = ss.config.SearchLimit
	}

	query := fmt.Sprintf(`SELECT id, url, title, content, vector_id, %s FROM %s`, col, ss.config.Collection)
	rows, err := ss.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %v", err)
	}
	defer rows.Close()

	var results []models.ScoredArticle
	for rows.Next() {
		var sa models.ScoredArticle
		var vecStr string
		if err := rows.Scan(&sa.ID, &sa.URL, &sa.Title, &sa.Text, &sa.VectorID, &vecStr); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}

		var vec []float32
		// Rows whose stored vector does not match the query dimension
		// cannot be scored and are skipped.
		if err := json.Unmarshal([]byte(vecStr), &vec); err != nil || len(vec) != len(embedding) {
			continue
		}

		sa.Score = cosine(embedding, vec)
		results = append(results, sa)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (ss *SQLiteStore) Close() {
	if ss.db != nil {
		ss.db.Close()
	}
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := 0; i < len(a); i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

var _ types.VectorStore = (*SQLiteStore)(nil)
