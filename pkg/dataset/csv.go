package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/wikivec/wikivec/internal/models"
)

type ParserConfig struct {
	VectorDim  int
	OnRowError func(line int, err error) // Called for each skipped row
}

type Parser struct {
	config ParserConfig
}

func NewParser(config ParserConfig) Parser {
	if config.VectorDim == 0 {
		config.VectorDim = 1536 // Default for OpenAI embeddings
	}

	return Parser{
		config: config,
	}
}

// Parse reads the dataset CSV and returns its articles. Malformed rows are
// reported through OnRowError and skipped rather than aborting the load.
func (p *Parser) Parse(r io.Reader) ([]models.Article, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %v", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"id", "url", "title", "text", "title_vector", "content_vector", "vector_id"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("CSV is missing required column %q", required)
		}
	}

	var articles []models.Article
	line := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			p.rowError(line, err)
			continue
		}

		article, err := p.parseRow(cols, record)
		if err != nil {
			p.rowError(line, err)
			continue
		}
		articles = append(articles, article)
	}

	return articles, nil
}

func (p *Parser) parseRow(cols map[string]int, record []string) (models.Article, error) {
	var article models.Article

	for name, i := range cols {
		if i >= len(record) {
			return article, fmt.Errorf("row has no %s column", name)
		}
	}

	id, err := strconv.Atoi(record[cols["id"]])
	if err != nil {
		return article, fmt.Errorf("bad id: %v", err)
	}

	vectorID, err := strconv.Atoi(record[cols["vector_id"]])
	if err != nil {
		return article, fmt.Errorf("bad vector_id: %v", err)
	}

	titleVector, err := p.parseVector(record[cols["title_vector"]])
	if err != nil {
		return article, fmt.Errorf("bad title_vector: %v", err)
	}

	contentVector, err := p.parseVector(record[cols["content_vector"]])
	if err != nil {
		return article, fmt.Errorf("bad content_vector: %v", err)
	}

	article = models.Article{
		ID:            id,
		URL:           sanitizeUTF8(record[cols["url"]]),
		Title:         sanitizeUTF8(record[cols["title"]]),
		Text:          sanitizeUTF8(record[cols["text"]]),
		TitleVector:   titleVector,
		ContentVector: contentVector,
		VectorID:      vectorID,
	}

	return article, nil
}

func (p *Parser) parseVector(s string) ([]float32, error) {
	vec, err := ParseVector(s)
	if err != nil {
		return nil, err
	}
	if len(vec) != p.config.VectorDim {
		return nil, fmt.Errorf("expected %d dimensions, got %d", p.config.VectorDim, len(vec))
	}
	return vec, nil
}

// ParseVector parses a stringified vector column such as "[0.1, -0.2, ...]".
func ParseVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty vector")
	}

	var vec []float32
	if err := json.Unmarshal([]byte(s), &vec); err != nil {
		return nil, fmt.Errorf("invalid vector literal: %v", err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("empty vector")
	}
	return vec, nil
}

func (p *Parser) rowError(line int, err error) {
	if p.config.OnRowError != nil {
		p.config.OnRowError(line, err)
	}
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
