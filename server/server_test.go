package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikivec/wikivec/internal/models"
	"github.com/wikivec/wikivec/pkg/config"
)

type fakeEmbedder struct {
	lastTexts []string
}

func (f *fakeEmbedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	f.lastTexts = texts
	return [][]float32{{0.1, 0.2, 0.3}}, nil
}

func (f *fakeEmbedder) FlattenEmbeddings(embeddings [][]float32) []float32 {
	var out []float32
	for _, e := range embeddings {
		out = append(out, e...)
	}
	return out
}

type fakeStore struct {
	lastField string
	lastLimit int
}

func (f *fakeStore) Upsert(ctx context.Context, articles []models.Article) error { return nil }

func (f *fakeStore) Query(ctx context.Context, embedding []float32, field string, limit int) ([]models.ScoredArticle, error) {
	f.lastField = field
	f.lastLimit = limit
	return []models.ScoredArticle{
		{
			Article: models.Article{ID: 1, Title: "April", URL: "https://en.wikipedia.org/wiki/April"},
			Score:   0.91,
		},
	}, nil
}

func (f *fakeStore) Close() {}

func newTestServer(t *testing.T) (*httptest.Server, *websocket.Conn, *fakeStore) {
	t.Helper()

	cfg := &config.Config{}
	cfg.UI.Field = "content"
	cfg.UI.TopK = 5

	fs := &fakeStore{}
	ws := newWithDeps(cfg, &fakeEmbedder{}, fs)

	srv := httptest.NewServer(ws.Routes())
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return srv, conn, fs
}

func TestSearchRoundTrip(t *testing.T) {
	_, conn, fs := newTestServer(t)

	err := conn.WriteJSON(Message{Type: "query", Content: "modern art movements"})
	require.NoError(t, err)

	var reply Message
	require.NoError(t, conn.ReadJSON(&reply))

	assert.Equal(t, "results", reply.Type)
	assert.Equal(t, "modern art movements", reply.Content)
	assert.Equal(t, "content", fs.lastField)
	assert.Equal(t, 5, fs.lastLimit)

	results, ok := reply.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, results, 1)

	first, ok := results[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "April", first["title"])
	assert.Equal(t, "https://en.wikipedia.org/wiki/April", first["url"])
}

func TestSearchFieldAndLimitOverride(t *testing.T) {
	_, conn, fs := newTestServer(t)

	err := conn.WriteJSON(Message{Type: "query", Content: "calendar months", Field: "title", Limit: 2})
	require.NoError(t, err)

	var reply Message
	require.NoError(t, conn.ReadJSON(&reply))

	assert.Equal(t, "results", reply.Type)
	assert.Equal(t, "title", fs.lastField)
	assert.Equal(t, 2, fs.lastLimit)
}

func TestEmptyQuery(t *testing.T) {
	_, conn, _ := newTestServer(t)

	err := conn.WriteJSON(Message{Type: "query", Content: ""})
	require.NoError(t, err)

	var reply Message
	require.NoError(t, conn.ReadJSON(&reply))

	assert.Equal(t, "error", reply.Type)
	assert.Contains(t, reply.Content, "empty query")
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)
}
