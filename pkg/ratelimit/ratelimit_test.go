package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// snapshotLimits restores the package-level table after a test that
// refreshes it.
func snapshotLimits(t *testing.T) {
	t.Helper()

	mu.RLock()
	saved := limits
	mu.RUnlock()

	t.Cleanup(func() {
		mu.Lock()
		limits = saved
		mu.Unlock()
	})
}

func TestForModel(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  Limit
	}{
		{
			name:  "exact match",
			model: "text-embedding-ada-002",
			want:  Limit{RPM: 3000, TPM: 1000000},
		},
		{
			name:  "prefix match for pinned version",
			model: "gpt-4-0613",
			want:  Limit{RPM: 500, TPM: 10000},
		},
		{
			name:  "unknown model falls back to default",
			model: "some-future-model",
			want:  DefaultLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ForModel(tt.model))
		})
	}
}

func TestParseTable(t *testing.T) {
	page := `
<html><body>
<h2>Rate limits</h2>
<table>
  <tr><th>Model</th><th>RPM</th><th>TPM</th></tr>
  <tr><td>text-embedding-ada-002</td><td>3,000</td><td>1M</td></tr>
  <tr><td>gpt-3.5-turbo</td><td>3,500</td><td>90K</td></tr>
  <tr><td>gpt-4</td><td>500</td><td>10,000</td></tr>
</table>
</body></html>`

	parsed, err := ParseTable(strings.NewReader(page))
	require.NoError(t, err)
	require.Len(t, parsed, 3)

	assert.Equal(t, Limit{RPM: 3000, TPM: 1000000}, parsed["text-embedding-ada-002"])
	assert.Equal(t, Limit{RPM: 3500, TPM: 90000}, parsed["gpt-3.5-turbo"])
	assert.Equal(t, Limit{RPM: 500, TPM: 10000}, parsed["gpt-4"])
}

func TestParseTableNoRows(t *testing.T) {
	_, err := ParseTable(strings.NewReader("<html><body><p>No table here</p></body></html>"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rate-limit rows")
}

func TestFetchTable(t *testing.T) {
	snapshotLimits(t)

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`
<table>
  <tr><th>Model</th><th>RPM</th><th>TPM</th></tr>
  <tr><td>gpt-4</td><td>10,000</td><td>2M</td></tr>
</table>`))
	}))
	defer srv.Close()

	err := FetchTable(context.Background(), srv.URL, "wikivec-test/1.0")
	require.NoError(t, err)
	assert.Equal(t, "wikivec-test/1.0", gotUA)

	// Subsequent lookups see the refreshed table
	assert.Equal(t, Limit{RPM: 10000, TPM: 2000000}, ForModel("gpt-4"))
	// Models the new page no longer lists fall back to the default
	assert.Equal(t, DefaultLimit, ForModel("text-embedding-ada-002"))
}

func TestFetchTableBadStatus(t *testing.T) {
	snapshotLimits(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	err := FetchTable(context.Background(), srv.URL, "wikivec-test/1.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status code 404")

	// The snapshot is untouched on failure
	assert.Equal(t, Limit{RPM: 3000, TPM: 1000000}, ForModel("text-embedding-ada-002"))
}

func TestFetchTableConcurrentLookups(t *testing.T) {
	snapshotLimits(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`
<table>
  <tr><td>gpt-4</td><td>500</td><td>10,000</td></tr>
</table>`))
	}))
	defer srv.Close()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				l := ForModel("gpt-4")
				assert.Equal(t, 500, l.RPM)
			}
		}()
	}

	for i := 0; i < 20; i++ {
		require.NoError(t, FetchTable(context.Background(), srv.URL, "wikivec-test/1.0"))
	}
	wg.Wait()
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{input: "500", want: 500},
		{input: "3,000", want: 3000},
		{input: " 90K ", want: 90000},
		{input: "1M", want: 1000000},
		{input: "n/a", wantErr: true},
	}

	for _, tt := range tests {
		n, err := parseCount(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, n, tt.input)
	}
}
