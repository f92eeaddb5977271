package ratelimit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// Limit holds the published per-model request and token budgets.
type Limit struct {
	RPM int // requests per minute
	TPM int // tokens per minute
}

// Snapshot of the published per-model rate-limit table. Refreshable at
// runtime via FetchTable while ForModel keeps serving lookups, so both
// sides go through mu.
var mu sync.RWMutex

var limits = map[string]Limit{
	"text-embedding-ada-002": {RPM: 3000, TPM: 1000000},
	"text-embedding-3-small": {RPM: 3000, TPM: 1000000},
	"text-embedding-3-large": {RPM: 3000, TPM: 1000000},
	"gpt-3.5-turbo":          {RPM: 3500, TPM: 90000},
	"gpt-4":                  {RPM: 500, TPM: 10000},
}

// DefaultLimit is used for models missing from the table.
var DefaultLimit = Limit{RPM: 60, TPM: 60000}

// ForModel returns the published limit for the model, falling back to a
// prefix match (snapshot rows name base models, requests may pin versions
// like "gpt-4-0613") and then to DefaultLimit.
func ForModel(model string) Limit {
	mu.RLock()
	defer mu.RUnlock()

	if l, ok := limits[model]; ok {
		return l
	}
	for name, l := range limits {
		if strings.HasPrefix(model, name) {
			return l
		}
	}
	return DefaultLimit
}

// ParseTable parses the rate-limit table from the published docs page. The
// table lists one model per row with RPM and TPM columns.
func ParseTable(r io.Reader) (map[string]Limit, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse docs page: %v", err)
	}

	parsed := make(map[string]Limit)

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}

		model := strings.TrimSpace(cells.Eq(0).Text())
		rpm, errRPM := parseCount(cells.Eq(1).Text())
		tpm, errTPM := parseCount(cells.Eq(2).Text())
		if model == "" || errRPM != nil || errTPM != nil {
			return
		}

		parsed[model] = Limit{RPM: rpm, TPM: tpm}
	})

	if len(parsed) == 0 {
		return nil, fmt.Errorf("no rate-limit rows found")
	}
	return parsed, nil
}

// FetchTable downloads and parses the docs page and replaces the snapshot
// with whatever it publishes.
func FetchTable(ctx context.Context, url, userAgent string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, url)
	}

	parsed, err := ParseTable(resp.Body)
	if err != nil {
		return err
	}

	mu.Lock()
	limits = parsed
	mu.Unlock()
	return nil
}

// parseCount handles the table's number formats: "3,000", "90K", "1M".
func parseCount(s string) (int, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, ",", "")

	mult := 1
	switch {
	case strings.HasSuffix(s, "K"):
		mult = 1000
		s = strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		mult = 1000000
		s = strings.TrimSuffix(s, "M")
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return n * mult, nil
}
