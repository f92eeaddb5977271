package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

type FetcherConfig struct {
	URL        string
	UserAgent  string
	Timeout    time.Duration
	OnProgress func(written int64) // Add progress callback
}

type Fetcher struct {
	config FetcherConfig
	client *http.Client
}

func NewWithConfig(config FetcherConfig) (*Fetcher, error) {
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Minute
	}
	if config.UserAgent == "" {
		// Identify ourselves per the published crawler conventions.
		config.UserAgent = "wikivec/1.0 (+https://github.com/wikivec/wikivec)"
	}

	if _, err := url.Parse(config.URL); err != nil {
		return nil, err
	}

	return &Fetcher{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// Fetch downloads the dataset archive to dest. An existing file is reused
// so repeated runs do not re-download the archive.
func (f *Fetcher) Fetch(ctx context.Context, dest string) error {
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create dataset dir: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.config.URL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, f.config.URL)
	}

	// Download to a temp file first so a partial download never passes the
	// exists-check above.
	tmp := dest + ".partial"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}

	var src io.Reader = resp.Body
	if f.config.OnProgress != nil {
		src = io.TeeReader(resp.Body, &progressWriter{fn: f.config.OnProgress})
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to download dataset: %v", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, dest)
}

type progressWriter struct {
	written int64
	fn      func(written int64)
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	w.fn(w.written)
	return len(p), nil
}
