package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sewamonitor/internal/config"
	"sewamonitor/internal/models"
)

const maxSnapshotBytes = 8 << 20

// HTTPSource fetches the dashboard snapshot from the venue backend.
type HTTPSource struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	now        func() time.Time
}

// NewHTTPSource builds a source for cfg.BaseURL + cfg.SnapshotPath.
func NewHTTPSource(cfg config.SourceConfig) *HTTPSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.TrimLeft(cfg.SnapshotPath, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// Fetch retrieves and decodes one snapshot.
func (s *HTTPSource) Fetch(ctx context.Context) (*models.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", models.ErrTransientFetch, err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTransientFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http %d", models.ErrTransientFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", models.ErrTransientFetch, err)
	}

	snap, err := DecodeSnapshot(body)
	if err != nil {
		return nil, err
	}
	snap.FetchedAt = s.now()
	return snap, nil
}
