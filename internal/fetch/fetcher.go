// Package fetch retrieves HTTP bodies into caller-owned fixed buffers.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/weather-bom-service/internal/domain"
)

// StatusError is returned for non-2xx replies.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

func (e *StatusError) Unwrap() error {
	return domain.ErrTransport
}

// Fetcher issues single-attempt GET requests with a hard body ceiling.
// It performs no decoding; the bytes are handed back as-is.
type Fetcher struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Fetcher whose requests time out after timeout.
func New(timeout time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Fetch GETs url into buf and returns the number of bytes captured. len(buf)
// is the body cap: a declared Content-Length above it fails with
// domain.ErrTooLarge before any body is read, and an undeclared body that
// overruns it is truncated and logged. Zero captured bytes fail with
// domain.ErrEmpty.
func (f *Fetcher) Fetch(ctx context.Context, url string, buf []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &StatusError{StatusCode: resp.StatusCode, URL: url}
	}

	maxLen := len(buf)
	if resp.ContentLength > int64(maxLen) {
		f.logger.Warn("declared body exceeds cap, skipping",
			"url", url,
			"content_length", resp.ContentLength,
			"max_len", maxLen,
		)
		return 0, fmt.Errorf("%w: content-length %d > %d", domain.ErrTooLarge, resp.ContentLength, maxLen)
	}

	n, err := io.ReadFull(resp.Body, buf)
	switch {
	case err == nil:
		if overran(resp.Body) {
			f.logger.Warn("body reached cap, truncating", "url", url, "max_len", maxLen)
		}
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		// body shorter than the cap
	default:
		return 0, fmt.Errorf("%w: read body: %w", domain.ErrTransport, err)
	}

	if n == 0 {
		f.logger.Warn("empty response", "url", url)
		return 0, domain.ErrEmpty
	}
	f.logger.Debug("fetched", "url", url, "status", resp.StatusCode, "bytes", n)
	return n, nil
}

// overran reports whether r still has data after the buffer filled.
func overran(r io.Reader) bool {
	var probe [1]byte
	n, _ := r.Read(probe[:])
	return n > 0
}
