package archive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/oshokin/uadng/internal/domain/update"
	"github.com/oshokin/uadng/internal/logger"
	"github.com/oshokin/uadng/internal/transport"
)

const (
	// DefaultResponseTimeout bounds the wait for response headers of one attempt.
	// The body itself is not time-boxed so that large archives can stream.
	DefaultResponseTimeout = 10 * time.Second

	// chunkSize is the size of the copy buffer; the body is read at most this much at a time.
	chunkSize = 32 << 10
)

type (
	// Fetcher downloads assets to local files.
	Fetcher struct {
		httpClient *http.Client
		userAgent  string
		policy     transport.Policy
		progress   bool
	}

	// FetcherOption configures a Fetcher during construction.
	FetcherOption func(*Fetcher)
)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.httpClient = c
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithPolicy overrides the retry policy.
func WithPolicy(policy transport.Policy) FetcherOption {
	return func(f *Fetcher) {
		f.policy = policy
	}
}

// WithProgress enables the terminal progress bar.
func WithProgress(enabled bool) FetcherOption {
	return func(f *Fetcher) {
		f.progress = enabled
	}
}

// NewFetcher creates a Fetcher with the default retry policy and no progress bar.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	httpTransport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // Stdlib default.
	httpTransport.ResponseHeaderTimeout = DefaultResponseTimeout

	f := &Fetcher{
		httpClient: &http.Client{Transport: httpTransport},
		userAgent:  transport.DefaultUserAgent,
		policy:     transport.DefaultPolicy(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch downloads assetURL into destination, creating or truncating it.
// The body is written chunk by chunk as it arrives. A partially written file
// is left in place on failure; removing it is up to the caller.
func (f *Fetcher) Fetch(ctx context.Context, assetURL, destination string) error {
	response, err := transport.Do(ctx, f.policy, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("User-Agent", f.userAgent)
		req.Header.Set("Accept", "application/octet-stream")

		return f.httpClient.Do(req)
	})
	if err != nil {
		return fmt.Errorf("download %s: %w", redactURL(assetURL), err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	output, err := os.Create(filepath.Clean(destination))
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", update.ErrDownload, destination, err)
	}

	body, finish := f.wrapProgress(response.Body, response.ContentLength)

	// Hide ReadFrom and WriteTo so the copy goes through the fixed buffer.
	written, err := io.CopyBuffer(struct{ io.Writer }{output}, struct{ io.Reader }{body}, make([]byte, chunkSize))

	finish()

	if closeErr := output.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("%w: write %s: %w", update.ErrDownload, destination, err)
	}

	logger.InfoKV(ctx, "Downloaded archive", "path", destination, "bytes", written)

	return nil
}

// wrapProgress returns body unchanged unless the progress bar is enabled and
// stderr is a terminal.
func (f *Fetcher) wrapProgress(body io.Reader, size int64) (io.Reader, func()) {
	if !f.progress {
		return body, func() {}
	}

	return progress(body, size)
}

// redactURL strips the query and fragment of a URL for use in error messages.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}

	u.RawQuery = ""
	u.Fragment = ""

	return u.String()
}
