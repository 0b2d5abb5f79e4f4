package release

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oshokin/uadng/internal/domain/update"
	"github.com/oshokin/uadng/internal/logger"
	"github.com/oshokin/uadng/internal/transport"
)

const (
	// DefaultBaseURL is the GitHub REST API root.
	DefaultBaseURL = "https://api.github.com"

	// DefaultRequestTimeout bounds a single registry request.
	DefaultRequestTimeout = 10 * time.Second

	// maxJSONResponseBytes caps the release document size (10 MB).
	maxJSONResponseBytes = 10 << 20
)

type (
	// Client queries the "latest release" endpoint of one repository.
	Client struct {
		httpClient *http.Client
		owner      string
		repo       string
		baseURL    string
		userAgent  string
		token      string
		policy     transport.Policy
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*Client)
)

// WithHTTPClient sets a custom HTTP client, useful for tests or proxies.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithBaseURL overrides the API root, primarily for test servers.
func WithBaseURL(base string) ClientOption {
	return func(client *Client) {
		client.baseURL = strings.TrimRight(base, "/")
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(client *Client) {
		client.userAgent = ua
	}
}

// WithToken sets a bearer token. It is only sent to the API host.
func WithToken(token string) ClientOption {
	return func(client *Client) {
		client.token = token
	}
}

// WithPolicy overrides the retry policy.
func WithPolicy(policy transport.Policy) ClientOption {
	return func(client *Client) {
		client.policy = policy
	}
}

// NewClient creates a Client for owner/repo with a 10 second per-request timeout
// and the default retry policy.
func NewClient(owner, repo string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultRequestTimeout},
		owner:      owner,
		repo:       repo,
		baseURL:    DefaultBaseURL,
		userAgent:  transport.DefaultUserAgent,
		policy:     transport.DefaultPolicy(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// LatestURL returns the endpoint queried by Latest.
func (c *Client) LatestURL() string {
	return fmt.Sprintf("%s/repos/%s/%s/releases/latest",
		c.baseURL, url.PathEscape(c.owner), url.PathEscape(c.repo))
}

// Latest fetches the metadata of the latest published release.
// It fails with update.ErrTimeout or update.ErrRateLimited when the retry
// budget runs out and with update.ErrDownload for other faults.
func (c *Client) Latest(ctx context.Context) (*Metadata, error) {
	endpoint := c.LatestURL()

	logger.DebugKV(ctx, "Querying release registry", "url", endpoint)

	response, err := transport.Do(ctx, c.policy, func(ctx context.Context) (*http.Response, error) {
		return c.get(ctx, endpoint)
	})
	if err != nil {
		return nil, fmt.Errorf("get latest release: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	metadata, err := Decode(io.LimitReader(response.Body, maxJSONResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", update.ErrDownload, err)
	}

	return metadata, nil
}

// get performs one registry request.
func (c *Client) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.userAgent)

	if c.token != "" && c.isAPIHost(req.URL) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return c.httpClient.Do(req)
}

// isAPIHost reports whether target points at the configured API host.
func (c *Client) isAPIHost(target *url.URL) bool {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return false
	}

	return strings.EqualFold(base.Host, target.Host)
}
