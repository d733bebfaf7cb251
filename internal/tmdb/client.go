package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cinemood/cinemood-server/internal/breaker"
	"github.com/cinemood/cinemood-server/internal/genre"
	"github.com/cinemood/cinemood-server/internal/metrics"
	"github.com/cinemood/cinemood-server/internal/ratelimit"
)

const (
	// TMDB allows roughly 40-50 requests per second; stay well below.
	defaultRPS   = 20.0
	defaultBurst = 10

	defaultTimeout      = 15 * time.Second
	defaultBaseURL      = "https://api.themoviedb.org/3"
	defaultImageBaseURL = "https://image.tmdb.org/t/p"
	defaultLanguage     = "en-US"

	// TMDB refuses pages beyond 500.
	maxPage = 500

	maxBodyBytes = 8 << 20
)

// Config configures a Client.
type Config struct {
	APIKey            string // v3 key or v4 read access token
	BaseURL           string
	ImageBaseURL      string
	Language          string
	Region            string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

// Client is a rate-limited, circuit-broken TMDB client.
type Client struct {
	http     *http.Client
	cfg      Config
	host     string
	limiter  *ratelimit.KeyedRateLimiter
	breaker  *breaker.Breaker[[]byte]
	logger   *slog.Logger
	genresMu sync.Mutex
	genres   *genre.Taxonomy
	fetched  bool // genres came from the API rather than the defaults
}

// New creates a client. Missing settings take TMDB's public defaults.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.ImageBaseURL == "" {
		cfg.ImageBaseURL = defaultImageBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = defaultLanguage
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaultRPS
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.ImageBaseURL = strings.TrimRight(cfg.ImageBaseURL, "/")

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("tmdb: invalid base url %q", cfg.BaseURL)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		host:    u.Host,
		limiter: ratelimit.New(cfg.RequestsPerSecond, cfg.Burst),
		breaker: breaker.New[[]byte](breaker.Config{
			Name:         "tmdb",
			IsSuccessful: func(err error) bool { return !countsAsFailure(err) },
		}, logger),
		logger: logger,
		genres: genre.DefaultTaxonomy(),
	}, nil
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// BreakerState reports the upstream circuit state.
func (c *Client) BreakerState() string {
	return c.breaker.State()
}

// ImageURL builds a full image URL. Empty paths give an empty URL.
func (c *Client) ImageURL(path, size string) string {
	if path == "" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.cfg.ImageBaseURL + "/" + size + path
}

// get performs a GET against the API and returns the body.
func (c *Client) get(ctx context.Context, op, path string, query url.Values) ([]byte, error) {
	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.doRequest(ctx, path, query)
	})
	metrics.RecordUpstream("tmdb", op, time.Since(start), err)
	return body, err
}

// doRequest executes one HTTP request with rate limiting.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx, c.host); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("language", c.cfg.Language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+c.authorize(query).Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "CineMood/1.0")
	if c.isBearerToken() {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	c.logger.Debug("tmdb request", "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	default:
		if resp.StatusCode >= 500 {
			return nil, ErrServer
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
}

// authorize adds the v3 api_key parameter. v4 tokens go in a header instead.
func (c *Client) authorize(query url.Values) url.Values {
	if c.cfg.APIKey != "" && !c.isBearerToken() {
		query.Set("api_key", c.cfg.APIKey)
	}
	return query
}

// isBearerToken reports whether the key is a v4 JWT read access token.
func (c *Client) isBearerToken() bool {
	return strings.HasPrefix(c.cfg.APIKey, "eyJ") && strings.Count(c.cfg.APIKey, ".") == 2
}

// IsUnavailable reports whether err means TMDB could not be reached or
// refused service, as opposed to a definite answer such as not found.
func IsUnavailable(err error) bool {
	return err != nil && countsAsFailure(err) && !errors.Is(err, ErrUnauthorized)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
