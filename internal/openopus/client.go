package openopus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/franz/bachpedia/internal/util"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Open Opus API base URL
	DefaultBaseURL = "https://api.openopus.org"

	// UserAgent identifies this application to Open Opus
	UserAgent = "Bachpedia/1.0 (https://github.com/franz/bachpedia)"

	// DefaultRateLimit is the minimum spacing between requests
	DefaultRateLimit = 1 * time.Second

	// BachID is the Open Opus composer id of Johann Sebastian Bach
	BachID = 87

	maxPages = 500
)

// Client handles Open Opus API requests with rate limiting and retries
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	retry      *util.RetryConfig
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another API host
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithLimiter sets the rate limiter used for API calls
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRetryConfig sets the retry policy for failed requests
func WithRetryConfig(cfg *util.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// NewLimiter returns a limiter allowing one request per interval
func NewLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// NewClient creates a new Open Opus API client
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:   DefaultBaseURL,
		userAgent: UserAgent,
		limiter:   NewLimiter(DefaultRateLimit),
		retry:     util.APIRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status is the status block of every Open Opus response
type Status struct {
	Success flag   `json:"success"`
	Rows    count  `json:"rows"`
	Error   string `json:"error"`
}

// flag reads "true", true and 1 alike
type flag bool

func (f *flag) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	*f = flag(s == "true" || s == "1")
	return nil
}

// count reads numbers and numeric strings; anything else is 0
type count int

func (n *count) UnmarshalJSON(b []byte) error {
	v, err := strconv.Atoi(strings.Trim(string(b), `"`))
	if err != nil {
		*n = 0
		return nil
	}
	*n = count(v)
	return nil
}

type workPage struct {
	Status   Status            `json:"status"`
	Composer json.RawMessage   `json:"composer"`
	Works    []json.RawMessage `json:"works"`
}

// Listing is the complete work list of one composer. Its JSON encoding is a
// dump that ParseDump reads back.
type Listing struct {
	Composer json.RawMessage   `json:"composer,omitempty"`
	Works    []json.RawMessage `json:"works"`
}

// ListComposerWorks fetches every work of a composer, following pagination
// until the reported row count is reached or a page comes back empty
func (c *Client) ListComposerWorks(ctx context.Context, composerID int) (*Listing, error) {
	listing := &Listing{Works: []json.RawMessage{}}
	total := 0

	for page := 1; page <= maxPages; page++ {
		p, err := c.fetchPage(ctx, c.pageURL(composerID, page))
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		if page == 1 {
			total = int(p.Status.Rows)
			listing.Composer = p.Composer
			util.DebugLog("Open Opus: composer %d reports %d works", composerID, total)
		}
		listing.Works = append(listing.Works, p.Works...)
		util.DebugLog("Open Opus: page %d returned %d works (%d so far)", page, len(p.Works), len(listing.Works))

		if len(p.Works) == 0 || len(listing.Works) >= total {
			return listing, nil
		}
	}

	util.WarnLog("Open Opus: stopped after %d pages with %d of %d works", maxPages, len(listing.Works), total)
	return listing, nil
}

func (c *Client) pageURL(composerID, page int) string {
	if page == 1 {
		return fmt.Sprintf("%s/dyn/work/list/composer/%d/genre/all.json", c.baseURL, composerID)
	}
	return fmt.Sprintf("%s/dyn/work/list/composer/%d/genre/all/page/%d.json", c.baseURL, composerID, page)
}

// fetchPage retrieves and decodes one list page, retrying transient failures
func (c *Client) fetchPage(ctx context.Context, urlStr string) (*workPage, error) {
	return util.RetryWithBackoff(ctx, c.retry, func() (*workPage, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		util.DebugLog("Open Opus API: GET %s", urlStr)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to execute request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, &util.StatusError{Code: resp.StatusCode, Body: string(body)}
		}

		var p workPage
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		if !p.Status.Success {
			return nil, fmt.Errorf("%w: open opus reported failure: %s", util.ErrUpstream, p.Status.Error)
		}
		return &p, nil
	}, "Open Opus request")
}
