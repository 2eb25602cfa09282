// Package lookup resolves reference entries against a Crossref-compatible
// works API, filling in the fields the document's reference lines lacked.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/matsen/refmark/internal/metadata"
	"github.com/matsen/refmark/internal/reference"
)

const (
	// DefaultBaseURL is the public Crossref works API.
	DefaultBaseURL = "https://api.crossref.org"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 15 * time.Second

	// DefaultRateLimit keeps the client inside Crossref's polite-pool budget.
	DefaultRateLimit = 2.0

	// maxResponseBytes caps a single response body.
	maxResponseBytes = 10 * 1024 * 1024

	// searchRows is how many candidates a title search requests.
	searchRows = 3
)

// Client is a rate-limited HTTP client for the works API. It implements
// metadata.Resolver.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	mailto     string
	token      string
	log        *zap.Logger
}

var _ metadata.Resolver = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMailto sets the contact email sent with each request.
func WithMailto(email string) ClientOption {
	return func(c *Client) {
		c.mailto = email
	}
}

// WithToken sets the API token for authenticated requests.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithRateLimit overrides the requests-per-second budget.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) ClientOption {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient creates a works API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		baseURL:    DefaultBaseURL,
		log:        zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Resolve fills an entry's missing fields from the works API. Entries with
// a DOI resolve directly; otherwise a complete title is searched. Returns
// metadata.ErrNotFound when the service knows nothing usable.
func (c *Client) Resolve(ctx context.Context, e reference.Entry) (reference.Entry, error) {
	if e.DOI != "" {
		return c.resolveDOI(ctx, e)
	}
	if e.Title != "" && !reference.TruncatedTitle(e.Title) {
		return c.resolveTitle(ctx, e)
	}
	return e, fmt.Errorf("%w: entry has no DOI and no complete title", metadata.ErrNotFound)
}

func (c *Client) resolveDOI(ctx context.Context, e reference.Entry) (reference.Entry, error) {
	doi := reference.NormalizeDOI(e.DOI)

	data, err := c.get(ctx, "/works/"+url.PathEscape(doi), nil)
	if err != nil {
		if apiErr, ok := errAsAPI(err); ok {
			apiErr.DOI = doi
		}
		return e, err
	}

	var resp worksResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return e, fmt.Errorf("%w: parsing work: %v", ErrInvalidResponse, err)
	}
	if resp.Message.DOI == "" {
		return e, fmt.Errorf("%w: doi %s", metadata.ErrNotFound, doi)
	}

	return merge(e, resp.Message), nil
}

func (c *Client) resolveTitle(ctx context.Context, e reference.Entry) (reference.Entry, error) {
	query := url.Values{}
	query.Set("query.title", e.Title)
	query.Set("rows", fmt.Sprint(searchRows))

	data, err := c.get(ctx, "/works", query)
	if err != nil {
		return e, err
	}

	var resp searchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return e, fmt.Errorf("%w: parsing search results: %v", ErrInvalidResponse, err)
	}

	want := normalizeTitle(e.Title)
	for _, w := range resp.Message.Items {
		if len(w.Title) > 0 && normalizeTitle(w.Title[0]) == want {
			return merge(e, w), nil
		}
	}
	return e, fmt.Errorf("%w: no work titled %q", metadata.ErrNotFound, e.Title)
}

// get performs one rate-limited request and returns the response body.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	if c.mailto != "" {
		if query == nil {
			query = url.Values{}
		}
		query.Set("mailto", c.mailto)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	c.log.Debug("works api request",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if err := checkHTTPErrors(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return data, nil
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(resp *http.Response) error {
	if resp.StatusCode == 404 {
		return fmt.Errorf("%w: status 404", metadata.ErrNotFound)
	}
	if resp.StatusCode == 401 || resp.StatusCode == 403 {
		return fmt.Errorf("%w: status %d", ErrAuthError, resp.StatusCode)
	}
	if resp.StatusCode == 429 {
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("HTTP %d", resp.StatusCode),
		}
	}
	return nil
}

func errAsAPI(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// worksResponse is the wire shape of a single-work lookup.
type worksResponse struct {
	Message work `json:"message"`
}

// searchResponse is the wire shape of a work search.
type searchResponse struct {
	Message struct {
		Items []work `json:"items"`
	} `json:"message"`
}

type work struct {
	DOI            string       `json:"DOI"`
	Type           string       `json:"type"`
	Title          []string     `json:"title"`
	ContainerTitle []string     `json:"container-title"`
	Author         []workAuthor `json:"author"`
	Issued         workDate     `json:"issued"`
	URL            string       `json:"URL"`
}

type workAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

type workDate struct {
	DateParts [][]int `json:"date-parts"`
}

// merge fills the entry's gaps from the resolved work. The service is
// authoritative for truncated titles; everything else only fills blanks.
func merge(e reference.Entry, w work) reference.Entry {
	if len(w.Title) > 0 && (e.Title == "" || reference.TruncatedTitle(e.Title)) {
		e.Title = w.Title[0]
	}
	if e.AuthorText == "" {
		e.AuthorText = authorText(w.Author)
	}
	if e.Year == 0 {
		e.Year = w.year()
	}
	if e.DOI == "" {
		e.DOI = reference.NormalizeDOI(w.DOI)
	}
	if e.URL == "" {
		e.URL = w.URL
	}
	if e.Journal == "" && len(w.ContainerTitle) > 0 {
		e.Journal = w.ContainerTitle[0]
	}
	if k := kindFromType(w.Type); k != reference.KindUnknown {
		e.Kind = k
	} else {
		e.Kind = reference.ClassifyKind(e)
	}
	return e
}

func (w work) year() int {
	if len(w.Issued.DateParts) > 0 && len(w.Issued.DateParts[0]) > 0 {
		return w.Issued.DateParts[0][0]
	}
	return 0
}

func authorText(authors []workAuthor) string {
	var names []string
	for _, a := range authors {
		name := strings.TrimSpace(a.Given + " " + a.Family)
		if name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

// kindFromType maps the service's work types onto the closed kind set.
func kindFromType(t string) reference.Kind {
	switch t {
	case "journal-article", "proceedings-article":
		return reference.KindJournal
	case "book", "monograph", "edited-book", "reference-book", "book-chapter":
		return reference.KindBook
	case "posted-content":
		return reference.KindBlog
	default:
		return reference.KindUnknown
	}
}

// normalizeTitle flattens case, punctuation, and runs of whitespace so two
// renderings of the same title compare equal.
func normalizeTitle(title string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
