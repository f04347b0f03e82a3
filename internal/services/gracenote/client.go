package gracenote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultHTTPTimeout = 30 * time.Second

// ErrNotFound marks a provider lookup that returned no mapping or program.
var ErrNotFound = errors.New("gracenote: not found")

// Client wraps the provider's ON-API metadata endpoints.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option customizes the provider client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the HTTP timeout on the default client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient constructs a provider API client.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	client := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// GetMapping fetches the program mapping for a provider-qualified asset id.
// The raw payload is returned alongside the decoded form for cache storage.
func (c *Client) GetMapping(ctx context.Context, onapiProviderID string) (*ProgramMapping, string, error) {
	raw, err := c.get(ctx, "/programMappings", url.Values{"providerId": {onapiProviderID}})
	if err != nil {
		return nil, "", err
	}
	var payload struct {
		ProgramMappings []ProgramMapping `json:"programMappings"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, "", fmt.Errorf("gracenote mapping: decode: %w", err)
	}
	if len(payload.ProgramMappings) == 0 {
		return nil, string(raw), ErrNotFound
	}
	return &payload.ProgramMappings[0], string(raw), nil
}

// GetLayer1Program fetches the program payload for a TMS id.
func (c *Client) GetLayer1Program(ctx context.Context, tmsID string) (*Program, string, error) {
	return c.getProgram(ctx, "/programs", url.Values{"tmsId": {tmsID}})
}

// GetLayer2Program fetches the series/show payload for a connector id.
func (c *Client) GetLayer2Program(ctx context.Context, connectorID string) (*Program, string, error) {
	return c.getProgram(ctx, "/programs", url.Values{"connectorId": {connectorID}})
}

func (c *Client) getProgram(ctx context.Context, path string, query url.Values) (*Program, string, error) {
	raw, err := c.get(ctx, path, query)
	if err != nil {
		return nil, "", err
	}
	var payload struct {
		Programs []Program `json:"programs"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, "", fmt.Errorf("gracenote program: decode: %w", err)
	}
	if len(payload.Programs) == 0 {
		return nil, string(raw), ErrNotFound
	}
	return &payload.Programs[0], string(raw), nil
}

// MappingUpdates fetches a window of the mapping update feed starting at the
// supplied cursor.
func (c *Client) MappingUpdates(ctx context.Context, fromUpdateID int64, limit int) (*UpdatesPage, error) {
	return c.getUpdates(ctx, "/programMappings/updates", fromUpdateID, limit)
}

// Layer1Updates fetches a window of the program update feed.
func (c *Client) Layer1Updates(ctx context.Context, fromUpdateID int64, limit int) (*UpdatesPage, error) {
	return c.getUpdates(ctx, "/programs/updates", fromUpdateID, limit)
}

// Layer2Updates fetches a window of the series/show update feed.
func (c *Client) Layer2Updates(ctx context.Context, fromUpdateID int64, limit int) (*UpdatesPage, error) {
	return c.getUpdates(ctx, "/programs/seriesUpdates", fromUpdateID, limit)
}

func (c *Client) getUpdates(ctx context.Context, path string, fromUpdateID int64, limit int) (*UpdatesPage, error) {
	query := url.Values{
		"updateId": {strconv.FormatInt(fromUpdateID, 10)},
		"limit":    {strconv.Itoa(limit)},
	}
	raw, err := c.get(ctx, path, query)
	if err != nil {
		return nil, err
	}
	var page UpdatesPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("gracenote updates: decode: %w", err)
	}
	return &page, nil
}

// DownloadImage streams an artwork asset identified by its provider URI.
func (c *Client) DownloadImage(ctx context.Context, assetURI string) ([]byte, error) {
	endpoint, err := url.JoinPath(c.baseURL, "/assets", assetURI)
	if err != nil {
		return nil, fmt.Errorf("gracenote image: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?api_key="+url.QueryEscape(c.apiKey), nil)
	if err != nil {
		return nil, fmt.Errorf("gracenote image: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gracenote image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gracenote image: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if strings.TrimSpace(c.baseURL) == "" {
		return nil, errors.New("gracenote: base url required")
	}
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("gracenote: build url: %w", err)
	}
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("gracenote: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gracenote: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gracenote: read response: %w", err)
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("gracenote: unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
