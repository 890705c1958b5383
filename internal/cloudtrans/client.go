package cloudtrans

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/MimeLyc/subtitle-trans/internal/backend"
)

const translatePath = "/language/translate/v2"

// Client calls the Cloud Translation v2 REST API
// Stateless: every Translate is one request, safe for concurrent use
//
// config: Configuration for the API
// httpClient: HTTP client for API requests
// baseURL: Base URL for the API
type Client struct {
	config     *Config
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new client with the given configuration
//
// Returns a new Client instance or an error if configuration is invalid
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Client{
		config:  config,
		baseURL: strings.TrimRight(config.APIURL, "/"),
		httpClient: &http.Client{
			Timeout: time.Duration(config.Timeout) * time.Second,
		},
	}, nil
}

// Init has nothing to prepare; the API needs no session
func (c *Client) Init(ctx context.Context) error {
	return ctx.Err()
}

func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Translate translates text into the configured target language
//
// Returns the translated text. Empty input fails with EmptyQuery and
// HTTP 429 with Overload so that the caller may retry
func (c *Client) Translate(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", backend.NewError(backend.KindEmptyQuery, "query is empty")
	}

	format := c.config.Format
	if format == "" {
		format = "text"
	}
	request := TranslateRequest{
		Q:      []string{text},
		Target: c.config.Target,
		Source: c.config.Source,
		Format: format,
	}

	response, err := c.makeRequest(ctx, request)
	if err != nil {
		return "", err
	}
	if len(response.Data.Translations) == 0 {
		return "", fmt.Errorf("no translations in response")
	}

	var b strings.Builder
	for _, tr := range response.Data.Translations {
		b.WriteString(tr.TranslatedText)
	}
	if format == "html" {
		return html.UnescapeString(b.String()), nil
	}
	return b.String(), nil
}

// makeRequest posts one translate request
func (c *Client) makeRequest(ctx context.Context, payload TranslateRequest) (*TranslateResponse, error) {
	endpoint := c.baseURL + translatePath + "?key=" + url.QueryEscape(c.config.APIKey)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range c.config.GetHeaders() {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if os.IsTimeout(err) {
			return nil, backend.WrapError(err, backend.KindTimeout, "request timed out")
		}
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var response TranslateResponse
	if len(responseBody) > 0 {
		if err := json.Unmarshal(responseBody, &response); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, backend.WrapError(response.apiError(resp.StatusCode, responseBody), backend.KindOverload, "rate limited")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, response.apiError(resp.StatusCode, responseBody)
	}

	return &response, nil
}
