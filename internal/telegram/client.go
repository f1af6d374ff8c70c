package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is an HTTP client wrapper for the Telegram Bot API.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// StatusError reports a non-200 HTTP response from the Bot API. Callers
// that need to tell a persistent misconfiguration (e.g. 401 from a
// revoked token) apart from a transient failure can check StatusCode.
type StatusError struct {
	Method     string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Method, e.StatusCode, e.Body)
}

// httpDo is a package-level variable for testability.
var httpDo = func(client *http.Client, req *http.Request) (*http.Response, error) {
	return client.Do(req)
}

// NewClient creates a new Telegram Bot API client against the official
// Bot API host.
func NewClient(token string) *Client {
	return NewClientWithBaseURL(token, "https://api.telegram.org")
}

// NewClientWithBaseURL creates a client against a custom Bot API host,
// e.g. a self-hosted Bot API server named by --tg-api-url.
func NewClientWithBaseURL(token, apiURL string) *Client {
	return &Client{
		token:   token,
		baseURL: strings.TrimSuffix(apiURL, "/") + "/bot" + token + "/",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// doPost sends a POST request with a JSON body to the given Telegram API method.
func (c *Client) doPost(ctx context.Context, method string, body any) ([]byte, error) {
	slog.Debug("telegram API POST", "component", "telegram", "operation", method)

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+method, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: new request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpDo(c.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", method, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Method: method, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

// doGet sends a GET request with query parameters to the given Telegram API method.
func (c *Client) doGet(ctx context.Context, method string, params url.Values) ([]byte, error) {
	slog.Debug("telegram API GET", "component", "telegram", "operation", method)

	u := c.baseURL + method
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: new request: %w", method, err)
	}

	resp, err := httpDo(c.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", method, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Method: method, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}
