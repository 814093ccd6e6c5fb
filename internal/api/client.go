package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

const userAgent = "smacctl/0.1"

// TokenSource provides bearer tokens. Defined at the consumer per Go
// convention "accept interfaces, return structs"; the tokenfile package
// provides the real implementation.
type TokenSource interface {
	Token() (string, error)
}

// Client is an HTTP client for the SMAC backend. It attaches the bearer
// token, serializes JSON bodies and classifies error responses.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger
}

// NewClient creates a backend client. baseURL is the server root, e.g.
// "https://smac.example.fr".
func NewClient(baseURL string, httpClient *http.Client, token TokenSource, logger *slog.Logger) *Client {
	if token == nil {
		panic("api: nil TokenSource")
	}

	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		token:      token,
		logger:     logger,
	}
}

// BaseURL returns the configured server root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do executes one request. in (if non-nil) is JSON-encoded as the body;
// out (if non-nil) receives the decoded 2xx response body.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader

	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: encoding %s %s body: %w", method, path, err)
		}

		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("api: creating request: %w", err)
	}

	tok, err := c.token.Token()
	if err != nil {
		return fmt.Errorf("api: obtaining token: %w", err)
	}

	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	req.Header.Set("User-Agent", userAgent)

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("api: request canceled: %w", ctx.Err())
		}

		c.logger.Warn("network error",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return &APIError{Message: MsgUnreachable, Err: ErrUnreachable}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		c.logger.Debug("request succeeded",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)

		if out == nil {
			return nil
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("api: decoding %s %s response: %w", method, path, err)
		}

		return nil
	}

	return c.errorFrom(method, path, resp)
}

// errorFrom builds the classified APIError for a non-2xx response.
func (c *Client) errorFrom(method, path string, resp *http.Response) error {
	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		raw = nil
	}

	var body errorResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		body.Message = string(raw)
	}

	if body.Message == "" {
		body.Message = http.StatusText(resp.StatusCode)
	}

	c.logger.Warn("request failed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.String("message", body.Message),
	)

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    body.Message,
		Fields:     body.Errors,
		Err:        classify(resp.StatusCode, body),
	}
}

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is the login response: the bearer token and the account it
// belongs to.
type Session struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

// Login exchanges credentials for a bearer token. The request is sent
// without an Authorization header.
func (c *Client) Login(ctx context.Context, creds Credentials) (Session, error) {
	var sess Session
	if err := c.do(ctx, http.MethodPost, "/api/login", creds, &sess); err != nil {
		return Session{}, err
	}

	return sess, nil
}
