// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/chatgate-tui/internal/model"
)

// Configuration constants for the backend API.
const (
	// DefaultTimeout is the wall-clock timeout for ordinary requests.
	DefaultTimeout = 30 * time.Second

	// DefaultStreamDeadline bounds a streaming call. Generation is expected
	// to hold the connection open, so this is deliberately long.
	DefaultStreamDeadline = 10 * time.Minute

	// MaxResponseSize is the maximum allowed response body size for
	// ordinary calls.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 4 * 1024 * 1024
)

var (
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	// Shared HTTP client for ordinary requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient is used for streaming requests.
	// No client timeout; the deadline comes from the request context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
)

// ErrUnauthorized indicates the backend rejected the credential.
var ErrUnauthorized = errors.New("authentication failed")

// TokenSource supplies the current bearer token, or "" when absent.
// Implemented by the auth store.
type TokenSource interface {
	Token() string
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is the authenticated gateway to the backend. Every call attaches the
// current bearer token if one is present; a 401 from any call, ordinary or
// streaming, fires the unauthorized hook so credential invalidation is
// handled in exactly one place.
type Client struct {
	baseURL string
	tokens  TokenSource

	// onUnauthorized is invoked once per 401 response.
	onUnauthorized func()

	// limiter throttles ordinary calls client-side.
	limiter *rate.Limiter

	httpClient   *http.Client
	streamClient *http.Client
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		tokens:       tokens,
		limiter:      rate.NewLimiter(rate.Limit(5), 10),
		httpClient:   sharedHTTPClient,
		streamClient: sharedStreamingClient,
	}
}

// WithUnauthorizedHook registers the reaction to authentication failure.
func (c *Client) WithUnauthorizedHook(fn func()) *Client {
	c.onUnauthorized = fn
	return c
}

// WithTimeout overrides the ordinary-request timeout.
// Creates a dedicated client so the shared pool keeps its default.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	dedicated := *sharedHTTPClient
	dedicated.Timeout = timeout
	c.httpClient = &dedicated
	return c
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// setHeaders sets the standard headers, attaching the bearer token when one
// is present. Absence of a token sends the call unauthenticated; the server
// decides whether that is acceptable.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "chatgate/0.1.0")

	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// unauthorized fires the global 401 reaction and returns ErrUnauthorized.
func (c *Client) unauthorized() error {
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
	return ErrUnauthorized
}

// =============================================================================
// ORDINARY CALLS
// =============================================================================

// do performs one ordinary request and decodes the envelope's data field
// into out (out may be nil for acknowledgement-only endpoints).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return c.unauthorized()
	}

	data, err := readResponse(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorFromBody(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("response missing data field")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to parse response data: %w", err)
	}
	return nil
}

// readResponse reads the body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(data)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return data, nil
}

// errorFromBody converts a non-success response body to an APIError.
func errorFromBody(status int, body []byte) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		return &APIError{Code: env.Code, Message: env.Message, Status: status}
	}
	return &APIError{Message: strings.TrimSpace(string(body)), Status: status}
}

// =============================================================================
// ENDPOINTS
// =============================================================================

// OAuthURL fetches the backend-constructed authorization URL. The URL is
// opaque to the client; OAuth configuration lives entirely server-side.
func (c *Client) OAuthURL(ctx context.Context) (string, error) {
	var data struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/oauth-url", nil, &data); err != nil {
		return "", err
	}
	return data.URL, nil
}

// Me fetches the authenticated user's identity.
func (c *Client) Me(ctx context.Context) (*model.UserIdentity, error) {
	var user model.UserIdentity
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ValidateInviteCode exchanges an invite code and pending token for a bearer
// token.
func (c *Client) ValidateInviteCode(ctx context.Context, code, pendingToken string) (string, error) {
	body := map[string]string{
		"code":         code,
		"pendingToken": pendingToken,
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/invite-codes/validate", body, &data); err != nil {
		return "", err
	}
	return data.Token, nil
}

// SaveConversation persists the server-assigned conversation identifier.
// The call is idempotent; failures are non-fatal to the chat session.
func (c *Client) SaveConversation(ctx context.Context, conversationID string) error {
	body := map[string]string{"conversation_id": conversationID}
	return c.do(ctx, http.MethodPost, "/chat/conversations", body, nil)
}

// =============================================================================
// STREAMING CALL
// =============================================================================

// chatRequest is the body of the streaming chat call.
type chatRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// OpenChatStream opens the streaming chat call. conversationID may be empty
// for the first message of a conversation.
//
// The returned Stream owns the response body; the caller must Close it on
// every exit path. The 401 reaction is the same as for ordinary calls.
func (c *Client) OpenChatStream(ctx context.Context, query, conversationID string) (*Stream, error) {
	data, err := json.Marshal(chatRequest{Query: query, ConversationID: conversationID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/messages", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return nil, c.unauthorized()
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := readResponse(resp)
		resp.Body.Close()
		return nil, errorFromBody(resp.StatusCode, body)
	}

	return NewStream(resp.Body), nil
}
