// Package chat implements the two blocking HTTP calls that sit alongside
// the streaming completion path: priming a chat session with the current
// schema, and asking a question about it. Neither is latency-sensitive
// enough to need the generation/cancellation machinery in
// internal/transport, so both are plain synchronous request/response calls.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pxlapp/sqlcopilot/internal/auth"
)

// Client issues the session-priming and chat-question calls against the
// completion service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	creds      auth.Credentials
}

// New returns a Client that targets baseURL (e.g. "https://api.example.com/v1").
func New(httpClient *http.Client, baseURL string, creds auth.Credentials) *Client {
	return &Client{httpClient: httpClient, baseURL: baseURL, creds: creds}
}

type sessionRequest struct {
	SessionID    string          `json:"sessionId"`
	SchemaDigest json.RawMessage `json:"schema"`
}

type sessionResponse struct {
	OK bool `json:"ok"`
}

// Session primes a chat session with schemaDigest, which is expected to
// already be JSON-string-escaped (it's typically a rendered CREATE TABLE
// dump produced by internal/schema). It corresponds to the sql/session
// endpoint used to warm a server-side conversation before the first
// question.
func (c *Client) Session(ctx context.Context, sessionID, schemaDigest string) error {
	body, err := json.Marshal(sessionRequest{
		SessionID:    sessionID,
		SchemaDigest: json.RawMessage(`"` + schemaDigest + `"`),
	})
	if err != nil {
		return fmt.Errorf("marshaling session request: %w", err)
	}

	var resp sessionResponse
	if err := c.post(ctx, "/sql/session", body, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("chat: session endpoint reported failure")
	}
	return nil
}

type chatRequest struct {
	SessionID string `json:"sessionId"`
	Query     string `json:"query"`
}

type chatResponse struct {
	Answer string `json:"answer"`
}

// Chat asks query against the primed session and returns the service's
// answer. query is sent as a plain string; json.Marshal performs its own
// escaping, so callers should pass the raw question text, not a
// pre-escaped one.
func (c *Client) Chat(ctx context.Context, sessionID, query string) (string, error) {
	body, err := json.Marshal(chatRequest{SessionID: sessionID, Query: query})
	if err != nil {
		return "", fmt.Errorf("marshaling chat request: %w", err)
	}

	var resp chatResponse
	if err := c.post(ctx, "/sql/chat", body, &resp); err != nil {
		return "", err
	}
	return resp.Answer, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if name, value := c.creds.Header(); name != "" {
		req.Header.Set(name, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request to %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
