// Package client is a thin JSON client for the chat API, used by the
// conversation manager and the CLI. Every call carries a bounded timeout.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nova-labs/nova-chat/server/internal/model/chat"
	"github.com/nova-labs/nova-chat/server/internal/store"
)

const defaultTimeout = 15 * time.Second

// Client talks to a running chat API server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the API at baseURL, e.g. "http://localhost:5000".
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// List fetches all sessions, most recently updated first.
func (c *Client) List(ctx context.Context) ([]chat.Session, error) {
	var body struct {
		Chats []chat.Session `json:"chats"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/chats", nil, &body); err != nil {
		return nil, err
	}
	return body.Chats, nil
}

// Get fetches one session by id.
func (c *Client) Get(ctx context.Context, id string) (chat.Session, error) {
	var body struct {
		Chat chat.Session `json:"chat"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/chats/"+url.PathEscape(id), nil, &body); err != nil {
		return chat.Session{}, err
	}
	return body.Chat, nil
}

// Create persists a new session and returns the id the server assigned.
func (c *Client) Create(ctx context.Context, session chat.Session) (string, error) {
	var body struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/chats", session, &body); err != nil {
		return "", err
	}
	return body.ID, nil
}

// Update replaces an existing session's mutable fields.
func (c *Client) Update(ctx context.Context, session chat.Session) (string, error) {
	var body struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/chats", session, &body); err != nil {
		return "", err
	}
	return body.ID, nil
}

// Delete removes a session by id.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/chats/"+url.PathEscape(id), nil, nil)
}

// Complete asks the completion endpoint for an assistant reply. An HTTP 200
// without a reply field comes back as an empty string, not an error; the
// conversation manager decides what to show for it.
func (c *Client) Complete(ctx context.Context, message, provider, model string) (string, error) {
	payload := map[string]string{
		"message":  message,
		"provider": provider,
		"model":    model,
	}
	var body struct {
		Reply string `json:"reply"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/chat/completion", payload, &body); err != nil {
		return "", err
	}
	return body.Reply, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusError maps API error responses back onto the store sentinels so
// callers can branch with errors.Is the same way they would against a local
// store.
func statusError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", store.ErrValidation, body.Error)
	case http.StatusNotFound:
		return store.ErrNotFound
	case http.StatusConflict:
		return store.ErrConflict
	default:
		if body.Error != "" {
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, body.Error)
		}
		return fmt.Errorf("server error (%d)", resp.StatusCode)
	}
}
