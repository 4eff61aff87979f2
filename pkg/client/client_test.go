package client

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nova-labs/nova-chat/server/internal/handler"
	"github.com/nova-labs/nova-chat/server/internal/model/chat"
	"github.com/nova-labs/nova-chat/server/internal/store"
)

func startServer(t *testing.T) *Client {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "chats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	srv := httptest.NewServer(handler.NewRouter(st, nil))
	t.Cleanup(srv.Close)
	return New(srv.URL)
}

func sampleSession(id string) chat.Session {
	return chat.Session{
		ID:          id,
		Title:       "T",
		LastMessage: "hi",
		Time:        "10:00",
		Messages: []chat.Message{
			{Role: chat.RoleUser, Content: "hi", Time: "10:00"},
		},
		Model: "gemini-2.0-flash",
	}
}

func TestClientRoundtrip(t *testing.T) {
	c := startServer(t)
	ctx := context.Background()

	id, err := c.Create(ctx, sampleSession("c1"))
	require.NoError(t, err)
	assert.Equal(t, "c1", id)

	got, err := c.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "T", got.Title)
	require.Len(t, got.Messages, 1)

	got.Title = "T2"
	_, err = c.Update(ctx, got)
	require.NoError(t, err)

	sessions, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "T2", sessions[0].Title)

	require.NoError(t, c.Delete(ctx, id))
	_, err = c.Get(ctx, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestClientValidationError(t *testing.T) {
	c := startServer(t)

	session := sampleSession("v1")
	session.Model = ""
	_, err := c.Create(context.Background(), session)
	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestClientConflict(t *testing.T) {
	c := startServer(t)
	ctx := context.Background()

	_, err := c.Create(ctx, sampleSession("dup"))
	require.NoError(t, err)
	_, err = c.Create(ctx, sampleSession("dup"))
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestClientDeleteMissing(t *testing.T) {
	c := startServer(t)

	err := c.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestClientCompleteUnavailable(t *testing.T) {
	// The test server runs without a completion backend, so the endpoint
	// answers 503 and the client surfaces it as an error.
	c := startServer(t)

	_, err := c.Complete(context.Background(), "hi", "gemini", "gemini-2.0-flash")
	assert.Error(t, err)
}
