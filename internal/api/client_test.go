// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticTokens is a TokenSource with a fixed token.
type staticTokens struct {
	token string
}

func (s *staticTokens) Token() string { return s.token }

func TestBearerHeaderAttached(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"code":0,"message":"ok","data":{"id":1,"openId":"o1"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, &staticTokens{token: "tok123"})
	user, err := client.Me(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok123", gotAuth)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, "o1", user.OpenID)
}

func TestNoTokenSendsUnauthenticated(t *testing.T) {
	var gotAuth string
	var hasAuth bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, hasAuth = r.Header["Authorization"]
		w.Write([]byte(`{"code":0,"message":"ok","data":{"url":"https://id.example/authorize"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, &staticTokens{})
	url, err := client.OAuthURL(context.Background())
	require.NoError(t, err)

	assert.False(t, hasAuth, "no Authorization header expected, got %q", gotAuth)
	assert.Equal(t, "https://id.example/authorize", url)
}

// A 401 on an ordinary call fires the unauthorized hook exactly once.
func TestUnauthorizedHookOnOrdinaryCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	fired := 0
	client := NewClient(server.URL, &staticTokens{token: "expired"}).
		WithUnauthorizedHook(func() { fired++ })

	_, err := client.Me(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, fired)
}

// The streaming handshake takes the identical 401 path.
func TestUnauthorizedHookOnStreamHandshake(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	fired := 0
	client := NewClient(server.URL, &staticTokens{token: "expired"}).
		WithUnauthorizedHook(func() { fired++ })

	_, err := client.OpenChatStream(context.Background(), "hello", "")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, fired)
}

func TestOpenChatStreamDecodesEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/messages", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"query":"hello","conversation_id":"c1"}`, string(body))

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		io.WriteString(w, "data: {\"event\":\"message\",\"answer\":\"Hi\"}\n\n")
		flusher.Flush()
		io.WriteString(w, "data: {\"event\":\"message_end\",\"conversation_id\":\"c1\"}\n\n")
		flusher.Flush()
	}))
	defer server.Close()

	client := NewClient(server.URL, &staticTokens{token: "tok"})
	stream, err := client.OpenChatStream(context.Background(), "hello", "c1")
	require.NoError(t, err)
	defer stream.Close()

	first, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, EventMessage, first.Kind)
	assert.Equal(t, "Hi", first.Answer)

	second, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, EventMessageEnd, second.Kind)

	_, err = stream.Next()
	assert.ErrorIs(t, err, io.EOF)

	assert.NoError(t, stream.Close(), "second close is a no-op")
}

func TestOpenChatStreamOmitsEmptyConversationID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"query":"q"}`, string(body))
		io.WriteString(w, "data: {\"event\":\"message_end\",\"conversation_id\":\"new\"}\n\n")
	}))
	defer server.Close()

	client := NewClient(server.URL, &staticTokens{token: "tok"})
	stream, err := client.OpenChatStream(context.Background(), "q", "")
	require.NoError(t, err)
	defer stream.Close()
}

func TestSaveConversation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/conversations", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"conversation_id":"abc"}`, string(body))
		w.Write([]byte(`{"code":0,"message":"ok"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, &staticTokens{token: "tok"})
	assert.NoError(t, client.SaveConversation(context.Background(), "abc"))
}

func TestValidateInviteCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"code":"INV-1","pendingToken":"pend"}`, string(body))
		w.Write([]byte(`{"code":0,"message":"ok","data":{"token":"a.b.c"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, &staticTokens{})
	token, err := client.ValidateInviteCode(context.Background(), "INV-1", "pend")
	require.NoError(t, err)
	assert.Equal(t, "a.b.c", token)
}

func TestAPIErrorFromEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"code":4030,"message":"invite code exhausted"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, &staticTokens{})
	_, err := client.ValidateInviteCode(context.Background(), "INV-1", "pend")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 4030, apiErr.Code)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Contains(t, apiErr.Error(), "invite code exhausted")
}
