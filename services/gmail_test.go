package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestGmailClient(serverURL string) *GmailClient {
	return &GmailClient{
		tokens:  oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"}),
		client:  http.DefaultClient,
		baseURL: serverURL,
	}
}

func TestGmailClient_FetchMessages(t *testing.T) {
	raw := base64.URLEncoding.EncodeToString([]byte("Subject: Hi\r\n\r\nbody"))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/users/me/messages":
			fmt.Fprint(w, `{"messages":[{"id":"m1"},{"id":"m2"}]}`)
		case "/users/me/messages/m1", "/users/me/messages/m2":
			fmt.Fprintf(w, `{"id":"%s","raw":"%s"}`, r.URL.Path[len("/users/me/messages/"):], raw)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := newTestGmailClient(server.URL)
	messages, err := client.FetchMessages(context.Background(), 10)
	require.NoError(t, err)

	require.Len(t, messages, 2)
	assert.Equal(t, "m1", messages[0].ID)
	assert.Equal(t, "Subject: Hi\r\n\r\nbody", string(messages[0].Raw))
}

func TestGmailClient_NoCredential(t *testing.T) {
	client := NewGmailClient(nil, nil)

	_, err := client.FetchMessages(context.Background(), 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestGmailClient_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestGmailClient(server.URL)
	_, err := client.FetchMessages(context.Background(), 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestGmailClient_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"messages":[{"id":"m1"}]}`)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestGmailClient(server.URL)
	_, err := client.FetchMessages(ctx, 10)
	require.Error(t, err)
}
