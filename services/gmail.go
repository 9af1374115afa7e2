package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
)

const gmailAPI = "https://gmail.googleapis.com/gmail/v1"

// RawMessage is one message as returned by the mailbox provider.
type RawMessage struct {
	ID  string
	Raw []byte
}

// MailboxClient fetches raw messages from the external mailbox provider.
type MailboxClient interface {
	FetchMessages(ctx context.Context, max int) ([]RawMessage, error)
}

// GmailClient is a Gmail REST client running a headless refresh-token flow:
// the stored credential is refreshed when expired, and a credential that can
// no longer be refreshed is a hard ErrProviderUnavailable. There is no
// interactive re-authentication fallback.
type GmailClient struct {
	tokens  oauth2.TokenSource
	client  *http.Client
	baseURL string
}

// NewGmailClient builds a mailbox client from the OAuth configuration and the
// stored token. A nil token means no credential is available; every fetch will
// then fail with ErrProviderUnavailable until one is provisioned.
func NewGmailClient(cfg *oauth2.Config, token *oauth2.Token) *GmailClient {
	c := &GmailClient{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: gmailAPI,
	}
	if cfg != nil && token != nil {
		c.tokens = cfg.TokenSource(context.Background(), token)
	}
	return c
}

// NewGmailOAuthConfig is the OAuth client used to refresh the stored Gmail
// credential.
func NewGmailOAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       []string{"https://www.googleapis.com/auth/gmail.readonly"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
			TokenURL: "https://oauth2.googleapis.com/token",
		},
	}
}

// LoadGmailToken reads a stored OAuth token from disk.
func LoadGmailToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	token := &oauth2.Token{}
	if err := json.Unmarshal(data, token); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}

	return token, nil
}

type gmailListResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type gmailMessageResponse struct {
	ID  string `json:"id"`
	Raw string `json:"raw"`
}

// FetchMessages lists up to max message ids and downloads each message in raw
// form, sequentially, stopping early when the context is cancelled.
func (g *GmailClient) FetchMessages(ctx context.Context, max int) ([]RawMessage, error) {
	accessToken, err := g.accessToken()
	if err != nil {
		return nil, err
	}

	var list gmailListResponse
	listURL := fmt.Sprintf("%s/users/me/messages?maxResults=%d", g.baseURL, max)
	if err := g.getJSON(ctx, listURL, accessToken, &list); err != nil {
		return nil, err
	}

	messages := make([]RawMessage, 0, len(list.Messages))
	for i, ref := range list.Messages {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fetch cancelled: %w", err)
		}

		var msg gmailMessageResponse
		msgURL := fmt.Sprintf("%s/users/me/messages/%s?format=raw", g.baseURL, ref.ID)
		if err := g.getJSON(ctx, msgURL, accessToken, &msg); err != nil {
			return nil, err
		}

		raw, err := decodeBase64URL(msg.Raw)
		if err != nil {
			slog.Error("Failed to decode message payload", "messageID", ref.ID, "error", err)
			continue
		}

		messages = append(messages, RawMessage{ID: ref.ID, Raw: raw})
		slog.Debug("Fetched message", "messageID", ref.ID, "index", i+1, "total", len(list.Messages))
	}

	return messages, nil
}

func (g *GmailClient) accessToken() (string, error) {
	if g.tokens == nil {
		return "", fmt.Errorf("no mailbox credential configured: %w", ErrProviderUnavailable)
	}

	token, err := g.tokens.Token()
	if err != nil {
		// Refresh failed; with no interactive fallback this is terminal.
		return "", fmt.Errorf("failed to refresh mailbox credential: %w", ErrProviderUnavailable)
	}

	return token.AccessToken, nil
}

func (g *GmailClient) getJSON(ctx context.Context, url, accessToken string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("mailbox request failed: %w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		slog.Error("Mailbox provider returned an error", "status", resp.StatusCode, "body", string(body))
		return fmt.Errorf("mailbox provider returned %s: %w", resp.Status, ErrProviderUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode mailbox response: %w", err)
	}

	return nil
}

func decodeBase64URL(s string) ([]byte, error) {
	if data, err := base64.URLEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawURLEncoding.DecodeString(s)
}
