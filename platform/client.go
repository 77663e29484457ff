package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/warden-bot/warden/cleaner"
)

const DefaultAPIHost = "https://discord.com/api/v10"

// Client is a minimal REST client for the moderation surface of the
// chat platform API. Requests go through a process-wide rate limiter
// so bursts of enforcement stay under the global request budget.
type Client struct {
	Host      string
	Token     string
	UserAgent string

	C       *http.Client
	limiter *rate.Limiter
}

// NewClient returns a client with retry and timeout defaults suitable
// for long-running service use.
//
// The client retries on connection errors, 5xx status, and 429
// (respecting 'Retry-After').
func NewClient(token string) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = nil
	c := retryClient.StandardClient()
	c.Timeout = 30 * time.Second
	return &Client{
		Host:      DefaultAPIHost,
		Token:     token,
		UserAgent: "warden/" + versioninfo.Short(),
		C:         c,
		// global limit is 50 req/sec; stay just under
		limiter: rate.NewLimiter(rate.Limit(45), 45),
	}
}

// APIError is a non-2xx response from the platform API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform API error (HTTP %d): %s", e.StatusCode, e.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	return c.doWithReason(ctx, method, path, "", body, out)
}

func (c *Client) doWithReason(ctx context.Context, method, path, auditReason string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.Host+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+c.Token)
	req.Header.Set("User-Agent", c.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auditReason != "" {
		req.Header.Set("X-Audit-Log-Reason", auditReason)
	}

	apiRequestCount.WithLabelValues(method).Inc()
	resp, err := c.C.Do(req)
	if err != nil {
		apiErrorCount.WithLabelValues(method).Inc()
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErrorCount.WithLabelValues(method).Inc()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// DeleteMessage removes a single message.
func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/channels/%s/messages/%s", channelID, messageID), nil, nil)
}

// DeleteMessages bulk-deletes messages from a channel. The bulk
// endpoint requires 2..100 IDs, so single IDs fall back to a plain
// delete and larger sets are chunked.
func (c *Client) DeleteMessages(ctx context.Context, channelID string, ids []string) error {
	for len(ids) > 0 {
		n := len(ids)
		if n > 100 {
			n = 100
		}
		chunk := ids[:n]
		ids = ids[n:]

		if len(chunk) == 1 {
			if err := c.DeleteMessage(ctx, channelID, chunk[0]); err != nil {
				return err
			}
			continue
		}
		body := map[string][]string{"messages": chunk}
		if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%s/messages/bulk-delete", channelID), body, nil); err != nil {
			return err
		}
	}
	return nil
}

// RecentMessages fetches up to limit recent messages from a channel,
// newest first per the API, returned as refs for the cleaner.
func (c *Client) RecentMessages(ctx context.Context, channelID string, limit int) ([]cleaner.MessageRef, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", limit))
	var msgs []Message
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/channels/%s/messages?%s", channelID, q.Encode()), nil, &msgs); err != nil {
		return nil, err
	}
	out := make([]cleaner.MessageRef, len(msgs))
	for i, m := range msgs {
		out[i] = cleaner.MessageRef{ID: m.ID, Timestamp: m.Timestamp}
	}
	return out, nil
}

// TimeoutMember disables communication for a guild member until now+d.
func (c *Client) TimeoutMember(ctx context.Context, guildID, userID string, d time.Duration, reason string) error {
	until := time.Now().UTC().Add(d).Format(time.RFC3339)
	body := map[string]string{"communication_disabled_until": until}
	path := fmt.Sprintf("/guilds/%s/members/%s", guildID, userID)
	return c.doWithReason(ctx, http.MethodPatch, path, reason, body, nil)
}

// SendMessage posts a plain text message to a channel.
func (c *Client) SendMessage(ctx context.Context, channelID, content string) error {
	body := map[string]string{"content": content}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%s/messages", channelID), body, nil)
}

// RespondToInteraction acknowledges a slash command with a text reply.
func (c *Client) RespondToInteraction(ctx context.Context, ic Interaction, content string) error {
	body := map[string]interface{}{
		"type": 4, // channel message with source
		"data": map[string]string{"content": content},
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/interactions/%s/%s/callback", ic.ID, ic.Token), body, nil)
}

// RegisterCommands overwrites the application's global slash commands.
func (c *Client) RegisterCommands(ctx context.Context, appID string, cmds []Command) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/applications/%s/commands", appID), cmds, nil)
}

// CurrentApplicationID fetches the application ID for the bot token.
func (c *Client) CurrentApplicationID(ctx context.Context) (string, error) {
	var app struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodGet, "/applications/@me", nil, &app); err != nil {
		return "", err
	}
	return app.ID, nil
}
