package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
)

// Notifier delivers out-of-band alerts about enforcement actions, eg
// to an ops channel.
type Notifier interface {
	SendEnforcement(ctx context.Context, service string, c *MessageContext) error
}

// WebhookNotifier posts a text summary to an "incoming webhook" style
// HTTP endpoint.
type WebhookNotifier struct {
	WebhookURL string
	Client     *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.Logger = nil
	return &WebhookNotifier{
		WebhookURL: url,
		Client:     rc.StandardClient(),
	}
}

type webhookBody struct {
	Text string `json:"text"`
}

func (n *WebhookNotifier) SendEnforcement(ctx context.Context, service string, c *MessageContext) error {
	if service != "webhook" {
		return nil
	}
	msg := "⚠️ Moderation Action ⚠️\n"
	msg += fmt.Sprintf("`%s` in guild `%s`\n", c.Event.AuthorID, c.Event.GuildID)
	if len(c.effects.SpamReasons) > 0 {
		msg += fmt.Sprintf("Reasons: `%s`\n", strings.Join(c.effects.SpamReasons, ", "))
	}
	msg += fmt.Sprintf("Warnings: %d\n", c.effects.WarningCount)
	if c.effects.TimedOut {
		msg += "Timed out!\n"
	}
	c.Logger.Debug("sending webhook notification")
	return n.post(ctx, msg)
}

func (n *WebhookNotifier) post(ctx context.Context, msg string) error {
	body, err := json.Marshal(webhookBody{Text: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	resp, err := n.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return fmt.Errorf("failed webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}
