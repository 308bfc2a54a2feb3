package publisher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ryosukesatoh/morning-brief/internal/httpx"
)

// Discord rejects embeds whose description exceeds this.
const discordDescriptionLimit = 4096

type discordEmbedFooter struct {
	Text string `json:"text"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Footer      *discordEmbedFooter `json:"footer,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordMessage struct {
	ID string `json:"id"`
}

// DiscordPublisher posts the briefing to a channel webhook as a single embed.
type DiscordPublisher struct {
	client     *http.Client
	webhookURL string
	loc        *time.Location
	now        func() time.Time
}

func NewDiscordPublisher(client *http.Client, webhookURL string, loc *time.Location) (*DiscordPublisher, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("%w: discord needs a webhook_url", ErrNotConfigured)
	}
	if loc == nil {
		loc = time.Local
	}
	return &DiscordPublisher{client: client, webhookURL: webhookURL, loc: loc, now: time.Now}, nil
}

// Publish returns the id of the created message. The webhook is called with
// wait=true so Discord answers with the message instead of 204.
func (d *DiscordPublisher) Publish(ctx context.Context, text string) (string, error) {
	target, err := waitURL(d.webhookURL)
	if err != nil {
		return "", fmt.Errorf("discord: invalid webhook url")
	}

	now := d.now().In(d.loc)
	payload := discordWebhookPayload{Embeds: []discordEmbed{{
		Title:       "Morning Briefing",
		Description: truncate(text, discordDescriptionLimit),
		Color:       0x5865F2, // Discord blurple
		Footer:      &discordEmbedFooter{Text: now.Format("Monday, January 02")},
		Timestamp:   now.Format(time.RFC3339),
	}}}

	var msg discordMessage
	if err := httpx.PostJSON(ctx, d.client, target, nil, payload, &msg); err != nil {
		return "", fmt.Errorf("discord: send failed: %w", err)
	}
	return msg.ID, nil
}

func waitURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("wait", "true")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// truncate shortens s to max runes, preferring a line or sentence boundary.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}

	cut := string(r[:max-1])
	if idx := strings.LastIndexAny(cut, "\n.!?"); idx > len(cut)/2 {
		return strings.TrimRight(cut[:idx+1], "\n")
	}
	return cut + "…"
}
