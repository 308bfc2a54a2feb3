package publisher

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ryosukesatoh/morning-brief/internal/httpx"
)

type telegramMessage struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// TelegramPublisher sends the briefing through the Telegram Bot API.
type TelegramPublisher struct {
	client  *http.Client
	baseURL string
	token   string
	chatID  string
}

func NewTelegramPublisher(client *http.Client, baseURL, token, chatID string) (*TelegramPublisher, error) {
	if token == "" || chatID == "" {
		return nil, fmt.Errorf("%w: telegram needs TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID", ErrNotConfigured)
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &TelegramPublisher{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		chatID:  chatID,
	}, nil
}

// Publish returns the message_id of the sent message.
func (p *TelegramPublisher) Publish(ctx context.Context, text string) (string, error) {
	var resp telegramResponse
	err := httpx.PostJSON(ctx, p.client, p.baseURL+"/bot"+p.token+"/sendMessage", nil,
		telegramMessage{ChatID: p.chatID, Text: text}, &resp)
	if err != nil {
		return "", fmt.Errorf("telegram: send failed: %w", err)
	}
	if !resp.OK {
		return "", fmt.Errorf("telegram: send rejected: %s", resp.Description)
	}
	return strconv.FormatInt(resp.Result.MessageID, 10), nil
}
