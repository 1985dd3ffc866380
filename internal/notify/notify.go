// Package notify delivers formatted cycle reports.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// TelegramSender posts messages to a chat through the Bot API with Markdown parse mode.
type TelegramSender struct {
	baseURL string
	chatID  string
	client  *http.Client
	logger  *zap.Logger
}

// NewTelegramSender creates a sender. baseURL already ends in "/bot" so the token is
// appended directly, e.g. https://api.telegram.org/bot + token.
func NewTelegramSender(baseURL, botToken, chatID string, logger *zap.Logger) *TelegramSender {
	return &TelegramSender{
		baseURL: strings.TrimRight(baseURL, "/") + botToken,
		chatID:  chatID,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// Send posts text to the chat. A non-2xx answer is an error.
func (t *TelegramSender) Send(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/sendMessage", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("[Telegram] HTTP error: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	t.logger.Info("Telegram message sent")
	return nil
}

// LogSender writes messages to the log. It stands in when no chat is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs text at info level.
func (l *LogSender) Send(_ context.Context, text string) error {
	l.logger.Info("Notification", zap.String("text", text))
	return nil
}
