package notify

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"crossarb/internal/models"
)

var telegramJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// TelegramChannel доставляет уведомления через Telegram Bot API
type TelegramChannel struct {
	token  string
	chatID string
	client *http.Client
}

// NewTelegramChannel создает канал доставки в Telegram
func NewTelegramChannel(token, chatID string) *TelegramChannel {
	return &TelegramChannel{
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *TelegramChannel) Name() string {
	return "telegram"
}

// Send отправляет уведомление сообщением в чат
func (c *TelegramChannel) Send(n models.Notification) error {
	text := fmt.Sprintf("[%s] %s\n%s", n.Severity, n.Type, n.Message)

	payload, err := telegramJSON.Marshal(map[string]string{
		"chat_id": c.chatID,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("encode telegram message: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", c.token)

	resp, err := c.client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram API status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
