package notifications

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const telegramAPI = "https://api.telegram.org"

type TelegramNotifier struct {
	token  string
	chatID string
	title  string
	client *resty.Client
}

func NewTelegramNotifier(token, chatID, title string) *TelegramNotifier {
	if title == "" {
		title = "Momentum Bot"
	}
	return &TelegramNotifier{
		token:  token,
		chatID: chatID,
		title:  title,
		client: resty.New().SetBaseURL(telegramAPI).SetTimeout(10 * time.Second),
	}
}

// WithBaseURL points the notifier at another API host
func (t *TelegramNotifier) WithBaseURL(url string) *TelegramNotifier {
	t.client.SetBaseURL(url)
	return t
}

func (t *TelegramNotifier) SendAlert(level, message string) error {
	emoji := "ℹ️"
	switch level {
	case LevelWarning:
		emoji = "⚠️"
	case LevelError:
		emoji = "🚨"
	case LevelSuccess:
		emoji = "✅"
	}

	text := fmt.Sprintf("%s *%s*\n\n%s", emoji, t.title, message)

	resp, err := t.client.R().
		SetFormData(map[string]string{
			"chat_id":    t.chatID,
			"text":       text,
			"parse_mode": "Markdown",
		}).
		Post("/bot" + t.token + "/sendMessage")
	if err != nil {
		return err
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode())
	}
	return nil
}
