package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// 中文说明：
// Telegram 通知器：批准的信号、仓位了结、关键守卫告警都走这里推送。
// fire-and-forget，失败重试最多 3 次，绝不阻塞主循环的调用方。

const sendAttempts = 3

type Telegram struct {
	token  string
	chatID string
	apiURL string
	client *http.Client
}

func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{
		token:  botToken,
		chatID: chatID,
		apiURL: fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", botToken),
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// SendText 发送文本消息（带最多 3 次重试）。
func (t *Telegram) SendText(text string) error {
	if t.token == "" || t.chatID == "" {
		return fmt.Errorf("telegram config incomplete")
	}
	body, err := json.Marshal(map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		if lastErr = t.post(body); lastErr == nil {
			return nil
		}
		if attempt < sendAttempts {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}
	return lastErr
}

func (t *Telegram) post(body []byte) error {
	req, err := http.NewRequest(http.MethodPost, t.apiURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("telegram status=%d", resp.StatusCode)
	}
	return nil
}
