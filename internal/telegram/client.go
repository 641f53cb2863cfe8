package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const apiBase = "https://api.telegram.org/bot"

// Client is a thin wrapper over the Bot API; each method maps onto one API
// call.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(token string, log *zap.Logger) *Client {
	return &Client{
		token:   token,
		baseURL: apiBase,
		// Long polling needs room beyond the poll timeout itself.
		httpClient: &http.Client{Timeout: 65 * time.Second},
		log:        log,
	}
}

func (c *Client) call(ctx context.Context, method string, payload interface{}, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.token+"/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http %s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", method, err)
	}

	var api apiResponse
	if err := json.Unmarshal(data, &api); err != nil {
		return fmt.Errorf("decode %s: %w", method, err)
	}
	if !api.OK {
		return fmt.Errorf("telegram %s: %s", method, api.Description)
	}
	if result != nil && api.Result != nil {
		return json.Unmarshal(api.Result, result)
	}
	return nil
}

// GetUpdates long-polls for new updates after the given offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	payload := map[string]interface{}{
		"offset":          offset,
		"timeout":         timeoutSec,
		"allowed_updates": []string{"message", "callback_query", "poll_answer"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// DeleteWebhook clears any webhook so long polling can take over.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", map[string]interface{}{"drop_pending_updates": true}, nil)
}

// SendMessage sends text with an optional reply markup (inline or reply
// keyboard).
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markup interface{}) (*Message, error) {
	payload := map[string]interface{}{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}
	var msg Message
	if err := c.call(ctx, "sendMessage", payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EditMessageText rewrites a previously sent message.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *InlineKeyboardMarkup) error {
	payload := map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}
	return c.call(ctx, "editMessageText", payload, nil)
}

// EditMessageReplyMarkup swaps just the inline keyboard of a message.
func (c *Client) EditMessageReplyMarkup(ctx context.Context, chatID, messageID int64, markup *InlineKeyboardMarkup) error {
	payload := map[string]interface{}{
		"chat_id":      chatID,
		"message_id":   messageID,
		"reply_markup": markup,
	}
	return c.call(ctx, "editMessageReplyMarkup", payload, nil)
}

// DeleteMessage removes a message, ignoring "message to delete not found".
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) {
	payload := map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
	}
	if err := c.call(ctx, "deleteMessage", payload, nil); err != nil {
		c.log.Debug("deleteMessage failed", zap.Error(err))
	}
}

// SendQuizPoll sends a native quiz poll and returns it so the poll id can
// be mapped back to the question.
func (c *Client) SendQuizPoll(ctx context.Context, chatID int64, question string, options []string, correctIndex int, explanation string) (*Message, error) {
	payload := map[string]interface{}{
		"chat_id":           chatID,
		"question":          question,
		"options":           options,
		"type":              "quiz",
		"correct_option_id": correctIndex,
		"is_anonymous":      false,
	}
	if explanation != "" {
		payload["explanation"] = explanation
	}
	var msg Message
	if err := c.call(ctx, "sendPoll", payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// AnswerCallbackQuery acknowledges a button press, optionally with a toast.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string, showAlert bool) error {
	payload := map[string]interface{}{
		"callback_query_id": callbackID,
	}
	if text != "" {
		payload["text"] = text
		payload["show_alert"] = showAlert
	}
	return c.call(ctx, "answerCallbackQuery", payload, nil)
}
