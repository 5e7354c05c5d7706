package telegram

import (
	"context"
	"encoding/json"
	"fmt"
)

// User is the subset of the Bot API User object the client decodes.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

// Message is the subset of a sent Message the client decodes.
type Message struct {
	MessageID int64 `json:"message_id"`
	Date      int64 `json:"date"`
	Chat      struct {
		ID int64 `json:"id"`
	} `json:"chat"`
	Text string `json:"text,omitempty"`
}

// GetMe returns the bot's own user.
func (c *Client) GetMe(ctx context.Context) (User, error) {
	var u User
	if err := c.callInto(ctx, "getMe", nil, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

// SendMessage sends text to chatID. opts carries optional parameters
// (reply_markup, parse_mode, reply_to_message_id, ...) passed through as-is.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, opts map[string]any) (Message, error) {
	params := merge(opts, map[string]any{
		"chat_id": chatID,
		"text":    text,
	})
	var m Message
	if err := c.callInto(ctx, "sendMessage", params, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}

// AnswerCallbackQuery acknowledges a callback query, optionally showing text.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error {
	params := map[string]any{"callback_query_id": callbackQueryID}
	if text != "" {
		params["text"] = text
	}
	_, err := c.Call(ctx, "answerCallbackQuery", params)
	return err
}

// AnswerInlineQuery answers an inline query. results is sent unchanged.
func (c *Client) AnswerInlineQuery(ctx context.Context, inlineQueryID string, results any, opts map[string]any) error {
	params := merge(opts, map[string]any{
		"inline_query_id": inlineQueryID,
		"results":         results,
	})
	_, err := c.Call(ctx, "answerInlineQuery", params)
	return err
}

func (c *Client) callInto(ctx context.Context, method string, params map[string]any, out any) error {
	result, err := c.Call(ctx, method, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// merge copies opts and overlays required; required keys win.
func merge(opts, required map[string]any) map[string]any {
	params := make(map[string]any, len(opts)+len(required))
	for k, v := range opts {
		params[k] = v
	}
	for k, v := range required {
		params[k] = v
	}
	return params
}
