package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/jdelaire/shingram/adapters/telegram"
	"github.com/jdelaire/shingram/core"
)

const greeting = "Hey! I'm using shingram"

// sender is the slice of the Telegram client the demo handlers use.
type sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts map[string]any) (telegram.Message, error)
	AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error
	AnswerInlineQuery(ctx context.Context, inlineQueryID string, results any, opts map[string]any) error
}

type registrar interface {
	On(key string, h core.Handler) core.Handler
}

var keyboardOptions = []string{"Option 1", "Option 2", "Option 3"}

var buttonReplies = map[string]string{
	"btn1": "You clicked Button 1!",
	"btn2": "You clicked Button 2!",
	"btn3": "You clicked Button 3!",
}

// demoHandlers echoes messages and shows reply keyboards, inline buttons
// and inline query answers.
type demoHandlers struct {
	api sender
}

func registerHandlers(r registrar, api sender) {
	h := &demoHandlers{api: api}
	r.On("command:start", h.start)
	r.On("command:buttons", h.buttons)
	r.On("command:help", h.help)
	r.On("message", h.message)
	r.On("callback", h.callback)
	r.On("inline_query", h.inline)
	r.On("join", h.join)
}

func (h *demoHandlers) start(ctx context.Context, ev core.Event) error {
	kb := &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: keyboardOptions[0]}, {Text: keyboardOptions[1]}},
			{{Text: keyboardOptions[2]}},
		},
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
	}
	_, err := h.api.SendMessage(ctx, ev.ChatID,
		greeting+"\n\nChoose an option from the keyboard, use /buttons for inline buttons, or just send me a message.",
		map[string]any{"reply_markup": kb})
	return err
}

func (h *demoHandlers) buttons(ctx context.Context, ev core.Event) error {
	kb := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "Button 1", CallbackData: "btn1"}, {Text: "Button 2", CallbackData: "btn2"}},
			{{Text: "Button 3", CallbackData: "btn3"}},
		},
	}
	_, err := h.api.SendMessage(ctx, ev.ChatID, greeting+"\n\nClick a button:", map[string]any{"reply_markup": kb})
	return err
}

func (h *demoHandlers) help(ctx context.Context, ev core.Event) error {
	_, err := h.api.SendMessage(ctx, ev.ChatID,
		"/start shows a reply keyboard\n/buttons shows inline buttons\nAny other text is echoed back.", nil)
	return err
}

func (h *demoHandlers) message(ctx context.Context, ev core.Event) error {
	if ev.Text == "" {
		return nil
	}
	for _, opt := range keyboardOptions {
		if ev.Text == opt {
			_, err := h.api.SendMessage(ctx, ev.ChatID, greeting+"\n\nYou selected: "+opt,
				map[string]any{"reply_markup": &models.ReplyKeyboardRemove{RemoveKeyboard: true}})
			return err
		}
	}
	opts := map[string]any{}
	if ev.MessageID != 0 {
		opts["reply_parameters"] = map[string]any{"message_id": ev.MessageID}
	}
	_, err := h.api.SendMessage(ctx, ev.ChatID, "You said: "+ev.Text, opts)
	return err
}

func (h *demoHandlers) callback(ctx context.Context, ev core.Event) error {
	if err := h.api.AnswerCallbackQuery(ctx, ev.CallbackQueryID, greeting); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	reply, ok := buttonReplies[ev.Text]
	if !ok || ev.ChatID == 0 {
		return nil
	}
	_, err := h.api.SendMessage(ctx, ev.ChatID, greeting+"\n\n"+reply, nil)
	return err
}

type article struct {
	id, title, description, text, keyword string
}

var articles = []article{
	{"1", "Say Hello", "Send a greeting message", "Hello from inline mode!", "hello"},
	{"2", "About Shingram", "Learn about Shingram", "Shingram is a minimalist library for creating Telegram bots!", "shingram"},
	{"3", "Help", "Get help", "Try searching for: hello, shingram, or help", "help"},
}

func (h *demoHandlers) inline(ctx context.Context, ev core.Event) error {
	query := strings.ToLower(strings.TrimSpace(ev.Text))

	var results []map[string]any
	for _, a := range articles {
		if query != "" && !strings.Contains(query, a.keyword) {
			continue
		}
		results = append(results, map[string]any{
			"type":        "article",
			"id":          a.id,
			"title":       a.title,
			"description": a.description,
			"input_message_content": map[string]any{
				"message_text": greeting + "\n\n" + a.text,
			},
		})
	}
	if len(results) == 0 {
		return nil
	}
	return h.api.AnswerInlineQuery(ctx, ev.InlineQueryID, results, map[string]any{"cache_time": 0})
}

func (h *demoHandlers) join(ctx context.Context, ev core.Event) error {
	_, err := h.api.SendMessage(ctx, ev.ChatID, fmt.Sprintf("Welcome, %d! Send /help to see what I can do.", ev.UserID), nil)
	return err
}
