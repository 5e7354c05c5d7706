package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jdelaire/shingram/core"
)

const testToken = "123:secret-token"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// decodeBody reads a JSON request body into a generic map.
func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		t.Errorf("decode request body: %v", err)
	}
	return m
}

func TestCallSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bot"+testToken+"/sendMessage" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		body := decodeBody(t, r)
		if body["text"] != "hello" || body["chat_id"] != float64(42) {
			t.Errorf("body = %v", body)
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": map[string]any{"message_id": 9}})
	}))
	defer srv.Close()

	c := New(testToken).WithBaseURL(srv.URL)
	result, err := c.Call(context.Background(), "sendMessage", map[string]any{"chat_id": 42, "text": "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result) != `{"message_id":9}` {
		t.Errorf("result = %s", result)
	}
}

func TestCallAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"error_code":  400,
			"description": "Bad Request: chat not found",
		})
	}))
	defer srv.Close()

	_, err := New(testToken).WithBaseURL(srv.URL).Call(context.Background(), "sendMessage", nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v (%T), want *APIError", err, err)
	}
	if apiErr.Code != 400 || apiErr.Method != "sendMessage" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if !strings.Contains(apiErr.Error(), "chat not found") {
		t.Errorf("message = %q", apiErr.Error())
	}
}

func TestCallRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 7","parameters":{"retry_after":7}}`)
	}))
	defer srv.Close()

	_, err := New(testToken).WithBaseURL(srv.URL).Call(context.Background(), "sendMessage", nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.RetryAfter != 7 {
		t.Fatalf("err = %v, want APIError with retry_after 7", err)
	}
}

func TestCallHTTPErrorWithoutJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprintln(w, "<html>bad gateway</html>")
	}))
	defer srv.Close()

	_, err := New(testToken).WithBaseURL(srv.URL).Call(context.Background(), "getMe", nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusBadGateway {
		t.Fatalf("err = %v, want APIError 502", err)
	}
}

func TestCallNetworkErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(testToken).WithBaseURL(url).Call(context.Background(), "getMe", nil)
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("err = %v (%T), want *NetworkError", err, err)
	}
	if strings.Contains(err.Error(), testToken) {
		t.Errorf("error leaks bot token: %v", err)
	}
}

func TestCallAppliesDefaultTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := New(testToken).WithBaseURL(srv.URL).WithCallTimeout(50 * time.Millisecond)
	_, err := c.Call(context.Background(), "getMe", nil)
	var netErr *NetworkError
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("err = %v, want timeout NetworkError", err)
	}
}

func TestGetUpdatesBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		if body["offset"] != float64(100) || body["timeout"] != float64(30) {
			t.Errorf("body = %v", body)
		}
		allowed, _ := body["allowed_updates"].([]any)
		if len(allowed) != 2 {
			t.Errorf("allowed_updates = %v", body["allowed_updates"])
		}
		fmt.Fprint(w, `{"ok":true,"result":[{"update_id":100,"message":{"text":"a"}},{"update_id":101,"message":{"text":"b"}}]}`)
	}))
	defer srv.Close()

	res := New(testToken).WithBaseURL(srv.URL).GetUpdates(context.Background(), core.PollRequest{
		Offset:         100,
		Timeout:        30,
		AllowedUpdates: []string{"message", "callback_query"},
	})
	if res.Status != core.PollData {
		t.Fatalf("status = %v, err = %v", res.Status, res.Err)
	}
	if len(res.Updates) != 2 {
		t.Fatalf("got %d updates, want 2", len(res.Updates))
	}
	if id, ok := res.Updates[1]["update_id"].(json.Number); !ok || id.String() != "101" {
		t.Errorf("update_id = %v", res.Updates[1]["update_id"])
	}
}

func TestGetUpdatesEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":true,"result":[]}`)
	}))
	defer srv.Close()

	res := New(testToken).WithBaseURL(srv.URL).GetUpdates(context.Background(), core.PollRequest{})
	if res.Status != core.PollEmpty {
		t.Errorf("status = %v, want empty", res.Status)
	}
}

func TestGetUpdatesLongPollTimeoutIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := New(testToken).WithBaseURL(srv.URL)
	c.pollGrace = 50 * time.Millisecond

	res := c.GetUpdates(context.Background(), core.PollRequest{Timeout: 0})
	if res.Status != core.PollEmpty {
		t.Errorf("status = %v (err %v), want empty", res.Status, res.Err)
	}
}

func TestGetUpdatesCancelledIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	res := New(testToken).WithBaseURL(srv.URL).GetUpdates(ctx, core.PollRequest{Timeout: 30})
	if res.Status != core.PollError {
		t.Errorf("status = %v, want error", res.Status)
	}
}

func TestGetUpdatesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"ok":false,"error_code":409,"description":"Conflict: can't use getUpdates method while webhook is active"}`)
	}))
	defer srv.Close()

	res := New(testToken).WithBaseURL(srv.URL).GetUpdates(context.Background(), core.PollRequest{})
	var apiErr *APIError
	if res.Status != core.PollError || !errors.As(res.Err, &apiErr) || apiErr.Code != 409 {
		t.Errorf("res = %+v", res)
	}
}

func TestGetUpdatesMalformedResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":true,"result":{"not":"an array"}}`)
	}))
	defer srv.Close()

	res := New(testToken).WithBaseURL(srv.URL).GetUpdates(context.Background(), core.PollRequest{})
	if res.Status != core.PollError {
		t.Errorf("status = %v, want error", res.Status)
	}
}

// TestPollerOffsetOverHTTP runs the core poll loop against a fake Bot API.
func TestPollerOffsetOverHTTP(t *testing.T) {
	var mu sync.Mutex
	var offsets []float64
	callCount := 0

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		mu.Lock()
		offsets = append(offsets, body["offset"].(float64))
		callCount++
		n := callCount
		mu.Unlock()

		switch n {
		case 1:
			fmt.Fprint(w, `{"ok":true,"result":[{"update_id":200,"message":{"message_id":1,"from":{"id":1},"chat":{"id":1},"text":"hello"}}]}`)
		case 2:
			fmt.Fprint(w, `{"ok":true,"result":[]}`)
		default:
			cancel()
			<-r.Context().Done()
		}
	}))
	defer srv.Close()

	var received []core.Event
	r := core.NewRouter()
	r.On("message", func(_ context.Context, ev core.Event) error {
		received = append(received, ev)
		return nil
	})

	client := New(testToken).WithBaseURL(srv.URL)
	p := core.NewPoller(client, core.NewDispatcher(r, testLogger()), core.PollerConfig{}, testLogger())
	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(offsets) < 3 {
		t.Fatalf("expected at least 3 polls, got %d", len(offsets))
	}
	if offsets[0] != 0 || offsets[1] != 201 || offsets[2] != 201 {
		t.Errorf("offsets = %v, want [0 201 201 ...]", offsets)
	}
	if len(received) != 1 || received[0].Text != "hello" || received[0].UpdateID != 200 {
		t.Errorf("received = %+v", received)
	}
}

func TestSendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		markup, _ := body["reply_markup"].(map[string]any)
		if body["chat_id"] != float64(7) || body["text"] != "hi" || markup == nil {
			t.Errorf("body = %v", body)
		}
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":11,"date":1,"chat":{"id":7},"text":"hi"}}`)
	}))
	defer srv.Close()

	c := New(testToken).WithBaseURL(srv.URL)
	msg, err := c.SendMessage(context.Background(), 7, "hi", map[string]any{
		"reply_markup": map[string]any{"remove_keyboard": true},
		"chat_id":      999, // overridden by the required argument
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if msg.MessageID != 11 || msg.Chat.ID != 7 {
		t.Errorf("msg = %+v", msg)
	}
}

func TestAnswerCallbackAndInlineQuery(t *testing.T) {
	var mu sync.Mutex
	calls := map[string]map[string]any{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		body := decodeBody(t, r)
		mu.Lock()
		calls[method] = body
		mu.Unlock()
		fmt.Fprint(w, `{"ok":true,"result":true}`)
	}))
	defer srv.Close()

	c := New(testToken).WithBaseURL(srv.URL)
	if err := c.AnswerCallbackQuery(context.Background(), "cb-1", "done"); err != nil {
		t.Fatalf("AnswerCallbackQuery: %v", err)
	}
	results := []map[string]any{{"type": "article", "id": "1", "title": "Hello"}}
	if err := c.AnswerInlineQuery(context.Background(), "iq-1", results, map[string]any{"cache_time": 0}); err != nil {
		t.Fatalf("AnswerInlineQuery: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if cb := calls["answerCallbackQuery"]; cb["callback_query_id"] != "cb-1" || cb["text"] != "done" {
		t.Errorf("answerCallbackQuery body = %v", cb)
	}
	iq := calls["answerInlineQuery"]
	if iq["inline_query_id"] != "iq-1" {
		t.Errorf("answerInlineQuery body = %v", iq)
	}
	if got, _ := iq["results"].([]any); len(got) != 1 {
		t.Errorf("results = %v", iq["results"])
	}
}

func TestGetMe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":true,"result":{"id":99,"is_bot":true,"first_name":"Shin","username":"shin_bot"}}`)
	}))
	defer srv.Close()

	u, err := New(testToken).WithBaseURL(srv.URL).GetMe(context.Background())
	if err != nil {
		t.Fatalf("GetMe: %v", err)
	}
	if u.ID != 99 || !u.IsBot || u.Username != "shin_bot" {
		t.Errorf("user = %+v", u)
	}
}
