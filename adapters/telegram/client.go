package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/jdelaire/shingram/core"
)

const (
	defaultBaseURL     = "https://api.telegram.org"
	defaultCallTimeout = 30 * time.Second
	defaultPollGrace   = 10 * time.Second
	maxResponseBytes   = 16 << 20
)

// Client calls Bot API methods over HTTPS. Errors never include the
// request URL, which embeds the bot token.
type Client struct {
	botToken    string
	client      *http.Client
	baseURL     string
	callTimeout time.Duration
	pollGrace   time.Duration
}

var _ core.APIClient = (*Client)(nil)

// New creates a Telegram client for botToken.
func New(botToken string) *Client {
	return &Client{
		botToken:    botToken,
		client:      &http.Client{},
		baseURL:     defaultBaseURL,
		callTimeout: defaultCallTimeout,
		pollGrace:   defaultPollGrace,
	}
}

// WithBaseURL overrides the Telegram API base URL (for testing).
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.client = hc
	return c
}

// WithCallTimeout bounds calls whose context carries no deadline.
func (c *Client) WithCallTimeout(d time.Duration) *Client {
	if d > 0 {
		c.callTimeout = d
	}
	return c
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Parameters  *struct {
		RetryAfter      int   `json:"retry_after"`
		MigrateToChatID int64 `json:"migrate_to_chat_id"`
	} `json:"parameters"`
}

// Call invokes method with params encoded as a JSON body and returns the
// raw "result" field. A response with ok=false, or an HTTP error status,
// yields *APIError; transport failures yield *NetworkError.
func (c *Client) Call(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}
	return c.do(ctx, method, params)
}

func (c *Client) do(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	if params == nil {
		params = map[string]any{}
	}
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode %s params: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.botToken, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &NetworkError{Method: method, Err: errors.New("create request failed")}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Method: method, Err: stripURL(err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &NetworkError{Method: method, Err: stripURL(err)}
	}

	var apiResp apiResponse
	if err := json.Unmarshal(data, &apiResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &APIError{Method: method, Code: resp.StatusCode, Description: fmt.Sprintf("HTTP %d error", resp.StatusCode)}
		}
		return nil, &NetworkError{Method: method, Err: fmt.Errorf("decode response: %w", err)}
	}

	if !apiResp.OK || resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Method: method, Code: apiResp.ErrorCode, Description: apiResp.Description}
		if apiErr.Code == 0 {
			apiErr.Code = resp.StatusCode
		}
		if apiErr.Description == "" {
			apiErr.Description = "unknown error"
		}
		if apiResp.Parameters != nil {
			apiErr.RetryAfter = apiResp.Parameters.RetryAfter
		}
		return nil, apiErr
	}

	return apiResp.Result, nil
}

// GetUpdates performs one long-poll request. A request that runs out its
// long-poll deadline without data is reported as core.Empty, not a failure.
func (c *Client) GetUpdates(ctx context.Context, req core.PollRequest) core.PollResult {
	params := map[string]any{
		"offset":  req.Offset,
		"timeout": req.Timeout,
	}
	if len(req.AllowedUpdates) > 0 {
		params["allowed_updates"] = req.AllowedUpdates
	}

	pollCtx, cancel := context.WithTimeout(ctx, time.Duration(req.Timeout)*time.Second+c.pollGrace)
	defer cancel()

	result, err := c.do(pollCtx, "getUpdates", params)
	if err != nil {
		var netErr *NetworkError
		if errors.As(err, &netErr) && netErr.Timeout() && ctx.Err() == nil {
			return core.Empty()
		}
		return core.Failed(err)
	}

	updates, err := core.ParseUpdates(result)
	if err != nil {
		return core.Failed(&NetworkError{Method: "getUpdates", Err: err})
	}
	return core.Batch(updates)
}

// stripURL drops the *url.Error wrapper whose message contains the
// token-bearing request URL.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
