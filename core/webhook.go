package core

import (
	"context"
	"log/slog"
	"net/http"

	goerrors "github.com/goliatone/go-errors"

	"github.com/jdelaire/shingram/core/auth"
)

// Text codes carried by webhook rejection errors.
const (
	ErrCodeSecretMismatch = "WEBHOOK_SECRET_MISMATCH"
	ErrCodeBadUpdate      = "WEBHOOK_BAD_UPDATE"
)

// WebhookIngestor accepts single pushed updates. It is safe for concurrent
// use; each call dispatches synchronously on the caller's goroutine and no
// ordering is imposed across concurrent calls.
type WebhookIngestor struct {
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewWebhookIngestor creates an ingestor feeding dispatcher.
func NewWebhookIngestor(dispatcher *Dispatcher, logger *slog.Logger) *WebhookIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookIngestor{dispatcher: dispatcher, logger: logger}
}

// Handle authenticates, parses, normalizes and dispatches one pushed update.
//
// When secret is non-empty the request must present it in the secret token
// header; otherwise Handle returns an auth error (Code 401) and nothing is
// parsed or dispatched. A body that is not a JSON object yields a bad input
// error (Code 400). Accepted updates, including unrecognized shapes that
// produce no event, return nil.
func (w *WebhookIngestor) Handle(ctx context.Context, body []byte, headers http.Header, secret string) error {
	if secret != "" && !auth.SecretMatches(secret, auth.HeaderSecret(headers)) {
		w.logger.Warn("webhook update rejected", "reason", "secret token mismatch")
		return goerrors.New("webhook: secret token mismatch", goerrors.CategoryAuth).
			WithCode(http.StatusUnauthorized).
			WithTextCode(ErrCodeSecretMismatch)
	}

	raw, err := ParseUpdate(body)
	if err != nil {
		w.logger.Warn("webhook update rejected", "reason", "invalid body", "error", err)
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "webhook: invalid update body").
			WithCode(http.StatusBadRequest).
			WithTextCode(ErrCodeBadUpdate)
	}

	w.dispatcher.HandleUpdate(ctx, raw)
	return nil
}

// IsUnauthorized reports whether err is a webhook secret rejection.
func IsUnauthorized(err error) bool {
	var rich *goerrors.Error
	return goerrors.As(err, &rich) && rich.TextCode == ErrCodeSecretMismatch
}
