package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	goerrors "github.com/goliatone/go-errors"

	"github.com/jdelaire/shingram/core"
)

// Ingestor is the part of the bot the HTTP handler feeds. *core.Bot
// satisfies it.
type Ingestor interface {
	HandleWebhookUpdate(ctx context.Context, body []byte, headers http.Header, secret string) error
}

// Handler serves Telegram webhook POSTs. Every request is handled on its
// own goroutine by net/http; the ingestor must be safe for concurrent use.
type Handler struct {
	ingestor Ingestor
	secret   string
	logger   *slog.Logger
}

// NewHandler creates a webhook handler that requires secret in the secret
// token header when secret is non-empty.
func NewHandler(ingestor Ingestor, secret string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{ingestor: ingestor, secret: secret, logger: logger}
}

// Mount registers h for POST requests on path.
func Mount(r chi.Router, path string, h *Handler) {
	r.Post(path, h.ServeHTTP)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, core.MaxUpdateBytes+1))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	if len(body) > core.MaxUpdateBytes {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}

	if err := h.ingestor.HandleWebhookUpdate(r.Context(), body, r.Header, h.secret); err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("webhook update failed", "error", err)
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// statusFor maps a rejection carrying an HTTP code to that status. Anything
// else is a server error.
func statusFor(err error) int {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.Code >= 400 && rich.Code < 600 {
		return rich.Code
	}
	return http.StatusInternalServerError
}
