package telegram

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type UpdateHandler interface {
	HandleUpdate(ctx context.Context, u Update) error
}

type UpdateHandlerFunc func(ctx context.Context, u Update) error

func (f UpdateHandlerFunc) HandleUpdate(ctx context.Context, u Update) error { return f(ctx, u) }

type updateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error)
}

// Poller long-polls getUpdates and hands each update to a handler.
type Poller struct {
	source     updateSource
	handler    UpdateHandler
	timeout    time.Duration
	minBackoff time.Duration
	maxBackoff time.Duration
	logger     zerolog.Logger
}

func NewPoller(client *Client, handler UpdateHandler, timeout time.Duration, logger zerolog.Logger) *Poller {
	return &Poller{
		source:     client,
		handler:    handler,
		timeout:    timeout,
		minBackoff: time.Second,
		maxBackoff: time.Minute,
		logger:     logger.With().Str("component", "telegram-poller").Logger(),
	}
}

// Run polls until ctx is cancelled. A handler error is logged and the update
// is still acknowledged so one bad message cannot wedge the loop.
func (p *Poller) Run(ctx context.Context) error {
	var offset int64
	backoff := p.minBackoff

	for {
		if ctx.Err() != nil {
			return nil
		}

		updates, err := p.source.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Warn().Err(err).Dur("backoff", backoff).Msg("getUpdates failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > p.maxBackoff {
				backoff = p.maxBackoff
			}
			continue
		}
		backoff = p.minBackoff

		for _, u := range updates {
			if err := p.handler.HandleUpdate(ctx, u); err != nil {
				p.logger.Warn().Err(err).Int64("update_id", u.UpdateID).Msg("update not handled")
			}
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
		}
	}
}

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookHandler accepts pushed updates. Requests without the configured
// secret token are rejected.
func WebhookHandler(secret string, handler UpdateHandler, logger zerolog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		got := c.Request().Header.Get(secretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid webhook secret")
		}

		var u Update
		if err := c.Bind(&u); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid update")
		}
		if err := handler.HandleUpdate(c.Request().Context(), u); err != nil {
			logger.Warn().Err(err).Int64("update_id", u.UpdateID).Msg("webhook update not handled")
		}
		return c.NoContent(http.StatusOK)
	}
}
