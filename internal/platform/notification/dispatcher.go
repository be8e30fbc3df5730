package notification

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
)

var (
	// ErrNoChannel means the recipient has no linked chat.
	ErrNoChannel = errors.New("recipient has no linked chat")
	// ErrRelayDisabled means no Sender is configured.
	ErrRelayDisabled = errors.New("notification relay disabled")
)

// Button is an inline reply option attached to a message.
type Button struct {
	Text string
	Data string
}

type Sender interface {
	Send(ctx context.Context, chatID int64, text string, buttons []Button) error
}

// Permanent is implemented by sender errors that retrying cannot fix.
type Permanent interface {
	Permanent() bool
}

func isPermanent(err error) bool {
	var p Permanent
	return errors.As(err, &p) && p.Permanent()
}

type Dispatcher struct {
	sender   Sender
	attempts uint
	delay    time.Duration
	logger   zerolog.Logger
}

func NewDispatcher(sender Sender, attempts uint, logger zerolog.Logger) *Dispatcher {
	if attempts == 0 {
		attempts = 1
	}
	return &Dispatcher{
		sender:   sender,
		attempts: attempts,
		delay:    500 * time.Millisecond,
		logger:   logger.With().Str("component", "notification").Logger(),
	}
}

// Enabled reports whether messages can leave the process.
func (d *Dispatcher) Enabled() bool {
	return d != nil && d.sender != nil
}

// Deliver sends text to chatID, retrying transient failures with exponential
// backoff. It returns how many send attempts were made.
func (d *Dispatcher) Deliver(ctx context.Context, chatID *int64, text string, buttons []Button) (uint, error) {
	if !d.Enabled() {
		return 0, ErrRelayDisabled
	}
	if chatID == nil || *chatID == 0 {
		return 0, ErrNoChannel
	}

	var attempts uint
	err := retry.Do(
		func() error {
			attempts++
			return d.sender.Send(ctx, *chatID, text, buttons)
		},
		retry.Context(ctx),
		retry.Attempts(d.attempts),
		retry.Delay(d.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return !isPermanent(err) }),
		retry.OnRetry(func(n uint, err error) {
			d.logger.Warn().Err(err).Uint("attempt", n+1).Int64("chat_id", *chatID).Msg("relay attempt failed")
		}),
	)
	return attempts, err
}
