package channel

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
	"nhooyr.io/websocket"

	"chatwidget/internal/domain"
)

// Default dial breaker settings.
const (
	defaultBreakerMaxFailures uint32        = 3
	defaultBreakerTimeout     time.Duration = 30 * time.Second
)

// BreakerConfig configures dial protection.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive dial failures before the breaker opens.
	MaxFailures uint32
	// Timeout is how long the breaker stays open before allowing one probe dial.
	Timeout time.Duration
}

// newDialBreaker builds the breaker shared by every Open on one adapter.
// Failure counts never reset while closed; only a successful dial clears them.
func newDialBreaker(cfg BreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker[*websocket.Conn] {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultBreakerTimeout
	}

	return gobreaker.NewCircuitBreaker[*websocket.Conn](gobreaker.Settings{
		Name:        "channel:dial",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			// A dial abandoned by Close says nothing about the backend.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

// dialError classifies a failed breaker execution.
func dialError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.NewDomainError("channel.dial", domain.ErrChannelBackoff, err.Error())
	}
	return domain.NewDomainError("channel.dial", domain.ErrChannelDial, err.Error())
}
