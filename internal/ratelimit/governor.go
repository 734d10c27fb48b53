// Package ratelimit tracks provider rate-limit state for a single run.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nikhil-at-pieces/descope-sync/internal/domain"
)

// State is the governor's position in its per-run state machine.
type State int

const (
	// StateNormal permits requests.
	StateNormal State = iota
	// StateSoftLimited is transient: back off, retry, return to Normal.
	StateSoftLimited
	// StateHardLimited is terminal for the run: no further requests.
	StateHardLimited
)

func (s State) String() string {
	switch s {
	case StateSoftLimited:
		return "SOFT_LIMITED"
	case StateHardLimited:
		return "HARD_LIMITED"
	default:
		return "NORMAL"
	}
}

// dayScopeMarker is the substring a provider's 429 message carries when a
// daily quota (rather than a transient window) is exhausted. This is a
// provisional heuristic, not a documented contract.
const dayScopeMarker = "DAY limit"

const (
	baseDelay = time.Second
	maxDelay  = 30 * time.Second
)

// Governor owns rate-limit state for one (provider, run) pair. It is an
// explicit run-scoped value, never a process-wide singleton, so concurrent
// runs cannot contaminate each other's limit tracking.
type Governor struct {
	provider string
	pacer    *rate.Limiter
	logger   *slog.Logger

	mu    sync.Mutex
	state State
}

// New creates a Governor for one provider within one run. requestRate
// paces outgoing requests (requests per second); zero disables pacing.
func New(provider string, requestRate float64, logger *slog.Logger) *Governor {
	var pacer *rate.Limiter
	if requestRate > 0 {
		pacer = rate.NewLimiter(rate.Limit(requestRate), 1)
	}
	return &Governor{provider: provider, pacer: pacer, logger: logger, state: StateNormal}
}

// Wait paces the next outgoing request. It returns immediately once the
// governor is hard-limited so callers can short-circuit without sleeping.
func (g *Governor) Wait(ctx context.Context) error {
	if g.HardLimited() {
		return domain.ErrRateLimit(domain.RateScopeHard, "%s: daily quota exhausted", g.provider)
	}
	if g.pacer == nil {
		return nil
	}
	return g.pacer.Wait(ctx)
}

// State returns the current state.
func (g *Governor) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// HardLimited reports whether the daily quota tripped during this run.
func (g *Governor) HardLimited() bool {
	return g.State() == StateHardLimited
}

// Observe inspects an error from a provider call and advances the state
// machine. A hard rate limit is terminal; a soft limit is recorded and
// cleared again by ObserveSuccess.
func (g *Governor) Observe(err error) {
	if err == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case domain.IsHardLimit(err):
		if g.state != StateHardLimited {
			g.logger.Warn("daily rate limit reached, stopping calls for this run",
				"provider", g.provider)
		}
		g.state = StateHardLimited
	case domain.IsSoftLimit(err):
		if g.state == StateNormal {
			g.state = StateSoftLimited
		}
	}
}

// ObserveSuccess returns a soft-limited governor to normal.
func (g *Governor) ObserveSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateSoftLimited {
		g.state = StateNormal
	}
}

// Backoff returns the delay before retry attempt (0-based): an exponential
// base doubling per attempt, capped, plus uniform random jitter.
func (g *Governor) Backoff(attempt int) time.Duration {
	d := baseDelay
	for i := 0; i < attempt && d < maxDelay; i++ {
		d *= 2
	}
	if d > maxDelay {
		d = maxDelay
	}
	return d + time.Duration(rand.Int63n(int64(time.Second))) //nolint:gosec // jitter, not crypto
}

// Classify maps a provider HTTP status and message body onto the error
// taxonomy. A 429 whose message names a day-scoped quota is a hard limit;
// any other 429 is soft. 403 means "skip, no data". 5xx is transient.
// A 2xx status returns nil.
func Classify(status int, message string) error {
	switch {
	case status == 429:
		if strings.Contains(message, dayScopeMarker) {
			return domain.ErrRateLimit(domain.RateScopeHard, "%s", message)
		}
		return domain.ErrRateLimit(domain.RateScopeSoft, "%s", message)
	case status == 403:
		return domain.ErrPermission("forbidden: %s", message)
	case status >= 500:
		return domain.ErrTransient("server error %d: %s", status, message)
	case status >= 400:
		return fmt.Errorf("unexpected status %d: %s", status, message)
	default:
		return nil
	}
}
