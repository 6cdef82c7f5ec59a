// Package throttle implements the token-bucket delay governor (§4.1) used
// to cap the rate of outbound DLP/LLM backend calls. It wraps
// golang.org/x/time/rate the way github.com/google/ko's build pipeline
// depends on golang.org/x/time for its own pacing, but keeps the design's
// own update(now)/delay() contract on top of rate.Limiter's Reserve
// instead of exposing Wait/Allow directly: the copy coordinator supplies
// "now" itself, so delay() stays pure and testable without a real clock.
package throttle

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/redacter/dlpcopy/internal/model"
)

// Throttler is created per copy invocation when a RateLimit is
// configured, and mutated serially by the copy coordinator — never
// shared across goroutines. Capacity equals max_operations; tokens
// refill at max_operations/period.
type Throttler struct {
	limiter  *rate.Limiter
	lastWait time.Duration
}

// New builds a Throttler from a RateLimit.
func New(limit model.RateLimit) *Throttler {
	refillInterval := limit.Per / time.Duration(limit.MaxOperations)
	return &Throttler{
		limiter: rate.NewLimiter(rate.Every(refillInterval), limit.MaxOperations),
	}
}

// Update decrements available tokens for admission at now, and records
// the delay the caller must observe before the *next* call is allowed to
// proceed. Call Delay to read it back.
func (t *Throttler) Update(now time.Time) {
	reservation := t.limiter.ReserveN(now, 1)
	t.lastWait = reservation.DelayFrom(now)
}

// Delay returns how long the caller must wait before the next admission,
// based on the most recent Update call.
func (t *Throttler) Delay() time.Duration {
	if t.lastWait < 0 {
		return 0
	}
	return t.lastWait
}

// Await blocks in the caller's goroutine for Delay(), the cooperative
// suspension point described in §5 ("suspension points are at ... the
// throttler sleep(delay)").
func (t *Throttler) Await() {
	if d := t.Delay(); d > 0 {
		time.Sleep(d)
	}
}
