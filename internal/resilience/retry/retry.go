// Package retry provides bounded retry with pluggable backoff and failure classification.
// It helps handle transient failures gracefully by retrying only what is worth retrying.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net"
	"syscall"
	"time"
)

// Class is the verdict of a Classifier.
type Class int

const (
	// Permanent failures are surfaced immediately.
	Permanent Class = iota
	// Transient failures are retried while attempts remain.
	Transient
)

func (c Class) String() string {
	if c == Transient {
		return "transient"
	}
	return "permanent"
}

// Classifier maps a failure to Transient or Permanent.
type Classifier func(err error) Class

// Backoff computes the wait after a failed attempt.
// attempt is the 1-based number of the attempt that just failed.
type Backoff interface {
	Delay(attempt int) time.Duration
}

// Exponential grows the delay by Multiplier after every attempt, capped at Max,
// with up to JitterFraction of random extra delay.
type Exponential struct {
	// Initial is the delay before the second attempt
	Initial time.Duration

	// Max is the maximum delay between attempts
	Max time.Duration

	// Multiplier is the growth factor per attempt
	Multiplier float64

	// JitterFraction is the fraction of delay to add as random jitter (0.0 to 1.0)
	JitterFraction float64
}

// Delay implements Backoff.
func (e Exponential) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := e.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(e.Initial) * math.Pow(mult, float64(attempt-1))
	if e.Max > 0 && d > float64(e.Max) {
		d = float64(e.Max)
	}
	return addJitter(time.Duration(d), e.JitterFraction)
}

// Fixed waits the same delay after every attempt.
type Fixed struct {
	Wait time.Duration
}

// Delay implements Backoff.
func (f Fixed) Delay(int) time.Duration {
	return f.Wait
}

// Policy bounds how an operation is retried. It is immutable per invocation.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first
	MaxAttempts int

	// Backoff decides the wait between attempts
	Backoff Backoff

	// Classify decides whether a failure is worth another attempt.
	// DefaultClassifier is used when nil.
	Classify Classifier
}

// Validate checks that the policy can be executed.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry policy: max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.Backoff == nil {
		return errors.New("retry policy: backoff is required")
	}
	return nil
}

func (p Policy) classify(err error) Class {
	if p.Classify != nil {
		return p.Classify(err)
	}
	return DefaultClassifier(err)
}

// DefaultPolicy returns a general purpose policy: 3 attempts, exponential backoff from 1s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff: Exponential{
			Initial:        1 * time.Second,
			Max:            30 * time.Second,
			Multiplier:     2.0,
			JitterFraction: 0.1,
		},
	}
}

// ListingPolicy returns a policy for scraping listing pages.
// Moderate retry for network issues and transient site failures.
func ListingPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff: Exponential{
			Initial:        1 * time.Second,
			Max:            10 * time.Second,
			Multiplier:     2.0,
			JitterFraction: 0.1,
		},
	}
}

// APIPolicy returns a policy for REST API calls: two attempts with a fixed pause.
func APIPolicy() Policy {
	return Policy{
		MaxAttempts: 2,
		Backoff:     Fixed{Wait: 2 * time.Second},
	}
}

// ExhaustedError is returned when every attempt failed with a transient error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("max retry attempts (%d) exceeded: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Do calls fn until it succeeds, fails permanently, or MaxAttempts is reached.
// fn receives the 1-based attempt number.
//
// Exactly MaxAttempts calls are made when every failure is transient, and exactly
// one when the first failure is permanent. A permanent failure is returned as is;
// exhaustion is returned as *ExhaustedError wrapping the last failure. If ctx ends
// while waiting between attempts, the context error is returned.
func Do(ctx context.Context, p Policy, fn func(attempt int) error) error {
	if err := p.Validate(); err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = fn(attempt)

		if lastErr == nil {
			if attempt > 1 {
				slog.Info("operation succeeded after retry",
					slog.Int("attempt", attempt))
			}
			return nil
		}

		if ctx.Err() != nil {
			return fmt.Errorf("retry aborted: %w", errors.Join(ctx.Err(), lastErr))
		}

		if p.classify(lastErr) == Permanent {
			slog.Warn("non-retryable error, aborting",
				slog.Int("attempt", attempt),
				slog.Any("error", lastErr))
			return lastErr
		}

		if attempt == p.MaxAttempts {
			break
		}

		delay := p.Backoff.Delay(attempt)
		slog.Warn("operation failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", p.MaxAttempts),
			slog.Duration("delay", delay),
			slog.Any("error", lastErr))

		if err := sleep(ctx, delay); err != nil {
			return fmt.Errorf("retry aborted: %w", errors.Join(err, lastErr))
		}
	}

	return &ExhaustedError{Attempts: p.MaxAttempts, Err: lastErr}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DefaultClassifier decides whether an error is worth retrying.
//
// Errors exposing a Transient() bool method are trusted. Otherwise network
// timeouts, refused/reset connections and truncated bodies are transient.
// Context cancellation and everything else is permanent.
func DefaultClassifier(err error) Class {
	if err == nil {
		return Permanent
	}

	var t interface{ Transient() bool }
	if errors.As(err, &t) {
		if t.Transient() {
			return Transient
		}
		return Permanent
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Permanent
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Transient
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return Transient
	}

	return Permanent
}

// addJitter adds random jitter to a duration to prevent thundering herd.
func addJitter(duration time.Duration, jitterFraction float64) time.Duration {
	if jitterFraction <= 0 || duration <= 0 {
		return duration
	}
	if jitterFraction > 1.0 {
		jitterFraction = 1.0
	}
	// #nosec G404 -- Using math/rand is acceptable for jitter calculation.
	jitter := time.Duration(rand.Float64() * float64(duration) * jitterFraction)
	return duration + jitter
}
