package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"deltawatch/internal/domain/entity"
	"deltawatch/internal/observability/metrics"
	"deltawatch/internal/observability/tracing"
	"deltawatch/internal/resilience/circuitbreaker"
	"deltawatch/internal/resilience/retry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Fetcher performs HTTP requests under a retry policy.
//
// Every attempt runs under its own AttemptTimeout. An attempt that times out,
// fails at the network level or receives a 5xx status is retried; a 4xx status,
// a malformed request or an oversized body is not. When the caller's context
// ends the loop stops and the context error is returned.
//
// Thread safety: Fetcher is safe for concurrent use.
type Fetcher struct {
	client  *http.Client
	cfg     Config
	policy  retry.Policy
	limiter *rate.Limiter
	logger  *slog.Logger

	breakersEnabled bool
	mu              sync.Mutex
	breakers        map[string]*circuitbreaker.CircuitBreaker
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the client built by NewHTTPClient.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithPolicy replaces the retry policy derived from Config.
// A nil Classify keeps the fetcher's classifier.
func WithPolicy(p retry.Policy) Option {
	return func(f *Fetcher) {
		if p.Classify == nil {
			p.Classify = f.policy.Classify
		}
		f.policy = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// WithoutCircuitBreaker disables per-host breakers.
func WithoutCircuitBreaker() Option {
	return func(f *Fetcher) { f.breakersEnabled = false }
}

// New creates a Fetcher from cfg.
func New(cfg Config, opts ...Option) *Fetcher {
	policy := cfg.Policy()
	policy.Classify = Classify

	f := &Fetcher{
		cfg:             cfg,
		policy:          policy,
		logger:          slog.Default(),
		breakersEnabled: true,
		breakers:        make(map[string]*circuitbreaker.CircuitBreaker),
	}
	if cfg.RateLimit > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = NewHTTPClient(cfg)
	}
	return f
}

// Classify is the fetcher's failure classifier: a request rejected by an open
// circuit breaker is permanent, everything else follows retry.DefaultClassifier.
func Classify(err error) retry.Class {
	if circuitbreaker.IsRejection(err) {
		return retry.Permanent
	}
	return retry.DefaultClassifier(err)
}

// Fetch performs req and returns the body of the first 2xx response.
//
// Errors:
//   - *entity.RequestError: permanent failure, or invalid URL
//   - *retry.ExhaustedError wrapping the last *entity.RequestError: all attempts failed transiently
//   - an error wrapping the context error: ctx ended
func (f *Fetcher) Fetch(ctx context.Context, req entity.Request) (*entity.Payload, error) {
	if err := entity.ValidateRequestURL(req.URL, f.cfg.DenyPrivateIPs); err != nil {
		return nil, &entity.RequestError{
			Kind:    entity.KindProtocol,
			Attempt: 1,
			Message: "invalid request URL",
			Err:     err,
		}
	}
	host := hostOf(req.URL)

	var payload *entity.Payload
	loop := func() error {
		return retry.Do(ctx, f.policy, func(attempt int) error {
			p, err := f.attempt(ctx, req, host, attempt)
			if err != nil {
				return err
			}
			payload = p
			return nil
		})
	}

	// One breaker request per Fetch, covering every attempt.
	var err error
	if cb := f.breakerFor(host); cb != nil {
		err = cb.Run(loop)
		if circuitbreaker.IsRejection(err) {
			metrics.RecordFetchAttempt(host, metrics.OutcomePermanent, 0, 0)
			err = &entity.RequestError{
				Kind:    entity.KindNetwork,
				Attempt: 1,
				Message: "circuit open for " + host,
				Err:     err,
			}
		}
	} else {
		err = loop()
	}
	if err != nil {
		return nil, err
	}

	f.logger.Debug("fetch succeeded",
		slog.String("url", req.URL),
		slog.Int("status", payload.StatusCode),
		slog.Int("bytes", len(payload.Body)),
		slog.Int("attempts", payload.Attempts))
	return payload, nil
}

// attempt performs one rate-limited request.
func (f *Fetcher) attempt(ctx context.Context, req entity.Request, host string, attempt int) (*entity.Payload, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	start := time.Now()
	payload, err := f.do(ctx, req, attempt)

	size := 0
	if payload != nil {
		size = len(payload.Body)
	}
	metrics.RecordFetchAttempt(host, outcomeOf(err), time.Since(start), size)
	return payload, err
}

// do sends the request once under the attempt deadline and reads the body.
func (f *Fetcher) do(ctx context.Context, req entity.Request, attempt int) (*entity.Payload, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.cfg.AttemptTimeout)
	defer cancel()

	attemptCtx, span := tracing.GetTracer().Start(attemptCtx, "fetch.attempt",
		trace.WithAttributes(
			attribute.String("fetch.url", req.URL),
			attribute.Int("fetch.attempt", attempt),
		))
	defer span.End()

	payload, err := f.send(ctx, attemptCtx, req, attempt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return payload, err
}

func (f *Fetcher) send(ctx, attemptCtx context.Context, req entity.Request, attempt int) (*entity.Payload, error) {
	httpReq, err := http.NewRequestWithContext(attemptCtx, req.MethodOrDefault(), req.URL, nil)
	if err != nil {
		return nil, &entity.RequestError{Kind: entity.KindProtocol, Attempt: attempt, Message: "build request", Err: err}
	}
	httpReq.Header.Set("User-Agent", f.cfg.UserAgent)
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}
	if req.BearerToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.BearerToken)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, f.transportError(ctx, attemptCtx, attempt, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &entity.RequestError{
			Kind:       entity.KindHTTPStatus,
			StatusCode: resp.StatusCode,
			Attempt:    attempt,
			Message:    http.StatusText(resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, f.transportError(ctx, attemptCtx, attempt, fmt.Errorf("read body: %w", err))
	}
	if int64(len(body)) > f.cfg.MaxBodyBytes {
		return nil, &entity.RequestError{
			Kind:    entity.KindProtocol,
			Attempt: attempt,
			Message: fmt.Sprintf("response body exceeds %d bytes", f.cfg.MaxBodyBytes),
		}
	}

	return &entity.Payload{
		URL:         req.URL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Attempts:    attempt,
	}, nil
}

// transportError distinguishes the run ending, the attempt timing out and
// plain network failures.
func (f *Fetcher) transportError(ctx, attemptCtx context.Context, attempt int, err error) error {
	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("fetch aborted: %w", ctx.Err())
	case errors.Is(attemptCtx.Err(), context.DeadlineExceeded):
		return &entity.RequestError{
			Kind:    entity.KindTimeout,
			Attempt: attempt,
			Message: fmt.Sprintf("attempt exceeded %v", f.cfg.AttemptTimeout),
			Err:     err,
		}
	case errors.Is(err, ErrTooManyRedirects):
		return &entity.RequestError{Kind: entity.KindProtocol, Attempt: attempt, Message: "redirect rejected", Err: err}
	default:
		var v *entity.ValidationError
		if errors.As(err, &v) {
			return &entity.RequestError{Kind: entity.KindProtocol, Attempt: attempt, Message: "redirect rejected", Err: err}
		}
		return &entity.RequestError{Kind: entity.KindNetwork, Attempt: attempt, Err: err}
	}
}

func (f *Fetcher) breakerFor(host string) *circuitbreaker.CircuitBreaker {
	if !f.breakersEnabled {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cb, ok := f.breakers[host]
	if !ok {
		cfg := circuitbreaker.FetchConfig(host)
		// Only failures worth retrying say something about the host's health.
		cfg.IsSuccessful = func(err error) bool {
			return err == nil || Classify(err) == retry.Permanent
		}
		cb = circuitbreaker.New(cfg)
		f.breakers[host] = cb
	}
	return cb
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case Classify(err) == retry.Transient:
		return metrics.OutcomeTransient
	default:
		return metrics.OutcomePermanent
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	return u.Host
}
