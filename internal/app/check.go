package app

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"deltawatch/internal/domain/entity"
	"deltawatch/internal/infra/extractor"
	"deltawatch/internal/observability/logging"
)

// Check statuses.
const (
	CheckOK           = "ok"
	CheckEmpty        = "empty"
	CheckFetchError   = "fetch_error"
	CheckExtractError = "extract_error"
)

// checkConcurrency bounds targets checked at once.
const checkConcurrency = 4

// sampleSize is the number of items kept per report.
const sampleSize = 3

// TargetReport is the outcome of fetching and extracting one target without
// reading or writing any store.
type TargetReport struct {
	Name       string        `json:"name"`
	URL        string        `json:"url"`
	Kind       string        `json:"kind"`
	Status     string        `json:"status"`
	StatusCode int           `json:"status_code,omitempty"`
	Attempts   int           `json:"attempts,omitempty"`
	Items      int           `json:"items"`
	Sample     []entity.Item `json:"sample,omitempty"`
	DurationMS int64         `json:"duration_ms"`
	Error      string        `json:"error,omitempty"`
}

// OK reports whether the target yielded items.
func (r TargetReport) OK() bool {
	return r.Status == CheckOK
}

// Check fetches and extracts every configured target. Reports are in
// configured order.
func (a *App) Check(ctx context.Context) []TargetReport {
	reports := make([]TargetReport, len(a.cfg.Targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(checkConcurrency)
	for i, t := range a.cfg.Targets {
		g.Go(func() error {
			reports[i] = a.checkTarget(gctx, t)
			return nil
		})
	}
	_ = g.Wait()
	return reports
}

func (a *App) checkTarget(ctx context.Context, t entity.Target) TargetReport {
	start := time.Now()
	r := TargetReport{Name: t.Name, URL: t.URL, Kind: string(t.Kind)}

	ext, err := extractor.NewForTarget(t)
	if err != nil {
		r.Status, r.Error = CheckExtractError, err.Error()
		r.DurationMS = time.Since(start).Milliseconds()
		return r
	}

	payload, err := a.fetcher.Fetch(ctx, entity.Request{URL: t.URL})
	if err != nil {
		r.Status, r.Error = CheckFetchError, logging.Redact(err)
		var reqErr *entity.RequestError
		if errors.As(err, &reqErr) {
			r.StatusCode, r.Attempts = reqErr.StatusCode, reqErr.Attempt
		}
		r.DurationMS = time.Since(start).Milliseconds()
		return r
	}
	r.StatusCode, r.Attempts = payload.StatusCode, payload.Attempts

	items, err := ext.Extract(payload)
	switch {
	case err != nil:
		r.Status, r.Error = CheckExtractError, err.Error()
	case len(items) == 0:
		r.Status = CheckEmpty
	default:
		r.Status = CheckOK
		r.Items = len(items)
		r.Sample = items[:min(sampleSize, len(items))]
	}
	r.DurationMS = time.Since(start).Milliseconds()
	return r
}
