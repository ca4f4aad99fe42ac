package watch

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"deltawatch/internal/domain/entity"
	"deltawatch/internal/infra/extractor"
)

// Fetcher retrieves one payload, retrying transient failures.
type Fetcher interface {
	Fetch(ctx context.Context, req entity.Request) (*entity.Payload, error)
}

// Extractor turns a payload into items.
type Extractor interface {
	Extract(payload *entity.Payload) ([]entity.Item, error)
}

// Collector gathers the current items of one job. It reports each step it
// enters through enter.
type Collector interface {
	Collect(ctx context.Context, enter func(State)) ([]entity.Item, error)
}

// Source is one fetchable listing with its extractor.
type Source struct {
	Name      string
	Request   entity.Request
	Extractor Extractor
}

// TargetCollector fetches independent listing sources. A single source is
// fetched directly; several are fetched concurrently and joined before
// extraction, which runs in configured order.
type TargetCollector struct {
	fetcher Fetcher
	sources []Source
}

// NewTargetCollector returns a collector over sources.
func NewTargetCollector(fetcher Fetcher, sources ...Source) *TargetCollector {
	return &TargetCollector{fetcher: fetcher, sources: sources}
}

// NewTargetCollectorFromTargets builds one source per configured target.
func NewTargetCollectorFromTargets(fetcher Fetcher, targets []entity.Target) (*TargetCollector, error) {
	sources := make([]Source, 0, len(targets))
	for _, t := range targets {
		ext, err := extractor.NewForTarget(t)
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", t.Name, err)
		}
		sources = append(sources, Source{
			Name:      t.Name,
			Request:   entity.Request{URL: t.URL},
			Extractor: ext,
		})
	}
	return NewTargetCollector(fetcher, sources...), nil
}

// Collect implements Collector.
func (c *TargetCollector) Collect(ctx context.Context, enter func(State)) ([]entity.Item, error) {
	if len(c.sources) == 0 {
		return nil, ErrNoTargets
	}

	enter(StateFetching)
	payloads := make([]*entity.Payload, len(c.sources))
	if len(c.sources) == 1 {
		p, err := c.fetcher.Fetch(ctx, c.sources[0].Request)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", c.sources[0].Name, err)
		}
		payloads[0] = p
	} else {
		g, gctx := errgroup.WithContext(ctx)
		for i, src := range c.sources {
			i, src := i, src
			g.Go(func() error {
				p, err := c.fetcher.Fetch(gctx, src.Request)
				if err != nil {
					return fmt.Errorf("fetch %s: %w", src.Name, err)
				}
				payloads[i] = p
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	enter(StateExtracting)
	var items []entity.Item
	for i, src := range c.sources {
		extracted, err := src.Extractor.Extract(payloads[i])
		if err != nil {
			return nil, err
		}
		items = append(items, extracted...)
	}
	return items, nil
}

// ContributorsCollector polls a repository API in two dependent calls: the
// repository document, then the contributors URL it names.
type ContributorsCollector struct {
	fetcher        Fetcher
	contribFetcher Fetcher
	repoURL        string
	header         map[string]string
}

// NewContributorsCollector returns a collector for owner/name under apiURL.
func NewContributorsCollector(fetcher Fetcher, apiURL, owner, name string) *ContributorsCollector {
	return &ContributorsCollector{
		fetcher:        fetcher,
		contribFetcher: fetcher,
		repoURL:        fmt.Sprintf("%s/repos/%s/%s", strings.TrimRight(apiURL, "/"), owner, name),
		header: map[string]string{
			"Accept":               "application/vnd.github+json",
			"X-GitHub-Api-Version": "2022-11-28",
		},
	}
}

// WithContributorsFetcher uses f for the contributors call, so it can run
// under a different retry budget than the repository call.
func (c *ContributorsCollector) WithContributorsFetcher(f Fetcher) *ContributorsCollector {
	c.contribFetcher = f
	return c
}

// RepositoryURL returns the URL of the first call.
func (c *ContributorsCollector) RepositoryURL() string {
	return c.repoURL
}

// Collect implements Collector. The second call starts only after the
// first succeeded and was decoded.
func (c *ContributorsCollector) Collect(ctx context.Context, enter func(State)) ([]entity.Item, error) {
	enter(StateFetching)
	repoPayload, err := c.fetcher.Fetch(ctx, entity.Request{URL: c.repoURL, Header: c.header})
	if err != nil {
		return nil, fmt.Errorf("fetch repository: %w", err)
	}

	enter(StateExtracting)
	info, err := extractor.ExtractRepository(repoPayload)
	if err != nil {
		return nil, err
	}

	enter(StateFetching)
	contribPayload, err := c.contribFetcher.Fetch(ctx, entity.Request{URL: info.ContributorsURL, Header: c.header})
	if err != nil {
		return nil, fmt.Errorf("fetch contributors of %s: %w", info.FullName, err)
	}

	enter(StateExtracting)
	return extractor.ContributorsExtractor{}.Extract(contribPayload)
}
