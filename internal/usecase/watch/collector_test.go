package watch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deltawatch/internal/domain/entity"
	"deltawatch/internal/infra/adapter/persistence/file"
	"deltawatch/internal/infra/fetcher"
	"deltawatch/internal/usecase/watch"
)

const listingPage = `<html><body><ul>
<li class="search-list__item--listing"><a class="listing-search-item__link" href="/a">Flat A</a></li>
<li class="search-list__item--listing"><a class="listing-search-item__link" href="/b">Flat B</a></li>
</ul></body></html>`

const feedDoc = `<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>
<item><title>Post 1</title><link>https://blog.example.com/1</link></item>
</channel></rss>`

func noStates(watch.State) {}

func htmlTarget(url string) entity.Target {
	return entity.Target{Name: url, URL: url, Kind: entity.KindHTML, Scraper: entity.ParariusScraperConfig()}
}

func TestTargetCollector_SingleTarget(t *testing.T) {
	f := &mapFetcher{payloads: map[string]string{"https://www.pararius.nl/huurwoningen/rotterdam": listingPage}}
	c, err := watch.NewTargetCollectorFromTargets(f, []entity.Target{htmlTarget("https://www.pararius.nl/huurwoningen/rotterdam")})
	require.NoError(t, err)

	var states []watch.State
	items, err := c.Collect(context.Background(), func(s watch.State) { states = append(states, s) })

	require.NoError(t, err)
	assert.Equal(t, []entity.Item{
		{ID: "https://www.pararius.nl/a", Title: "Flat A"},
		{ID: "https://www.pararius.nl/b", Title: "Flat B"},
	}, items)
	assert.Equal(t, []watch.State{watch.StateFetching, watch.StateExtracting}, states)
}

func TestTargetCollector_ConcurrentTargetsJoinInConfiguredOrder(t *testing.T) {
	f := &mapFetcher{payloads: map[string]string{
		"https://www.pararius.nl/huurwoningen/rotterdam": listingPage,
		"https://blog.example.com/feed.xml":              feedDoc,
	}}
	targets := []entity.Target{
		{Name: "blog", URL: "https://blog.example.com/feed.xml", Kind: entity.KindRSS},
		htmlTarget("https://www.pararius.nl/huurwoningen/rotterdam"),
	}
	c, err := watch.NewTargetCollectorFromTargets(f, targets)
	require.NoError(t, err)

	items, err := c.Collect(context.Background(), noStates)

	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "https://blog.example.com/1", items[0].ID)
	assert.Equal(t, "https://www.pararius.nl/a", items[1].ID)
	assert.Len(t, f.callLog(), 2)
}

func TestTargetCollector_OneFailingTargetFailsTheRun(t *testing.T) {
	fetchErr := &entity.RequestError{Kind: entity.KindHTTPStatus, StatusCode: 503, Attempt: 3}
	f := &mapFetcher{
		payloads: map[string]string{"https://a.example.com": listingPage},
		errs:     map[string]error{"https://b.example.com": fetchErr},
	}
	c := watch.NewTargetCollector(f,
		watch.Source{Name: "a", Request: entity.Request{URL: "https://a.example.com"}},
		watch.Source{Name: "b", Request: entity.Request{URL: "https://b.example.com"}},
	)

	_, err := c.Collect(context.Background(), noStates)
	assert.ErrorIs(t, err, fetchErr)
}

func TestTargetCollector_NoTargets(t *testing.T) {
	_, err := watch.NewTargetCollector(&mapFetcher{}).Collect(context.Background(), noStates)
	assert.ErrorIs(t, err, watch.ErrNoTargets)
}

func TestContributorsCollector_TwoDependentCalls(t *testing.T) {
	f := &mapFetcher{payloads: map[string]string{
		"https://api.github.com/repos/PrefectHQ/prefect": `{"full_name":"PrefectHQ/prefect",
			"contributors_url":"https://api.github.com/repos/PrefectHQ/prefect/contributors"}`,
		"https://api.github.com/repos/PrefectHQ/prefect/contributors": `[
			{"login":"octocat","html_url":"https://github.com/octocat","contributions":12}]`,
	}}
	c := watch.NewContributorsCollector(f, "https://api.github.com/", "PrefectHQ", "prefect")

	var states []watch.State
	items, err := c.Collect(context.Background(), func(s watch.State) { states = append(states, s) })

	require.NoError(t, err)
	assert.Equal(t, []entity.Item{{ID: "https://github.com/octocat", Title: "octocat (12 contributions)"}}, items)
	assert.Equal(t, []string{
		"https://api.github.com/repos/PrefectHQ/prefect",
		"https://api.github.com/repos/PrefectHQ/prefect/contributors",
	}, f.callLog())
	assert.Equal(t, []watch.State{
		watch.StateFetching, watch.StateExtracting, watch.StateFetching, watch.StateExtracting,
	}, states)
}

func TestContributorsCollector_SeparateContributorsFetcher(t *testing.T) {
	repo := &mapFetcher{payloads: map[string]string{
		"https://api.github.com/repos/o/n": `{"full_name":"o/n","contributors_url":"https://api.github.com/repos/o/n/contributors"}`,
	}}
	contrib := &mapFetcher{payloads: map[string]string{
		"https://api.github.com/repos/o/n/contributors": `[{"login":"octocat","html_url":"https://github.com/octocat","contributions":1}]`,
	}}
	c := watch.NewContributorsCollector(repo, "https://api.github.com", "o", "n").WithContributorsFetcher(contrib)

	items, err := c.Collect(context.Background(), noStates)

	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, []string{"https://api.github.com/repos/o/n"}, repo.callLog())
	assert.Equal(t, []string{"https://api.github.com/repos/o/n/contributors"}, contrib.callLog())
}

func TestContributorsCollector_FirstCallFailureSkipsSecond(t *testing.T) {
	repoErr := &entity.RequestError{Kind: entity.KindHTTPStatus, StatusCode: 404, Attempt: 1}
	f := &mapFetcher{errs: map[string]error{"https://api.github.com/repos/o/n": repoErr}}
	c := watch.NewContributorsCollector(f, "https://api.github.com", "o", "n")

	_, err := c.Collect(context.Background(), noStates)

	assert.ErrorIs(t, err, repoErr)
	assert.Len(t, f.callLog(), 1)
}

func TestContributorsCollector_MissingContributorsURL(t *testing.T) {
	f := &mapFetcher{payloads: map[string]string{"https://api.github.com/repos/o/n": `{"full_name":"o/n"}`}}
	c := watch.NewContributorsCollector(f, "https://api.github.com", "o", "n")

	_, err := c.Collect(context.Background(), noStates)

	var extractionErr *entity.ExtractionError
	assert.True(t, errors.As(err, &extractionErr))
	assert.Len(t, f.callLog(), 1)
}

// End to end over HTTP with the real fetcher and the file store.
func TestRun_EndToEndWithFileStore(t *testing.T) {
	page := listingPage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	cfg := fetcher.DefaultConfig()
	cfg.DenyPrivateIPs = false
	cfg.RateLimit = 0
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = time.Millisecond
	f := fetcher.New(cfg, fetcher.WithoutCircuitBreaker())

	target := entity.Target{URL: srv.URL, Kind: entity.KindHTML, Scraper: &entity.ScraperConfig{
		ItemSelector: "li.search-list__item--listing",
		URLSelector:  "a.listing-search-item__link",
		URLPrefix:    "https://www.pararius.nl",
	}}
	require.NoError(t, target.Validate())
	collector, err := watch.NewTargetCollectorFromTargets(f, []entity.Target{target})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "known_items.json")
	store := file.NewChangeStore(path)
	notifier := &recordingNotifier{}
	svc, err := watch.NewService(collector, store, notifier, watch.Config{Job: "listings"}, nil)
	require.NoError(t, err)

	first, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, first.NewItems, 2)

	second, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, second.NothingNew)
	assert.Len(t, notifier.batches, 1)

	known, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://www.pararius.nl/a", "https://www.pararius.nl/b"}, known.IDs())
}
