package watch_test

import (
	"context"
	"sync"

	"deltawatch/internal/domain/entity"
	"deltawatch/internal/usecase/watch"
)

// memStore is an in-memory ChangeStore.
type memStore struct {
	mu      sync.Mutex
	ids     []string
	loadErr error
	saveErr error
	loads   int
	saves   int
	events  *[]string
}

func newMemStore(ids ...string) *memStore {
	return &memStore{ids: ids}
}

func (m *memStore) Load(context.Context) (*entity.KnownSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return entity.NewKnownSet(m.ids...), nil
}

func (m *memStore) Save(_ context.Context, known *entity.KnownSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.events != nil {
		*m.events = append(*m.events, "save")
	}
	if m.saveErr != nil {
		return m.saveErr
	}
	m.ids = known.IDs()
	return nil
}

func (m *memStore) snapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return entity.NewKnownSet(m.ids...).IDs()
}

// recordingNotifier records batches and returns err.
type recordingNotifier struct {
	batches []entity.NotificationBatch
	err     error
	events  *[]string
}

func (n *recordingNotifier) Notify(_ context.Context, batch entity.NotificationBatch) error {
	n.batches = append(n.batches, batch)
	if n.events != nil {
		*n.events = append(*n.events, "notify")
	}
	return n.err
}

// staticCollector returns fixed items, walking the collecting states.
type staticCollector struct {
	items []entity.Item
	err   error
	calls int
	// failIn is the state the error is reported from.
	failIn watch.State
}

func (c *staticCollector) Collect(ctx context.Context, enter func(watch.State)) ([]entity.Item, error) {
	c.calls++
	enter(watch.StateFetching)
	if c.err != nil && c.failIn != watch.StateExtracting {
		return nil, c.err
	}
	enter(watch.StateExtracting)
	if c.err != nil {
		return nil, c.err
	}
	return c.items, nil
}

// blockingCollector waits for ctx to end.
type blockingCollector struct{}

func (blockingCollector) Collect(ctx context.Context, enter func(watch.State)) ([]entity.Item, error) {
	enter(watch.StateFetching)
	<-ctx.Done()
	return nil, ctx.Err()
}

// mapFetcher serves payloads by URL and records the call order.
type mapFetcher struct {
	mu       sync.Mutex
	payloads map[string]string
	errs     map[string]error
	calls    []string
}

func (f *mapFetcher) Fetch(ctx context.Context, req entity.Request) (*entity.Payload, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.URL)
	err := f.errs[req.URL]
	body, ok := f.payloads[req.URL]
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &entity.RequestError{Kind: entity.KindHTTPStatus, StatusCode: 404, Attempt: 1}
	}
	return &entity.Payload{URL: req.URL, StatusCode: 200, Body: []byte(body), Attempts: 1}, nil
}

func (f *mapFetcher) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
