package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deltawatch/internal/domain/entity"
)

// fastWebhook removes waiting from a webhook so retries run instantly.
func fastWebhook(w *webhook) {
	w.baseDelay = time.Millisecond
	w.rateLimiter = NewRateLimiter(1000, 100)
}

func TestWebhook_StatusHandling(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantHits  int32
		wantErr   bool
		wantClass interface{}
	}{
		{name: "success", statuses: []int{200}, wantHits: 1},
		{name: "server error then success", statuses: []int{503, 204}, wantHits: 2},
		{name: "server error exhausts attempts", statuses: []int{500, 502}, wantHits: 2, wantErr: true, wantClass: &ServerError{}},
		{name: "client error is not retried", statuses: []int{404}, wantHits: 1, wantErr: true, wantClass: &ClientError{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&hits, 1)
				w.WriteHeader(tt.statuses[int(n)-1])
			}))
			defer srv.Close()

			wh := newWebhook("test", srv.URL, 5*time.Second, nil)
			fastWebhook(wh)

			err := wh.send(context.Background(), map[string]string{"text": "hi"}, 1)

			assert.Equal(t, tt.wantHits, atomic.LoadInt32(&hits))
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			switch tt.wantClass.(type) {
			case *ServerError:
				var target *ServerError
				assert.True(t, errors.As(err, &target))
			case *ClientError:
				var target *ClientError
				assert.True(t, errors.As(err, &target))
			}
		})
	}
}

func TestWebhook_RateLimitUsesRetryAfter(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"message":"slow down","retry_after":0.01}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := newWebhook("test", srv.URL, 5*time.Second, nil)
	fastWebhook(wh)

	require.NoError(t, wh.send(context.Background(), struct{}{}, 1))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestWebhook_ContextCanceledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	wh := newWebhook("test", srv.URL, 5*time.Second, nil)
	fastWebhook(wh)
	wh.baseDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := wh.send(ctx, struct{}{}, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExtractRetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		header string
		body   string
		want   time.Duration
	}{
		{name: "json body", body: `{"retry_after":2.5}`, want: 2500 * time.Millisecond},
		{name: "header", header: "3", want: 3 * time.Second},
		{name: "default", want: 5 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{Header: http.Header{}}
			if tt.header != "" {
				resp.Header.Set("Retry-After", tt.header)
			}
			assert.Equal(t, tt.want, extractRetryAfter(resp, []byte(tt.body)))
		})
	}
}

func captureServer(t *testing.T, into interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, into))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSlackNotifier_NotifyBatch(t *testing.T) {
	var got SlackWebhookPayload
	srv := captureServer(t, &got)

	n := NewSlackNotifier(SlackConfig{Enabled: true, WebhookURL: srv.URL, Timeout: 5 * time.Second})
	fastWebhook(n.webhook)

	batch := mustBatch(t,
		entity.Item{ID: "https://www.pararius.nl/a", Title: "Flat A"},
		entity.Item{ID: "octocat", Title: "octocat (12 contributions)"},
	)
	require.NoError(t, n.NotifyBatch(context.Background(), batch))

	assert.Equal(t, "2 new items found", got.Text)
	require.Len(t, got.Blocks, 3)
	assert.Equal(t, "*<https://www.pararius.nl/a|Flat A>*", got.Blocks[1].Text.Text)
	assert.Equal(t, "*octocat (12 contributions)*\noctocat", got.Blocks[2].Text.Text)
}

func TestSlackNotifier_OverflowBlock(t *testing.T) {
	items := make([]entity.Item, maxSlackItemBlocks+5)
	for i := range items {
		items[i] = entity.Item{ID: string(rune('a'+i%26)) + time.Duration(i).String()}
	}
	n := NewSlackNotifier(SlackConfig{WebhookURL: "http://unused"})

	payload := n.buildBlockKitPayload(mustBatch(t, items...))

	require.Len(t, payload.Blocks, maxSlackBlocks)
	last := payload.Blocks[len(payload.Blocks)-1]
	assert.Equal(t, "context", last.Type)
	assert.Equal(t, "and 5 more", last.Elements[0].Text)
}

func TestDiscordNotifier_NotifyBatch(t *testing.T) {
	var got DiscordWebhookPayload
	srv := captureServer(t, &got)

	n := NewDiscordNotifier(DiscordConfig{Enabled: true, WebhookURL: srv.URL, Timeout: 5 * time.Second})
	fastWebhook(n.webhook)

	batch := mustBatch(t,
		entity.Item{ID: "https://www.pararius.nl/a", Title: "Flat A"},
		entity.Item{ID: "octocat"},
	)
	require.NoError(t, n.NotifyBatch(context.Background(), batch))

	assert.Equal(t, "2 new items found", got.Content)
	require.Len(t, got.Embeds, 2)
	assert.Equal(t, "Flat A", got.Embeds[0].Title)
	assert.Equal(t, "https://www.pararius.nl/a", got.Embeds[0].URL)
	assert.Equal(t, "octocat", got.Embeds[1].Title)
	assert.Empty(t, got.Embeds[1].URL)
	assert.Equal(t, discordBlueColor, got.Embeds[0].Color)
}

func TestDiscordNotifier_EmbedLimit(t *testing.T) {
	items := make([]entity.Item, 12)
	for i := range items {
		items[i] = entity.Item{ID: time.Duration(i + 1).String(), Title: "item"}
	}
	n := NewDiscordNotifier(DiscordConfig{WebhookURL: "http://unused"})

	payload := n.buildEmbedPayload(mustBatch(t, items...))

	assert.Len(t, payload.Embeds, maxDiscordEmbeds)
	assert.Equal(t, "12 new items found (showing the first 10)", payload.Content)
}
