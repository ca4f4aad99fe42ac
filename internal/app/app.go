// Package app wires configuration into runnable jobs.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"deltawatch/internal/config"
	"deltawatch/internal/infra/adapter/persistence/file"
	"deltawatch/internal/infra/adapter/persistence/postgres"
	"deltawatch/internal/infra/db"
	"deltawatch/internal/infra/fetcher"
	"deltawatch/internal/repository"
	"deltawatch/internal/resilience/retry"
	"deltawatch/internal/usecase/notify"
	"deltawatch/internal/usecase/watch"
)

// Job names.
const (
	JobListings     = "listings"
	JobContributors = "contributors"
)

// ErrNoJobs is returned when neither targets nor a repository are configured.
var ErrNoJobs = errors.New("nothing to watch: set TARGETS_FILE, TARGET_URL or REPO_OWNER and REPO_NAME")

// App holds the shared dependencies of every job.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	fetcher  *fetcher.Fetcher
	notifier notify.Service
	db       *sql.DB
}

// New builds the shared dependencies. With the postgres backend it opens the
// pool and applies migrations; Close releases it.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	notifier, err := NewNotifyService(cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		logger:   logger,
		fetcher:  fetcher.New(cfg.Fetch, fetcher.WithLogger(logger)),
		notifier: notifier,
	}

	if cfg.Store.Backend == config.BackendPostgres {
		database, err := db.Open(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.MigrateUp(ctx, database); err != nil {
			_ = database.Close()
			return nil, err
		}
		a.db = database
	}
	return a, nil
}

// NewNotifyService builds the notification service over every configured channel.
func NewNotifyService(cfg *config.Config, logger *slog.Logger) (notify.Service, error) {
	var channels []notify.Channel

	if cfg.Email.Enabled {
		ch, err := notify.NewEmailChannel(cfg.Email)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	if cfg.Slack.Enabled {
		channels = append(channels, notify.NewSlackChannel(cfg.Slack))
	}
	if cfg.Discord.Enabled {
		channels = append(channels, notify.NewDiscordChannel(cfg.Discord))
	}

	svc := notify.NewServiceWithOptions(channels, notify.Options{
		MaxConcurrent: cfg.NotifyMaxConcurrent,
		Logger:        logger,
	})
	logger.Info("notification service initialized",
		slog.Int("channels", svc.EnabledChannels()),
		slog.Int("max_concurrent", cfg.NotifyMaxConcurrent))
	return svc, nil
}

// Notifier returns the shared notification service.
func (a *App) Notifier() notify.Service {
	return a.notifier
}

// Close releases the database pool, if any.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Jobs returns every configured job.
func (a *App) Jobs() ([]*watch.Service, error) {
	var jobs []*watch.Service
	if len(a.cfg.Targets) > 0 {
		svc, err := a.ListingJob()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, svc)
	}
	if a.cfg.Repo.Enabled() {
		svc, err := a.RepoJob()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, svc)
	}
	if len(jobs) == 0 {
		return nil, ErrNoJobs
	}
	return jobs, nil
}

// ListingJob builds the job polling the configured targets.
func (a *App) ListingJob() (*watch.Service, error) {
	if len(a.cfg.Targets) == 0 {
		return nil, watch.ErrNoTargets
	}
	collector, err := watch.NewTargetCollectorFromTargets(a.fetcher, a.cfg.Targets)
	if err != nil {
		return nil, err
	}
	store := a.Store(a.cfg.Store.Path, a.cfg.Store.Key)
	return a.newJob(JobListings, collector, store)
}

// RepoJob builds the contributors job for the configured repository without
// touching the listing targets.
func (a *App) RepoJob() (*watch.Service, error) {
	if !a.cfg.Repo.Enabled() {
		return nil, fmt.Errorf("%w: REPO_OWNER and REPO_NAME are not set", watch.ErrNoTargets)
	}
	return a.ContributorsJob(a.cfg.Repo.Owner, a.cfg.Repo.Name)
}

// ContributorsJob builds the job polling the contributors of owner/name.
// Both calls carry GITHUB_TOKEN. The repository call is bounded by
// REPO_MAX_ATTEMPTS; the contributors call uses the fetch policy.
func (a *App) ContributorsJob(owner, name string) (*watch.Service, error) {
	if owner == "" || name == "" {
		return nil, fmt.Errorf("%w: repository owner and name are required", watch.ErrNoTargets)
	}
	client := fetcher.NewTokenClient(fetcher.NewHTTPClient(a.cfg.Fetch), a.cfg.Repo.Token)
	repoFetcher := fetcher.New(a.cfg.Fetch,
		fetcher.WithLogger(a.logger),
		fetcher.WithHTTPClient(client),
		fetcher.WithPolicy(retry.Policy{
			MaxAttempts: a.cfg.Repo.MaxAttempts,
			Backoff:     retry.Fixed{Wait: 2 * time.Second},
		}))
	contribFetcher := fetcher.New(a.cfg.Fetch,
		fetcher.WithLogger(a.logger),
		fetcher.WithHTTPClient(client))

	collector := watch.NewContributorsCollector(repoFetcher, a.cfg.Repo.APIURL, owner, name).
		WithContributorsFetcher(contribFetcher)
	store := a.Store(a.cfg.Repo.StorePath, a.cfg.Repo.StoreKey+":"+owner+"/"+name)
	return a.newJob(JobContributors, collector, store)
}

// Store returns the change store for a job: a JSON file at path, or the
// rows under key with the postgres backend.
func (a *App) Store(path, key string) repository.ChangeStore {
	if a.db != nil {
		return postgres.NewChangeStore(a.db, key)
	}
	return file.NewChangeStore(path)
}

func (a *App) newJob(name string, collector watch.Collector, store repository.ChangeStore) (*watch.Service, error) {
	return watch.NewService(collector, store, a.notifier, watch.Config{
		Job:                name,
		RunTimeout:         a.cfg.Run.Timeout,
		NotifyFailureFatal: a.cfg.Run.NotifyFailureFatal,
	}, a.logger.With(slog.String("job", name)))
}
