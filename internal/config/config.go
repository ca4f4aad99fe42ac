// Package config builds the process configuration from the environment.
//
// Load reads an optional .env file, then every variable through the
// fail-open loaders of internal/pkg/config: an invalid value is logged,
// counted and replaced by its default. Only problems that make a run
// impossible are errors: missing credentials of an enabled channel, an
// unusable store backend and an unreadable targets file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"deltawatch/internal/domain/entity"
	"deltawatch/internal/infra/fetcher"
	"deltawatch/internal/infra/notifier"
	pkgconfig "deltawatch/internal/pkg/config"
)

// Store backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config is the complete configuration of one process.
type Config struct {
	Fetch   fetcher.Config
	Store   StoreConfig
	Email   notifier.EmailConfig
	Slack   notifier.SlackConfig
	Discord notifier.DiscordConfig
	Run     RunConfig
	Repo    RepoConfig
	Targets []entity.Target

	// NotifyMaxConcurrent bounds deliveries in flight.
	NotifyMaxConcurrent int
}

// StoreConfig selects where the known set of the listing job lives.
type StoreConfig struct {
	Backend     string
	Path        string
	DatabaseURL string
	Key         string
}

// RunConfig tunes the orchestrator.
type RunConfig struct {
	Timeout            time.Duration
	NotifyFailureFatal bool
}

// RepoConfig configures contributor polling of a repository API.
type RepoConfig struct {
	APIURL      string
	Token       string
	Owner       string
	Name        string
	MaxAttempts int
	StorePath   string
	StoreKey    string
}

// Enabled reports whether a repository is configured.
func (r RepoConfig) Enabled() bool {
	return r.Owner != "" && r.Name != ""
}

// Load reads .env (without overriding set variables) and the environment.
// metrics may be nil.
func Load(logger *slog.Logger, metrics *pkgconfig.ConfigMetrics) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Could not read .env file", slog.Any("error", err))
	}
	return FromEnv(logger, metrics)
}

// FromEnv builds the configuration from the current environment only.
func FromEnv(logger *slog.Logger, metrics *pkgconfig.ConfigMetrics) (*Config, error) {
	l := pkgconfig.NewLoader(logger, metrics)
	defer l.Finish()

	cfg := &Config{
		Fetch: fetcher.LoadConfigFromEnv(l),
		Store: StoreConfig{
			Backend:     l.String("STORE_BACKEND", BackendFile, pkgconfig.ValidateOneOf(BackendFile, BackendPostgres)),
			Path:        pkgconfig.LoadEnvString("STORE_PATH", "known_items.json"),
			DatabaseURL: pkgconfig.LoadEnvString("DATABASE_URL", ""),
			Key:         pkgconfig.LoadEnvString("STORE_KEY", "listings"),
		},
		Run: RunConfig{
			Timeout: l.Duration("RUN_TIMEOUT", 5*time.Minute, func(d time.Duration) error {
				return pkgconfig.ValidateDuration(d, 10*time.Second, 2*time.Hour)
			}),
			NotifyFailureFatal: l.Bool("NOTIFY_FAILURE_FATAL", false),
		},
		Repo: RepoConfig{
			APIURL:      l.String("GITHUB_API_URL", "https://api.github.com", pkgconfig.ValidateHTTPURL),
			Token:       pkgconfig.LoadEnvString("GITHUB_TOKEN", ""),
			Owner:       pkgconfig.LoadEnvString("REPO_OWNER", ""),
			Name:        pkgconfig.LoadEnvString("REPO_NAME", ""),
			MaxAttempts: l.Int("REPO_MAX_ATTEMPTS", 2, func(v int) error { return pkgconfig.ValidateIntRange(v, 1, 10) }),
			StorePath:   pkgconfig.LoadEnvString("REPO_STORE_PATH", "known_contributors.json"),
			StoreKey:    pkgconfig.LoadEnvString("REPO_STORE_KEY", "contributors"),
		},
		NotifyMaxConcurrent: l.Int("NOTIFY_MAX_CONCURRENT", 3, func(v int) error { return pkgconfig.ValidateIntRange(v, 1, 50) }),
	}

	cfg.Email = loadEmail(l)
	cfg.Slack = notifier.SlackConfig{
		Enabled:    l.Bool("SLACK_ENABLED", false),
		WebhookURL: pkgconfig.LoadEnvString("SLACK_WEBHOOK_URL", ""),
		Timeout:    l.Duration("SLACK_TIMEOUT", 10*time.Second, pkgconfig.ValidatePositiveDuration),
	}
	cfg.Discord = notifier.DiscordConfig{
		Enabled:    l.Bool("DISCORD_ENABLED", false),
		WebhookURL: pkgconfig.LoadEnvString("DISCORD_WEBHOOK_URL", ""),
		Timeout:    l.Duration("DISCORD_TIMEOUT", 10*time.Second, pkgconfig.ValidatePositiveDuration),
	}

	targets, err := loadTargetsFromEnv()
	if err != nil {
		return nil, err
	}
	cfg.Targets = targets

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEmail(l *pkgconfig.Loader) notifier.EmailConfig {
	username := pkgconfig.LoadEnvString("SMTP_USERNAME", "")
	return notifier.EmailConfig{
		Enabled:    l.Bool("EMAIL_ENABLED", true),
		Host:       pkgconfig.LoadEnvString("SMTP_HOST", "smtp.gmail.com"),
		Port:       l.Int("SMTP_PORT", 587, func(v int) error { return pkgconfig.ValidateIntRange(v, 1, 65535) }),
		Username:   username,
		Password:   pkgconfig.LoadEnvString("SMTP_PASSWORD", ""),
		From:       pkgconfig.LoadEnvString("SMTP_FROM", username),
		Recipients: l.StringList("SMTP_RECIPIENTS", nil, pkgconfig.ValidateEmailList),
		Subject:    pkgconfig.LoadEnvString("SMTP_SUBJECT", ""),
		Timeout:    l.Duration("SMTP_TIMEOUT", 30*time.Second, pkgconfig.ValidatePositiveDuration),
	}
}

// loadTargetsFromEnv reads TARGETS_FILE, or builds a single target from
// TARGET_URL and TARGET_KIND.
func loadTargetsFromEnv() ([]entity.Target, error) {
	if path := os.Getenv("TARGETS_FILE"); path != "" {
		return LoadTargets(path)
	}
	url := os.Getenv("TARGET_URL")
	if url == "" {
		return nil, nil
	}
	t := entity.Target{URL: url, Kind: entity.TargetKind(os.Getenv("TARGET_KIND"))}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("TARGET_URL: %w", err)
	}
	return []entity.Target{t}, nil
}

// Validate reports every configuration problem that prevents a run.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Fetch.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("fetch: %w", err))
	}

	switch c.Store.Backend {
	case BackendFile:
		if c.Store.Path == "" {
			errs = append(errs, errors.New("STORE_PATH is required for the file store"))
		}
	case BackendPostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	}

	if c.Email.Enabled {
		if c.Email.Username == "" || c.Email.Password == "" {
			errs = append(errs, errors.New("SMTP_USERNAME and SMTP_PASSWORD are required when email is enabled"))
		}
		if len(c.Email.Recipients) == 0 {
			errs = append(errs, errors.New("SMTP_RECIPIENTS is required when email is enabled"))
		}
	}
	if c.Slack.Enabled && c.Slack.WebhookURL == "" {
		errs = append(errs, errors.New("SLACK_WEBHOOK_URL is required when slack is enabled"))
	}
	if c.Discord.Enabled && c.Discord.WebhookURL == "" {
		errs = append(errs, errors.New("DISCORD_WEBHOOK_URL is required when discord is enabled"))
	}

	return errors.Join(errs...)
}

// LogSummary logs the effective configuration with secrets masked.
func (c *Config) LogSummary(logger *slog.Logger) {
	targets := make([]string, 0, len(c.Targets))
	for _, t := range c.Targets {
		targets = append(targets, t.Name)
	}
	logger.Info("Configuration loaded",
		slog.String("store_backend", c.Store.Backend),
		slog.String("store_path", c.Store.Path),
		slog.String("database_url", MaskURL(c.Store.DatabaseURL)),
		slog.String("targets", strings.Join(targets, ",")),
		slog.Bool("email_enabled", c.Email.Enabled),
		slog.String("smtp_host", c.Email.Host),
		slog.Int("smtp_port", c.Email.Port),
		slog.String("smtp_username", c.Email.Username),
		slog.String("smtp_password", Mask(c.Email.Password)),
		slog.Int("smtp_recipients", len(c.Email.Recipients)),
		slog.Bool("slack_enabled", c.Slack.Enabled),
		slog.Bool("discord_enabled", c.Discord.Enabled),
		slog.Int("fetch_max_attempts", c.Fetch.MaxAttempts),
		slog.Duration("run_timeout", c.Run.Timeout),
		slog.Bool("notify_failure_fatal", c.Run.NotifyFailureFatal),
		slog.Bool("repo_enabled", c.Repo.Enabled()),
		slog.String("github_token", Mask(c.Repo.Token)))
}
