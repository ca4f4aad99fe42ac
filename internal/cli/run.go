package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"deltawatch/internal/app"
	"deltawatch/internal/config"
	"deltawatch/internal/usecase/watch"
)

func runCmd(opts *rootOptions) *cobra.Command {
	var job string
	var format string

	c := &cobra.Command{
		Use:   "run",
		Short: "Run the configured jobs once",
		Long: "Run every configured job once: fetch, extract, diff against the store,\n" +
			"notify about new items and save. Exits with status 1 if any run failed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			logger := opts.logger(cmd)

			cfg, err := config.Load(logger, nil)
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			a, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			jobs, err := selectJobs(a, job)
			if err != nil {
				return err
			}
			return runJobs(cmd, jobs, format)
		},
	}

	c.Flags().StringVarP(&job, "job", "j", "", "run only this job: listings or contributors")
	c.Flags().StringVarP(&format, "output", "o", formatText, "output format: text or json")
	return c
}

func repoCmd(opts *rootOptions) *cobra.Command {
	var owner, name, format string

	c := &cobra.Command{
		Use:   "repo",
		Short: "Poll the contributors of one repository once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			logger := opts.logger(cmd)

			cfg, err := config.Load(logger, nil)
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			a, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			svc, err := a.ContributorsJob(owner, name)
			if err != nil {
				return err
			}
			return runJobs(cmd, []*watch.Service{svc}, format)
		},
	}

	c.Flags().StringVar(&owner, "owner", "", "repository owner (required)")
	c.Flags().StringVar(&name, "name", "", "repository name (required)")
	c.Flags().StringVarP(&format, "output", "o", formatText, "output format: text or json")
	_ = c.MarkFlagRequired("owner")
	_ = c.MarkFlagRequired("name")
	return c
}

func selectJobs(a *app.App, job string) ([]*watch.Service, error) {
	switch job {
	case "":
		return a.Jobs()
	case app.JobListings:
		svc, err := a.ListingJob()
		if err != nil {
			return nil, err
		}
		return []*watch.Service{svc}, nil
	case app.JobContributors:
		svc, err := a.RepoJob()
		if err != nil {
			return nil, err
		}
		return []*watch.Service{svc}, nil
	default:
		return nil, fmt.Errorf("unknown job %q: expected %s or %s", job, app.JobListings, app.JobContributors)
	}
}

// runJobs runs each job in turn, prints every result and fails if any run failed.
func runJobs(cmd *cobra.Command, jobs []*watch.Service, format string) error {
	failed := 0
	for _, svc := range jobs {
		result, err := svc.Run(cmd.Context())
		if perr := printResult(cmd.OutOrStdout(), result, err, format); perr != nil {
			return perr
		}
		if result.ExitCode() != 0 {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d run(s) failed", failed, len(jobs))
	}
	return nil
}
