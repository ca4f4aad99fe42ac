package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"deltawatch/internal/app"
	"deltawatch/internal/config"
)

func checkCmd(opts *rootOptions) *cobra.Command {
	var format string

	c := &cobra.Command{
		Use:   "check",
		Short: "Fetch and extract every target without touching the store or notifying",
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
			if len(cfg.Targets) == 0 {
				return fmt.Errorf("no targets: set TARGETS_FILE or TARGET_URL")
			}
			a, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			reports := a.Check(cmd.Context())
			if err := printReports(cmd, reports, format); err != nil {
				return err
			}

			failed := 0
			for _, r := range reports {
				if !r.OK() {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d target(s) yielded no items", failed, len(reports))
			}
			return nil
		},
	}

	c.Flags().StringVarP(&format, "output", "o", formatText, "output format: text or json")
	return c
}

func printReports(cmd *cobra.Command, reports []app.TargetReport, format string) error {
	w := cmd.OutOrStdout()
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TARGET\tSTATUS\tHTTP\tITEMS\tTIME\tERROR")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%dms\t%s\n", r.Name, r.Status, r.StatusCode, r.Items, r.DurationMS, r.Error)
	}
	return tw.Flush()
}
