package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "Print the categories in display order",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, flush, err := newLogger(cfg.Debug)
		if err != nil {
			return err
		}
		defer flush()

		a, err := newApp(cfg, logger, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.FetchTimeout())
		defer cancel()

		labels, err := a.blog.Labels(ctx, cfg.GitHub.Repo)
		if err != nil {
			return fmt.Errorf("fetching labels: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTITLE\tCOLOR")
		for _, l := range labels {
			fmt.Fprintf(w, "%s\t%s\t#%s\n", l.Name, l.Title, l.Color)
		}

		return w.Flush()
	},
}
