package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SergeyParamoshkin/issueblog/internal/toc"
)

var flagTOCFile string

var tocCmd = &cobra.Command{
	Use:   "toc [number]",
	Short: "Print the table of contents of an article",
	Long: `Print the headings of an article with their anchors. The article is read
from GitHub by number, or from a local markdown file with --file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagTOCFile != "" {
			body, err := os.ReadFile(flagTOCFile)
			if err != nil {
				return fmt.Errorf("reading %s: %w", flagTOCFile, err)
			}
			printTOC(cmd.OutOrStdout(), toc.Build(string(body)))

			return nil
		}

		if len(args) != 1 {
			return fmt.Errorf("an article number or --file is required")
		}
		number, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid article number %q", args[0])
		}

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

		d, err := a.blog.Article(ctx, cfg.GitHub.Repo, number)
		if err != nil {
			return fmt.Errorf("fetching article %d: %w", number, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n", d.Article.Title)
		printTOC(cmd.OutOrStdout(), d.TOC)

		return nil
	},
}

// printTOC indents each entry by two spaces per IndentStep.
func printTOC(out io.Writer, entries []toc.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No headings.")

		return
	}
	for _, e := range entries {
		pad := strings.Repeat("  ", e.Indent/toc.IndentStep-1)
		fmt.Fprintf(out, "%s%s  %s\n", pad, e.Title, e.Href)
	}
}

func init() {
	tocCmd.Flags().StringVar(&flagTOCFile, "file", "", "read the article body from a markdown file")
}
