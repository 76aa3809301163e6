package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/SergeyParamoshkin/issueblog/internal/model"
	"github.com/SergeyParamoshkin/issueblog/internal/source"
)

var (
	flagFetchAll   bool
	flagFetchPage  int
	flagFetchQuery string
	flagFetchLabel string
	flagFetchJSON  bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "List or search articles from the command line",
	Long: `Print one page of articles, every article (--all) or the articles matching
a keyword (--q). Searches and --all go through the snapshot cache, so with
cache.path set a second run within the TTL does not call GitHub.`,
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

		q := source.Query{Labels: source.ParseLabels(flagFetchLabel)}
		repo := cfg.GitHub.Repo

		var articles []model.Article
		switch {
		case flagFetchAll:
			articles, err = a.blog.All(ctx, repo, q)
		default:
			articles, _, err = a.blog.Search(ctx, repo, flagFetchPage, flagFetchQuery, q)
		}
		if err != nil {
			return fmt.Errorf("fetching articles: %w", err)
		}

		if flagFetchJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			return enc.Encode(articles)
		}

		return printArticles(cmd.OutOrStdout(), articles)
	},
}

func printArticles(out io.Writer, articles []model.Article) error {
	if len(articles) == 0 {
		fmt.Fprintln(out, "No articles.")

		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tTITLE\tLABELS\tCREATED")
	for _, a := range articles {
		created := ""
		if !a.CreatedAt.IsZero() {
			created = a.CreatedAt.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", a.Number, a.Title, strings.Join(a.LabelNames(), ","), created)
	}

	return w.Flush()
}

func init() {
	fetchCmd.Flags().BoolVar(&flagFetchAll, "all", false, "print every article")
	fetchCmd.Flags().IntVar(&flagFetchPage, "page", 1, "page to print")
	fetchCmd.Flags().StringVar(&flagFetchQuery, "q", "", "keyword to search for")
	fetchCmd.Flags().StringVar(&flagFetchLabel, "label", "", "comma separated labels to filter by")
	fetchCmd.Flags().BoolVar(&flagFetchJSON, "json", false, "print JSON instead of a table")
}
