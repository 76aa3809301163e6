package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/issueblog/internal/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagConfig string
	flagDebug  bool
	flagRepo   string
)

var rootCmd = &cobra.Command{
	Use:   "issueblog",
	Short: "Blog backend that publishes GitHub issues as articles",
	Long: `issueblog serves the issues of one GitHub repository as blog articles:
paged listing, keyword search over a cached snapshot, categories and a
table of contents for every article.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagRepo, "repo", "", "repository to read, overriding github.repo")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(tocCmd)
	rootCmd.AddCommand(labelsCmd)
	rootCmd.AddCommand(routesCmd)
	rootCmd.AddCommand(cacheCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "issueblog %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

// loadConfig reads the config and applies the persistent flags on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if flagDebug {
		cfg.Debug = true
	}
	if flagRepo != "" {
		cfg.GitHub.Repo = flagRepo
	}

	return cfg, nil
}

// newLogger builds the process logger and installs it as the global one.
// The returned func flushes it.
func newLogger(debug bool) (*zap.SugaredLogger, func(), error) {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("building logger: %w", err)
	}

	undo := zap.ReplaceGlobals(logger)

	return logger.Sugar(), func() {
		_ = logger.Sync() // flushes buffer, if any
		undo()
	}, nil
}
