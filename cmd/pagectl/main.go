package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/ozeweb/oze-website/pkg/pages"
	"github.com/ozeweb/oze-website/pkg/pages/config"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "pagectl",
		Short: "Manage the pages of the OZE website",
		Long: `pagectl inspects page schemas, validates and imports page fixtures,
revalidates stored pages and publishes scheduled pages.

Storage and database are read from the same environment as the server
(DATABASE_URL, STORAGE_URL, ...); a .env file in the working directory is
loaded first.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(NewSchemaCommand())
	rootCmd.AddCommand(NewValidateCommand())
	rootCmd.AddCommand(NewImportCommand())
	rootCmd.AddCommand(NewScanCommand())
	rootCmd.AddCommand(NewPublishScheduledCommand())
	rootCmd.AddCommand(NewRenderCommand())

	return rootCmd
}

// env bundles the service and the repository it was built on.
type env struct {
	service pages.Service
	repo    pages.Repository
	close   func()
}

func openEnv(ctx context.Context) (*env, error) {
	if err := godotenv.Load(".env"); err != nil {
		slog.Debug("No .env file loaded", "err", err)
	}

	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	repo, cleanup, err := cfg.BuildRepository(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	svc, err := cfg.BuildServiceWithRepository(ctx, repo)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to build service: %w", err)
	}
	return &env{service: svc, repo: repo, close: cleanup}, nil
}
