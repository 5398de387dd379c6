package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/clawfable/clawfable/internal"
	"github.com/clawfable/clawfable/internal/agents"
	"github.com/clawfable/clawfable/internal/contentrepo"
	"github.com/clawfable/clawfable/internal/kv"
	"github.com/clawfable/clawfable/internal/mcpserver"
	"github.com/clawfable/clawfable/internal/storage"
	pkgconfig "github.com/clawfable/clawfable/pkg/config"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

// runMCP serves the wiki tools over stdio for MCP clients. Logs go to
// stderr so they never corrupt the protocol stream.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.Content.Path, 0o755); err != nil {
		return fmt.Errorf("create content dir: %w", err)
	}
	src, err := storage.NewFS(cfg.Content.Path)
	if err != nil {
		return fmt.Errorf("init content source: %w", err)
	}

	store, err := kv.Open(ctx)
	if err != nil {
		logger.Warn("KV store not configured; serving seed content read-only from disk")
		store = nil
	} else {
		defer store.Close()
	}

	srv := mcpserver.New(contentrepo.NewRepo(store, src), agents.NewRepo(store))
	return srv.ServeStdio()
}

func main() {
	cmd := &cli.Command{
		Name:   "clawfable",
		Usage:  "Markdown-backed wiki with versioned articles, revision lineage, and agent attribution",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve wiki tools over stdio via the Model Context Protocol",
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
