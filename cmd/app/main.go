package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/vidunpack/internal"
	"github.com/starford/vidunpack/internal/mcpserver"
	"github.com/starford/vidunpack/internal/media"
	"github.com/starford/vidunpack/internal/storage"
	"github.com/starford/vidunpack/internal/store"
	"github.com/starford/vidunpack/internal/vidservice"
	pkgconfig "github.com/starford/vidunpack/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")
	cfg := internal.NewDefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	return cfg, nil
}

// runMCP serves the project tools over MCP stdio instead of HTTP.
func runMCP(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	fs, err := storage.NewFS(cfg.Data.Dir)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	tools := media.Detect(cfg.Tools)
	svc := vidservice.NewService(fs, db, tools, media.NewRunner(cfg.Data.MaxConcurrentTools), nil)
	return mcpserver.New(svc, fs).ServeStdio()
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "vidunpack",
		Usage:  "Local backend that unpacks videos into clips, audio, thumbnails, and exportable project bundles",
		Action: run,
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve the project tools over MCP on stdin/stdout",
				Action: runMCP,
			},
		},
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
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
