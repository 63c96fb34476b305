package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/frytempura/tempura/internal"
	"github.com/frytempura/tempura/internal/scaffold"
	pkgconfig "github.com/frytempura/tempura/pkg/config"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

// loadConfig parses the configured file and derives the project root from
// its location.
func loadConfig(cmd *cli.Command) (*internal.Config, string, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, filepath.Dir(configPath), nil
}

func runWatch(ctx context.Context, cmd *cli.Command) error {
	cfg, root, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithProjectRoot(root),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func runBuild(ctx context.Context, cmd *cli.Command) error {
	cfg, root, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	return internal.RunOnce(ctx, internal.WithConfig(cfg), internal.WithProjectRoot(root))
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, root, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithProjectRoot(root))
}

func runInit(_ context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		dir = "."
	}

	report, err := scaffold.Generate(dir)
	if err != nil {
		return fmt.Errorf("init project: %w", err)
	}

	for _, name := range report.Created {
		fmt.Printf("created %s\n", name)
	}
	for _, name := range report.Skipped {
		fmt.Printf("kept    %s\n", name)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "tempura",
		Usage:  "Watches typed user scripts, compiles them, and deploys the results into an Obsidian vault",
		Action: runWatch,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "tempura.config.json",
				Value:       "tempura.config.json",
				Sources:     cli.EnvVars("TEMPURA_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "init",
				Usage:     "Scaffold a script project in the given directory (current directory by default)",
				ArgsUsage: "[dir]",
				Action:    runInit,
			},
			{
				Name:   "build",
				Usage:  "Run a single build and deploy pass, then exit",
				Action: runBuild,
			},
			{
				Name:   "mcp",
				Usage:  "Serve build tools over the Model Context Protocol on stdin/stdout",
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
