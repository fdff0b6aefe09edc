package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/grimoire/internal"
	pkgconfig "github.com/starford/grimoire/pkg/config"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

// loadConfig reads the config file. One-shot commands fall back to defaults
// when the file is missing; serve requires it.
func loadConfig(cmd *cli.Command, required bool) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	load := pkgconfig.LoadOptional[internal.Config]
	if required {
		load = pkgconfig.Load[internal.Config]
	}
	if err := load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if dirs := cmd.StringSlice("output"); len(dirs) > 0 {
		cfg.Output.Dirs = dirs
	}
	if v := cmd.String("vault"); v != "" {
		cfg.Vault.Path = v
	}
	return cfg, cfg.Validate()
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, true)
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

func convertFiles(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return fmt.Errorf("convert: at least one Markdown file is required")
	}
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	results, convErr := internal.ConvertFiles(ctx, cmd.Args().Slice(), internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
	for _, res := range results {
		if err := printResult(res); err != nil {
			return err
		}
	}
	if convErr != nil {
		return fmt.Errorf("convert: %w", convErr)
	}
	return nil
}

func resolve(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("resolve: exactly one URL is required")
	}
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	res, err := internal.ResolveURL(ctx, cmd.Args().First(), internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	return printResult(res)
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, internal.WithConfig(cfg))
}

func printResult(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	oneShotFlags := []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output directory, repeat for fallbacks (overrides config)",
		},
		&cli.StringFlag{
			Name:    "vault",
			Usage:   "Vault directory (overrides config)",
			Sources: cli.EnvVars("GRIMOIRE_VAULT"),
		},
	}

	cmd := &cli.Command{
		Name:   "grimoire",
		Usage:  "Convert Markdown adventure notes into themed HTML and PDF handouts",
		Action: serve,
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
				Name:   "serve",
				Usage:  "Run the HTTP API and inbox watcher",
				Action: serve,
			},
			{
				Name:      "convert",
				Usage:     "Convert Markdown files and print the results as JSON",
				ArgsUsage: "<file.md>...",
				Flags:     oneShotFlags,
				Action:    convertFiles,
			},
			{
				Name:      "resolve",
				Usage:     "Find the vault note a URL points at and convert it",
				ArgsUsage: "<url>",
				Flags:     oneShotFlags,
				Action:    resolve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve conversion tools over MCP stdio",
				Flags:  oneShotFlags,
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
