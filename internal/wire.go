package internal

import (
	"fmt"
	"log/slog"

	"github.com/starford/grimoire/internal/assemble"
	"github.com/starford/grimoire/internal/convert"
	"github.com/starford/grimoire/internal/index"
	"github.com/starford/grimoire/internal/output"
	"github.com/starford/grimoire/internal/vault"
)

// components holds everything built from the configuration.
type components struct {
	svc     *convert.Service
	db      *index.DB
	outputs *output.Chain
}

func (c *components) Close() error {
	return c.db.Close()
}

// buildComponents wires the assembler, output sinks, history database,
// optional vault resolver and optional PDF command into a conversion service.
func buildComponents(cfg *Config, logger *slog.Logger, events convert.EventCallback) (*components, error) {
	sinks := make([]output.Sink, 0, len(cfg.Output.Dirs))
	for _, dir := range cfg.Output.Dirs {
		s, err := output.NewDirSink(dir)
		if err != nil {
			return nil, fmt.Errorf("init output %s: %w", dir, err)
		}
		sinks = append(sinks, s)
	}
	chain := output.NewChain(logger, sinks...)

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init history: %w", err)
	}

	opts := []convert.Option{
		convert.WithHistory(db),
		convert.WithFallbackName(cfg.Output.FallbackName),
		convert.WithLogger(logger),
		convert.WithEvents(events),
	}

	if cfg.Vault.Enabled() {
		tree, err := vault.NewFSTree(cfg.Vault.Path)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("init vault: %w", err)
		}
		opts = append(opts, convert.WithResolver(vault.NewResolver(tree,
			vault.WithLogger(logger),
			vault.WithSuggestions(cfg.Vault.Suggestions),
		)))
	}

	if cfg.PDF.Enabled() {
		opts = append(opts, convert.WithRasterizer(
			output.NewCommandRasterizer(cfg.PDF.Command, cfg.PDF.Args, cfg.PDF.Timeout),
		))
	}

	asm := assemble.New(
		assemble.WithConvertLists(cfg.Render.ConvertLists),
		assemble.WithLogger(logger),
	)

	return &components{
		svc:     convert.NewService(asm, chain, opts...),
		db:      db,
		outputs: chain,
	}, nil
}
