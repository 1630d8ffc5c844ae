package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/viewsmith/viewsmith/internal/config"
	"github.com/viewsmith/viewsmith/internal/state"
	"github.com/viewsmith/viewsmith/internal/syncer"
	"github.com/viewsmith/viewsmith/internal/watcher"
	"github.com/viewsmith/viewsmith/pkg/generator"
	"github.com/viewsmith/viewsmith/pkg/parser"
)

type configKey struct{}
type loggerKey struct{}

// WithConfig stores the loaded configuration in the command context.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	return cfg
}

// WithLogger stores the logger in the command context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// newParser builds a parser from the configuration.
func newParser(cfg *config.Config) *parser.Parser {
	return parser.NewWithOptions(parser.Options{QueryTags: cfg.QueryTags})
}

// newEngine assembles the full sync stack from the configuration: the
// state store, the watcher and the sync engine. The returned cleanup
// closes everything.
func newEngine(ctx context.Context, cfg *config.Config, withWatch bool) (*syncer.Engine, func(), error) {
	logger := GetLogger(ctx)

	stateDir := filepath.Dir(cfg.StatePath)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	store := state.NewSQLiteStore()
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to initialize state store: %w", err)
	}

	var w *watcher.Watcher
	if withWatch {
		var err error
		w, err = watcher.New(cfg.ComponentsDir, cfg.Extension, logger)
		if err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("failed to create watcher: %w", err)
		}
	}

	eng, err := syncer.New(syncer.Config{
		ComponentsDir: cfg.ComponentsDir,
		Extension:     cfg.Extension,
		Debounce:      cfg.Debounce(),
		Parser:        newParser(cfg),
		Generator:     generator.New(),
		Watcher:       w,
		Journal:       store,
		Logger:        logger,
	})
	if err != nil {
		if w != nil {
			w.Close()
		}
		_ = store.Close()
		return nil, nil, err
	}

	cleanup := func() {
		eng.Close()
		_ = store.Close()
	}
	return eng, cleanup, nil
}
