package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/FrankSpooren/HolidaiButler/internal/model"
	"github.com/FrankSpooren/HolidaiButler/internal/pipeline"
	"github.com/FrankSpooren/HolidaiButler/internal/store"
	"github.com/FrankSpooren/HolidaiButler/pkg/anthropic"
	"github.com/FrankSpooren/HolidaiButler/pkg/mistral"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.SQLitePath
		if path == "" {
			path = "holidai.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initPostgresStore is for commands that need transactional access
// (promotion and rollback), which SQLite does not serve.
func initPostgresStore(ctx context.Context) (*store.PostgresStore, error) {
	if cfg.Store.Driver != "postgres" {
		return nil, eris.Errorf("this command requires the postgres store, got driver %s", cfg.Store.Driver)
	}
	return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
}

// initTextClient builds the configured text completion backend.
func initTextClient() (pipeline.TextClient, error) {
	if err := cfg.ValidateProvider(); err != nil {
		return nil, err
	}
	switch cfg.Generation.Provider {
	case "mistral":
		opts := []mistral.Option{mistral.WithModel(cfg.Mistral.Model)}
		if cfg.Mistral.BaseURL != "" {
			opts = append(opts, mistral.WithBaseURL(cfg.Mistral.BaseURL))
		}
		return pipeline.NewMistralText(mistral.NewClient(cfg.Mistral.Key, opts...), cfg.Mistral.Model), nil
	case "anthropic":
		client := anthropic.NewClient(cfg.Anthropic.Key)
		return pipeline.NewAnthropicText(client, cfg.Anthropic.Model), nil
	default:
		return nil, eris.Errorf("unsupported generation provider: %s", cfg.Generation.Provider)
	}
}

func loadDestinations() (*model.Destinations, error) {
	return model.LoadDestinations(cfg.Destinations.Path)
}
