package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/ozanyurtsever/promopipe/internal/common"
	"github.com/ozanyurtsever/promopipe/internal/llm"
	"github.com/ozanyurtsever/promopipe/internal/service"
	"github.com/ozanyurtsever/promopipe/internal/storage"
)

// initStore opens the configured database and runs migrations.
func initStore(ctx context.Context) (service.Store, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "~/.local/share/promopipe/promopipe.db"
	}
	dbPath = common.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// llmConfig assembles the extraction service settings from config keys.
func llmConfig() llm.Config {
	return llm.Config{
		Endpoint:     viper.GetString("llm.endpoint"),
		APIKey:       viper.GetString("llm.api_key"),
		Model:        viper.GetString("llm.model"),
		Temperature:  viper.GetFloat64("llm.temperature"),
		MaxTokens:    viper.GetInt("llm.max_tokens"),
		MinInterval:  viper.GetDuration("llm.min_interval"),
		BaseDelay:    viper.GetDuration("llm.base_delay"),
		MaxThrottled: viper.GetInt("llm.max_throttled"),
		MaxMalformed: viper.GetInt("llm.max_malformed"),
	}
}

// initClient builds the rate-limited extraction service client.
func initClient(logger *slog.Logger) (*llm.RateLimitedClient, error) {
	cfg := llmConfig()
	provider, err := llm.NewHTTPProvider(cfg)
	if err != nil {
		return nil, err
	}
	return llm.NewRateLimitedClient(provider, cfg, logger), nil
}

// masterTTL reads the master data refresh interval, defaulting inside the
// repository when unset.
func masterTTL() time.Duration {
	return viper.GetDuration("master.ttl")
}
