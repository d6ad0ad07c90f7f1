package main

import (
	"fmt"
	"net/http"

	"github.com/zulandar/dialwatch/internal/config"
	"github.com/zulandar/dialwatch/internal/db"
	"github.com/zulandar/dialwatch/internal/notify"
	"github.com/zulandar/dialwatch/internal/upstream"
	"gorm.io/gorm"
)

func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s database: %w", cfg.Database.Driver, err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return nil, nil, err
	}

	return cfg, gormDB, nil
}

func newUpstreamClient(cfg *config.Config) *upstream.Client {
	return upstream.New(cfg.Upstream.URL,
		upstream.WithToken(cfg.Upstream.Token),
		upstream.WithHTTPClient(&http.Client{Timeout: cfg.Upstream.Timeout()}),
		upstream.WithDurationURL(cfg.Upstream.DurationURL),
	)
}

func listParams(cfg *config.Config) upstream.ListParams {
	return upstream.ListParams{Page: 1, Limit: cfg.Upstream.PageLimit}
}

// newNotifier builds a notifier from the configured webhooks. With none
// configured the notifier is disabled.
func newNotifier(cfg *config.Config) (*notify.Notifier, error) {
	var sinks []notify.Sink
	if cfg.Notify.SlackWebhook != "" {
		s, err := notify.NewSlackSink(cfg.Notify.SlackWebhook)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.Notify.DiscordWebhook != "" {
		s, err := notify.NewDiscordSink(cfg.Notify.DiscordWebhook)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	return notify.New(sinks, notify.WithDedup(notify.NewMemoryDedup(cfg.Notify.DedupWindow()))), nil
}
