package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"notedesk/internal/calsync"
	"notedesk/internal/chat"
	"notedesk/internal/config"
	"notedesk/internal/ics"
	appLog "notedesk/internal/log"
	"notedesk/internal/store"
)

const (
	version           = "0.1.0"
	defaultConfigPath = "/etc/notedesk/config.yaml"
)

// rootOptions carries persistent flags and the config loaded from them.
type rootOptions struct {
	configPath string
	logLevel   string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "notedesk",
		Short:         "Notes, calendar and assistant workspace server",
		Version:       version,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file.")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Logging level: debug|info|error (overrides config).")

	cmd.AddCommand(
		newServeCmd(opts),
		newSyncCmd(opts),
		newLayoutCmd(opts),
		newSnapshotCmd(opts),
	)
	return cmd
}

func (o *rootOptions) load() error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		if cfg == nil {
			return fmt.Errorf("load config %s: %w", o.configPath, err)
		}
		// Defaults are usable even if the first-run write failed.
		appLog.Error("failed to write default config", err, "config_path", o.configPath)
	}

	level := cfg.Logging.Level
	if o.logLevel != "" {
		level = o.logLevel
	}
	appLog.Setup(os.Stderr, cfg.Logging.Format, appLog.ParseLevel(level))

	o.cfg = cfg
	return nil
}

func (o *rootOptions) openStore() (*store.Store, error) {
	st, err := store.Open(o.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", o.cfg.Database, err)
	}
	return st, nil
}

func (o *rootOptions) newSyncer(st *store.Store) *calsync.Syncer {
	fetcher := ics.NewFetcher(o.cfg.ICSCacheDir, 0)
	return calsync.NewSyncer(st, fetcher, o.cfg.Location())
}

func (o *rootOptions) newCompleter() *chat.Client {
	c := o.cfg.Chat
	key := c.ResolveAPIKey()
	if key == "" {
		appLog.Info("no completion API key configured; chat requests will fail", "api_key_env", c.APIKeyEnv)
	}
	return chat.NewClient(chat.ClientConfig{
		Endpoint:    c.Endpoint,
		APIKey:      key,
		Model:       c.Model,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		Timeout:     c.Timeout(),
	})
}
