package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/zephyrtronium/hitori/modules/fun"
	"github.com/zephyrtronium/hitori/perm"
	"github.com/zephyrtronium/hitori/usage"
	"github.com/zephyrtronium/hitori/usage/kvusage"
	"github.com/zephyrtronium/hitori/usage/sqlusage"
)

// Load loads the bot from a TOML configuration.
func Load(ctx context.Context, r io.Reader) (*Config, *toml.MetaData, error) {
	var cfg Config
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("couldn't decode config: %w", err)
	}
	expandcfg(&cfg, os.Getenv)
	return &cfg, &md, nil
}

// loadDBs opens the usage log described by cfg. The returned function closes
// the log and its database.
func loadDBs(ctx context.Context, cfg DBCfg) (usage.Store, func() error, error) {
	if cfg.KVUsage != "" && cfg.SQLUsage != "" {
		return nil, nil, fmt.Errorf("multiple usage backends requested; use exactly one")
	}
	if cfg.KVUsage == "" && cfg.SQLUsage == "" {
		return nil, nil, fmt.Errorf("no usage backends requested; use exactly one")
	}

	if cfg.KVUsage != "" {
		slog.DebugContext(ctx, "using kvusage", slog.String("path", cfg.KVUsage), slog.String("flags", cfg.KVFlag))
		opts := badger.DefaultOptions(cfg.KVUsage)
		opts = opts.WithLogger(nil)
		opts = opts.WithCompression(options.None)
		db, err := badger.Open(opts.FromSuperFlag(cfg.KVFlag))
		if err != nil {
			return nil, nil, fmt.Errorf("couldn't open kvusage db: %w", err)
		}
		l, err := kvusage.New(db)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("couldn't open kvusage log: %w", err)
		}
		closer := func() error {
			return errors.Join(l.Close(), db.Close())
		}
		return l, closer, nil
	}

	slog.DebugContext(ctx, "using sqlusage", slog.String("path", cfg.SQLUsage))
	db, err := sqlitex.NewPool(cfg.SQLUsage, sqlitex.PoolOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("couldn't open sqlusage db: %w", err)
	}
	if err := sqlusage.Init(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	l, err := sqlusage.Open(ctx, db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("couldn't open sqlusage log: %w", err)
	}
	return l, db.Close, nil
}

func fseconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Config is the marshaled structure of the bot's configuration.
type Config struct {
	// Command is the table of command parsing settings.
	Command CommandCfg `toml:"command"`
	// RBAC is the table of roles and permission rules.
	RBAC perm.Config `toml:"rbac"`
	// Context is the table of conversation settings.
	Context ContextCfg `toml:"context"`
	// DB is the table of database connection strings.
	DB DBCfg `toml:"db"`
	// HTTP is the table of HTTP API settings.
	HTTP HTTPCfg `toml:"http"`
	// OneBot is the configuration for connecting to a OneBot implementation.
	OneBot OneBotCfg `toml:"onebot"`
	// TMI is the configuration for connecting to Twitch chat.
	TMI TMICfg `toml:"tmi"`
	// Modules is the per-module configuration.
	Modules ModulesCfg `toml:"modules"`
}

// CommandCfg is the configuration for command parsing.
type CommandCfg struct {
	// Prefix introduces commands. Defaults to ".".
	Prefix string `toml:"prefix"`
	// PrivateHint replaces the default reply to private-only commands used
	// in groups.
	PrivateHint string `toml:"private_hint"`
	// GroupHint replaces the default reply to group-only commands used in
	// private.
	GroupHint string `toml:"group_only_hint"`
}

// ContextCfg is the configuration for conversations.
type ContextCfg struct {
	// Sweep is the interval in seconds between removals of expired waits.
	Sweep float64 `toml:"sweep"`
}

// DBCfg is the configuration of databases.
type DBCfg struct {
	SQLUsage string `toml:"sqlusage"`
	KVUsage  string `toml:"kvusage"`
	KVFlag   string `toml:"kvflag"`
}

// HTTPCfg is the configuration for the HTTP API.
type HTTPCfg struct {
	// Listen is the address to serve on. If empty, the API is disabled.
	Listen string `toml:"listen"`
}

// OneBotCfg is the configuration for a OneBot forward WebSocket.
type OneBotCfg struct {
	// URL is the WebSocket URL, e.g. ws://localhost:3001.
	URL string `toml:"url"`
	// Token is the access token, if the implementation requires one.
	Token string `toml:"token"`
}

// TMICfg is the configuration for connecting to Twitch chat.
type TMICfg struct {
	// Nick is the bot's login.
	Nick string `toml:"nick"`
	// TokenFile is the path to a file containing the bot's OAuth2 access
	// token.
	TokenFile string `toml:"token"`
	// Channels is the list of channels to join.
	Channels []string `toml:"channels"`
	// Rate is the global rate limit for sending.
	Rate Rate `toml:"rate"`
}

// Rate is a rate limit configuration.
type Rate struct {
	Every float64 `toml:"every"`
	Num   int     `toml:"num"`
}

// ModulesCfg is the configuration of built-in modules.
type ModulesCfg struct {
	Fun      fun.Config  `toml:"fun"`
	Repeater RepeaterCfg `toml:"repeater"`
}

// RepeaterCfg is the repeater module configuration.
type RepeaterCfg struct {
	// Need is the number of distinct consecutive senders required.
	Need int `toml:"need"`
}

func expandcfg(cfg *Config, expand func(s string) string) {
	fields := []*string{
		&cfg.Command.Prefix,
		&cfg.DB.SQLUsage,
		&cfg.DB.KVUsage,
		&cfg.DB.KVFlag,
		&cfg.HTTP.Listen,
		&cfg.OneBot.URL,
		&cfg.OneBot.Token,
		&cfg.TMI.Nick,
		&cfg.TMI.TokenFile,
	}
	for _, f := range fields {
		*f = os.Expand(*f, expand)
	}
	for i, s := range cfg.TMI.Channels {
		cfg.TMI.Channels[i] = os.Expand(s, expand)
	}
	for i, s := range cfg.RBAC.Owners {
		cfg.RBAC.Owners[i] = os.Expand(s, expand)
	}
}
