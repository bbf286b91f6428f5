package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/urfave/cli/v3"
)

var app = cli.Command{
	Name:  "hitori",
	Usage: "Command and conversation chat bot",

	Flags: []cli.Flag{
		&flagConfig,
		&flagLog,
		&flagLogFormat,
	},
	Commands: []*cli.Command{
		{
			Name:   "run",
			Usage:  "Connect to configured chat services and serve",
			Action: cliRun,
		},
		{
			Name:    "console",
			Aliases: []string{"repl"},
			Usage:   "Send messages to the bot from standard input",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "user",
					Usage: "User ID to send messages as",
					Value: "console",
				},
				&cli.StringFlag{
					Name:  "group",
					Usage: "Group to send messages in; empty for private chat",
				},
				&cli.BoolFlag{
					Name:  "elevated",
					Usage: "Treat the user as an admin of the group",
				},
			},
			Action: cliConsole,
		},
		{
			Name:   "init",
			Usage:  "Create the usage database",
			Action: cliInit,
		},
	},
	Action: cliRun,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	go func() {
		<-ctx.Done()
		stop()
	}()
	err := app.Run(ctx, os.Args)
	if err != nil {
		fmt.Println(err)
	}
}

// loadConfig loads the config file named by the command line.
func loadConfig(ctx context.Context, cmd *cli.Command) (*Config, error) {
	r, err := os.Open(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("couldn't open config file: %w", err)
	}
	defer r.Close()
	cfg, _, err := Load(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("couldn't load config: %w", err)
	}
	return cfg, nil
}

func cliRun(ctx context.Context, cmd *cli.Command) error {
	log := loggerFromFlags(cmd)
	slog.SetDefault(log)
	cfg, err := loadConfig(ctx, cmd)
	if err != nil {
		return err
	}
	store, closer, err := loadDBs(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer closer()
	robo, err := New(ctx, cfg, store, log)
	if err != nil {
		return err
	}
	return robo.Run(ctx)
}

func cliConsole(ctx context.Context, cmd *cli.Command) error {
	log := loggerFromFlags(cmd)
	slog.SetDefault(log)
	cfg, err := loadConfig(ctx, cmd)
	if err != nil {
		return err
	}
	store, closer, err := loadDBs(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer closer()
	robo, err := New(ctx, cfg, store, log)
	if err != nil {
		return err
	}
	id := Identity{
		User:     cmd.String("user"),
		Group:    cmd.String("group"),
		Elevated: cmd.Bool("elevated"),
	}
	return robo.Console(ctx, os.Stdin, os.Stdout, id)
}

func cliInit(ctx context.Context, cmd *cli.Command) error {
	slog.SetDefault(loggerFromFlags(cmd))
	cfg, err := loadConfig(ctx, cmd)
	if err != nil {
		return err
	}
	// Opening the usage log creates its schema.
	_, closer, err := loadDBs(ctx, cfg.DB)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "usage database ready", slog.String("sqlusage", cfg.DB.SQLUsage), slog.String("kvusage", cfg.DB.KVUsage))
	return closer()
}

var (
	flagConfig = cli.StringFlag{
		Name:       "config",
		Required:   true,
		Usage:      "TOML config file",
		Persistent: true,
		Action: func(ctx context.Context, cmd *cli.Command, s string) error {
			i, err := os.Stat(s)
			if err != nil {
				return err
			}
			if !i.Mode().IsRegular() {
				return errors.New("config must be a regular file")
			}
			return nil
		},
	}

	flagLog = cli.StringFlag{
		Name:       "log",
		Usage:      "Logging level, one of debug, info, warn, error",
		Value:      "info",
		Persistent: true,
		Action: func(ctx context.Context, c *cli.Command, s string) error {
			var l slog.Level
			return l.UnmarshalText([]byte(s))
		},
	}

	flagLogFormat = cli.StringFlag{
		Name:       "log-format",
		Usage:      "Logging format, either text or json",
		Value:      "text",
		Persistent: true,
		Action: func(ctx context.Context, c *cli.Command, s string) error {
			switch strings.ToLower(s) {
			case "text", "json":
				return nil
			default:
				return errors.New("unknown logging format")
			}
		},
	}
)

func loggerFromFlags(cmd *cli.Command) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(cmd.String("log"))); err != nil {
		panic(err)
	}
	var h slog.Handler
	switch strings.ToLower(cmd.String("log-format")) {
	case "text":
		h = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	case "json":
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	}
	return slog.New(h)
}
