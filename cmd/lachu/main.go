package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/sajadtroy/lachu/common/environment"
	"github.com/sajadtroy/lachu/common/version"
	"github.com/sajadtroy/lachu/internal/lachu/app"
	"github.com/sajadtroy/lachu/internal/lachu/observability"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		envFile     string
		logLevel    string
		logFormat   string
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("lachu", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env-file", ".env", "load environment variables from this file if it exists")
	flagSet.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	flagSet.StringVar(&logFormat, "log-format", "", "text or json (overrides LOG_FORMAT)")
	flagSet.BoolVar(&showVersion, "version", false, "print version and exit")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Printf("lachu %s\n", version.Info())
		return nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	// Variables already in the environment win over the file.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	if logLevel == "" {
		logLevel = environment.StringOr("LOG_LEVEL", "info")
	}
	if logFormat == "" {
		logFormat = environment.StringOr("LOG_FORMAT", "text")
	}
	logger := observability.Setup(logLevel, logFormat)
	logger.Info("starting lachu", "version", version.Version, "commit", version.GitCommit, "built", version.BuildTime)

	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}

	bot, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer bot.Stop()

	return bot.Run(context.Background())
}
