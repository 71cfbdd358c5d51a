package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"go-jobpost-automation/internal/cmd"
	"go-jobpost-automation/internal/config"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	cli := cmd.NewCLI()
	versionString := buildVersion()

	parser, err := kong.New(cli,
		kong.Name("scraper"),
		kong.Description("Collect job listings from a search results view and publish them."),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{"version": versionString},
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	kctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		parser.FatalIfErrorf(err)
	}

	logger := newLogger(cli.JSON, cli.Verbose)

	var cfg *config.Config
	if kctx.Command() != "version" {
		cfg, err = config.Load(cli.Config)
		if err != nil {
			logger.Error().Err(err).Msg("❌ Invalid configuration")
			os.Exit(1)
		}
		logger.Debug().Str("path", cli.Config).Strs("publishers", cfg.Publish.Publishers).Msg("🔧 Config loaded")
	}

	runCtx := &cmd.Context{
		In:         os.Stdin,
		Out:        os.Stdout,
		Err:        os.Stderr,
		Config:     cfg,
		Logger:     logger,
		Verbose:    cli.Verbose,
		JSONOutput: cli.JSON,
		Version:    versionString,
	}

	if err := kctx.Run(runCtx); err != nil {
		logger.Error().Err(err).Msg("❌ Run failed")
		os.Exit(1)
	}
}

func newLogger(jsonOutput, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	if jsonOutput {
		return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func buildVersion() string {
	if commit == "" && date == "" {
		return version
	}
	if commit == "" {
		return fmt.Sprintf("%s (%s)", version, date)
	}
	if date == "" {
		return fmt.Sprintf("%s (%s)", version, commit)
	}
	return fmt.Sprintf("%s (%s, %s)", version, commit, date)
}
