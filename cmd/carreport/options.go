package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"

	"cardash/internal/config"
	"cardash/internal/infrastructure"
	"cardash/internal/renderer"
	"cardash/internal/services"
)

// options are the flags shared by every subcommand
type options struct {
	configPath string
	dataPath   string
	plain      bool
	width      int
	style      string
	logLevel   string

	stdout io.Writer
	stderr io.Writer
}

func (o *options) register(fs *flag.FlagSet) {
	fs.StringVar(&o.configPath, "config", "", "Path to a config.yaml (defaults to the usual lookup)")
	fs.StringVar(&o.dataPath, "data", "", "Path to the transaction export (overrides the config)")
	fs.BoolVar(&o.plain, "plain", false, "Print raw markdown instead of styled terminal output")
	fs.IntVar(&o.width, "width", renderer.DefaultWordWrap, "Word wrap width of styled output")
	fs.StringVar(&o.style, "style", "", "Glamour style (dark, light, notty); empty detects the terminal")
	fs.StringVar(&o.logLevel, "log-level", "warn", "Log level written to stderr")
}

// session holds what a subcommand needs to answer
type session struct {
	cfg       *config.Config
	dashboard *services.DashboardService
	pages     *renderer.Renderer
	logger    *slog.Logger
}

func (o *options) open() (*session, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if o.dataPath != "" {
		cfg.Dataset.Path = o.dataPath
	}

	logger, err := infrastructure.NewLogger(config.LoggingConfig{Level: o.logLevel, Output: "console"}, o.stderr)
	if err != nil {
		return nil, err
	}

	pages, err := renderer.New(cfg.Dataset.Currency)
	if err != nil {
		return nil, err
	}

	cache := services.NewDatasetCache(cfg.ResolveDatasetPath(), nil, nil, logger)
	return &session{
		cfg:       cfg,
		dashboard: services.NewDashboardService(cache, cfg.Dataset, nil, logger),
		pages:     pages,
		logger:    logger,
	}, nil
}

// printMarkdown writes md styled for the terminal, or raw with -plain
func (o *options) printMarkdown(md string) error {
	if o.plain {
		_, err := fmt.Fprintln(o.stdout, md)
		return err
	}
	out, err := renderer.Terminal(md, o.width, o.style)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(o.stdout, out)
	return err
}

// show renders one view of the menu
func (o *options) show(s *session, view services.RenderedView) error {
	md, err := s.pages.Markdown(view, renderer.TargetTerminal)
	if err != nil {
		return err
	}
	return o.printMarkdown(md)
}

func (o *options) fail(err error) {
	fmt.Fprintf(o.stderr, "Error: %v\n", err)
}
