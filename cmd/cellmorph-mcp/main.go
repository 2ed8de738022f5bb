package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ironsheep/cellmorph-mcp/internal/cells"
	"github.com/ironsheep/cellmorph-mcp/internal/config"
	"github.com/ironsheep/cellmorph-mcp/internal/imaging"
	"github.com/ironsheep/cellmorph-mcp/internal/logging"
	"github.com/ironsheep/cellmorph-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Exit codes.
const (
	exitOK        = 0
	exitError     = 1
	exitUsage     = 2
	exitUndefined = 3 // ratio undefined: no contours or no normal cells
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "--version", "-v", "version":
			fmt.Fprintf(stdout, "cellmorph-mcp %s\n", Version)
			fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
			return exitOK
		case "--help", "-h", "help":
			printUsage(stdout)
			return exitOK
		case "classify":
			return runClassify(ctx, args[1:], stdout, stderr)
		case "config":
			return runConfig(args[1:], stdout, stderr)
		}
	}
	return runServe(ctx, args, stdin, stdout, stderr)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "cellmorph-mcp - sickle cell classifier and MCP server")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  cellmorph-mcp [--config file]                 Serve MCP over stdin/stdout")
	fmt.Fprintln(w, "  cellmorph-mcp classify [options] image        Classify one micrograph")
	fmt.Fprintln(w, "  cellmorph-mcp config [--config file]          Print the effective configuration")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --version, -v    Print version information")
	fmt.Fprintln(w, "  --help, -h       Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables (also read from ./.env):")
	fmt.Fprintln(w, "  CELLMORPH_CONFIG=path           Configuration file")
	fmt.Fprintln(w, "  CELLMORPH_BACKEND=native        Contour backend (native, opencv)")
	fmt.Fprintln(w, "  CELLMORPH_WORKERS=n             Threshold workers")
	fmt.Fprintln(w, "  CELLMORPH_LOG_LEVEL=debug       Log level")
	fmt.Fprintln(w, "  CELLMORPH_LOG_FORMAT=json       Log format (json, console)")
	fmt.Fprintln(w, "  CELLMORPH_LOG_FILE=path         Also log to a rotated file")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The server communicates via MCP protocol over stdin/stdout.")
	fmt.Fprintln(w, "Configure it in your MCP client (e.g., Claude Desktop).")
}

// loadConfig resolves the config path from the flag or CELLMORPH_CONFIG.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv(config.EnvConfig)
	}
	return config.Load(path, config.DefaultEnvFile)
}

// setup builds the logger and classifier from cfg. The closer flushes the log file.
func setup(cfg *config.Config, stderr io.Writer) (*cells.Classifier, *zerolog.Logger, io.Closer, error) {
	logger, closer, err := logging.New(stderr, logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	backend, err := cells.NewBackend(cfg.Backend)
	if err != nil {
		closer.Close()
		return nil, nil, nil, err
	}
	boxColor, err := imaging.ParseColor(cfg.Annotation.Color)
	if err != nil {
		closer.Close()
		return nil, nil, nil, fmt.Errorf("annotation color: %w", err)
	}

	classifier := cells.New(cells.Options{
		Backend:      backend,
		Workers:      cfg.Workers,
		BoxColor:     boxColor,
		BoxThickness: cfg.Annotation.Thickness,
		Logger:       &logger,
	})
	return classifier, &logger, closer, nil
}

func runServe(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := newFlagSet("cellmorph-mcp", stderr)
	configPath := fs.String("config", "", "configuration file (YAML)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected argument %q (see --help)\n", fs.Arg(0))
		return exitUsage
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	classifier, logger, closer, err := setup(cfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	defer closer.Close()

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("commit", GitCommit).
		Str("backend", cfg.Backend).
		Int("workers", cfg.Workers).
		Msg("cellmorph MCP server starting")

	params := classifier.Params()
	logger.Info().
		Int("block_size", params.BlockSize).
		Int("threshold_offset", params.ThresholdOffset).
		Float64("canny_low", params.CannyLow).
		Float64("canny_high", params.CannyHigh).
		Float64("min_area", params.MinArea).
		Float64("aspect_threshold", params.AspectThreshold).
		Msg("pipeline parameters")

	srv := server.New(server.Options{
		Classifier: classifier,
		Logger:     logger,
		Version:    Version,
	})
	if err := srv.Serve(ctx, stdin, stdout); err != nil && ctx.Err() == nil {
		logger.Error().Err(err).Msg("server error")
		return exitError
	}
	logger.Info().Msg("cellmorph MCP server stopped")
	return exitOK
}

func runConfig(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("cellmorph-mcp config", stderr)
	configPath := fs.String("config", "", "configuration file (YAML)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	data, err := cfg.YAML()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	stdout.Write(data)
	return exitOK
}
