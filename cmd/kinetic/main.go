package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/vango-dev/kinetic/internal/config"
	kerrors "github.com/vango-dev/kinetic/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globals holds the persistent flags shared by every command.
type globals struct {
	configPath string
	logLevel   string
	logFormat  string
	noColor    bool

	cfg *config.Config
}

func main() {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:   "kinetic",
		Short: "Interactive state and animation engine for UI runtimes",
		Long: `Kinetic drives widget interaction state and motion from a single
frame tick: reactive signals and effects, flat state machines, springs,
keyframe animations and timelines.

The CLI runs scripted simulations, serves the inspector for a live
runtime and reads back recorded sessions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.setup()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&g.configPath, "config", "c", "", "Path to kinetic.yaml (default: search from the working directory)")
	flags.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn or error (default from config)")
	flags.StringVar(&g.logFormat, "log-format", "", "Log format: text or json (default from config)")
	flags.BoolVar(&g.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		simulateCmd(g),
		inspectCmd(g),
		presetsCmd(g),
		replayCmd(g),
		versionCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		kerrors.PrintError(err)
		os.Exit(1)
	}
}

// setup loads the configuration and installs the default logger.
func (g *globals) setup() error {
	if g.noColor || !isatty.IsTerminal(os.Stderr.Fd()) {
		kerrors.DisableColors()
	}

	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	g.cfg = cfg

	level, _ := cfg.LogLevel()
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.Log.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

func (g *globals) loadConfig() (*config.Config, error) {
	if g.configPath != "" {
		return config.LoadFile(g.configPath)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := config.FindProjectRoot(wd)
	if err != nil {
		return config.New(), nil
	}
	return config.Load(root)
}

// colorOutput reports whether stdout gets ANSI colors.
func (g *globals) colorOutput() bool {
	return !g.noColor && isatty.IsTerminal(os.Stdout.Fd())
}

func (g *globals) success(format string, args ...any) {
	mark := "✓"
	if g.colorOutput() {
		mark = "\033[32m✓\033[0m"
	}
	fmt.Printf("%s %s\n", mark, fmt.Sprintf(format, args...))
}

func (g *globals) warn(format string, args ...any) {
	mark := "!"
	if g.colorOutput() {
		mark = "\033[33m⚠\033[0m"
	}
	fmt.Printf("%s %s\n", mark, fmt.Sprintf(format, args...))
}

func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
