package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ffbot/ffbot-core/config"
	"github.com/ffbot/ffbot-core/rules"
)

var configFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ffbot",
		Short:         "Objective-driven bot brain for Fortress Forever servers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to YAML config file (defaults apply when empty)")
	root.AddCommand(newServeCmd(), newPathCmd(), newPlanCmd(), newSchemaCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(w io.Writer, lc config.LogConfig) *slog.Logger {
	level, _ := config.ParseLevel(lc.Level)
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// loadEngine compiles the doctrine at path, or the default doctrine when
// path is empty.
func loadEngine(path string) (*rules.Engine, error) {
	d := rules.DefaultDoctrine()
	if path != "" {
		var err error
		if d, err = rules.LoadDoctrine(path); err != nil {
			return nil, err
		}
	}
	engine, err := rules.NewEngine(rules.CompileDoctrine(d))
	if err != nil {
		return nil, fmt.Errorf("compile doctrine %q: %w", d.Name, err)
	}
	slog.Info("doctrine loaded", "name", d.Name, "rules", len(engine.Names()))
	return engine, nil
}
