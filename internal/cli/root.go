// Package cli implements the canvas-state CLI commands.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rcliao/canvas-state/internal/config"
	"github.com/rcliao/canvas-state/internal/logging"
	"github.com/rcliao/canvas-state/internal/scene"
	"github.com/rcliao/canvas-state/internal/state"
	"github.com/rcliao/canvas-state/internal/store"
)

var (
	dbPath     string
	configPath string
	keyFlag    string
	logLevel   string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "canvas-state",
	Short: "Save and restore node editor canvases",
	Long:  "Inspect, export, import and verify saved prompt-card canvases. SQLite-backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $CANVAS_STATE_DB or ~/.canvas-state/canvas.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFile, "YAML config file")
	RootCmd.PersistentFlags().StringVarP(&keyFlag, "key", "k", "", "Document key (default: canvas_state)")
	RootCmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")
}

// loadConfig resolves the config file and environment, then applies flags.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		exitErr("load config", err)
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}
	if keyFlag != "" {
		cfg.Document.Key = keyFlag
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	return cfg
}

func getDBPath(cfg *config.Config) string {
	return cfg.Store.Path
}

func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath(cfg), store.WithKeep(cfg.Store.Keep))
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format).
		With().Str("component", "cli").Logger()
}

// newManager returns a manager bound to a fresh headless scene.
func newManager(cfg *config.Config, st store.Store) (*state.Manager, *scene.Scene) {
	sc := scene.New()
	m := state.NewManager(st, state.SceneCollaborators(sc), state.Options{
		Key:    cfg.Document.Key,
		Logger: newLogger(cfg),
	})
	return m, sc
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
