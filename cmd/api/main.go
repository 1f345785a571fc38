package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bryanwahyu/automaton-store/internal/config"
	"github.com/bryanwahyu/automaton-store/internal/infra/db"
	"github.com/bryanwahyu/automaton-store/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "automaton",
	Short:         "Local store and API for security scans",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// path config.yaml, CONFIG_PATH wins over the default
	def := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		def = v
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", def, "path to the YAML config file")
}

// setup loads the configuration and opens the store it points at.
func setup() (*config.Config, *logrus.Logger, *db.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("config load error: %w", err)
	}
	log := logging.New(cfg.Log)
	store, err := db.Open(cfg.Database, log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("database open error: %w", err)
	}
	return cfg, log, store, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
