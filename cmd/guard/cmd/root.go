// Package cmd provides the CLI commands for the guard enforcement engine.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fencio-dev/guard-sub000/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "guard",
	Short: "guard - semantic policy enforcement engine for AI agents",
	Long: `guard decides ALLOW or BLOCK for structured agent intents by comparing
them against installed rules in a shared semantic vector space.

Rules are encoded once at installation (LLM-assisted anchor generation);
only intents are encoded in the hot path. Evaluation is layered,
priority-ordered, fail-closed, and short-circuits on the first BLOCK.

Quick start:
  1. Write a rule bundle: rules.yaml
  2. Install it:          guard install --file rules.yaml
  3. Test an intent:      guard enforce --rules rules.yaml --file intent.json
  4. Serve over HTTP:     guard serve

Configuration:
  Config is loaded from guard.yaml in the current directory, $HOME/.guard/,
  or /etc/guard/. Environment variables override config values with the
  GUARD_ prefix. Example: GUARD_SERVER_HTTP_ADDR=127.0.0.1:9090

Commands:
  serve              Start the HTTP decision surface
  install            Install rules from a YAML bundle
  enforce            Evaluate a single intent from JSON
  remove-agent-rules Remove every rule for one (tenant, agent) pair
  stats              Print rule store statistics
  version            Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./guard.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
