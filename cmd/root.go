// Package cmd wires the conversational-commerce backend's cobra commands:
// serve (HTTP edge + operator API + worker pool), worker (queue consumer
// only), and migrate (schema catch-up). Grounded on the teacher's
// cmd/root.go init()/initEnvConfig()/initApp() staging, generalized from
// globalConfig's package-level viper-bound vars onto platform/config.Load's
// single validated Config, and from a single always-HTTP process into
// distinct serve/worker processes per spec.md §6's deployment model.
package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/convocommerce/backend/platform/config"
)

var rootCmd = &cobra.Command{
	Use:   "convocommerce",
	Short: "Multi-tenant WhatsApp conversational-commerce backend",
	Long:  "convocommerce runs the webhook intake, the per-turn bot pipeline, the operator REST API, and the background worker queues described by this repository's spec.",
}

var cfg *config.Config

func init() {
	cobra.OnInitialize(initLogging, initConfig)
}

// initLogging mirrors the teacher's APP_DEBUG-gated log level switch.
func initLogging() {
	if os.Getenv("APP_DEBUG") == "true" || os.Getenv("APP_DEBUG") == "1" {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// initConfig loads and validates the environment-sourced Config once, per
// spec.md §6 ("fail fast on a misconfigured deployment"). A command that
// doesn't need it (e.g. --help) never triggers the fatal exit.
func initConfig() {
	loaded, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("[cmd] invalid configuration")
	}
	cfg = loaded
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
