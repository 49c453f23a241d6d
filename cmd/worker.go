package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/convocommerce/backend/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the background worker queues with no HTTP surface",
	Run:   runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

// runWorker is serve's worker-pool half split into its own process, for
// deployments that scale the queue consumers independently of the HTTP
// edge (spec.md §6's horizontal-scaling deployment model).
func runWorker(_ *cobra.Command, _ []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := buildDeps(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("[cmd] worker: failed to build dependencies")
	}
	if err := deps.initSchema(ctx); err != nil {
		logrus.WithError(err).Fatal("[cmd] worker: failed to migrate schema")
	}
	// GetGlobalManager already started every queue pool during buildDeps.
	logrus.Info("[cmd] worker: queues running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logrus.Info("[cmd] worker: received termination signal, draining queues")
	worker.StopGlobalManager()
}
