package cmd

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema catch-up across every domain repository",
	Run:   runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

// runMigrate only opens the database and runs each repository's Init —
// unlike the teacher's cmd/migration.go (a one-time legacy-instance data
// backfill), schema here is entirely GORM AutoMigrate, so catch-up is
// just calling Init on everything, idempotent to run on every deploy.
func runMigrate(_ *cobra.Command, _ []string) {
	ctx := context.Background()

	deps, err := buildDeps(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("[cmd] migrate: failed to build dependencies")
	}
	if err := deps.initSchema(ctx); err != nil {
		logrus.WithError(err).Fatal("[cmd] migrate: failed")
	}
	logrus.Info("[cmd] migrate: schema is up to date")
}
