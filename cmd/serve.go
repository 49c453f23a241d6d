package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/convocommerce/backend/api"
	"github.com/convocommerce/backend/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook intake, operator API, and worker pool in one process",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe mirrors the teacher's restServer: build the fiber.App, mount
// middleware, register every route group, start background subsystems,
// then block on Listen until a termination signal arrives. Grounded on
// the teacher's cmd/rest.go, generalized from its single WhatsApp
// instance surface onto this module's webhook + operator API surfaces.
func runServe(_ *cobra.Command, _ []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := buildDeps(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("[cmd] serve: failed to build dependencies")
	}
	if err := deps.initSchema(ctx); err != nil {
		logrus.WithError(err).Fatal("[cmd] serve: failed to migrate schema")
	}

	app := fiber.New(fiber.Config{
		EnableTrustedProxyCheck: true,
		TrustedProxies:          cfg.App.TrustedProxies,
		ProxyHeader:             fiber.HeaderXForwardedHost,
	})

	app.Use(api.Recovery())
	if cfg.App.Debug {
		app.Use(logger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: joinOrDefault(cfg.App.CorsAllowedOrigins, "*"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	var apiGroup fiber.Router = app
	if cfg.App.BasePath != "" {
		apiGroup = app.Group(cfg.App.BasePath)
	}

	deps.webhook.RegisterRoutes(apiGroup)

	operatorServer := &api.Server{
		Resolver: deps.auth,
		Handoffs: deps.handoffs,
		Ledger:   deps.ledger,
		Wallets:  deps.wallets,
		RBAC:     deps.rbacRepo,
		Scopes:   deps.scopes,
		Hub:      deps.hub,
	}
	operatorServer.RegisterRoutes(apiGroup)

	api.HealthChecks["cache"] = func() error { return deps.cache.Ping(ctx) }
	api.HealthChecks["database"] = func() error { return deps.rawDB.PingContext(ctx) }

	// GetGlobalManager already started every queue pool during buildDeps.
	go deps.hub.Run()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("[cmd] serve: received termination signal, shutting down gracefully")
		if err := app.Shutdown(); err != nil {
			logrus.WithError(err).Error("[cmd] serve: fiber shutdown error")
		}
		worker.StopGlobalManager()
		cancel()
	}()

	if err := app.Listen(":" + cfg.App.Port); err != nil {
		logrus.WithError(err).Fatal("[cmd] serve: failed to start")
	}
}

func joinOrDefault(origins []string, def string) string {
	if len(origins) == 0 {
		return def
	}
	out := origins[0]
	for _, o := range origins[1:] {
		out += "," + o
	}
	return out
}
