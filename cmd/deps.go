package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/convocommerce/backend/api"
	"github.com/convocommerce/backend/audit"
	"github.com/convocommerce/backend/catalog"
	"github.com/convocommerce/backend/classifier"
	"github.com/convocommerce/backend/commerce"
	"github.com/convocommerce/backend/conversation"
	"github.com/convocommerce/backend/customer"
	"github.com/convocommerce/backend/edge"
	"github.com/convocommerce/backend/handoff"
	"github.com/convocommerce/backend/journey"
	"github.com/convocommerce/backend/kb"
	"github.com/convocommerce/backend/outbound"
	"github.com/convocommerce/backend/payments"
	"github.com/convocommerce/backend/pipeline"
	"github.com/convocommerce/backend/platform/cache"
	"github.com/convocommerce/backend/platform/config"
	"github.com/convocommerce/backend/platform/crypto"
	"github.com/convocommerce/backend/platform/database"
	"github.com/convocommerce/backend/rbac"
	"github.com/convocommerce/backend/tenant"
	"github.com/convocommerce/backend/tools"
	"github.com/convocommerce/backend/wallet"
	"github.com/convocommerce/backend/worker"
)

// appDeps bundles every constructed service, in the dependency order
// they're built in, so serve/worker/migrate each take only the slice they
// need. Grounded on the teacher's cmd/root.go initApp staged construction
// ("1. Basic Usecases", "2. Bot Engine", "3. Monitoring"...), generalized
// onto this module's repository-per-domain layout.
type appDeps struct {
	cfg *config.Config

	gormDB *gorm.DB
	rawDB  *sql.DB
	cache  *cache.Client
	box    *crypto.Box

	tenants       *tenant.GormRepository
	tenantCache   *tenant.ConfigCache
	customers     *customer.GormRepository
	conversations *conversation.GormRepository
	catalogs      *catalog.GormRepository
	commerces     *commerce.GormRepository
	paymentsRepo  *payments.GormRepository
	kbRepo        *kb.GormRepository
	handoffs      *handoff.GormRepository
	wallets       *wallet.GormRepository
	ledger        *wallet.Ledger
	rbacRepo      *rbac.GormRepository
	auditRepo     *audit.GormRepository

	signer *rbac.TokenSigner
	scopes *rbac.ScopeResolver
	auth   *rbac.Resolver

	classifiers *classifier.Registry
	toolsReg    *tools.Registry
	router      *journey.Router

	deliverer *outbound.Deliverer

	jobs   *worker.Manager
	runner *worker.Runner

	hub     *api.Hub
	webhook *edge.Handler
	pipe    *pipeline.Pipeline
}

// buildDeps constructs every repository and service in dependency order.
// It never mounts HTTP routes — that is serve.go/worker.go's job — but it
// does start the worker queue pools (worker.GetGlobalManager starts them
// on first use), so a migrate.go run also starts them.
func buildDeps(ctx context.Context, cfg *config.Config) (*appDeps, error) {
	gormDB, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("cmd: open database: %w", err)
	}

	var rawDB *sql.DB
	if cfg.Database.Driver == "postgres" {
		rawDB, err = database.OpenRaw(cfg)
		if err != nil {
			return nil, fmt.Errorf("cmd: open raw database: %w", err)
		}
	} else {
		rawDB, err = gormDB.DB()
		if err != nil {
			return nil, fmt.Errorf("cmd: extract sql.DB from gorm: %w", err)
		}
	}

	cacheClient, err := cache.NewClient(cache.Config{
		Address:   cfg.Cache.Address,
		Password:  cfg.Cache.Password,
		DB:        cfg.Cache.DB,
		KeyPrefix: cfg.Cache.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("cmd: connect cache: %w", err)
	}

	box, err := crypto.NewBox(cfg.Security.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("cmd: build crypto box: %w", err)
	}

	d := &appDeps{cfg: cfg, gormDB: gormDB, rawDB: rawDB, cache: cacheClient, box: box}

	d.tenants = tenant.NewGormRepository(gormDB)
	d.tenantCache = tenant.NewConfigCache(cacheClient, d.tenants)
	d.customers = customer.NewGormRepository(gormDB)
	d.conversations = conversation.NewGormRepository(gormDB)
	d.catalogs = catalog.NewGormRepository(gormDB)
	d.commerces = commerce.NewGormRepository(gormDB)
	d.paymentsRepo = payments.NewGormRepository(gormDB, payments.NoopGateway{})
	d.kbRepo = kb.NewGormRepository(gormDB)
	d.handoffs = handoff.NewGormRepository(gormDB)
	d.wallets = wallet.NewGormRepository(gormDB)
	d.ledger = wallet.NewLedger(rawDB)
	d.rbacRepo = rbac.NewGormRepository(gormDB)
	d.auditRepo = audit.NewGormRepository(gormDB)

	d.signer = rbac.NewTokenSigner(cfg.Security.SigningKey, 0)
	d.scopes = rbac.NewScopeResolver(cacheClient, d.rbacRepo)
	d.auth = rbac.NewResolver(d.signer, d.rbacRepo, d.scopes)

	d.classifiers = classifier.NewRegistry()
	d.toolsReg = tools.RegisterAll(tools.Dependencies{
		TenantCache: d.tenantCache,
		Customers:   d.customers,
		Catalog:     d.catalogs,
		Commerce:    d.commerces,
		Payments:    d.paymentsRepo,
		KB:          d.kbRepo,
		Handoff:     d.handoffs,
	})
	d.router = journey.NewRouter(d.toolsReg)

	d.deliverer = outbound.NewDeliverer(cacheClient, outbound.NewLoggingGateway(uuid.NewString))

	d.jobs = worker.GetGlobalManager(rawDB, cfg.WorkerPool)
	d.runner = worker.GetGlobalRunner()

	d.hub = api.NewHub(cacheClient, cfg.App.ServerID)
	api.SetGlobalHub(d.hub)

	d.webhook = edge.NewHandler(d.tenants, d.customers, d.conversations, d.auditRepo, cacheClient, box, d.deliverer, d.jobs)

	backend, apiKey := resolveAIBackend(cfg)
	d.pipe = &pipeline.Pipeline{
		Store:         conversation.NewStore(cacheClient),
		Conversations: d.conversations,
		Customers:     d.customers,
		TenantCache:   d.tenantCache,
		Wallets:       d.wallets,
		Classifiers:   d.classifiers,
		Router:        d.router,
		Deliverer:     d.deliverer,
		AIBackend:     backend,
		AIAPIKey:      apiKey,
	}
	edge.SetInboundProcessor(d.pipe)

	logrus.Info("[cmd] dependencies constructed")
	return d, nil
}

// resolveAIBackend picks the configured LLM backend, preferring OpenAI
// when both credentials are set (matches AIConfig.DefaultModel's OpenAI
// default).
func resolveAIBackend(cfg *config.Config) (string, string) {
	if cfg.AI.OpenAIAPIKey != "" {
		return "openai", cfg.AI.OpenAIAPIKey
	}
	return "gemini", cfg.AI.GeminiAPIKey
}

// initSchema runs AutoMigrate across every domain repository, idempotent
// to call on every deploy (spec.md §6). It relies on AutoMigrate alone and
// does not use the teacher's cmd/migration.go catch-up steps.
func (d *appDeps) initSchema(ctx context.Context) error {
	inits := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"tenant", d.tenants.Init},
		{"customer", d.customers.Init},
		{"conversation", d.conversations.Init},
		{"catalog", d.catalogs.Init},
		{"commerce", d.commerces.Init},
		{"payments", d.paymentsRepo.Init},
		{"kb", d.kbRepo.Init},
		{"handoff", d.handoffs.Init},
		{"wallet", d.wallets.Init},
		{"rbac", d.rbacRepo.Init},
		{"audit", d.auditRepo.Init},
	}
	for _, s := range inits {
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("cmd: migrate %s: %w", s.name, err)
		}
		logrus.Infof("[cmd] migrated %s", s.name)
	}
	return nil
}
