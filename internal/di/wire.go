//go:build wireinject
// +build wireinject

// Package di provides dependency injection providers for the application using Google Wire.
// It defines the dependency graph and provides functions for creating and wiring
// application components together.
//
// This package uses Google Wire for compile-time dependency injection, ensuring
// that all dependencies are properly resolved at build time rather than runtime.
package di

import (
	"context"
	"log/slog"

	"github.com/google/wire"

	"github.com/xahau-payroll/payroll-engine/internal/config"
	"github.com/xahau-payroll/payroll-engine/internal/ledgerclient"
	"github.com/xahau-payroll/payroll-engine/internal/lifecycle"
	"github.com/xahau-payroll/payroll-engine/internal/logger"
	"github.com/xahau-payroll/payroll-engine/internal/payroll"
	"github.com/xahau-payroll/payroll-engine/internal/reconciler"
	"github.com/xahau-payroll/payroll-engine/internal/repository"
	"github.com/xahau-payroll/payroll-engine/internal/resolver"
	"github.com/xahau-payroll/payroll-engine/internal/server"
	"github.com/xahau-payroll/payroll-engine/internal/validator"
	"github.com/xahau-payroll/payroll-engine/internal/walletgateway"
	"github.com/xahau-payroll/payroll-engine/internal/worksession"
)

// ProvideLogger returns a new slog.Logger instance from LogConfig.
func ProvideLogger(cfg config.LogConfig) *slog.Logger {
	return logger.NewLogger(cfg)
}

// ProvideLedgerClientOrPanic returns a new Ledger Client. It panics if the
// JSON-RPC config cannot be built, which is appropriate at startup: the
// engine cannot function without ledger connectivity.
func ProvideLedgerClientOrPanic(cfg config.NetworkConfig) *ledgerclient.Client {
	c, err := ledgerclient.New(cfg)
	if err != nil {
		slog.Error("failed to create ledger client", "error", err)
		panic(err)
	}
	return c
}

// ProvideRepositoryOrPanic opens the Postgres Channel Repository.
func ProvideRepositoryOrPanic(ctx context.Context, cfg config.DatabaseConfig) *repository.Repository {
	repo, err := repository.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open repository", "error", err)
		panic(err)
	}
	return repo
}

// ProvideWalletGateway returns a new Signed-Transaction Gateway.
func ProvideWalletGateway(l *slog.Logger) *walletgateway.Gateway {
	return walletgateway.New(l)
}

// ProvideResolver returns a new Channel-ID Resolver.
func ProvideResolver(ledger *ledgerclient.Client, l *slog.Logger, cfg *config.Config) *resolver.Resolver {
	return resolver.New(ledger, l, cfg.ResolverRetrySchedule())
}

// ProvideValidator returns a new Closure Validator.
func ProvideValidator(ledger *ledgerclient.Client) *validator.Validator {
	return validator.New(ledger)
}

// ProvideWorkSessionTracker returns a new Work-Session Tracker.
func ProvideWorkSessionTracker(repo *repository.Repository, l *slog.Logger, cfg *config.Config) *worksession.Tracker {
	return worksession.New(repo, l, cfg.Channel.MaxDailyHoursPerChannel)
}

// ProvideLifecycleController returns a new Lifecycle Controller.
func ProvideLifecycleController(
	repo *repository.Repository,
	ledger *ledgerclient.Client,
	gw *walletgateway.Gateway,
	res *resolver.Resolver,
	val *validator.Validator,
	sessions *worksession.Tracker,
	l *slog.Logger,
) *lifecycle.Controller {
	return lifecycle.New(repo, ledger, gw, res, val, sessions, l)
}

// ProvideReconciler returns a new Ledger Reconciler.
func ProvideReconciler(repo *repository.Repository, ledger *ledgerclient.Client, l *slog.Logger, cfg *config.Config) *reconciler.Reconciler {
	return reconciler.New(repo, ledger, l, cfg.Reconciler.MinIntervalSeconds, cfg.Reconciler.BatchConcurrency)
}

// ProvideService returns the payroll Service facade.
func ProvideService(lc *lifecycle.Controller, sessions *worksession.Tracker, recon *reconciler.Reconciler, l *slog.Logger) *payroll.Service {
	return payroll.New(lc, sessions, recon, l)
}

// ProvideAppServer returns the application Server.
func ProvideAppServer(l *slog.Logger, service *payroll.Service, recon *reconciler.Reconciler) *server.Server {
	return server.New(l, service, recon)
}

// InitializeServer creates and initializes a new application server using
// dependency injection and the provided configuration.
//
// Dependency graph: Logger → Ledger Client → Repository → Wallet Gateway →
// Resolver → Validator → Work-Session Tracker → Lifecycle Controller →
// Reconciler → payroll.Service → Server.
func InitializeServer(ctx context.Context, cfg *config.Config) *server.Server {
	wire.Build(
		ProvideLogger,
		ProvideLedgerClientOrPanic,
		ProvideRepositoryOrPanic,
		ProvideWalletGateway,
		ProvideResolver,
		ProvideValidator,
		ProvideWorkSessionTracker,
		ProvideLifecycleController,
		ProvideReconciler,
		ProvideService,
		ProvideAppServer,
	)
	return &server.Server{}
}
