// Package server provides the payroll engine's process lifecycle: starting
// the Ledger Reconciler's periodic background sweep alongside graceful
// shutdown on signal or context cancellation. Transport (HTTP, gRPC, or any
// other wire format fronting internal/payroll.Service) is an external
// concern (§1 Out of scope) and is not implemented here.
package server

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/xahau-payroll/payroll-engine/internal/payroll"
	"github.com/xahau-payroll/payroll-engine/internal/reconciler"
)

// Server owns the payroll Service and drives the reconciler's periodic
// sweep for as long as the process runs.
type Server struct {
	Service *payroll.Service

	recon  *reconciler.Reconciler
	logger *slog.Logger
}

// New constructs a Server.
func New(logger *slog.Logger, service *payroll.Service, recon *reconciler.Reconciler) *Server {
	return &Server{Service: service, recon: recon, logger: logger}
}

// Run starts the reconciler's periodic sweep and blocks until ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.recon.RunPeriodic(gctx)
	})
	return g.Wait()
}

// RunWithGracefulShutdown starts the reconciler's periodic sweep and stops
// it cleanly on SIGINT/SIGTERM or context cancellation, mirroring the
// teacher's own errgroup plus signal.Notify shutdown shape.
func (s *Server) RunWithGracefulShutdown(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.recon.RunPeriodic(gctx)
	})

	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			s.logger.Info("received signal, shutting down gracefully", "signal", sig.String())
		case <-gctx.Done():
			s.logger.Info("context cancelled, shutting down gracefully")
		}
		return nil
	})

	return g.Wait()
}
