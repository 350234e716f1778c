package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/adapter/erp"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/adapter/http/controller"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/adapter/http/middleware"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/adapter/http/router"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/adapter/payout"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/adapter/repository/postgres"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/config"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/domain"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/logger"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/resilience"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/usecase/services"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := postgres.RunMigrations(migrateCtx, cfg.DatabaseDSN, cfg.MigrationsDir); err != nil {
		cancel()
		log.Fatalf("run migrations: %v", err)
	}
	cancel()

	db, err := postgres.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	ledgerRepo := postgres.NewLedgerRepository(db)

	// Permanent dispatch failures close out the ledger entry before the
	// alert is logged; everything else is log-only until a real pager
	// integration is wired in.
	alertSink := func(ctx context.Context, alert domain.Alert) {
		logger.Error("operations alert", nil, logger.Fields{
			"kind":     alert.Kind,
			"sourceId": alert.SourceID,
			"targetId": alert.TargetID,
			"address":  alert.Address,
			"amount":   alert.Amount,
			"detail":   alert.Detail,
		})

		if alert.Kind == domain.AlertKindPermanentDispatchFailure && alert.SourceID != "" {
			if err := ledgerRepo.UpdateStatus(ctx, alert.SourceID, domain.SettlementStatusFailed); err != nil {
				logger.Error("failed to mark ledger entry failed after permanent failure", err, logger.Fields{
					"sourceId": alert.SourceID,
				})
			}
		}
	}

	breaker := resilience.NewCircuitBreaker(cfg.FailureThreshold, cfg.ResetTimeout)
	retryQueue := services.NewRetryQueue(cfg.MaxRetries, cfg.BaseRetryDelay, breaker, alertSink)

	payoutClient := payout.NewCircleClient(cfg.PayoutAPIBase, cfg.PayoutAPIKey, cfg.PayoutChain)

	settlementService := services.NewSettlementService(
		ledgerRepo,
		retryQueue,
		breaker,
		payoutClient.CreatePayout,
		cfg.PayoutRate,
		cfg.PayoutChain,
	)
	matcherService := services.NewMatcherService(cfg.MatchTolerance, cfg.PayoutRate, services.FirstFound)
	reconciliationService := services.NewReconciliationService(matcherService, ledgerRepo, alertSink)
	auditService := services.NewAuditService(ledgerRepo, cfg.StuckThreshold, alertSink)

	mux := router.New(
		controller.NewWebhookController(settlementService, cfg.WebhookSecret),
		controller.NewReconciliationController(reconciliationService, auditService, ledgerRepo, breaker, retryQueue),
		middleware.BasicAuth(cfg.OperatorID, cfg.OperatorKeyHash),
	)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("server listening", logger.Fields{"addr": cfg.ListenAddr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	group.Go(func() error {
		ticker := time.NewTicker(cfg.DrainInterval)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case now := <-ticker.C:
				retryQueue.Drain(groupCtx, now.UTC(), payoutClient.CreatePayout)
			}
		}
	})

	if cfg.ERPJournalURL != "" {
		journalClient := erp.NewJournalClient(cfg.ERPJournalURL, cfg.ERPJournalAPIKey)
		erpSyncService := services.NewERPSyncService(ledgerRepo, journalClient.PostJournalEntry)

		group.Go(func() error {
			ticker := time.NewTicker(cfg.ERPSyncInterval)
			defer ticker.Stop()
			for {
				select {
				case <-groupCtx.Done():
					return nil
				case <-ticker.C:
					if _, err := erpSyncService.Sync(groupCtx); err != nil {
						logger.Error("scheduled erp sync failed", err, nil)
					}
				}
			}
		})
	}

	group.Go(func() error {
		ticker := time.NewTicker(cfg.AuditInterval)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case now := <-ticker.C:
				if err := auditService.Run(groupCtx, now.UTC()); err != nil {
					logger.Error("scheduled audit run failed", err, nil)
				}
			}
		}
	})

	if err := group.Wait(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
