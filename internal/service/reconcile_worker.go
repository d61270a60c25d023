package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const DefaultReconcileInterval = 15 * time.Minute

// ReconcileWorker periodically compares every cached wallet balance with its
// transaction log.
type ReconcileWorker struct {
	walletSvc *WalletService
	logger    *zap.Logger
	interval  time.Duration
	repair    bool
}

func NewReconcileWorker(walletSvc *WalletService, logger *zap.Logger, interval time.Duration, repair bool) *ReconcileWorker {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	return &ReconcileWorker{
		walletSvc: walletSvc,
		logger:    logger,
		interval:  interval,
		repair:    repair,
	}
}

func (w *ReconcileWorker) Start(ctx context.Context) {
	w.logger.Info("reconcile worker started", zap.Duration("interval", w.interval), zap.Bool("repair", w.repair))

	w.RunOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reconcile worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce reconciles all accounts and returns how many drifted.
func (w *ReconcileWorker) RunOnce(ctx context.Context) int {
	ids, err := w.walletSvc.AccountIDs(ctx)
	if err != nil {
		w.logger.Error("failed to list wallet accounts", zap.Error(err))
		return 0
	}

	drifted := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return drifted
		}
		result, err := w.walletSvc.Reconcile(ctx, id, w.repair)
		if err != nil {
			w.logger.Error("failed to reconcile wallet", zap.String("userId", id), zap.Error(err))
			continue
		}
		if result.Drift {
			drifted++
		}
	}

	if drifted > 0 {
		w.logger.Warn("reconcile run finished with drift", zap.Int("accounts", len(ids)), zap.Int("drifted", drifted))
	} else {
		w.logger.Debug("reconcile run finished", zap.Int("accounts", len(ids)))
	}
	return drifted
}
