package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/smartlightd/internal/config"
	"github.com/dokzlo13/smartlightd/internal/ledger"
	"github.com/dokzlo13/smartlightd/internal/storage/kv"
)

const kvCleanupInterval = time.Minute

// MaintenanceService runs periodic housekeeping: ledger retention and
// expired KV entries.
type MaintenanceService struct {
	cfg    *config.Config
	ledger *ledger.Ledger
	kv     *kv.Manager
	wg     sync.WaitGroup
}

// NewMaintenanceService creates a new MaintenanceService.
func NewMaintenanceService(cfg *config.Config, l *ledger.Ledger, kvm *kv.Manager) *MaintenanceService {
	return &MaintenanceService{
		cfg:    cfg,
		ledger: l,
		kv:     kvm,
	}
}

// Start begins the periodic tasks.
func (s *MaintenanceService) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.kv.RunCleanup(ctx, kvCleanupInterval)
	}()

	if s.cfg.Ledger.RetentionDays > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runLedgerCleanup(ctx)
		}()
	} else {
		log.Info().Msg("Ledger retention disabled")
	}
}

// Wait blocks until the periodic tasks returned.
func (s *MaintenanceService) Wait() {
	s.wg.Wait()
}

// runLedgerCleanup periodically cleans up old ledger entries.
func (s *MaintenanceService) runLedgerCleanup(ctx context.Context) {
	retention := s.cfg.Ledger.Retention()
	interval := s.cfg.Ledger.CleanupInterval.Duration()

	s.cleanupLedger(retention)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanupLedger(retention)
		}
	}
}

func (s *MaintenanceService) cleanupLedger(retention time.Duration) {
	deleted, err := s.ledger.DeleteOlderThan(retention)
	if err != nil {
		log.Error().Err(err).Msg("Failed to cleanup old ledger entries")
	} else if deleted > 0 {
		log.Info().Int64("deleted", deleted).Dur("retention", retention).Msg("Cleaned up old ledger entries")
	}
}
