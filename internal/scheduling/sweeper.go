package scheduling

import (
	"clinic-booking/internal/database"
	"clinic-booking/internal/logging"
	"clinic-booking/internal/metrics"
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"
)

func (d defaultService) ExpireOverdueEntries(ctx context.Context) (int, error) {
	swept := 0
	err := database.RunInTransaction(ctx, d.dbConn, func(tx *sql.Tx) error {
		entries, err := d.repository.ListExpiredActive(ctx, tx, d.now())
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if err = d.applyTransition(ctx, tx, entry, StatusNoShow); err != nil {
				return err
			}
		}
		swept = len(entries)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("an unexpected error occurred: %w", err)
	}
	return swept, nil
}

// Sweeper periodically expires the agenda entries left active past their end time.
type Sweeper struct {
	service  Expirer
	logger   *log.Logger
	interval time.Duration
	running  sync.Mutex
}

// NewSweeper creates a new Sweeper running at the given interval.
func NewSweeper(service Expirer, logger *log.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{service: service, logger: logger, interval: interval}
}

// Start runs a sweep right away and then once per interval, until the context is
// cancelled. It blocks, so it is meant to run on its own goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	s.runOnce(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce performs a single sweep, skipping it if the previous one is still going.
func (s *Sweeper) runOnce(ctx context.Context) {
	if !s.running.TryLock() {
		logging.PrintlnWarn(s.logger, "previous sweep still running, skipping")
		return
	}
	defer s.running.Unlock()
	swept, err := s.service.ExpireOverdueEntries(ctx)
	if err != nil {
		logging.PrintlnError(s.logger, fmt.Sprint("sweep failed: ", err))
		return
	}
	metrics.ObserveSweep(swept)
	if swept > 0 {
		logging.PrintlnInfo(s.logger, fmt.Sprint("sweep marked ", swept, " entries as no-show"))
	}
}
