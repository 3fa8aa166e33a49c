package worker

// scan_sweeper.go
// Cron job that closes receipt scans nobody finished reviewing. Lines left
// pending past the TTL are never reconciled automatically.

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// ScanExpirer is satisfied by service.ReceiptService.
type ScanExpirer interface {
	ExpireStale(ctx context.Context, ttl time.Duration) (int64, error)
}

type ScanSweeperConfig struct {
	Scans    ScanExpirer
	TTL      time.Duration
	Schedule string // robfig/cron schedule, e.g. "@every 1h"
}

// StartScanSweeper registers the sweep and starts the scheduler. The
// scheduler stops when ctx is cancelled.
func StartScanSweeper(ctx context.Context, cfg ScanSweeperConfig) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(cfg.Schedule, func() { SweepScans(ctx, cfg) }); err != nil {
		return nil, err
	}
	c.Start()
	log.Info().Str("schedule", cfg.Schedule).Dur("ttl", cfg.TTL).Msg("scan_sweeper: started")

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		log.Info().Msg("scan_sweeper: shutting down")
	}()
	return c, nil
}

// SweepScans runs one sweep. Exported for the CLI.
func SweepScans(ctx context.Context, cfg ScanSweeperConfig) int64 {
	n, err := cfg.Scans.ExpireStale(ctx, cfg.TTL)
	if err != nil {
		log.Error().Err(err).Msg("scan_sweeper: sweep failed")
		return 0
	}
	if n > 0 {
		log.Info().Int64("expired", n).Msg("scan_sweeper: expired stale scans")
	}
	return n
}
