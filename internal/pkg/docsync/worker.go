package docsync

import (
	"context"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// StartSweepWorker runs a full reconciliation sweep on a fixed interval
// until ctx is cancelled. Because sweeps are idempotent the worker does no
// coordination with on-demand sweeps triggered by administrators.
func StartSweepWorker(ctx context.Context, svc *Service, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		fiberlog.Infof("[docsync] sweep worker started, interval %s", interval)
		for {
			select {
			case <-ctx.Done():
				fiberlog.Info("[docsync] sweep worker stopped")
				return
			case <-ticker.C:
				result, err := svc.FullSweep(ctx)
				if err != nil {
					fiberlog.Errorf("[docsync] periodic sweep failed: %v", err)
					continue
				}
				fiberlog.Infof("[docsync] periodic sweep: created=%d skipped=%d failed=%d",
					result.Created, result.Skipped, result.Failed)
			}
		}
	}()
}
