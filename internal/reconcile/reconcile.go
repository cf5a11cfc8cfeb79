// Package reconcile runs the background sweep that removes duplicate
// rows from the legacy event store. It shares only the data store with
// the request path, never in-memory state.
package reconcile

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/adhocore/gronx"
	"golang.org/x/time/rate"

	"reactdb/pkg/config"
	"reactdb/pkg/logger"
	"reactdb/pkg/store"
	"reactdb/pkg/telemetry"
)

// running guards against overlapping sweeps; a tick that fires while a
// run is still in flight is skipped.
var running int32

// Start starts the reconciler scheduler if enabled. Returns a cancel
// func.
func Start(ctx context.Context, cfg config.Config) (context.CancelFunc, error) {
	rc := cfg.Reconciler
	if !rc.Enabled {
		logger.Info("reconciler_disabled")
		return func() {}, nil
	}

	cronExpr := rc.Cron
	if cronExpr == "" {
		cronExpr = "*/5 * * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("reconciler_invalid_cron", "cron", rc.Cron)
		return nil, fmt.Errorf("invalid reconciler cron expression: %s", rc.Cron)
	}

	logger.Info("reconciler_enabled", "cron", cronExpr, "delete_rps", rc.DeleteRPS)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cfg, cronExpr)
	return cancel, nil
}

// runScheduler computes the next tick for the configured cron
// expression with gronx and sleeps until then. Run failures are logged
// and do not halt subsequent runs.
func runScheduler(ctx context.Context, cfg config.Config, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("reconciler_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("reconciler_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				logger.Info("reconciler_scheduler_stopping")
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			if err := RunOnce(ctx, cfg); err != nil {
				logger.Error("reconciler_run_error", "error", err)
			}
		case <-ctx.Done():
			logger.Info("reconciler_scheduler_stopping")
			return
		}
	}
}

// triple identifies one logical vote in the legacy store.
type triple struct {
	messageKey string
	userID     string
	kind       string
}

type row struct {
	key string
	ts  int64
}

// RunOnce performs a single sweep: group legacy rows by
// (message_key, user_id, reaction_type) and delete all but the most
// recently timestamped row of each group. Each run is idempotent.
func RunOnce(ctx context.Context, cfg config.Config) error {
	if !atomic.CompareAndSwapInt32(&running, 0, 1) {
		logger.Warn("reconciler_run_skipped_overlap")
		return nil
	}
	defer atomic.StoreInt32(&running, 0)

	started := time.Now()
	keys, err := store.ListEventKeys("")
	if err != nil {
		return fmt.Errorf("list event keys: %w", err)
	}

	// survivors maps each triple to its newest row; everything else
	// queues for deletion
	survivors := make(map[triple]row)
	var doomed []row
	for _, k := range keys {
		ev, err := store.GetEvent(k)
		if err != nil {
			// unreadable rows stay put; a later run may still make
			// sense of them
			logger.Warn("reconciler_row_unreadable", "key", k, "error", err)
			continue
		}
		t := triple{messageKey: ev.MessageKey, userID: ev.UserID, kind: ev.ReactionType}
		cur, ok := survivors[t]
		if !ok {
			survivors[t] = row{key: k, ts: ev.TS}
			continue
		}
		if ev.TS > cur.ts {
			doomed = append(doomed, cur)
			survivors[t] = row{key: k, ts: ev.TS}
		} else {
			doomed = append(doomed, row{key: k, ts: ev.TS})
		}
	}

	var limiter *rate.Limiter
	if cfg.Reconciler.DeleteRPS > 0 {
		burst := cfg.Reconciler.DeleteBurst
		if burst <= 0 {
			burst = 10
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.Reconciler.DeleteRPS), burst)
	}

	deleted := 0
	for _, d := range doomed {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				// shutdown mid-run is fine; the sweep holds no
				// multi-step state
				break
			}
		}
		if err := store.DeleteEvent(d.key); err != nil {
			logger.Warn("reconciler_delete_failed", "key", d.key, "error", err)
			continue
		}
		logger.AuditInfo("legacy_event_deleted", "key", d.key, "ts", d.ts)
		deleted++
		telemetry.ReconcilerDeleted.Inc()
	}

	telemetry.ReconcilerRuns.Inc()
	logger.Info("reconciler_run_complete",
		"scanned", len(keys), "groups", len(survivors), "deleted", deleted,
		"elapsed_ms", time.Since(started).Milliseconds())
	return nil
}
