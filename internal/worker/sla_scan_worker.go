package worker

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/PicoRmin/TicketingBot-sub000/internal/config"
	"github.com/PicoRmin/TicketingBot-sub000/internal/observability"
	"github.com/PicoRmin/TicketingBot-sub000/internal/service"
)

const scanLockKey = "sla:scan:lock"

// ComplianceScanner is the slice of the SLA service the worker drives.
type ComplianceScanner interface {
	Scan(ctx context.Context) (service.ScanSummary, error)
}

// ScanLocker guards against overlapping scans across replicas. Acquire
// returns false when another holder owns the lock.
type ScanLocker interface {
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, owner string) error
}

// SLAScanWorker runs the compliance scan on a cron schedule. The SLA log is
// a read-modify-write target, so only one scanner instance may run a cycle
// at a time; the redis lock enforces that across replicas.
type SLAScanWorker struct {
	scanner ComplianceScanner
	locker  ScanLocker
	metrics *observability.Metrics
	logger  *zap.Logger
	cfg     config.SLAConfig
	cron    *cron.Cron
	owner   string
}

// NewSLAScanWorker constructs the worker.
func NewSLAScanWorker(scanner ComplianceScanner, locker ScanLocker, metrics *observability.Metrics, logger *zap.Logger, cfg config.SLAConfig) *SLAScanWorker {
	return &SLAScanWorker{
		scanner: scanner,
		locker:  locker,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(),
		owner:   uuid.NewString(),
	}
}

// Start schedules the periodic scan. Invalid cron expressions are reported
// once; the worker then stays idle rather than crashing the service.
func (w *SLAScanWorker) Start() error {
	if !w.cfg.ScanEnabled {
		w.logger.Info("sla scan disabled")
		return nil
	}
	if _, err := w.cron.AddFunc(w.cfg.ScanCron, w.RunCycle); err != nil {
		return err
	}
	w.cron.Start()
	w.logger.Info("sla scan worker started", zap.String("schedule", w.cfg.ScanCron))
	return nil
}

// Stop halts the schedule and waits for a running cycle to finish, so
// cancellation only ever happens between cycles.
func (w *SLAScanWorker) Stop() {
	ctx := w.cron.Stop()
	<-ctx.Done()
	w.logger.Info("sla scan worker stopped")
}

// RunCycle executes one guarded scan. Any panic or error is contained here:
// the loop must survive every iteration and retry on the next interval.
func (w *SLAScanWorker) RunCycle() {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("sla scan panic recovered",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.ScanTimeout())
	defer cancel()

	if w.locker != nil {
		acquired, err := w.locker.Acquire(ctx, scanLockKey, w.owner, w.cfg.LockTTL())
		if err != nil {
			w.logger.Error("sla scan lock", zap.Error(err))
			return
		}
		if !acquired {
			w.logger.Debug("sla scan already running elsewhere, skipping cycle")
			return
		}
		defer func() {
			if err := w.locker.Release(context.Background(), scanLockKey, w.owner); err != nil {
				w.logger.Warn("sla scan unlock", zap.Error(err))
			}
		}()
	}

	summary, err := w.scanner.Scan(ctx)
	if err != nil {
		w.logger.Error("sla scan failed", zap.Error(err))
		return
	}
	w.metrics.RecordScan(summary.Checked, summary.Warnings, summary.Breaches, summary.Escalations, summary.Errors)
}
