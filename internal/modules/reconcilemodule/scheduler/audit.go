// Package scheduler runs the recurring audit of recently added media.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/shelfsync/internal/logger"
	"github.com/mantonx/shelfsync/internal/modules/reconcilemodule/core"
	"github.com/mantonx/shelfsync/internal/modules/reconcilemodule/reporter"
	"github.com/robfig/cron/v3"
)

// Verifier runs a bulk verification over a trailing window of hours.
type Verifier interface {
	VerifyRecent(ctx context.Context, hours int) (*core.BulkVerification, error)
}

// AuditResult is the outcome of one audit run.
type AuditResult struct {
	RanAt  time.Time       `json:"ranAt"`
	Report reporter.Report `json:"report"`
}

// Audit verifies recently added media on a cron schedule.
type Audit struct {
	verifier    Verifier
	schedule    string
	windowHours int
	timeout     time.Duration
	cron        *cron.Cron
	log         hclog.Logger

	runMu sync.Mutex // one run at a time
	mu    sync.RWMutex
	last  *AuditResult
}

// NewAudit creates an audit. schedule uses cron syntax or descriptors such
// as "@every 6h".
func NewAudit(verifier Verifier, schedule string, windowHours int) *Audit {
	return &Audit{
		verifier:    verifier,
		schedule:    schedule,
		windowHours: windowHours,
		timeout:     10 * time.Minute,
		cron:        cron.New(),
		log:         logger.Named("audit"),
	}
}

// Start registers the job and starts the cron runner.
func (a *Audit) Start() error {
	_, err := a.cron.AddFunc(a.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if _, err := a.RunOnce(ctx); err != nil {
			a.log.Error("scheduled audit failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid audit schedule %q: %w", a.schedule, err)
	}
	a.cron.Start()
	a.log.Info("audit scheduled", "schedule", a.schedule, "window_hours", a.windowHours)
	return nil
}

// Stop stops the runner and waits for a running audit to finish or ctx to end.
func (a *Audit) Stop(ctx context.Context) error {
	done := a.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs one audit synchronously and records it as the latest.
func (a *Audit) RunOnce(ctx context.Context) (*AuditResult, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	bulk, err := a.verifier.VerifyRecent(ctx, a.windowHours)
	if err != nil {
		return nil, err
	}

	result := &AuditResult{RanAt: time.Now().UTC(), Report: reporter.Summarize(bulk)}
	a.log.Info("audit finished", "summary", result.Report.Summary, "health_percent", result.Report.HealthPercent)
	for _, item := range result.Report.WithIssues() {
		a.log.Warn("media failed verification",
			"media_id", item.MediaID, "title", item.Title, "status", item.Label, "expected_path", item.ExpectedPath)
	}

	a.mu.Lock()
	a.last = result
	a.mu.Unlock()
	return result, nil
}

// LastReport returns the most recent audit, or nil before the first run.
func (a *Audit) LastReport() *AuditResult {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}
