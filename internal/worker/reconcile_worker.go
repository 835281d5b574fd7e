// Package worker contains long-running background workers.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Basantgrg924/QueueSystem/internal/service"
	"github.com/Basantgrg924/QueueSystem/pkg/logger"
)

// ReconcileWorkerConfig contains configuration for the reconcile worker
type ReconcileWorkerConfig struct {
	// Interval is the time between reconciliation sweeps
	Interval time.Duration
}

// DefaultReconcileWorkerConfig returns default configuration
func DefaultReconcileWorkerConfig() *ReconcileWorkerConfig {
	return &ReconcileWorkerConfig{
		Interval: time.Minute,
	}
}

// ReconcileWorker periodically recounts queue occupancy from token rows.
// Stored counts are already recomputed on every admission and terminal
// transition; the sweep is the backstop for counts that drifted through
// crashes or manual writes.
type ReconcileWorker struct {
	occupancy service.OccupancyService
	config    *ReconcileWorkerConfig
	log       *logger.Logger
	stopCh    chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool

	// Stats
	totalSweeps   int64
	totalDrifted  int64
	lastSweepTime time.Time
}

// NewReconcileWorker creates a new reconcile worker
func NewReconcileWorker(occupancy service.OccupancyService, config *ReconcileWorkerConfig) *ReconcileWorker {
	if config == nil {
		config = DefaultReconcileWorkerConfig()
	}

	return &ReconcileWorker{
		occupancy: occupancy,
		config:    config,
		log:       logger.Get(),
		stopCh:    make(chan struct{}),
	}
}

// Start starts the reconcile worker
func (w *ReconcileWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("reconcile worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("Starting reconcile worker",
		zap.Duration("interval", w.config.Interval))

	w.wg.Add(1)
	go w.run(ctx)

	return nil
}

// Stop stops the reconcile worker and waits for the sweep loop to exit
func (w *ReconcileWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.log.Info("Stopping reconcile worker")
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("Reconcile worker stopped")
}

func (w *ReconcileWorker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	// Run immediately on start
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep recounts every queue once
func (w *ReconcileWorker) sweep(ctx context.Context) {
	drifted, err := w.occupancy.RecountAll(ctx)
	if err != nil {
		w.log.Error("Reconciliation sweep failed", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.totalSweeps++
	w.totalDrifted += int64(drifted)
	w.lastSweepTime = time.Now()
	w.mu.Unlock()

	if drifted > 0 {
		w.log.Info("Reconciliation sweep corrected drifted counts",
			zap.Int("drifted", drifted))
	}
}

// GetStats returns worker statistics
func (w *ReconcileWorker) GetStats() *ReconcileWorkerStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return &ReconcileWorkerStats{
		IsRunning:     w.running,
		TotalSweeps:   w.totalSweeps,
		TotalDrifted:  w.totalDrifted,
		LastSweepTime: w.lastSweepTime,
	}
}

// ReconcileWorkerStats contains worker statistics
type ReconcileWorkerStats struct {
	IsRunning     bool      `json:"is_running"`
	TotalSweeps   int64     `json:"total_sweeps"`
	TotalDrifted  int64     `json:"total_drifted"`
	LastSweepTime time.Time `json:"last_sweep_time"`
}
