package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Sweeper mirrors rows that missed their AMQP message. Implemented by
// worker.SyncWorker.
type Sweeper interface {
	ProcessPending(ctx context.Context) (int, error)
	RetryFailed(ctx context.Context) (int64, error)
}

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to check for pending rows (default: 10s)
	PollInterval time.Duration

	// RetryInterval is how often failed rows are requeued (default: 1m)
	RetryInterval time.Duration
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval:  10 * time.Second,
		RetryInterval: 1 * time.Minute,
	}
}

// SyncProcessor periodically sweeps the local ledger for rows that still
// need mirroring, as a backup to the AMQP path.
type SyncProcessor struct {
	sweeper Sweeper
	config  SyncProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncProcessor(sweeper Sweeper, config SyncProcessorConfig) *SyncProcessor {
	def := DefaultSyncProcessorConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = def.RetryInterval
	}
	return &SyncProcessor{sweeper: sweeper, config: config}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"retry_interval", p.config.RetryInterval)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.running = false
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}
	return nil
}

// IsRunning returns whether the processor is currently running
func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	retryTicker := time.NewTicker(p.config.RetryInterval)
	defer retryTicker.Stop()

	// Process immediately on startup
	p.sweep(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.sweep(ctx)
		case <-retryTicker.C:
			if _, err := p.sweeper.RetryFailed(ctx); err != nil {
				slog.ErrorContext(ctx, "Failed to requeue failed syncs", "error", err)
			}
		}
	}
}

func (p *SyncProcessor) sweep(ctx context.Context) {
	n, err := p.sweeper.ProcessPending(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Sync sweep failed", "error", err)
		return
	}
	if n > 0 {
		slog.DebugContext(ctx, "Sync sweep mirrored rows", "count", n)
	}
}
