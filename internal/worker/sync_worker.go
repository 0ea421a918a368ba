package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"teampower/internal/amqp"
	"teampower/internal/core"
	"teampower/internal/ledger"
	"teampower/internal/storage"
)

// Source is the local ledger whose rows are mirrored. Implemented by
// storage.SQLiteRepository.
type Source interface {
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	ClaimForSync(ctx context.Context, id int64) (bool, error)
	ReleaseSyncClaims(ctx context.Context) (int64, error)
	GetPendingSyncTransactions(ctx context.Context, limit int) ([]storage.PendingSyncTransaction, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64) error
	RetryFailedSyncs(ctx context.Context, maxAttempts int) (int64, error)
}

// SyncWorker mirrors ledger rows from SQLite into an append-only target such
// as Google Sheets.
type SyncWorker struct {
	source      Source
	target      ledger.Appender
	batchSize   int
	maxAttempts int
}

func NewSyncWorker(source Source, target ledger.Appender, batchSize, maxAttempts int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	return &SyncWorker{
		source:      source,
		target:      target,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
	}
}

// HandleSyncMessage processes a single transaction sync message from AMQP.
// The row is claimed before it is written, so a message racing the sweep, or
// a redelivered one, is acknowledged without writing the row again.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	t, err := w.source.GetTransaction(ctx, msg.ID)
	if errors.Is(err, ledger.ErrNotFound) {
		// Nothing to mirror and retrying will not help.
		slog.WarnContext(ctx, "Sync message for unknown transaction", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	claimed, err := w.source.ClaimForSync(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("claim transaction: %w", err)
	}
	if !claimed {
		slog.InfoContext(ctx, "Transaction already mirrored or in progress, skipping", "id", msg.ID)
		return nil
	}

	return w.mirror(ctx, msg.ID, t)
}

// ProcessPending mirrors up to one batch of rows that have not been synced.
// It is the backup path for lost or undelivered AMQP messages and returns the
// number of rows mirrored.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	synced, _, err := w.processBatch(ctx, w.batchSize)
	return synced, err
}

// StartupSyncCheck mirrors a larger backlog when the worker starts, to
// recover from messages missed while it was down. Claims left behind by a
// worker that stopped mid-mirror are released first.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	released, err := w.source.ReleaseSyncClaims(ctx)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if released > 0 {
		slog.WarnContext(ctx, "Released unfinished sync claims", "count", released)
	}

	synced, total, err := w.processBatch(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if total == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}
	slog.InfoContext(ctx, "Startup sync completed",
		"total", total,
		"synced", synced,
		"errors", total-synced)
	return nil
}

func (w *SyncWorker) processBatch(ctx context.Context, limit int) (synced, total int, err error) {
	pending, err := w.source.GetPendingSyncTransactions(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return 0, 0, nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, p := range pending {
		if ctx.Err() != nil {
			return synced, len(pending), ctx.Err()
		}
		claimed, err := w.source.ClaimForSync(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to claim transaction", "id", p.ID, "error", err)
			continue
		}
		if !claimed {
			continue
		}
		t, err := w.source.GetTransaction(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction", "id", p.ID, "error", err)
			if err := w.source.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			continue
		}
		if err := w.mirror(ctx, p.ID, t); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction", "id", p.ID, "error", err)
			continue
		}
		synced++
	}
	return synced, len(pending), nil
}

// RetryFailed requeues rows whose earlier attempts failed, up to the attempt limit.
func (w *SyncWorker) RetryFailed(ctx context.Context) (int64, error) {
	n, err := w.source.RetryFailedSyncs(ctx, w.maxAttempts)
	if err != nil {
		return 0, fmt.Errorf("retry failed syncs: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Requeued failed transactions", "count", n)
	}
	return n, nil
}

func (w *SyncWorker) mirror(ctx context.Context, id int64, t core.Transaction) error {
	ref, err := w.target.Append(ctx, t)
	if err != nil {
		if markErr := w.source.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to mirror: %w", err)
	}

	if err := w.source.MarkSynced(ctx, id); err != nil {
		// The row is mirrored but stays claimed; only a restart releases it.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Successfully synced transaction",
		"id", id,
		"sheets_ref", ref,
		"date", t.Date.String(),
		"amount", t.Amount.String(),
		"category", t.Category)
	return nil
}
