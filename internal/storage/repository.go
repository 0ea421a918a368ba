package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"teampower/internal/core"
	"teampower/internal/ledger"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the durable ledger store. Appends are serialized by
// writeMu; reads run concurrently and each read is a single statement, so it
// sees a consistent snapshot.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	writeMu sync.Mutex
}

// PendingSyncTransaction is the minimal data needed to queue a mirror message.
type PendingSyncTransaction struct {
	ID        int64
	Attempts  int64
	CreatedAt time.Time
}

// SyncStats counts rows per mirror status.
type SyncStats struct {
	Pending int64
	Synced  int64
	Failed  int64
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Append implements ledger.Appender.
func (r *SQLiteRepository) Append(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}

	r.writeMu.Lock()
	row, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		Date:              t.Date.String(),
		CostCenterProject: t.CostCenterProject,
		CostCenterSow:     t.CostCenterSOW,
		SowNumber:         t.SOWNumber,
		Po:                t.PONumber,
		Amount:            t.Amount.String(),
		Category:          string(t.Category),
		Type:              string(t.Type),
	})
	r.writeMu.Unlock()
	if err != nil {
		return "", unavailable("create transaction", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", row.ID,
		"date", row.Date,
		"amount", row.Amount,
		"category", row.Category,
		"type", row.Type)

	return strconv.FormatInt(row.ID, 10), nil
}

// ListAll implements ledger.Lister.
func (r *SQLiteRepository) ListAll(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, unavailable("list transactions", err)
	}

	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := toCore(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Version implements ledger.Versioned. Rows are never updated in a way that
// changes their ledger fields, so the highest id identifies the snapshot.
func (r *SQLiteRepository) Version(ctx context.Context) (int64, error) {
	v, err := r.queries.GetLedgerVersion(ctx)
	if err != nil {
		return 0, unavailable("get ledger version", err)
	}
	return v, nil
}

// GetTransaction retrieves a single transaction by id.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, ledger.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, unavailable("get transaction", err)
	}
	return toCore(row)
}

// ClaimForSync marks a pending row as being mirrored. It reports false when
// the row is already synced, failed, or claimed by another caller, so each
// row is written to the mirror at most once per attempt.
func (r *SQLiteRepository) ClaimForSync(ctx context.Context, id int64) (bool, error) {
	n, err := r.queries.ClaimTransactionForSync(ctx, id)
	if err != nil {
		return false, unavailable("claim transaction for sync", err)
	}
	return n == 1, nil
}

// ReleaseSyncClaims returns claimed but unfinished rows to the pending queue.
// Only call it while no mirror is running, e.g. at worker startup.
func (r *SQLiteRepository) ReleaseSyncClaims(ctx context.Context) (int64, error) {
	n, err := r.queries.ReleaseSyncClaims(ctx)
	if err != nil {
		return 0, unavailable("release sync claims", err)
	}
	return n, nil
}

// GetPendingSyncTransactions returns unclaimed rows not yet mirrored, oldest first.
func (r *SQLiteRepository) GetPendingSyncTransactions(ctx context.Context, limit int) ([]PendingSyncTransaction, error) {
	rows, err := r.queries.GetPendingSyncTransactions(ctx, int64(limit))
	if err != nil {
		return nil, unavailable("get pending sync transactions", err)
	}

	out := make([]PendingSyncTransaction, len(rows))
	for i, row := range rows {
		created, _ := time.Parse(time.RFC3339Nano, row.CreatedAt)
		out[i] = PendingSyncTransaction{
			ID:        row.ID,
			Attempts:  row.SyncAttempts,
			CreatedAt: created,
		}
	}
	return out, nil
}

// MarkSynced marks a transaction as mirrored.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if err := r.queries.MarkTransactionSynced(ctx, id); err != nil {
		return unavailable("mark transaction synced", err)
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

// MarkSyncError records a failed mirror attempt.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if err := r.queries.MarkTransactionSyncError(ctx, id); err != nil {
		return unavailable("mark transaction sync error", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

// RetryFailedSyncs moves errored rows with fewer than maxAttempts failed
// attempts back to pending.
func (r *SQLiteRepository) RetryFailedSyncs(ctx context.Context, maxAttempts int) (int64, error) {
	n, err := r.queries.RetryFailedSyncs(ctx, int64(maxAttempts))
	if err != nil {
		return 0, unavailable("retry failed syncs", err)
	}
	return n, nil
}

func (r *SQLiteRepository) SyncStats(ctx context.Context) (SyncStats, error) {
	row, err := r.queries.GetSyncStats(ctx)
	if err != nil {
		return SyncStats{}, unavailable("get sync stats", err)
	}
	return SyncStats{Pending: row.Pending, Synced: row.Synced, Failed: row.Failed}, nil
}

func toCore(row Transaction) (core.Transaction, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", row.ID, err)
	}
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w: amount %q", row.ID, core.ErrMalformedRecord, row.Amount)
	}
	return core.Transaction{
		ID:                strconv.FormatInt(row.ID, 10),
		Date:              date,
		CostCenterProject: row.CostCenterProject,
		CostCenterSOW:     row.CostCenterSow,
		SOWNumber:         row.SowNumber,
		PONumber:          row.Po,
		Amount:            amount,
		Category:          core.Category(row.Category),
		Type:              core.Type(row.Type),
	}, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ledger.ErrStoreUnavailable, err)
}
