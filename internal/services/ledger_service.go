package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"teampower/internal/core"
	"teampower/internal/ledger"
	applog "teampower/internal/log"
)

// Publisher announces appended rows to the mirror worker.
type Publisher interface {
	PublishTransactionSync(ctx context.Context, id, version int64) error
}

// LedgerService validates records, appends them to the store and, when a
// publisher is configured, announces them for mirroring.
type LedgerService struct {
	store     ledger.Store
	publisher Publisher
	logger    *applog.Logger
}

var _ ledger.Store = (*LedgerService)(nil)

// NewLedgerService creates the service. publisher and logger may be nil.
func NewLedgerService(store ledger.Store, publisher Publisher, logger *applog.Logger) *LedgerService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &LedgerService{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(applog.ComponentLedger),
	}
}

// Append stores the record and returns its identifier. A failed publish is
// logged but does not fail the append; the worker's sweep picks the row up.
func (s *LedgerService) Append(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}

	id, err := s.store.Append(ctx, t)
	if err != nil {
		return "", fmt.Errorf("append transaction: %w", err)
	}

	if !t.Category.IsKnown() || !t.Type.IsKnown() {
		s.logger.InfoContext(ctx, "Transaction stored with non-standard enum value",
			applog.FieldTransactionID, id,
			applog.FieldCategory, t.Category,
			applog.FieldType, t.Type)
	}

	s.publish(ctx, id)
	return id, nil
}

func (s *LedgerService) publish(ctx context.Context, ref string) {
	if s.publisher == nil {
		return
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		s.logger.DebugContext(ctx, "Store reference is not a row id, skipping sync message", "ref", ref)
		return
	}
	var version int64
	if v, ok := s.store.(ledger.Versioned); ok {
		if version, err = v.Version(ctx); err != nil {
			s.logger.WarnContext(ctx, "Could not read ledger version for sync message",
				applog.FieldTransactionID, id, applog.FieldError, err)
		}
	}
	if err := s.publisher.PublishTransactionSync(ctx, id, version); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish sync message",
			applog.FieldTransactionID, id,
			applog.FieldOperation, applog.OpSync,
			applog.FieldError, err)
	}
}

// ListAll returns the store snapshot.
func (s *LedgerService) ListAll(ctx context.Context) ([]core.Transaction, error) {
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return records, nil
}

// Close closes the store and the publisher when they hold resources.
func (s *LedgerService) Close() error {
	var errs []error
	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	return errors.Join(errs...)
}
