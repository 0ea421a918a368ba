package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"teampower/internal/cache"
	"teampower/internal/core"
	"teampower/internal/ledger"
	applog "teampower/internal/log"
	"teampower/internal/rollup"
)

// DashboardService reads one ledger snapshot and derives every view from it.
//
// When the store is ledger.Versioned, views are cached per (year, version)
// and concurrent requests for the same version share one computation.
// Stores without a version are recomputed on every call. Failed reads are
// returned to the caller and never cached.
type DashboardService struct {
	store  ledger.Lister
	engine *rollup.Engine
	cache  cache.Cache[rollup.Views]
	group  singleflight.Group
	logger *applog.Logger
}

// NewDashboardService creates the service. views may be nil to disable caching.
func NewDashboardService(store ledger.Lister, engine *rollup.Engine, views cache.Cache[rollup.Views], logger *applog.Logger) *DashboardService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DashboardService{
		store:  store,
		engine: engine,
		cache:  views,
		logger: logger.WithComponent(applog.ComponentRollup),
	}
}

func (s *DashboardService) Year() int { return s.engine.Window().Year() }

// Views returns KPIs, YTD and Monthly computed from a single snapshot.
// The returned value may be shared with other callers and must not be modified.
func (s *DashboardService) Views(ctx context.Context) (rollup.Views, error) {
	versioned, ok := s.store.(ledger.Versioned)
	if !ok {
		return s.compute(ctx)
	}

	version, err := versioned.Version(ctx)
	if err != nil {
		return rollup.Views{}, fmt.Errorf("read ledger version: %w", err)
	}
	key := fmt.Sprintf("views:%d:%d", s.Year(), version)

	if s.cache != nil {
		v, hit, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.WarnContext(ctx, "View cache read failed", applog.FieldError, err)
		} else if hit {
			return v, nil
		}
	}

	res, err, shared := s.group.Do(key, func() (any, error) {
		// Joined callers must not be cancelled by the first caller going away.
		cctx := context.WithoutCancel(ctx)
		views, err := s.compute(cctx)
		if err != nil {
			return rollup.Views{}, err
		}
		if s.cache != nil {
			if err := s.cache.Set(cctx, key, views); err != nil {
				s.logger.WarnContext(cctx, "View cache write failed", applog.FieldError, err)
			}
		}
		return views, nil
	})
	if err != nil {
		return rollup.Views{}, err
	}
	if shared {
		s.logger.DebugContext(ctx, "Shared in-flight recompute", applog.FieldVersion, version)
	}
	return res.(rollup.Views), nil
}

func (s *DashboardService) compute(ctx context.Context) (rollup.Views, error) {
	start := time.Now()
	records, err := s.store.ListAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Ledger snapshot read failed",
			applog.FieldOperation, applog.OpRecompute,
			applog.FieldError, err)
		return rollup.Views{}, fmt.Errorf("read ledger snapshot: %w", err)
	}
	views := s.engine.Recompute(records)
	s.logger.InfoContext(ctx, "Views recomputed",
		applog.FieldOperation, applog.OpRecompute,
		applog.FieldYear, views.Year,
		applog.FieldRecords, len(records),
		applog.FieldDuration, time.Since(start).Milliseconds())
	return views, nil
}

// Stats summarises the ledger for the transactions listing.
func (s *DashboardService) Stats(ctx context.Context) (rollup.Stats, error) {
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return rollup.Stats{}, fmt.Errorf("read ledger snapshot: %w", err)
	}
	return rollup.ComputeStats(records), nil
}

// Snapshot returns every record for listing and export.
func (s *DashboardService) Snapshot(ctx context.Context) ([]core.Transaction, error) {
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ledger snapshot: %w", err)
	}
	return records, nil
}
