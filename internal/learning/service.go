package learning

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"transferdesk/internal/audit"
	"transferdesk/internal/platform/metrics"
	platformredis "transferdesk/internal/platform/redis"
	"transferdesk/internal/tracking/store"
)

const snapshotCacheKey = "transferdesk:learning:snapshot"

// Service serves learning snapshots. Snapshots are rebuilt from the audit
// log and record store on cache expiry; a snapshot may lag the latest
// transition, and serving one never blocks a transition.
type Service struct {
	auditLog       audit.Store
	records        store.RecordStore
	cache          *platformredis.Client
	ttl            time.Duration
	minSubmissions int
	metrics        *metrics.Metrics
	logger         *slog.Logger

	mu        sync.RWMutex
	local     *Snapshot
	fetchedAt time.Time
}

func NewService(auditLog audit.Store, records store.RecordStore, cache *platformredis.Client, ttl time.Duration, minSubmissions int, m *metrics.Metrics, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{
		auditLog:       auditLog,
		records:        records,
		cache:          cache,
		ttl:            ttl,
		minSubmissions: minSubmissions,
		metrics:        m,
		logger:         logger,
	}
}

// Snapshot returns the current learning view, rebuilding it when the cached
// copy has expired. Sparse or missing data is never an error; it shows up as
// low-confidence stats instead.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	if snap, ok := s.cached(ctx); ok {
		return snap, nil
	}
	return s.rebuild(ctx)
}

// Invalidate drops the cached snapshot so the next read rebuilds. Called
// after terminal transitions when freshness matters more than the TTL.
func (s *Service) Invalidate(ctx context.Context) {
	s.mu.Lock()
	s.local = nil
	s.mu.Unlock()
	if s.cache != nil {
		if err := s.cache.Del(ctx, snapshotCacheKey).Err(); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to invalidate learning cache", "error", err)
		}
	}
}

func (s *Service) cached(ctx context.Context) (Snapshot, bool) {
	s.mu.RLock()
	if s.local != nil && time.Since(s.fetchedAt) < s.ttl {
		snap := *s.local
		s.mu.RUnlock()
		return snap, true
	}
	s.mu.RUnlock()

	if s.cache == nil {
		return Snapshot{}, false
	}
	raw, err := s.cache.Get(ctx, snapshotCacheKey).Bytes()
	if err != nil {
		return Snapshot{}, false
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, false
	}
	s.remember(snap)
	return snap, true
}

func (s *Service) rebuild(ctx context.Context) (Snapshot, error) {
	entries, err := s.auditLog.List(ctx, audit.Filter{Action: audit.ActionStatusChange})
	if err != nil {
		return Snapshot{}, err
	}
	records, err := s.records.List(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Recompute(entries, records, s.minSubmissions)
	if s.metrics != nil {
		s.metrics.LearningRecomputes.Inc()
	}
	s.remember(snap)

	if s.cache != nil {
		if raw, err := json.Marshal(snap); err == nil {
			if err := s.cache.Set(ctx, snapshotCacheKey, raw, s.ttl).Err(); err != nil && s.logger != nil {
				s.logger.WarnContext(ctx, "failed to cache learning snapshot", "error", err)
			}
		}
	}
	return snap, nil
}

func (s *Service) remember(snap Snapshot) {
	s.mu.Lock()
	s.local = &snap
	s.fetchedAt = time.Now()
	s.mu.Unlock()
}
