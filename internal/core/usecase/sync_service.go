package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/atvirokodosprendimai/rostersync/internal/core/domain"
	"github.com/atvirokodosprendimai/rostersync/internal/core/ports"
)

// SyncService reconciles the three entity collections and the audit log
// against the remote store. It is stateless between invocations apart from
// the last report kept for status queries; everything durable flows through
// the entity store and the watermark store.
//
// One cycle runs the four collections concurrently but independently: each
// pulls remote rows newer than its watermark, merges them last-write-wins,
// pushes its dirty rows as a single batch, and persists only if anything
// changed. A failure in one collection never blocks the others.
type SyncService struct {
	entities *EntityService
	marks    ports.WatermarkStore
	dialer   ports.RemoteDialer
	log      zerolog.Logger

	running sync.Mutex

	mu   sync.Mutex
	last *domain.SyncReport
}

func NewSyncService(entities *EntityService, marks ports.WatermarkStore, dialer ports.RemoteDialer, log zerolog.Logger) *SyncService {
	return &SyncService{entities: entities, marks: marks, dialer: dialer, log: log}
}

// Sync runs one full cycle. A second invocation while one is in flight is
// rejected with domain.ErrSyncInFlight rather than queued; overlapping
// cycles against the same files could interleave non-atomically.
func (s *SyncService) Sync(ctx context.Context) (domain.SyncReport, error) {
	if !s.running.TryLock() {
		return domain.SyncReport{}, domain.ErrSyncInFlight
	}
	defer s.running.Unlock()

	remote, err := s.dialer.Dial(ctx)
	if err != nil {
		return domain.SyncReport{}, err
	}

	report := domain.SyncReport{StartedAt: time.Now().UTC()}
	collections := domain.Collections()
	results := make([]domain.CollectionResult, len(collections))

	var wg sync.WaitGroup
	for i, c := range collections {
		wg.Add(1)
		go func(i int, c domain.Collection) {
			defer wg.Done()
			results[i] = s.syncCollection(ctx, remote, c)
		}(i, c)
	}
	wg.Wait()

	report.FinishedAt = time.Now().UTC()
	report.Results = results

	syncCyclesTotal.Inc()
	for _, res := range results {
		label := string(res.Collection)
		syncPulledTotal.WithLabelValues(label).Add(float64(res.Pulled))
		syncPushedTotal.WithLabelValues(label).Add(float64(res.Pushed))
		if res.Failed() {
			syncFailuresTotal.WithLabelValues(label).Inc()
			s.log.Warn().Err(res.Err).Str("collection", label).Msg("collection sync failed")
		} else {
			s.log.Info().
				Str("collection", label).
				Int("pulled", res.Pulled).
				Int("pushed", res.Pushed).
				Bool("persisted", res.Persisted).
				Msg("collection synced")
		}
	}

	s.mu.Lock()
	s.last = &report
	s.mu.Unlock()
	return report, nil
}

// Status returns the report of the most recent completed cycle.
func (s *SyncService) Status() (domain.SyncReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return domain.SyncReport{}, false
	}
	return *s.last, true
}

func (s *SyncService) syncCollection(ctx context.Context, remote ports.RemoteStore, c domain.Collection) domain.CollectionResult {
	res := domain.CollectionResult{Collection: c}

	local, err := s.entities.Rows(ctx, c)
	if err != nil {
		res.Err = fmt.Errorf("load %s: %w", c, err)
		return res
	}

	// The cutoff is the stored per-collection watermark. On the very first
	// cycle it falls back to the newest local timestamp, matching what a
	// fresh install can know.
	cutoff, hasMark, err := s.marks.Watermark(ctx, c)
	if err != nil {
		res.Err = fmt.Errorf("watermark %s: %w", c, err)
		return res
	}
	if !hasMark {
		cutoff = domain.MaxUpdatedAt(local)
	}

	pulled, err := remote.SelectNewer(ctx, c, cutoff)
	if err != nil {
		res.Err = fmt.Errorf("pull %s: %w", c, err)
		return res
	}
	res.Pulled = len(pulled)

	if err := s.entities.ValidateRows(ctx, c, pulled); err != nil {
		res.Err = fmt.Errorf("pulled %s rows rejected: %w", c, err)
		return res
	}

	merged, changed := mergeRows(local, pulled)

	// Push every dirty record post-merge as one batch; a failed batch must
	// not stamp syncedAt on any record in it.
	now := time.Now().UTC()
	var batch []domain.Row
	for _, row := range merged {
		if row.Dirty() {
			out := row.Clone()
			out.SetSyncedAt(now)
			batch = append(batch, out)
		}
	}
	if len(batch) > 0 {
		if err := remote.Upsert(ctx, c, batch); err != nil {
			res.Err = fmt.Errorf("push %s: %w", c, err)
			return res
		}
		pushed := make(map[string]struct{}, len(batch))
		for _, row := range batch {
			pushed[row.ID()] = struct{}{}
		}
		for i, row := range merged {
			if _, ok := pushed[row.ID()]; ok {
				stamped := row.Clone()
				stamped.SetSyncedAt(now)
				merged[i] = stamped
			}
		}
		res.Pushed = len(batch)
		changed = true
	}

	if changed {
		if c == domain.CollectionAuditLogs {
			merged = trimAuditRows(merged)
		}
		if err := s.entities.SaveRows(ctx, c, merged); err != nil {
			res.Err = fmt.Errorf("persist %s: %w", c, err)
			return res
		}
		res.Persisted = true
	}

	// Advance the watermark only after the whole cycle succeeded, so a
	// failed merge or push re-pulls the same delta next time.
	mark := cutoff
	for _, row := range pulled {
		if at := row.UpdatedAt(); at.After(mark) {
			mark = at
		}
	}
	if !hasMark || mark.After(cutoff) {
		if err := s.marks.SetWatermark(ctx, c, mark); err != nil {
			s.log.Warn().Err(err).Str("collection", string(c)).Msg("watermark not advanced")
		}
	}
	return res
}

// mergeRows reconciles pulled remote rows into the local set. A remote row
// replaces its local counterpart only when its timestamp is strictly newer;
// ties keep the local record. No field-level merging, the row is replaced or
// kept whole. The result's id set is the union of both inputs.
func mergeRows(local, pulled []domain.Row) ([]domain.Row, bool) {
	merged := make([]domain.Row, len(local))
	copy(merged, local)

	index := make(map[string]int, len(merged))
	for i, row := range merged {
		index[row.ID()] = i
	}

	changed := false
	for _, remote := range pulled {
		id := remote.ID()
		if id == "" {
			continue
		}
		if i, ok := index[id]; ok {
			if remote.UpdatedAt().After(merged[i].UpdatedAt()) {
				merged[i] = remote
				changed = true
			}
			continue
		}
		index[id] = len(merged)
		merged = append(merged, remote)
		changed = true
	}
	return merged, changed
}

// trimAuditRows keeps the newest MaxAuditEntries entries, most recent first,
// mirroring the append-side retention policy after a merge brings in remote
// entries.
func trimAuditRows(rows []domain.Row) []domain.Row {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].UpdatedAt().After(rows[j].UpdatedAt())
	})
	if len(rows) > MaxAuditEntries {
		rows = rows[:MaxAuditEntries]
	}
	return rows
}
