package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/atvirokodosprendimai/rostersync/internal/core/domain"
	"github.com/atvirokodosprendimai/rostersync/internal/core/ports"
)

type memStore struct {
	mu   sync.Mutex
	data map[domain.Collection][]json.RawMessage
}

func newMemStore() *memStore {
	return &memStore{data: make(map[domain.Collection][]json.RawMessage)}
}

func (s *memStore) Load(_ context.Context, c domain.Collection) ([]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]json.RawMessage, len(s.data[c]))
	copy(out, s.data[c])
	return out, nil
}

func (s *memStore) Save(_ context.Context, c domain.Collection, records []json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]json.RawMessage, len(records))
	copy(stored, records)
	s.data[c] = stored
	return nil
}

func (s *memStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[domain.Collection][]json.RawMessage)
	return nil
}

type memSettings struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemSettings() *memSettings {
	return &memSettings{data: make(map[string]string)}
}

func (s *memSettings) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (s *memSettings) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memSettings) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	delete(s.data, key)
	return ok, nil
}

func (s *memSettings) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]string)
	return nil
}

type stubRemote struct {
	mu       sync.Mutex
	selectFn func(ctx context.Context, c domain.Collection, after time.Time) ([]domain.Row, error)
	upsertFn func(ctx context.Context, c domain.Collection, rows []domain.Row) error
	upserts  map[domain.Collection][]domain.Row
}

func (r *stubRemote) SelectNewer(ctx context.Context, c domain.Collection, after time.Time) ([]domain.Row, error) {
	if r.selectFn != nil {
		return r.selectFn(ctx, c, after)
	}
	return nil, nil
}

func (r *stubRemote) Upsert(ctx context.Context, c domain.Collection, rows []domain.Row) error {
	if r.upsertFn != nil {
		return r.upsertFn(ctx, c, rows)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upserts == nil {
		r.upserts = make(map[domain.Collection][]domain.Row)
	}
	r.upserts[c] = append(r.upserts[c], rows...)
	return nil
}

func (r *stubRemote) Ping(context.Context) error {
	return nil
}

func (r *stubRemote) pushed(c domain.Collection) []domain.Row {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.upserts[c]
}

type stubDialer struct {
	remote ports.RemoteStore
	err    error
}

func (d *stubDialer) Dial(context.Context) (ports.RemoteStore, error) {
	return d.remote, d.err
}

type syncFixture struct {
	store    *memStore
	entities *EntityService
	registry *RegistryService
	remote   *stubRemote
	syncer   *SyncService
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	guard, err := NewSchemaGuard()
	if err != nil {
		t.Fatalf("schema guard: %v", err)
	}
	store := newMemStore()
	registry := NewRegistryService(newMemSettings())
	log := zerolog.Nop()
	audit := NewAuditService(store, registry, guard, log)
	entities := NewEntityService(store, nil, guard, audit, log)
	remote := &stubRemote{}
	syncer := NewSyncService(entities, registry, &stubDialer{remote: remote}, log)
	return &syncFixture{store: store, entities: entities, registry: registry, remote: remote, syncer: syncer}
}

func personRow(id, name, updatedAt, syncedAt string) domain.Row {
	row := domain.Row{
		"id":        json.RawMessage(fmt.Sprintf("%q", id)),
		"name":      json.RawMessage(fmt.Sprintf("%q", name)),
		"updatedAt": json.RawMessage(fmt.Sprintf("%q", updatedAt)),
	}
	if syncedAt != "" {
		row["syncedAt"] = json.RawMessage(fmt.Sprintf("%q", syncedAt))
	}
	return row
}

func storePeopleRows(t *testing.T, f *syncFixture, rows ...domain.Row) {
	t.Helper()
	if err := f.entities.SaveRows(context.Background(), domain.CollectionPeople, rows); err != nil {
		t.Fatalf("store people: %v", err)
	}
}

func loadPeopleRows(t *testing.T, f *syncFixture) map[string]domain.Row {
	t.Helper()
	rows, err := f.entities.Rows(context.Background(), domain.CollectionPeople)
	if err != nil {
		t.Fatalf("load people: %v", err)
	}
	byID := make(map[string]domain.Row, len(rows))
	for _, row := range rows {
		byID[row.ID()] = row
	}
	return byID
}

func TestSyncNewerRemoteWins(t *testing.T) {
	f := newSyncFixture(t)
	storePeopleRows(t, f,
		personRow("p1", "Local Name", "2024-06-01T10:00:00Z", "2024-06-01T10:00:00Z"),
	)
	f.remote.selectFn = func(_ context.Context, c domain.Collection, _ time.Time) ([]domain.Row, error) {
		if c != domain.CollectionPeople {
			return nil, nil
		}
		return []domain.Row{
			personRow("p1", "Remote Name", "2024-06-02T10:00:00Z", "2024-06-02T10:00:00Z"),
			personRow("p2", "Brand New", "2024-06-02T11:00:00Z", "2024-06-02T11:00:00Z"),
		}, nil
	}

	report, err := f.syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !report.Ok() {
		t.Fatalf("expected clean report, got failures: %+v", report.Failed())
	}

	people := loadPeopleRows(t, f)
	if len(people) != 2 {
		t.Fatalf("expected union of 2 records, got %d", len(people))
	}
	if got := string(people["p1"]["name"]); got != `"Remote Name"` {
		t.Fatalf("expected newer remote version to win, got %s", got)
	}
	if _, ok := people["p2"]; !ok {
		t.Fatal("expected remote-only record to be added")
	}

	mark, ok, err := f.registry.Watermark(context.Background(), domain.CollectionPeople)
	if err != nil || !ok {
		t.Fatalf("expected stored watermark, ok=%v err=%v", ok, err)
	}
	want := time.Date(2024, 6, 2, 11, 0, 0, 0, time.UTC)
	if !mark.Equal(want) {
		t.Fatalf("expected watermark %v, got %v", want, mark)
	}
}

func TestSyncTieKeepsLocal(t *testing.T) {
	f := newSyncFixture(t)
	storePeopleRows(t, f,
		personRow("p1", "Local Name", "2024-06-01T10:00:00Z", "2024-06-01T10:00:00Z"),
	)
	f.remote.selectFn = func(_ context.Context, c domain.Collection, _ time.Time) ([]domain.Row, error) {
		if c != domain.CollectionPeople {
			return nil, nil
		}
		return []domain.Row{
			personRow("p1", "Remote Name", "2024-06-01T10:00:00Z", "2024-06-01T10:00:00Z"),
		}, nil
	}

	if _, err := f.syncer.Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	people := loadPeopleRows(t, f)
	if got := string(people["p1"]["name"]); got != `"Local Name"` {
		t.Fatalf("expected tie to keep local version, got %s", got)
	}
}

func TestSyncPushesDirtyOnce(t *testing.T) {
	f := newSyncFixture(t)
	storePeopleRows(t, f,
		personRow("p1", "Never Pushed", "2024-06-01T10:00:00Z", ""),
		personRow("p2", "Already Clean", "2024-06-01T09:00:00Z", "2024-06-01T09:00:00Z"),
	)

	if _, err := f.syncer.Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	pushed := f.remote.pushed(domain.CollectionPeople)
	if len(pushed) != 1 || pushed[0].ID() != "p1" {
		t.Fatalf("expected exactly the dirty record pushed, got %+v", pushed)
	}
	if _, ok := pushed[0].SyncedAt(); !ok {
		t.Fatal("expected pushed row to carry syncedAt")
	}

	people := loadPeopleRows(t, f)
	if people["p1"].Dirty() {
		t.Fatal("expected pushed record to be clean locally")
	}

	// A second cycle with no changes on either side moves nothing.
	f.remote.upserts = nil
	if _, err := f.syncer.Sync(context.Background()); err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if pushed := f.remote.pushed(domain.CollectionPeople); len(pushed) != 0 {
		t.Fatalf("expected idempotent second cycle, pushed %+v", pushed)
	}
}

func TestSyncOverwrittenLocalNotPushed(t *testing.T) {
	f := newSyncFixture(t)
	// Dirty local version that loses the merge must not be pushed afterwards.
	storePeopleRows(t, f,
		personRow("p1", "Stale Local", "2024-06-01T10:00:00Z", ""),
	)
	f.remote.selectFn = func(_ context.Context, c domain.Collection, _ time.Time) ([]domain.Row, error) {
		if c != domain.CollectionPeople {
			return nil, nil
		}
		return []domain.Row{
			personRow("p1", "Fresh Remote", "2024-06-02T10:00:00Z", "2024-06-02T10:00:00Z"),
		}, nil
	}

	if _, err := f.syncer.Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if pushed := f.remote.pushed(domain.CollectionPeople); len(pushed) != 0 {
		t.Fatalf("expected overwritten local version not to be pushed, got %+v", pushed)
	}
}

func TestSyncFailedPushKeepsDirty(t *testing.T) {
	f := newSyncFixture(t)
	storePeopleRows(t, f,
		personRow("p1", "Never Pushed", "2024-06-01T10:00:00Z", ""),
	)
	f.remote.upsertFn = func(_ context.Context, c domain.Collection, _ []domain.Row) error {
		if c == domain.CollectionPeople {
			return errors.New("remote down")
		}
		return nil
	}

	report, err := f.syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	failed := report.Failed()
	if len(failed) != 1 || failed[0].Collection != domain.CollectionPeople {
		t.Fatalf("expected only people to fail, got %+v", failed)
	}

	people := loadPeopleRows(t, f)
	if !people["p1"].Dirty() {
		t.Fatal("expected record to stay dirty after failed push")
	}
}

func TestSyncCollectionsFailIndependently(t *testing.T) {
	f := newSyncFixture(t)
	f.remote.selectFn = func(_ context.Context, c domain.Collection, _ time.Time) ([]domain.Row, error) {
		if c == domain.CollectionActivities {
			return nil, errors.New("table unavailable")
		}
		return nil, nil
	}

	report, err := f.syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(report.Results) != 4 {
		t.Fatalf("expected 4 collection results, got %d", len(report.Results))
	}
	for _, res := range report.Results {
		failed := res.Collection == domain.CollectionActivities
		if res.Failed() != failed {
			t.Fatalf("collection %s: failed=%v, want %v", res.Collection, res.Failed(), failed)
		}
	}
}

func TestSyncRejectsOverlappingCycle(t *testing.T) {
	f := newSyncFixture(t)
	f.syncer.running.Lock()
	defer f.syncer.running.Unlock()

	if _, err := f.syncer.Sync(context.Background()); !errors.Is(err, domain.ErrSyncInFlight) {
		t.Fatalf("expected sync-in-flight rejection, got %v", err)
	}
}

func TestSyncWithoutRemoteConfig(t *testing.T) {
	f := newSyncFixture(t)
	f.syncer.dialer = &stubDialer{err: domain.ErrRemoteNotConfigured}

	if _, err := f.syncer.Sync(context.Background()); !errors.Is(err, domain.ErrRemoteNotConfigured) {
		t.Fatalf("expected remote-not-configured error, got %v", err)
	}
}

func TestSyncStatusReportsLastCycle(t *testing.T) {
	f := newSyncFixture(t)
	if _, ok := f.syncer.Status(); ok {
		t.Fatal("expected no status before the first cycle")
	}

	if _, err := f.syncer.Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	report, ok := f.syncer.Status()
	if !ok || len(report.Results) != 4 {
		t.Fatalf("expected stored report with 4 results, ok=%v", ok)
	}
}

func TestMergeRows(t *testing.T) {
	local := []domain.Row{
		personRow("p1", "Old", "2024-06-01T10:00:00Z", ""),
	}
	pulled := []domain.Row{
		personRow("p1", "New", "2024-06-02T10:00:00Z", ""),
		personRow("p2", "Added", "2024-06-02T10:00:00Z", ""),
	}

	merged, changed := mergeRows(local, pulled)
	if !changed || len(merged) != 2 {
		t.Fatalf("expected changed merge of 2 rows, changed=%v len=%d", changed, len(merged))
	}

	merged, changed = mergeRows(local, nil)
	if changed || len(merged) != 1 {
		t.Fatalf("expected no-op merge, changed=%v len=%d", changed, len(merged))
	}
}
