package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-merit-api/internal/models"
	"github.com/noah-isme/sma-merit-api/internal/repository"
	appErrors "github.com/noah-isme/sma-merit-api/pkg/errors"
	"github.com/noah-isme/sma-merit-api/pkg/seed"
	"github.com/noah-isme/sma-merit-api/pkg/tablestore"
)

var (
	adminActor    = models.Staff{Username: "admin", FullName: "Admin", Role: models.RoleAdmin}
	homeroomActor = models.Staff{Username: "gv01", FullName: "Ms. Nguyen Thi Lan", Role: models.RoleHomeroom, HomeroomClass: "10A1"}
	proctorActor  = models.Staff{Username: "gt01", FullName: "Mr. Vo Quoc Bao", Role: models.RoleProctor}
	kitchenActor  = models.Staff{Username: "bep01", FullName: "Mrs. Hoang Thu", Role: models.RoleKitchen}
)

// fixedNow is Monday 2024-10-07 09:30 in Asia/Ho_Chi_Minh.
var fixedNow = time.Date(2024, 10, 7, 2, 30, 0, 0, time.UTC)

type fixture struct {
	store     tablestore.Transport
	catalog   *repository.CatalogRepository
	events    *repository.EventRepository
	plans     *repository.PlanRepository
	resolver  *ScoringResolver
	cacheRepo *memoryCacheRepo
	cache     *CacheService
	metrics   *MetricsService
	ledger    *LedgerService
	agg       *AggregationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := tablestore.NewMemory(repository.Schema())
	catalog := repository.NewCatalogRepository(store, "Absent")
	doc, err := seed.Default()
	require.NoError(t, err)
	_, err = catalog.Provision(context.Background(), doc)
	require.NoError(t, err)

	f := &fixture{
		store:     store,
		catalog:   catalog,
		events:    repository.NewEventRepository(store),
		plans:     repository.NewPlanRepository(store),
		resolver:  NewScoringResolver(catalog),
		cacheRepo: newMemoryCacheRepo(),
		metrics:   NewMetricsService(),
	}
	f.cache = NewCacheService(f.cacheRepo, f.metrics, time.Minute, nil, true)
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	require.NoError(t, err)
	f.ledger = NewLedgerService(catalog, f.events, f.resolver, f.cache, f.metrics, nil, nil, loc)
	f.ledger.now = func() time.Time { return fixedNow }
	f.agg = NewAggregationService(catalog, f.events, f.plans, f.cache, nil, "Absent", loc)
	f.agg.now = func() time.Time { return fixedNow }
	return f
}

type memoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
	evicted int
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var value int64
	if raw, ok := m.entries[key]; ok {
		if err := json.Unmarshal(raw, &value); err != nil {
			return 0, err
		}
	}
	value++
	raw, err := json.Marshal(value)
	if err != nil {
		return 0, err
	}
	m.entries[key] = raw
	return value, nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
			m.evicted++
		}
	}
	return nil
}
