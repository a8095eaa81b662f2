package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"challengeapp/internal/models"
	"challengeapp/internal/observability"
)

type memCatalog struct {
	challenges map[string][]models.Challenge
}

func (m *memCatalog) ListChallenges(_ context.Context, matiere string) ([]models.Challenge, error) {
	return m.challenges[matiere], nil
}

type memLedger struct {
	mu      sync.Mutex
	records map[string]string
	inserts int
}

func newMemLedger() *memLedger {
	return &memLedger{records: make(map[string]string)}
}

func ledgerKey(matiere, granularite string, tick int) string {
	return fmt.Sprintf("%s|%s|%d", matiere, granularite, tick)
}

func (m *memLedger) Lookup(_ context.Context, matiere, granularite string, tick int) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref, ok := m.records[ledgerKey(matiere, granularite, tick)]
	return ref, ok, nil
}

func (m *memLedger) Record(_ context.Context, matiere, granularite string, tick int, ref string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ledgerKey(matiere, granularite, tick)
	if existing, ok := m.records[key]; ok {
		return existing, nil
	}
	m.records[key] = ref
	m.inserts++
	return ref, nil
}

func (m *memLedger) AllServedRefs(_ context.Context, matiere, granularite string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := matiere + "|" + granularite + "|"
	served := make(map[string]bool)
	for key, ref := range m.records {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			served[ref] = true
		}
	}
	return served, nil
}

func (m *memLedger) Reset(_ context.Context, matiere, granularite string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := matiere + "|" + granularite + "|"
	for key := range m.records {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(m.records, key)
		}
	}
	return nil
}

func mathCatalog() *memCatalog {
	return &memCatalog{challenges: map[string][]models.Challenge{
		"maths": {
			{ID: 1, Ref: "MAT-001", Question: "1+1?", Matiere: "maths", Date: "2024-01-01"},
			{ID: 2, Ref: "MAT-002", Question: "2+2?", Matiere: "maths", Date: "2024-01-02"},
			{ID: 3, Ref: "MAT-003", Question: "3+3?", Matiere: "maths", Date: "2024-01-03"},
		},
	}}
}

func testSelector(catalog CatalogReader, ledger ServedLedger) *Selector {
	return NewSelector(catalog, ledger, observability.NewLogger(nil))
}

func TestSelectorCurrentIsIdempotentWithinTick(t *testing.T) {
	ledger := newMemLedger()
	s := testSelector(mathCatalog(), ledger)
	ctx := context.Background()
	now := date(2024, time.January, 3)

	first, err := s.Current(ctx, "maths", "semaine", "2024-01-01", now)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "MAT-001", first.Ref)

	for i := 0; i < 5; i++ {
		again, err := s.Current(ctx, "maths", "semaine", "2024-01-01", now)
		require.NoError(t, err)
		require.NotNil(t, again)
		assert.Equal(t, first.Ref, again.Ref)
	}
	assert.Equal(t, 1, ledger.inserts, "repeated calls within one tick must write once")
}

func TestSelectorNoRepeatBeforeExhaustion(t *testing.T) {
	ledger := newMemLedger()
	s := testSelector(mathCatalog(), ledger)
	ctx := context.Background()

	var served []string
	for week := 0; week < 3; week++ {
		now := date(2024, time.January, 1).AddDate(0, 0, week*7)
		ch, err := s.Current(ctx, "maths", "semaine", "2024-01-01", now)
		require.NoError(t, err)
		require.NotNil(t, ch)
		served = append(served, ch.Ref)
	}
	assert.Equal(t, []string{"MAT-001", "MAT-002", "MAT-003"}, served)
}

func TestSelectorResetsAfterExhaustion(t *testing.T) {
	ledger := newMemLedger()
	s := testSelector(mathCatalog(), ledger)
	ctx := context.Background()

	for week := 0; week < 3; week++ {
		_, err := s.Current(ctx, "maths", "semaine", "2024-01-01", date(2024, time.January, 1).AddDate(0, 0, week*7))
		require.NoError(t, err)
	}

	// Fourth period: the cycle is exhausted and restarts from the top.
	ch, err := s.Current(ctx, "maths", "semaine", "2024-01-01", date(2024, time.January, 22))
	require.NoError(t, err)
	require.NotNil(t, ch)
	assert.Equal(t, "MAT-001", ch.Ref)

	served, err := ledger.AllServedRefs(ctx, "maths", "semaine")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"MAT-001": true}, served, "reset must clear prior cycle history")
}

func TestSelectorEmptyCatalog(t *testing.T) {
	s := testSelector(&memCatalog{challenges: map[string][]models.Challenge{}}, newMemLedger())

	ch, err := s.Current(context.Background(), "histoire", "jour", "2024-01-01", date(2024, time.June, 1))
	require.NoError(t, err)
	assert.Nil(t, ch)
}

func TestSelectorRecordedRefMissingFromCatalog(t *testing.T) {
	ledger := newMemLedger()
	_, err := ledger.Record(context.Background(), "maths", "jour", 5, "MAT-999")
	require.NoError(t, err)

	s := testSelector(mathCatalog(), ledger)
	ch, err := s.Current(context.Background(), "maths", "jour", "2024-01-01", date(2024, time.January, 6))
	require.NoError(t, err)
	assert.Nil(t, ch, "a recorded ref gone from the catalog serves nothing rather than failing")
}

func TestSelectorConfigErrorPropagates(t *testing.T) {
	s := testSelector(mathCatalog(), newMemLedger())

	_, err := s.Current(context.Background(), "maths", "quinzaine", "2024-01-01", date(2024, time.June, 1))
	require.Error(t, err)
}

func TestSelectorConcurrentCallersAgree(t *testing.T) {
	ledger := newMemLedger()
	s := testSelector(mathCatalog(), ledger)
	now := date(2024, time.January, 2)

	const callers = 32
	refs := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ch, err := s.Current(context.Background(), "maths", "semaine", "2024-01-01", now)
			assert.NoError(t, err)
			if assert.NotNil(t, ch) {
				refs[i] = ch.Ref
			}
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.Equal(t, refs[0], refs[i])
	}
	assert.Equal(t, 1, ledger.inserts, "concurrent callers for one tick must produce a single write")
}
