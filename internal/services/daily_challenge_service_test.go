package services

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"challengeapp/internal/config"
	"challengeapp/internal/models"
	"challengeapp/internal/observability"
)

type fakeChallengeService struct {
	challenges map[string][]models.Challenge
}

func (f *fakeChallengeService) CreateChallenge(_ context.Context, _, _, _ string) (*models.Challenge, error) {
	panic("not used in this test")
}

func (f *fakeChallengeService) ListChallenges(_ context.Context, matiere string) ([]models.Challenge, error) {
	return f.challenges[matiere], nil
}

func (f *fakeChallengeService) GetChallengeByRef(_ context.Context, _ string) (*models.Challenge, error) {
	panic("not used in this test")
}

func (f *fakeChallengeService) BackfillRefs(_ context.Context) (int, error) {
	panic("not used in this test")
}

type fakeLedgerService struct {
	mu      sync.Mutex
	records map[string]string
}

func newFakeLedger() *fakeLedgerService {
	return &fakeLedgerService{records: make(map[string]string)}
}

func (f *fakeLedgerService) key(matiere, granularite string, tick int) string {
	return matiere + "|" + granularite + "|" + strconv.Itoa(tick)
}

func (f *fakeLedgerService) Lookup(_ context.Context, matiere, granularite string, tick int) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref, ok := f.records[f.key(matiere, granularite, tick)]
	return ref, ok, nil
}

func (f *fakeLedgerService) Record(_ context.Context, matiere, granularite string, tick int, ref string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := f.key(matiere, granularite, tick)
	if existing, ok := f.records[k]; ok {
		return existing, nil
	}
	f.records[k] = ref
	return ref, nil
}

func (f *fakeLedgerService) AllServedRefs(_ context.Context, matiere, granularite string) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	served := make(map[string]bool)
	for _, ref := range f.records {
		served[ref] = true
	}
	return served, nil
}

func (f *fakeLedgerService) Reset(_ context.Context, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = make(map[string]string)
	return nil
}

func (f *fakeLedgerService) History(_ context.Context, _, _ string) ([]models.ChallengeServed, error) {
	panic("not used in this test")
}

type fakeMatiereService struct {
	granularities map[string]string
	fallback      string
}

func (f *fakeMatiereService) CreateMatiere(_ context.Context, _, _, _ string) (*models.Matiere, error) {
	panic("not used in this test")
}

func (f *fakeMatiereService) GetMatiere(_ context.Context, _ string) (*models.Matiere, error) {
	panic("not used in this test")
}

func (f *fakeMatiereService) ListMatieres(_ context.Context) ([]models.Matiere, error) {
	panic("not used in this test")
}

func (f *fakeMatiereService) SetGranularity(_ context.Context, _, _ string) error {
	panic("not used in this test")
}

func (f *fakeMatiereService) GranularityFor(_ context.Context, name string) (string, error) {
	if g, ok := f.granularities[name]; ok {
		return g, nil
	}
	return f.fallback, nil
}

func newTestDailyChallengeService(challenges map[string][]models.Challenge, granularities map[string]string) *DailyChallengeService {
	cfg := &config.Config{}
	cfg.Scheduler.ReferenceDate = "2024-01-01"
	cfg.Scheduler.DefaultGranularity = "semaine"
	logger := observability.NewLogger(nil)
	return NewDailyChallengeService(
		cfg,
		logger,
		&fakeChallengeService{challenges: challenges},
		newFakeLedger(),
		&fakeMatiereService{granularities: granularities, fallback: "semaine"},
	)
}

func TestCurrentForMatiereUsesSubjectGranularity(t *testing.T) {
	svc := newTestDailyChallengeService(
		map[string][]models.Challenge{
			"maths": {
				{ID: 1, Ref: "MAT-001", Question: "1+1?", Matiere: "maths", Date: "2024-01-01"},
				{ID: 2, Ref: "MAT-002", Question: "2+2?", Matiere: "maths", Date: "2024-01-02"},
			},
		},
		map[string]string{"maths": "jour"},
	)
	ctx := context.Background()

	day1, err := svc.CurrentForMatiere(ctx, "maths", time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, day1)
	assert.Equal(t, "MAT-001", day1.Ref)

	// Daily granularity: the next calendar day is a new period.
	day2, err := svc.CurrentForMatiere(ctx, "maths", time.Date(2024, time.January, 2, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, day2)
	assert.Equal(t, "MAT-002", day2.Ref)
}

func TestCurrentForMatiereDefaultGranularity(t *testing.T) {
	svc := newTestDailyChallengeService(
		map[string][]models.Challenge{
			"histoire": {
				{ID: 1, Ref: "HIS-001", Question: "When?", Matiere: "histoire", Date: "2024-01-01"},
				{ID: 2, Ref: "HIS-002", Question: "Where?", Matiere: "histoire", Date: "2024-01-02"},
			},
		},
		nil, // no explicit granularity, fallback is semaine
	)
	ctx := context.Background()

	// Same week, different days: one period, same challenge.
	monday, err := svc.CurrentForMatiere(ctx, "histoire", time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, monday)

	friday, err := svc.CurrentForMatiere(ctx, "histoire", time.Date(2024, time.January, 5, 20, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, friday)
	assert.Equal(t, monday.Ref, friday.Ref)
}

func TestChallengeOfTheDayNoSubscriptions(t *testing.T) {
	svc := newTestDailyChallengeService(nil, nil)

	pick, err := svc.ChallengeOfTheDay(context.Background(), &models.User{ID: 1, Subscriptions: ""}, time.Now())
	require.NoError(t, err)
	assert.Nil(t, pick)
}

func TestChallengeOfTheDayAcrossSubscriptions(t *testing.T) {
	svc := newTestDailyChallengeService(
		map[string][]models.Challenge{
			"maths": {
				{ID: 1, Ref: "MAT-001", Question: "1+1?", Matiere: "maths", Date: "2024-01-01"},
			},
			"histoire": {
				{ID: 2, Ref: "HIS-001", Question: "When?", Matiere: "histoire", Date: "2024-01-01"},
			},
		},
		nil,
	)
	user := &models.User{ID: 7, Subscriptions: "maths, histoire, anglais"}

	pick, err := svc.ChallengeOfTheDay(context.Background(), user, time.Date(2024, time.February, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, pick)
	// anglais has no content and must not appear among available subjects.
	assert.Equal(t, []string{"maths", "histoire"}, pick.Available)
	assert.Contains(t, []string{"MAT-001", "HIS-001"}, pick.Challenge.Ref)
}
