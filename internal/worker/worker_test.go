package worker

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"challengeapp/internal/config"
	"challengeapp/internal/models"
	"challengeapp/internal/observability"
	"challengeapp/internal/scheduler"
	contextutils "challengeapp/internal/utils"
)

type fakeUsers struct {
	users []models.User
}

func (f *fakeUsers) CreateUser(_ context.Context, _, _, _, _ string, _ []string) (*models.User, error) {
	panic("not used in this test")
}
func (f *fakeUsers) AuthenticateUser(_ context.Context, _, _ string) (*models.User, error) {
	panic("not used in this test")
}
func (f *fakeUsers) GetUserByID(_ context.Context, _ int) (*models.User, error) {
	panic("not used in this test")
}
func (f *fakeUsers) GetUserByUsername(_ context.Context, _ string) (*models.User, error) {
	panic("not used in this test")
}
func (f *fakeUsers) ListUsers(_ context.Context) ([]models.User, error) {
	return f.users, nil
}
func (f *fakeUsers) UpdateSubscriptions(_ context.Context, _ int, _ []string) error {
	panic("not used in this test")
}
func (f *fakeUsers) UpdatePassword(_ context.Context, _ int, _ string) error {
	panic("not used in this test")
}
func (f *fakeUsers) DeleteUser(_ context.Context, _ int) error {
	panic("not used in this test")
}

type fakeDaily struct {
	picks   map[int]*scheduler.DailyPick
	failFor map[int]bool
}

func (f *fakeDaily) CurrentForMatiere(_ context.Context, _ string, _ time.Time) (*models.Challenge, error) {
	panic("not used in this test")
}

func (f *fakeDaily) ChallengeOfTheDay(_ context.Context, user *models.User, _ time.Time) (*scheduler.DailyPick, error) {
	if f.failFor[user.ID] {
		return nil, contextutils.ErrDatabaseQuery
	}
	return f.picks[user.ID], nil
}

type fakeEmail struct {
	enabled     bool
	alreadySent map[int]bool
	sentTo      []int
	recorded    map[int]string
}

func newFakeEmail() *fakeEmail {
	return &fakeEmail{
		enabled:     true,
		alreadySent: map[int]bool{},
		recorded:    map[int]string{},
	}
}

func (f *fakeEmail) IsEnabled() bool { return f.enabled }

func (f *fakeEmail) SendDailyChallenge(_ context.Context, user *models.User, _ *scheduler.DailyPick) error {
	f.sentTo = append(f.sentTo, user.ID)
	return nil
}

func (f *fakeEmail) HasSentDailyChallenge(_ context.Context, userID int, _ time.Time) (bool, error) {
	return f.alreadySent[userID], nil
}

func (f *fakeEmail) RecordSentNotification(_ context.Context, userID int, _, status, _ string) error {
	f.recorded[userID] = status
	return nil
}

func withEmail(addr string) sql.NullString {
	return sql.NullString{String: addr, Valid: addr != ""}
}

func testWorker(users []models.User, daily *fakeDaily, email *fakeEmail) *Worker {
	cfg := &config.Config{}
	cfg.Email.Enabled = true
	cfg.Email.DailyChallenge.Enabled = true
	cfg.Email.DailyChallenge.Hour = 8
	return NewWorker(cfg, observability.NewLogger(nil), &fakeUsers{users: users}, daily, email)
}

func TestShouldSendOnlyAtConfiguredHour(t *testing.T) {
	w := testWorker(nil, &fakeDaily{}, newFakeEmail())

	assert.True(t, w.shouldSend(time.Date(2024, time.March, 10, 8, 30, 0, 0, time.UTC)))
	assert.False(t, w.shouldSend(time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)))
}

func TestShouldSendDisabled(t *testing.T) {
	email := newFakeEmail()
	email.enabled = false
	w := testWorker(nil, &fakeDaily{}, email)

	assert.False(t, w.shouldSend(time.Date(2024, time.March, 10, 8, 0, 0, 0, time.UTC)))
}

func TestRunDailySend(t *testing.T) {
	pick := &scheduler.DailyPick{
		Challenge: &models.Challenge{Ref: "MAT-001", Question: "1+1?"},
		Matiere:   "maths",
	}
	users := []models.User{
		{ID: 1, Username: "alice", Email: withEmail("alice@example.com"), Subscriptions: "maths"},
		// bob has no email, carol has nothing to serve, dave was already
		// emailed today, erin's selection fails.
		{ID: 2, Username: "bob", Email: withEmail("")},
		{ID: 3, Username: "carol", Email: withEmail("carol@example.com")},
		{ID: 4, Username: "dave", Email: withEmail("dave@example.com"), Subscriptions: "maths"},
		{ID: 5, Username: "erin", Email: withEmail("erin@example.com"), Subscriptions: "maths"},
	}
	daily := &fakeDaily{
		picks:   map[int]*scheduler.DailyPick{1: pick, 4: pick, 5: pick},
		failFor: map[int]bool{5: true},
	}
	email := newFakeEmail()
	email.alreadySent[4] = true

	w := testWorker(users, daily, email)
	w.RunDailySend(context.Background(), time.Date(2024, time.March, 10, 8, 0, 0, 0, time.UTC))

	assert.Equal(t, []int{1}, email.sentTo)
	assert.Equal(t, "sent", email.recorded[1])
	_, recordedForErin := email.recorded[5]
	assert.False(t, recordedForErin, "a failed selection must not record a notification")
}
