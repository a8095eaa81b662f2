package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"challengeapp/internal/config"
	"challengeapp/internal/models"
	"challengeapp/internal/observability"
	"challengeapp/internal/scheduler"
)

func TestEmailServiceDisabledIsNoOp(t *testing.T) {
	cfg := &config.Config{}
	svc := NewEmailService(cfg, observability.NewLogger(nil), nil)

	assert.False(t, svc.IsEnabled())

	pick := &scheduler.DailyPick{
		Challenge: &models.Challenge{Ref: "MAT-001", Question: "1+1?"},
		Matiere:   "maths",
	}
	err := svc.SendDailyChallenge(context.Background(), &models.User{ID: 1, Username: "alice"}, pick)
	assert.NoError(t, err)
}

func TestDayWindowFollowsLocalDate(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)

	// 05:15 and 05:45 local sit on either side of UTC midnight but belong
	// to the same local day, so both must resolve to one window.
	early := time.Date(2024, 3, 10, 5, 15, 0, 0, kolkata)
	late := time.Date(2024, 3, 10, 5, 45, 0, 0, kolkata)

	earlyStart, earlyEnd := dayWindow(early)
	lateStart, lateEnd := dayWindow(late)

	assert.True(t, earlyStart.Equal(lateStart))
	assert.True(t, earlyEnd.Equal(lateEnd))
	assert.True(t, earlyStart.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, kolkata)))
	assert.True(t, earlyEnd.Equal(time.Date(2024, 3, 11, 0, 0, 0, 0, kolkata)))

	// A send recorded at 05:15 local falls inside the window checked at
	// 05:45 local, even though its UTC date is the day before.
	sentAt := early.UTC()
	assert.False(t, sentAt.Before(lateStart))
	assert.True(t, sentAt.Before(lateEnd))
}

func TestRenderDailyChallengeBody(t *testing.T) {
	user := &models.User{Username: "alice"}
	pick := &scheduler.DailyPick{
		Challenge: &models.Challenge{Ref: "MAT-001", Question: "What is 6 x 7?"},
		Matiere:   "maths",
	}

	body, err := renderDailyChallengeBody(user, pick)
	require.NoError(t, err)
	assert.Contains(t, body, "alice")
	assert.Contains(t, body, "maths")
	assert.Contains(t, body, "What is 6 x 7?")
	assert.Contains(t, body, "MAT-001")
}
