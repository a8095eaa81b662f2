package scheduler

import (
	"context"
	"strings"
	"time"

	"challengeapp/internal/models"
	"challengeapp/internal/observability"
)

// SubjectSelector resolves the current challenge for one subject. It is the
// slice of the selection pipeline the daily aggregation needs; the full
// implementation lives in the daily challenge service.
type SubjectSelector interface {
	CurrentForMatiere(ctx context.Context, matiere string, now time.Time) (*models.Challenge, error)
}

// DailyPick is the outcome of the challenge-of-the-day aggregation: the
// chosen challenge, the subject it came from, and every subscribed subject
// that had a challenge available today.
type DailyPick struct {
	Challenge *models.Challenge `json:"challenge"`
	Matiere   string            `json:"matiere"`
	Available []string          `json:"available_matieres"`
}

// Aggregator computes a single challenge of the day across a user's subject
// subscriptions. The pick is deterministic for a given date and subscription
// list and rotates daily across the subjects that have content.
type Aggregator struct {
	selector SubjectSelector
	logger   *observability.Logger
}

// NewAggregator creates an Aggregator backed by the given selector.
func NewAggregator(selector SubjectSelector, logger *observability.Logger) *Aggregator {
	return &Aggregator{selector: selector, logger: logger}
}

// ParseSubscriptions splits a comma-separated subscription string into
// subject codes. Entries are trimmed, empty entries are dropped, and the
// stored order is preserved.
func ParseSubscriptions(raw string) []string {
	parts := strings.Split(raw, ",")
	subjects := make([]string, 0, len(parts))
	for _, p := range parts {
		if code := strings.TrimSpace(p); code != "" {
			subjects = append(subjects, code)
		}
	}
	return subjects
}

// ChallengeOfTheDay picks today's challenge across the subscribed subjects.
// Subjects whose selection fails are skipped with a warning so one broken
// subject never blanks the whole feature. Returns nil when no subscribed
// subject has a challenge available.
func (a *Aggregator) ChallengeOfTheDay(ctx context.Context, subscriptions []string, now time.Time) (result0 *DailyPick, err error) {
	ctx, span := observability.TraceSchedulerFunction(ctx, "ChallengeOfTheDay")
	defer observability.FinishSpan(span, &err)

	type candidate struct {
		matiere   string
		challenge *models.Challenge
	}
	var candidates []candidate

	for _, matiere := range subscriptions {
		challenge, err := a.selector.CurrentForMatiere(ctx, matiere, now)
		if err != nil {
			a.logger.Warn(ctx, "Skipping subject in daily aggregation", map[string]interface{}{
				"matiere": matiere,
				"error":   err.Error(),
			})
			continue
		}
		if challenge == nil {
			continue
		}
		candidates = append(candidates, candidate{matiere: matiere, challenge: challenge})
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	available := make([]string, len(candidates))
	for i, c := range candidates {
		available[i] = c.matiere
	}

	chosen := candidates[julianDayNumber(now.UTC())%len(candidates)]
	return &DailyPick{
		Challenge: chosen.challenge,
		Matiere:   chosen.matiere,
		Available: available,
	}, nil
}

// julianDayNumber converts a calendar date to its Julian day number, used as
// a stable daily counter for rotating the pick across subjects.
func julianDayNumber(t time.Time) int {
	year, month, day := t.Date()
	a := (14 - int(month)) / 12
	y := year + 4800 - a
	m := int(month) + 12*a - 3
	return day + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045
}
