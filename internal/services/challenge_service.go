// Package services contains the SQL-backed business services of the
// challenge application.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"challengeapp/internal/models"
	"challengeapp/internal/observability"
	"challengeapp/internal/scheduler"
	contextutils "challengeapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// ChallengeServiceInterface defines the interface for challenge catalog operations
type ChallengeServiceInterface interface {
	CreateChallenge(ctx context.Context, matiere, question, date string) (*models.Challenge, error)
	ListChallenges(ctx context.Context, matiere string) ([]models.Challenge, error)
	GetChallengeByRef(ctx context.Context, ref string) (*models.Challenge, error)
	BackfillRefs(ctx context.Context) (int, error)
}

// ChallengeService manages the authored challenge catalog. Its ListChallenges
// is the catalog read used by the rotation selector, so the ordering here is
// the rotation order.
type ChallengeService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewChallengeService creates a new ChallengeService instance
func NewChallengeService(db *sql.DB, logger *observability.Logger) *ChallengeService {
	return &ChallengeService{db: db, logger: logger}
}

// CreateChallenge inserts a challenge and back-fills its human-readable ref
// from the generated id, e.g. "SYD-001" for the first "sydney" challenge.
func (s *ChallengeService) CreateChallenge(ctx context.Context, matiere, question, date string) (result0 *models.Challenge, err error) {
	ctx, span := observability.TraceChallengeFunction(ctx, "CreateChallenge",
		observability.AttributeMatiere(matiere),
	)
	defer observability.FinishSpan(span, &err)

	matiere = strings.TrimSpace(matiere)
	if !contextutils.IsValidMatiereCode(matiere) {
		return nil, contextutils.WrapErrorf(contextutils.ErrValidationFailed, "invalid matiere code %q", matiere)
	}
	if strings.TrimSpace(question) == "" {
		return nil, contextutils.WrapError(contextutils.ErrValidationFailed, "question must not be empty")
	}
	if _, err := scheduler.ParseFlexibleDate(date); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrValidationFailed, "unparseable challenge date %q", date)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				s.logger.Error(ctx, "Failed to rollback challenge creation", rbErr)
			}
		}
	}()

	var id int
	err = tx.QueryRowContext(ctx,
		"INSERT INTO challenges (ref, question, matiere, date) VALUES ('', $1, $2, $3) RETURNING id",
		question, matiere, date,
	).Scan(&id)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to insert challenge")
	}

	ref := challengeRef(matiere, id)
	if _, err = tx.ExecContext(ctx, "UPDATE challenges SET ref = $1 WHERE id = $2", ref, id); err != nil {
		return nil, contextutils.WrapError(err, "failed to back-fill challenge ref")
	}

	if err = tx.Commit(); err != nil {
		return nil, contextutils.WrapError(err, "failed to commit challenge creation")
	}

	s.logger.Info(ctx, "Challenge created", map[string]interface{}{
		"matiere":       matiere,
		"challenge_ref": ref,
	})

	return &models.Challenge{ID: id, Ref: ref, Question: question, Matiere: matiere, Date: date}, nil
}

// ListChallenges returns the catalog for a subject ordered ascending by
// (authoring date, id). Rows whose date no longer parses are excluded
// with a warning so one bad row never breaks the rotation.
func (s *ChallengeService) ListChallenges(ctx context.Context, matiere string) (result0 []models.Challenge, err error) {
	ctx, span := observability.TraceChallengeFunction(ctx, "ListChallenges",
		observability.AttributeMatiere(matiere),
	)
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, ref, question, matiere, date FROM challenges WHERE matiere = $1",
		matiere,
	)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query challenges")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close challenge rows", closeErr)
		}
	}()

	type dated struct {
		challenge models.Challenge
		date      time.Time
	}
	var entries []dated
	for rows.Next() {
		var c models.Challenge
		if err := rows.Scan(&c.ID, &c.Ref, &c.Question, &c.Matiere, &c.Date); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan challenge row")
		}
		parsed, parseErr := scheduler.ParseFlexibleDate(c.Date)
		if parseErr != nil {
			s.logger.Warn(ctx, "Excluding challenge with unparseable date from catalog", map[string]interface{}{
				"challenge_ref": c.Ref,
				"date":          c.Date,
			})
			continue
		}
		entries = append(entries, dated{challenge: c, date: parsed})
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate challenge rows")
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].date.Equal(entries[j].date) {
			return entries[i].date.Before(entries[j].date)
		}
		return entries[i].challenge.ID < entries[j].challenge.ID
	})

	challenges := make([]models.Challenge, len(entries))
	for i, e := range entries {
		challenges[i] = e.challenge
	}
	span.SetAttributes(attribute.Int("catalog.size", len(challenges)))
	return challenges, nil
}

// GetChallengeByRef returns the challenge with the given ref
func (s *ChallengeService) GetChallengeByRef(ctx context.Context, ref string) (result0 *models.Challenge, err error) {
	ctx, span := observability.TraceChallengeFunction(ctx, "GetChallengeByRef",
		observability.AttributeChallengeRef(ref),
	)
	defer observability.FinishSpan(span, &err)

	var c models.Challenge
	err = s.db.QueryRowContext(ctx,
		"SELECT id, ref, question, matiere, date FROM challenges WHERE ref = $1",
		ref,
	).Scan(&c.ID, &c.Ref, &c.Question, &c.Matiere, &c.Date)
	if err == sql.ErrNoRows {
		return nil, contextutils.WrapErrorf(contextutils.ErrChallengeNotFound, "ref %q", ref)
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query challenge by ref")
	}
	return &c, nil
}

// BackfillRefs assigns refs to challenges that were imported without one.
// Returns the number of rows updated.
func (s *ChallengeService) BackfillRefs(ctx context.Context) (result0 int, err error) {
	ctx, span := observability.TraceChallengeFunction(ctx, "BackfillRefs")
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, "SELECT id, matiere FROM challenges WHERE ref = ''")
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to query challenges without refs")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close backfill rows", closeErr)
		}
	}()

	type pending struct {
		id      int
		matiere string
	}
	var missing []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.matiere); err != nil {
			return 0, contextutils.WrapError(err, "failed to scan backfill row")
		}
		missing = append(missing, p)
	}
	if err := rows.Err(); err != nil {
		return 0, contextutils.WrapError(err, "failed to iterate backfill rows")
	}

	updated := 0
	for _, p := range missing {
		if _, err := s.db.ExecContext(ctx, "UPDATE challenges SET ref = $1 WHERE id = $2", challengeRef(p.matiere, p.id), p.id); err != nil {
			return updated, contextutils.WrapErrorf(err, "failed to backfill ref for challenge %d", p.id)
		}
		updated++
	}

	if updated > 0 {
		s.logger.Info(ctx, "Backfilled challenge refs", map[string]interface{}{"updated": updated})
	}
	return updated, nil
}

// challengeRef builds the human-readable ref from the subject code and the
// row id, e.g. ("sydney", 1) -> "SYD-001".
func challengeRef(matiere string, id int) string {
	prefix := strings.ToUpper(matiere)
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	return fmt.Sprintf("%s-%03d", prefix, id)
}
