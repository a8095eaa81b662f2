package services

import (
	"context"
	"database/sql"

	"challengeapp/internal/models"
	"challengeapp/internal/observability"
	contextutils "challengeapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// LedgerServiceInterface defines the interface for the served-challenge ledger
type LedgerServiceInterface interface {
	Lookup(ctx context.Context, matiere, granularite string, tick int) (string, bool, error)
	Record(ctx context.Context, matiere, granularite string, tick int, ref string) (string, error)
	AllServedRefs(ctx context.Context, matiere, granularite string) (map[string]bool, error)
	Reset(ctx context.Context, matiere, granularite string) error
	History(ctx context.Context, matiere, granularite string) ([]models.ChallengeServed, error)
}

// LedgerService persists which challenge was served for each scheduling
// period. The challenge_served table carries a unique constraint on
// (matiere, granularite, tick); Record leans on it so concurrent writers
// across processes converge on a single winner.
type LedgerService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewLedgerService creates a new LedgerService instance
func NewLedgerService(db *sql.DB, logger *observability.Logger) *LedgerService {
	return &LedgerService{db: db, logger: logger}
}

// Lookup returns the ref recorded for the tick, if any
func (s *LedgerService) Lookup(ctx context.Context, matiere, granularite string, tick int) (result0 string, result1 bool, err error) {
	ctx, span := observability.TraceLedgerFunction(ctx, "Lookup",
		observability.AttributeMatiere(matiere),
		observability.AttributeGranularity(granularite),
		observability.AttributeTick(tick),
	)
	defer observability.FinishSpan(span, &err)

	var ref string
	err = s.db.QueryRowContext(ctx,
		"SELECT challenge_ref FROM challenge_served WHERE matiere = $1 AND granularite = $2 AND tick = $3",
		matiere, granularite, tick,
	).Scan(&ref)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, contextutils.WrapError(err, "failed to look up served challenge")
	}
	return ref, true, nil
}

// Record inserts the selection for the tick and returns the winning ref.
// If another writer already recorded a ref for the same period, that ref is
// returned instead of the caller's.
func (s *LedgerService) Record(ctx context.Context, matiere, granularite string, tick int, ref string) (result0 string, err error) {
	ctx, span := observability.TraceLedgerFunction(ctx, "Record",
		observability.AttributeMatiere(matiere),
		observability.AttributeGranularity(granularite),
		observability.AttributeTick(tick),
		observability.AttributeChallengeRef(ref),
	)
	defer observability.FinishSpan(span, &err)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO challenge_served (matiere, granularite, challenge_ref, tick)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (matiere, granularite, tick) DO NOTHING`,
		matiere, granularite, ref, tick,
	)
	if err != nil {
		return "", contextutils.WrapError(err, "failed to record served challenge")
	}

	// Re-read to learn who actually won the insert.
	winner, found, err := s.Lookup(ctx, matiere, granularite, tick)
	if err != nil {
		return "", err
	}
	if !found {
		return "", contextutils.ErrorWithContextf("served challenge vanished after insert for %s/%s tick %d", matiere, granularite, tick)
	}
	if winner != ref {
		s.logger.Info(ctx, "Lost selection race, keeping recorded winner", map[string]interface{}{
			"matiere":       matiere,
			"granularite":   granularite,
			"tick":          tick,
			"requested_ref": ref,
			"winner_ref":    winner,
		})
	}
	return winner, nil
}

// AllServedRefs returns every ref recorded for the subject and granularity
// since the last reset
func (s *LedgerService) AllServedRefs(ctx context.Context, matiere, granularite string) (result0 map[string]bool, err error) {
	ctx, span := observability.TraceLedgerFunction(ctx, "AllServedRefs",
		observability.AttributeMatiere(matiere),
		observability.AttributeGranularity(granularite),
	)
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT challenge_ref FROM challenge_served WHERE matiere = $1 AND granularite = $2",
		matiere, granularite,
	)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query served refs")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close served ref rows", closeErr)
		}
	}()

	served := make(map[string]bool)
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan served ref")
		}
		served[ref] = true
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate served refs")
	}

	span.SetAttributes(attribute.Int("ledger.served_count", len(served)))
	return served, nil
}

// Reset deletes the rotation history for the subject and granularity.
// The next selection starts a fresh cycle from the top of the catalog.
func (s *LedgerService) Reset(ctx context.Context, matiere, granularite string) (err error) {
	ctx, span := observability.TraceLedgerFunction(ctx, "Reset",
		observability.AttributeMatiere(matiere),
		observability.AttributeGranularity(granularite),
	)
	defer observability.FinishSpan(span, &err)

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM challenge_served WHERE matiere = $1 AND granularite = $2",
		matiere, granularite,
	)
	if err != nil {
		return contextutils.WrapError(err, "failed to reset ledger")
	}

	if deleted, raErr := res.RowsAffected(); raErr == nil {
		s.logger.Info(ctx, "Ledger reset", map[string]interface{}{
			"matiere":     matiere,
			"granularite": granularite,
			"deleted":     deleted,
		})
	}
	return nil
}

// History returns the ledger entries for a subject and granularity ordered
// by tick
func (s *LedgerService) History(ctx context.Context, matiere, granularite string) (result0 []models.ChallengeServed, err error) {
	ctx, span := observability.TraceLedgerFunction(ctx, "History",
		observability.AttributeMatiere(matiere),
		observability.AttributeGranularity(granularite),
	)
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, matiere, granularite, challenge_ref, tick
		 FROM challenge_served WHERE matiere = $1 AND granularite = $2
		 ORDER BY tick`,
		matiere, granularite,
	)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query ledger history")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close history rows", closeErr)
		}
	}()

	var entries []models.ChallengeServed
	for rows.Next() {
		var e models.ChallengeServed
		if err := rows.Scan(&e.ID, &e.Matiere, &e.Granularite, &e.ChallengeRef, &e.Tick); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan ledger entry")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate ledger entries")
	}
	return entries, nil
}
