package scheduler

import (
	"context"
	"time"

	"challengeapp/internal/models"
	"challengeapp/internal/observability"
)

// CatalogReader provides the ordered challenge catalog for a subject.
// Implementations must return challenges ordered ascending by (date, id)
// and skip entries whose date cannot be parsed rather than failing the read.
// An empty result is valid and means "no content yet".
type CatalogReader interface {
	ListChallenges(ctx context.Context, matiere string) ([]models.Challenge, error)
}

// ServedLedger is the persisted idempotency store for challenge selections.
// Lookup, AllServedRefs and read-only use need no locking; Record and Reset
// are serialized by the Selector per (matiere, granularite) key.
type ServedLedger interface {
	// Lookup returns the ref already recorded for the tick, if any.
	Lookup(ctx context.Context, matiere, granularite string, tick int) (string, bool, error)

	// Record stores the selection for the tick and returns the winning ref:
	// the given ref, or the previously recorded one if another writer won
	// the race. It never succeeds twice with different refs for one key.
	Record(ctx context.Context, matiere, granularite string, tick int, ref string) (string, error)

	// AllServedRefs returns every ref ever recorded for the subject and
	// granularity, used to detect cycle exhaustion.
	AllServedRefs(ctx context.Context, matiere, granularite string) (map[string]bool, error)

	// Reset deletes all records for the subject and granularity, restarting
	// the rotation cycle from scratch.
	Reset(ctx context.Context, matiere, granularite string) error
}

// Selector picks the current challenge for a single subject. It guarantees
// that every caller inside one tick sees the same challenge, that no
// challenge repeats before the whole catalog has been served, and that the
// cycle restarts from the top once exhausted.
type Selector struct {
	catalog CatalogReader
	ledger  ServedLedger
	logger  *observability.Logger
	locks   *KeyedMutex
}

// NewSelector creates a Selector over the given collaborators.
func NewSelector(catalog CatalogReader, ledger ServedLedger, logger *observability.Logger) *Selector {
	return &Selector{
		catalog: catalog,
		ledger:  ledger,
		logger:  logger,
		locks:   NewKeyedMutex(),
	}
}

// Current returns the challenge to serve for the subject right now, or nil
// when the subject has no challenge available (a normal outcome).
func (s *Selector) Current(ctx context.Context, matiere, granularite, referenceDate string, now time.Time) (result0 *models.Challenge, err error) {
	ctx, span := observability.TraceSchedulerFunction(ctx, "Current",
		observability.AttributeMatiere(matiere),
		observability.AttributeGranularity(granularite),
	)
	defer observability.FinishSpan(span, &err)

	tick, err := Tick(granularite, referenceDate, now)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(observability.AttributeTick(tick))

	// Idempotent path: a selection already recorded for this tick is
	// returned as-is, with no further writes.
	if ref, found, err := s.ledger.Lookup(ctx, matiere, granularite, tick); err != nil {
		return nil, err
	} else if found {
		return s.resolveRef(ctx, matiere, ref)
	}

	catalog, err := s.catalog.ListChallenges(ctx, matiere)
	if err != nil {
		return nil, err
	}
	if len(catalog) == 0 {
		s.logger.Debug(ctx, "No challenges authored for subject", map[string]interface{}{
			"matiere": matiere,
		})
		return nil, nil
	}

	// Writes below are serialized per (matiere, granularite): the reset and
	// the subsequent record must happen in one critical section, otherwise
	// two callers can both observe exhaustion and both reset.
	unlock := s.locks.Lock(matiere + "\x00" + granularite)
	defer unlock()

	// Re-check under the lock; a concurrent caller may have recorded while
	// we were loading the catalog.
	if ref, found, err := s.ledger.Lookup(ctx, matiere, granularite, tick); err != nil {
		return nil, err
	} else if found {
		return s.findInCatalog(ctx, catalog, matiere, ref)
	}

	served, err := s.ledger.AllServedRefs(ctx, matiere, granularite)
	if err != nil {
		return nil, err
	}

	var selected *models.Challenge
	for i := range catalog {
		if !served[catalog[i].Ref] {
			selected = &catalog[i]
			break
		}
	}

	if selected == nil {
		// Full cycle completed: restart from the top of the catalog.
		s.logger.Info(ctx, "Challenge cycle exhausted, resetting rotation", map[string]interface{}{
			"matiere":      matiere,
			"granularite":  granularite,
			"catalog_size": len(catalog),
		})
		if err := s.ledger.Reset(ctx, matiere, granularite); err != nil {
			return nil, err
		}
		selected = &catalog[0]
	}

	winner, err := s.ledger.Record(ctx, matiere, granularite, tick, selected.Ref)
	if err != nil {
		return nil, err
	}
	if winner != selected.Ref {
		// Lost a cross-process race; serve the recorded winner instead.
		return s.findInCatalog(ctx, catalog, matiere, winner)
	}

	s.logger.Info(ctx, "Challenge selected for period", map[string]interface{}{
		"matiere":       matiere,
		"granularite":   granularite,
		"tick":          tick,
		"challenge_ref": selected.Ref,
	})
	span.SetAttributes(observability.AttributeChallengeRef(selected.Ref))

	return selected, nil
}

// resolveRef loads the catalog and resolves a previously recorded ref.
func (s *Selector) resolveRef(ctx context.Context, matiere, ref string) (*models.Challenge, error) {
	catalog, err := s.catalog.ListChallenges(ctx, matiere)
	if err != nil {
		return nil, err
	}
	return s.findInCatalog(ctx, catalog, matiere, ref)
}

// findInCatalog matches a recorded ref against the catalog. A ref that no
// longer resolves (catalog edited mid-cycle) is logged and treated as "no
// challenge available" rather than an error.
func (s *Selector) findInCatalog(ctx context.Context, catalog []models.Challenge, matiere, ref string) (*models.Challenge, error) {
	for i := range catalog {
		if catalog[i].Ref == ref {
			return &catalog[i], nil
		}
	}
	s.logger.Warn(ctx, "Recorded challenge ref no longer present in catalog", map[string]interface{}{
		"matiere":       matiere,
		"challenge_ref": ref,
	})
	return nil, nil
}
