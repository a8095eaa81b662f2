package services

import (
	"context"
	"database/sql"
	"strings"

	"challengeapp/internal/config"
	"challengeapp/internal/models"
	"challengeapp/internal/observability"
	"challengeapp/internal/scheduler"
	contextutils "challengeapp/internal/utils"
)

// MatiereServiceInterface defines the interface for subject operations
type MatiereServiceInterface interface {
	CreateMatiere(ctx context.Context, name, description, granularite string) (*models.Matiere, error)
	GetMatiere(ctx context.Context, name string) (*models.Matiere, error)
	ListMatieres(ctx context.Context) ([]models.Matiere, error)
	SetGranularity(ctx context.Context, name, granularite string) error
	GranularityFor(ctx context.Context, name string) (string, error)
}

// MatiereService manages subjects and their scheduling granularity
type MatiereService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger
}

// NewMatiereService creates a new MatiereService instance
func NewMatiereService(db *sql.DB, cfg *config.Config, logger *observability.Logger) *MatiereService {
	return &MatiereService{db: db, cfg: cfg, logger: logger}
}

// CreateMatiere registers a subject. An empty granularity falls back to the
// configured default.
func (s *MatiereService) CreateMatiere(ctx context.Context, name, description, granularite string) (result0 *models.Matiere, err error) {
	ctx, span := observability.TraceChallengeFunction(ctx, "CreateMatiere",
		observability.AttributeMatiere(name),
	)
	defer observability.FinishSpan(span, &err)

	name = strings.TrimSpace(name)
	if !contextutils.IsValidMatiereCode(name) {
		return nil, contextutils.WrapErrorf(contextutils.ErrValidationFailed, "invalid matiere code %q", name)
	}
	if granularite == "" {
		granularite = s.cfg.Scheduler.EffectiveDefaultGranularity()
	}
	if err := scheduler.ValidateGranularity(granularite); err != nil {
		return nil, err
	}

	m := models.Matiere{Name: name, Granularite: granularite}
	if description != "" {
		m.Description = sql.NullString{String: description, Valid: true}
	}

	err = s.db.QueryRowContext(ctx,
		"INSERT INTO matieres (name, description, granularite) VALUES ($1, $2, $3) RETURNING id",
		m.Name, m.Description, m.Granularite,
	).Scan(&m.ID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to insert matiere")
	}

	s.logger.Info(ctx, "Matiere created", map[string]interface{}{
		"matiere":     m.Name,
		"granularite": m.Granularite,
	})
	return &m, nil
}

// GetMatiere returns the subject with the given name
func (s *MatiereService) GetMatiere(ctx context.Context, name string) (result0 *models.Matiere, err error) {
	ctx, span := observability.TraceChallengeFunction(ctx, "GetMatiere",
		observability.AttributeMatiere(name),
	)
	defer observability.FinishSpan(span, &err)

	var m models.Matiere
	err = s.db.QueryRowContext(ctx,
		"SELECT id, name, description, granularite FROM matieres WHERE name = $1",
		name,
	).Scan(&m.ID, &m.Name, &m.Description, &m.Granularite)
	if err == sql.ErrNoRows {
		return nil, contextutils.WrapErrorf(contextutils.ErrMatiereNotFound, "matiere %q", name)
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query matiere")
	}
	return &m, nil
}

// ListMatieres returns all subjects ordered by name
func (s *MatiereService) ListMatieres(ctx context.Context) (result0 []models.Matiere, err error) {
	ctx, span := observability.TraceChallengeFunction(ctx, "ListMatieres")
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, description, granularite FROM matieres ORDER BY name")
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query matieres")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close matiere rows", closeErr)
		}
	}()

	var matieres []models.Matiere
	for rows.Next() {
		var m models.Matiere
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.Granularite); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan matiere row")
		}
		matieres = append(matieres, m)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate matiere rows")
	}
	return matieres, nil
}

// SetGranularity updates the scheduling granularity of a subject. Already
// served periods keep their ledger entries; only future ticks are computed
// with the new granularity.
func (s *MatiereService) SetGranularity(ctx context.Context, name, granularite string) (err error) {
	ctx, span := observability.TraceChallengeFunction(ctx, "SetGranularity",
		observability.AttributeMatiere(name),
		observability.AttributeGranularity(granularite),
	)
	defer observability.FinishSpan(span, &err)

	if err := scheduler.ValidateGranularity(granularite); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, "UPDATE matieres SET granularite = $1 WHERE name = $2", granularite, name)
	if err != nil {
		return contextutils.WrapError(err, "failed to update granularity")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to read affected rows")
	}
	if affected == 0 {
		return contextutils.WrapErrorf(contextutils.ErrMatiereNotFound, "matiere %q", name)
	}
	return nil
}

// GranularityFor returns the granularity to schedule a subject with. A
// subject with no row or an empty setting uses the configured default, so
// challenges can be authored for a subject before it is formally registered.
func (s *MatiereService) GranularityFor(ctx context.Context, name string) (result0 string, err error) {
	ctx, span := observability.TraceChallengeFunction(ctx, "GranularityFor",
		observability.AttributeMatiere(name),
	)
	defer observability.FinishSpan(span, &err)

	var granularite string
	err = s.db.QueryRowContext(ctx, "SELECT granularite FROM matieres WHERE name = $1", name).Scan(&granularite)
	if err == sql.ErrNoRows || (err == nil && granularite == "") {
		return s.cfg.Scheduler.EffectiveDefaultGranularity(), nil
	}
	if err != nil {
		return "", contextutils.WrapError(err, "failed to query granularity")
	}
	return granularite, nil
}
