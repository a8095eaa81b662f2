package services

import (
	"context"
	"time"

	"challengeapp/internal/config"
	"challengeapp/internal/models"
	"challengeapp/internal/observability"
	"challengeapp/internal/scheduler"
)

// DailyChallengeServiceInterface is the operation surface consumed by the
// HTTP handlers, the email worker and the admin CLI.
type DailyChallengeServiceInterface interface {
	CurrentForMatiere(ctx context.Context, matiere string, now time.Time) (*models.Challenge, error)
	ChallengeOfTheDay(ctx context.Context, user *models.User, now time.Time) (*scheduler.DailyPick, error)
}

// DailyChallengeService wires the rotation selector and the daily aggregator
// over the SQL-backed catalog, ledger and subject services.
type DailyChallengeService struct {
	cfg            *config.Config
	logger         *observability.Logger
	matiereService MatiereServiceInterface
	selector       *scheduler.Selector
	aggregator     *scheduler.Aggregator
}

// NewDailyChallengeService creates a DailyChallengeService over the given
// collaborators
func NewDailyChallengeService(
	cfg *config.Config,
	logger *observability.Logger,
	challengeService ChallengeServiceInterface,
	ledgerService LedgerServiceInterface,
	matiereService MatiereServiceInterface,
) *DailyChallengeService {
	s := &DailyChallengeService{
		cfg:            cfg,
		logger:         logger,
		matiereService: matiereService,
		selector:       scheduler.NewSelector(catalogAdapter{challengeService}, ledgerAdapter{ledgerService}, logger),
	}
	s.aggregator = scheduler.NewAggregator(s, logger)
	return s
}

// catalogAdapter narrows ChallengeServiceInterface to the catalog read the
// selector needs.
type catalogAdapter struct {
	svc ChallengeServiceInterface
}

func (a catalogAdapter) ListChallenges(ctx context.Context, matiere string) ([]models.Challenge, error) {
	return a.svc.ListChallenges(ctx, matiere)
}

// ledgerAdapter narrows LedgerServiceInterface to the selector's ledger.
type ledgerAdapter struct {
	svc LedgerServiceInterface
}

func (a ledgerAdapter) Lookup(ctx context.Context, matiere, granularite string, tick int) (string, bool, error) {
	return a.svc.Lookup(ctx, matiere, granularite, tick)
}

func (a ledgerAdapter) Record(ctx context.Context, matiere, granularite string, tick int, ref string) (string, error) {
	return a.svc.Record(ctx, matiere, granularite, tick, ref)
}

func (a ledgerAdapter) AllServedRefs(ctx context.Context, matiere, granularite string) (map[string]bool, error) {
	return a.svc.AllServedRefs(ctx, matiere, granularite)
}

func (a ledgerAdapter) Reset(ctx context.Context, matiere, granularite string) error {
	return a.svc.Reset(ctx, matiere, granularite)
}

// CurrentForMatiere returns the challenge currently scheduled for a subject,
// or nil when the subject has none. The subject's own granularity decides the
// period length; subjects without a setting use the configured default.
func (s *DailyChallengeService) CurrentForMatiere(ctx context.Context, matiere string, now time.Time) (result0 *models.Challenge, err error) {
	ctx, span := observability.TraceSchedulerFunction(ctx, "CurrentForMatiere",
		observability.AttributeMatiere(matiere),
	)
	defer observability.FinishSpan(span, &err)

	granularite, err := s.matiereService.GranularityFor(ctx, matiere)
	if err != nil {
		return nil, err
	}
	return s.selector.Current(ctx, matiere, granularite, s.cfg.Scheduler.ReferenceDate, now)
}

// ChallengeOfTheDay resolves today's single challenge across the user's
// subscriptions. Returns nil when no subscribed subject has a challenge.
func (s *DailyChallengeService) ChallengeOfTheDay(ctx context.Context, user *models.User, now time.Time) (result0 *scheduler.DailyPick, err error) {
	ctx, span := observability.TraceSchedulerFunction(ctx, "ChallengeOfTheDay",
		observability.AttributeUserID(user.ID),
	)
	defer observability.FinishSpan(span, &err)

	subscriptions := scheduler.ParseSubscriptions(user.Subscriptions)
	if len(subscriptions) == 0 {
		s.logger.Debug(ctx, "User has no subscriptions", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, nil
	}
	return s.aggregator.ChallengeOfTheDay(ctx, subscriptions, now)
}
