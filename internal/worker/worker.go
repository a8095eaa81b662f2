// Package worker implements the background daily challenge email loop.
package worker

import (
	"context"
	"time"

	"challengeapp/internal/config"
	"challengeapp/internal/models"
	"challengeapp/internal/observability"
	"challengeapp/internal/services"
)

// Worker periodically resolves each user's challenge of the day and emails
// it. One failing user never stops the run for the others.
type Worker struct {
	cfg                   *config.Config
	logger                *observability.Logger
	userService           services.UserServiceInterface
	dailyChallengeService services.DailyChallengeServiceInterface
	emailService          services.EmailServiceInterface
}

// NewWorker creates a new Worker instance
func NewWorker(
	cfg *config.Config,
	logger *observability.Logger,
	userService services.UserServiceInterface,
	dailyChallengeService services.DailyChallengeServiceInterface,
	emailService services.EmailServiceInterface,
) *Worker {
	return &Worker{
		cfg:                   cfg,
		logger:                logger,
		userService:           userService,
		dailyChallengeService: dailyChallengeService,
		emailService:          emailService,
	}
}

// Start runs the worker loop until the context is cancelled
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info(ctx, "Worker started", map[string]interface{}{
		"check_interval": config.WorkerCheckInterval.String(),
		"send_hour":      w.cfg.Email.DailyChallenge.Hour,
		"email_enabled":  w.emailService.IsEnabled(),
	})

	ticker := time.NewTicker(config.WorkerCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "Worker stopping")
			return
		case now := <-ticker.C:
			if w.shouldSend(now) {
				w.RunDailySend(ctx, now)
			}
		}
	}
}

// shouldSend reports whether a daily send should run at the given time.
// Deduplication against users already emailed today happens per user in
// RunDailySend, so re-entering the hour is harmless.
func (w *Worker) shouldSend(now time.Time) bool {
	if !w.cfg.Email.DailyChallenge.Enabled || !w.emailService.IsEnabled() {
		return false
	}
	return now.Hour() == w.cfg.Email.DailyChallenge.Hour
}

// RunDailySend emails every user their challenge of the day. Users without
// an email, without subscriptions, or already emailed today are skipped.
func (w *Worker) RunDailySend(ctx context.Context, now time.Time) {
	ctx, span := observability.TraceWorkerFunction(ctx, "RunDailySend")
	defer span.End()

	users, err := w.userService.ListUsers(ctx)
	if err != nil {
		w.logger.Error(ctx, "Failed to list users for daily send", err)
		return
	}

	sent, skipped, failed := 0, 0, 0
	for i := range users {
		switch w.sendToUser(ctx, &users[i], now) {
		case sendOutcomeSent:
			sent++
		case sendOutcomeSkipped:
			skipped++
		case sendOutcomeFailed:
			failed++
		}
	}

	w.logger.Info(ctx, "Daily send finished", map[string]interface{}{
		"sent":    sent,
		"skipped": skipped,
		"failed":  failed,
	})
}

type sendOutcome int

const (
	sendOutcomeSent sendOutcome = iota
	sendOutcomeSkipped
	sendOutcomeFailed
)

func (w *Worker) sendToUser(ctx context.Context, user *models.User, now time.Time) sendOutcome {
	if !user.Email.Valid || user.Email.String == "" {
		return sendOutcomeSkipped
	}

	alreadySent, err := w.emailService.HasSentDailyChallenge(ctx, user.ID, now)
	if err != nil {
		w.logger.Error(ctx, "Failed to check sent notifications", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return sendOutcomeFailed
	}
	if alreadySent {
		return sendOutcomeSkipped
	}

	pick, err := w.dailyChallengeService.ChallengeOfTheDay(ctx, user, now)
	if err != nil {
		w.logger.Error(ctx, "Failed to resolve challenge of the day", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return sendOutcomeFailed
	}
	if pick == nil {
		return sendOutcomeSkipped
	}

	subject := "Your " + pick.Matiere + " challenge of the day"
	if err := w.emailService.SendDailyChallenge(ctx, user, pick); err != nil {
		w.logger.Error(ctx, "Failed to send daily challenge email", err, map[string]interface{}{
			"user_id": user.ID,
		})
		if recErr := w.emailService.RecordSentNotification(ctx, user.ID, subject, "failed", err.Error()); recErr != nil {
			w.logger.Error(ctx, "Failed to record failed notification", recErr, map[string]interface{}{
				"user_id": user.ID,
			})
		}
		return sendOutcomeFailed
	}

	if err := w.emailService.RecordSentNotification(ctx, user.ID, subject, "sent", ""); err != nil {
		w.logger.Error(ctx, "Failed to record sent notification", err, map[string]interface{}{
			"user_id": user.ID,
		})
	}
	return sendOutcomeSent
}
