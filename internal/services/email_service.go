package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"html/template"
	"time"

	"challengeapp/internal/config"
	"challengeapp/internal/models"
	"challengeapp/internal/observability"
	"challengeapp/internal/scheduler"
	contextutils "challengeapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/mail.v2"
)

// notification type stored in sent_notifications
const notificationTypeDailyChallenge = "daily_challenge"

// EmailServiceInterface defines the interface for email functionality
type EmailServiceInterface interface {
	IsEnabled() bool
	SendDailyChallenge(ctx context.Context, user *models.User, pick *scheduler.DailyPick) error
	HasSentDailyChallenge(ctx context.Context, userID int, day time.Time) (bool, error)
	RecordSentNotification(ctx context.Context, userID int, subject, status, errorMessage string) error
}

// EmailService sends application email over SMTP using gomail. When email is
// disabled in configuration every send becomes a logged no-op.
type EmailService struct {
	cfg    *config.Config
	logger *observability.Logger
	dialer *mail.Dialer
	db     *sql.DB
}

// NewEmailService creates a new EmailService instance
func NewEmailService(cfg *config.Config, logger *observability.Logger, db *sql.DB) *EmailService {
	var dialer *mail.Dialer
	if cfg.Email.Enabled && cfg.Email.SMTP.Host != "" {
		dialer = mail.NewDialer(
			cfg.Email.SMTP.Host,
			cfg.Email.SMTP.Port,
			cfg.Email.SMTP.Username,
			cfg.Email.SMTP.Password,
		)
	}

	return &EmailService{
		cfg:    cfg,
		logger: logger,
		dialer: dialer,
		db:     db,
	}
}

// IsEnabled returns whether email functionality is enabled
func (e *EmailService) IsEnabled() bool {
	return e.cfg.Email.Enabled && e.cfg.Email.SMTP.Host != ""
}

// SendDailyChallenge emails a user their challenge of the day
func (e *EmailService) SendDailyChallenge(ctx context.Context, user *models.User, pick *scheduler.DailyPick) (err error) {
	ctx, span := observability.TraceFunction(ctx, "email-service", "SendDailyChallenge",
		observability.AttributeUserID(user.ID),
	)
	defer observability.FinishSpan(span, &err)

	if !e.IsEnabled() {
		e.logger.Info(ctx, "Email disabled, skipping daily challenge", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil
	}
	if !user.Email.Valid || user.Email.String == "" {
		e.logger.Warn(ctx, "User has no email address, skipping daily challenge", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil
	}
	if e.dialer == nil {
		return contextutils.ErrorWithContextf("email service not properly configured")
	}

	span.SetAttributes(attribute.String("challenge.matiere", pick.Matiere))

	subject := fmt.Sprintf("Your %s challenge of the day", pick.Matiere)
	body, err := renderDailyChallengeBody(user, pick)
	if err != nil {
		return contextutils.WrapError(err, "failed to render daily challenge email")
	}

	m := mail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s <%s>", e.cfg.Email.SMTP.FromName, e.cfg.Email.SMTP.FromAddress))
	m.SetHeader("To", user.Email.String)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err = e.dialer.DialAndSend(m); err != nil {
		e.logger.Error(ctx, "Failed to send daily challenge email", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return contextutils.WrapError(err, "failed to send daily challenge email")
	}

	e.logger.Info(ctx, "Daily challenge email sent", map[string]interface{}{
		"user_id":       user.ID,
		"matiere":       pick.Matiere,
		"challenge_ref": pick.Challenge.Ref,
	})
	return nil
}

// HasSentDailyChallenge reports whether a daily challenge email was already
// sent to the user on the given calendar day
func (e *EmailService) HasSentDailyChallenge(ctx context.Context, userID int, day time.Time) (result0 bool, err error) {
	ctx, span := observability.TraceFunction(ctx, "email-service", "HasSentDailyChallenge",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	start, end := dayWindow(day)
	var count int
	err = e.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sent_notifications
		 WHERE user_id = $1 AND notification_type = $2 AND status = 'sent'
		 AND sent_at >= $3 AND sent_at < $4`,
		userID, notificationTypeDailyChallenge, start, end,
	).Scan(&count)
	if err != nil {
		return false, contextutils.WrapError(err, "failed to query sent notifications")
	}
	return count > 0, nil
}

// dayWindow returns the [start, end) bounds of day's calendar date in its
// own location. The worker fires on the local clock hour, so the dedup
// window has to follow the local date rather than the UTC one.
func dayWindow(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return start, start.AddDate(0, 0, 1)
}

// RecordSentNotification records a daily challenge send attempt
func (e *EmailService) RecordSentNotification(ctx context.Context, userID int, subject, status, errorMessage string) (err error) {
	ctx, span := observability.TraceFunction(ctx, "email-service", "RecordSentNotification",
		observability.AttributeUserID(userID),
		attribute.String("notification.status", status),
	)
	defer observability.FinishSpan(span, &err)

	_, err = e.db.ExecContext(ctx,
		`INSERT INTO sent_notifications (user_id, notification_type, subject, sent_at, status, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		userID, notificationTypeDailyChallenge, subject, time.Now().UTC(), status, errorMessage,
	)
	if err != nil {
		return contextutils.WrapError(err, "failed to record sent notification")
	}
	return nil
}

var dailyChallengeTemplate = template.Must(template.New("daily_challenge").Parse(`
<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
	<h2>Hello {{.Username}},</h2>
	<p>Today's challenge comes from <strong>{{.Matiere}}</strong>:</p>
	<blockquote style="border-left: 3px solid #ccc; padding-left: 12px;">
		{{.Question}}
	</blockquote>
	<p style="color: #666; font-size: 12px;">Challenge {{.Ref}} &middot; {{.Date}}</p>
</body>
</html>`))

func renderDailyChallengeBody(user *models.User, pick *scheduler.DailyPick) (string, error) {
	var buf bytes.Buffer
	err := dailyChallengeTemplate.Execute(&buf, map[string]interface{}{
		"Username": user.Username,
		"Matiere":  pick.Matiere,
		"Question": pick.Challenge.Question,
		"Ref":      pick.Challenge.Ref,
		"Date":     time.Now().Format("January 2, 2006"),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
