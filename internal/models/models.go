// Package models defines data structures used throughout the challenge application.
package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Challenge represents an authored challenge for a subject.
// Challenges are immutable after creation except for the ref back-fill.
type Challenge struct {
	ID       int    `json:"id" yaml:"id"`
	Ref      string `json:"ref" yaml:"ref"` // human-readable code, e.g. "SYD-001"
	Question string `json:"question" yaml:"question"`
	Matiere  string `json:"matiere" yaml:"matiere"`
	Date     string `json:"date" yaml:"date"` // authoring date, free-form text
}

// ChallengeServed is a ledger entry recording that a challenge was served
// for a (matiere, granularite, tick) period. At most one entry exists per
// distinct tick for a given subject and granularity.
type ChallengeServed struct {
	ID           int    `json:"id" yaml:"id"`
	Matiere      string `json:"matiere" yaml:"matiere"`
	Granularite  string `json:"granularite" yaml:"granularite"`
	ChallengeRef string `json:"challenge_ref" yaml:"challenge_ref"`
	Tick         int    `json:"tick" yaml:"tick"`
}

// Matiere represents a subject students can subscribe to
type Matiere struct {
	ID          int            `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Description sql.NullString `json:"description" yaml:"description"`
	Granularite string         `json:"granularite" yaml:"granularite"` // jour|semaine|mois|<N>jours
}

// MarshalJSON customizes JSON marshaling for Matiere to handle sql.NullString properly
func (m Matiere) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID          int     `json:"id"`
		Name        string  `json:"name"`
		Description *string `json:"description"`
		Granularite string  `json:"granularite"`
	}{
		ID:          m.ID,
		Name:        m.Name,
		Description: nullStringToPointer(m.Description),
		Granularite: m.Granularite,
	})
}

// User represents a user in the system
type User struct {
	ID            int            `json:"id" yaml:"id"`
	Username      string         `json:"username" yaml:"username"`
	Email         sql.NullString `json:"email" yaml:"email"`
	Role          string         `json:"role" yaml:"role"` // student|teacher|admin
	Subscriptions string         `json:"subscriptions" yaml:"subscriptions"` // comma-separated subject codes
	PasswordHash  sql.NullString `json:"-" yaml:"-"` // Omit from JSON responses
	CreatedAt     time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" yaml:"updated_at"`
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}

// MarshalJSON customizes JSON marshaling for User to handle sql.NullString properly
func (u User) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID            int       `json:"id"`
		Username      string    `json:"username"`
		Email         *string   `json:"email"`
		Role          string    `json:"role"`
		Subscriptions string    `json:"subscriptions"`
		CreatedAt     time.Time `json:"created_at"`
		UpdatedAt     time.Time `json:"updated_at"`
	}{
		ID:            u.ID,
		Username:      u.Username,
		Email:         nullStringToPointer(u.Email),
		Role:          u.Role,
		Subscriptions: u.Subscriptions,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	})
}

// SentNotification records an email that was sent to a user
type SentNotification struct {
	ID               int       `json:"id" yaml:"id"`
	UserID           int       `json:"user_id" yaml:"user_id"`
	NotificationType string    `json:"notification_type" yaml:"notification_type"`
	Subject          string    `json:"subject" yaml:"subject"`
	Status           string    `json:"status" yaml:"status"`
	ErrorMessage     string    `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	SentAt           time.Time `json:"sent_at" yaml:"sent_at"`
}

func nullStringToPointer(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}
