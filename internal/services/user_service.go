package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"challengeapp/internal/models"
	"challengeapp/internal/observability"
	contextutils "challengeapp/internal/utils"

	"golang.org/x/crypto/bcrypt"
)

// UserServiceInterface defines the interface for user operations
type UserServiceInterface interface {
	CreateUser(ctx context.Context, username, email, password, role string, subscriptions []string) (*models.User, error)
	AuthenticateUser(ctx context.Context, username, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateSubscriptions(ctx context.Context, userID int, subscriptions []string) error
	UpdatePassword(ctx context.Context, userID int, newPassword string) error
	DeleteUser(ctx context.Context, userID int) error
}

// UserService manages user accounts and authentication
type UserService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewUserService creates a new UserService instance
func NewUserService(db *sql.DB, logger *observability.Logger) *UserService {
	return &UserService{db: db, logger: logger}
}

const userColumns = "id, username, email, role, subscriptions, password_hash, created_at, updated_at"

// CreateUser creates a user with a bcrypt-hashed password
func (s *UserService) CreateUser(ctx context.Context, username, email, password, role string, subscriptions []string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "CreateUser")
	defer observability.FinishSpan(span, &err)

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, contextutils.WrapError(contextutils.ErrValidationFailed, "username must not be empty")
	}
	if email != "" && !contextutils.IsValidEmail(email) {
		return nil, contextutils.WrapErrorf(contextutils.ErrValidationFailed, "invalid email %q", email)
	}
	if role == "" {
		role = "student"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to hash password")
	}

	user := models.User{
		Username:      username,
		Role:          role,
		Subscriptions: strings.Join(subscriptions, ","),
		PasswordHash:  sql.NullString{String: string(hash), Valid: true},
	}
	if email != "" {
		user.Email = sql.NullString{String: email, Valid: true}
	}

	now := time.Now().UTC()
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, email, role, subscriptions, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6) RETURNING id`,
		user.Username, user.Email, user.Role, user.Subscriptions, user.PasswordHash, now,
	).Scan(&user.ID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to insert user")
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	s.logger.Info(ctx, "User created", map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     user.Role,
	})
	return &user, nil
}

// AuthenticateUser verifies a username and password pair. Returns
// ErrInvalidCredentials without distinguishing unknown users from wrong
// passwords.
func (s *UserService) AuthenticateUser(ctx context.Context, username, password string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "AuthenticateUser")
	defer observability.FinishSpan(span, &err)

	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			return nil, contextutils.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.PasswordHash.Valid {
		return nil, contextutils.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash.String), []byte(password)) != nil {
		return nil, contextutils.ErrInvalidCredentials
	}
	return user, nil
}

// GetUserByID returns the user with the given id
func (s *UserService) GetUserByID(ctx context.Context, id int) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "GetUserByID",
		observability.AttributeUserID(id),
	)
	defer observability.FinishSpan(span, &err)

	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id))
}

// GetUserByUsername returns the user with the given username
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "GetUserByUsername")
	defer observability.FinishSpan(span, &err)

	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1", username))
}

// ListUsers returns all users ordered by username
func (s *UserService) ListUsers(ctx context.Context) (result0 []models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "ListUsers")
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY username")
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query users")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close user rows", closeErr)
		}
	}()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.Subscriptions, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan user row")
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate user rows")
	}
	return users, nil
}

// UpdateSubscriptions replaces a user's subject subscriptions
func (s *UserService) UpdateSubscriptions(ctx context.Context, userID int, subscriptions []string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "UpdateSubscriptions",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	for _, code := range subscriptions {
		if !contextutils.IsValidMatiereCode(code) {
			return contextutils.WrapErrorf(contextutils.ErrValidationFailed, "invalid matiere code %q", code)
		}
	}

	return s.updateUserField(ctx, userID,
		"UPDATE users SET subscriptions = $1, updated_at = $2 WHERE id = $3",
		strings.Join(subscriptions, ","))
}

// UpdatePassword replaces a user's password with a new bcrypt hash
func (s *UserService) UpdatePassword(ctx context.Context, userID int, newPassword string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "UpdatePassword",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return contextutils.WrapError(err, "failed to hash password")
	}

	return s.updateUserField(ctx, userID,
		"UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3",
		string(hash))
}

// DeleteUser removes a user
func (s *UserService) DeleteUser(ctx context.Context, userID int) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "DeleteUser",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete user")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to read affected rows")
	}
	if affected == 0 {
		return contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "user %d", userID)
	}
	return nil
}

func (s *UserService) updateUserField(ctx context.Context, userID int, query, value string) error {
	res, err := s.db.ExecContext(ctx, query, value, time.Now().UTC(), userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to update user")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to read affected rows")
	}
	if affected == 0 {
		return contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "user %d", userID)
	}
	return nil
}

func (s *UserService) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.Subscriptions, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, contextutils.WrapError(contextutils.ErrRecordNotFound, "user not found")
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to scan user")
	}
	return &u, nil
}
