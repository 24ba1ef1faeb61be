package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"transitadmin/internal/activity"
	"transitadmin/internal/errs"
	"transitadmin/internal/ids"
	"transitadmin/internal/models"
	"transitadmin/internal/repository"
	"transitadmin/internal/security"
)

var (
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", errs.ErrUnauthorized)
	ErrUserSuspended      = fmt.Errorf("user suspended: %w", errs.ErrUnauthorized)
)

type AuthService struct {
	users    *repository.UserRepository
	sessions *repository.SessionRepository
	hasher   *security.PasswordHasher
	tokens   *security.TokenIssuer
	pepper   string
	activity activity.Log
	log      zerolog.Logger
	now      func() time.Time
}

func NewAuthService(
	users *repository.UserRepository,
	sessions *repository.SessionRepository,
	hasher *security.PasswordHasher,
	tokens *security.TokenIssuer,
	keyPepper string,
	activityLog activity.Log,
	log zerolog.Logger,
) *AuthService {
	if activityLog == nil {
		activityLog = activity.Nop{}
	}
	return &AuthService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		tokens:   tokens,
		pepper:   keyPepper,
		activity: activityLog,
		log:      log,
		now:      time.Now,
	}
}

type AuthResult struct {
	AccessToken string         `json:"accessToken"`
	ExpiresAt   time.Time      `json:"expiresAt"`
	Session     models.Session `json:"user"`
}

// Login authenticates an operator by email and password.
func (s *AuthService) Login(ctx context.Context, email string, password string) (AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}
	if user.PasswordHash == "" {
		return AuthResult{}, ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("stored password hash unreadable")
		return AuthResult{}, ErrInvalidCredentials
	}
	if !ok {
		return AuthResult{}, ErrInvalidCredentials
	}
	return s.startSession(ctx, user, "password")
}

// AccessKeyLogin authenticates fleet and individual accounts by their
// generated username and access key.
func (s *AuthService) AccessKeyLogin(ctx context.Context, username string, accessKey string) (AuthResult, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}
	if !security.VerifyKey(s.pepper, strings.TrimSpace(accessKey), user.AccessKeyHash) {
		return AuthResult{}, ErrInvalidCredentials
	}
	return s.startSession(ctx, user, "access_key")
}

func (s *AuthService) startSession(ctx context.Context, user models.User, method string) (AuthResult, error) {
	if user.Status != models.UserStatusActive {
		return AuthResult{}, ErrUserSuspended
	}

	now := s.now().UTC()
	session := models.NewSession(ids.New(), user, now, s.tokens.TTL())

	token, err := s.tokens.Issue(user.ID, session.SessionID, string(user.Role), user.OrganizationID, now)
	if err != nil {
		return AuthResult{}, err
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return AuthResult{}, fmt.Errorf("store session: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("method", method).Msg("operator signed in")
	if err := s.activity.Record(ctx, activity.Entry{
		Action:  "auth.login",
		User:    user.Name,
		Details: "signed in with " + strings.ReplaceAll(method, "_", " "),
	}); err != nil {
		s.log.Warn().Err(err).Msg("record activity failed")
	}

	return AuthResult{AccessToken: token, ExpiresAt: session.ExpiresAt, Session: session}, nil
}

// Authenticate resolves a bearer token to its live session.
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.Session, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return models.Session{}, ErrInvalidCredentials
	}
	session, err := s.Current(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return models.Session{}, ErrInvalidCredentials
		}
		return models.Session{}, err
	}
	if session.ID != claims.UserID {
		return models.Session{}, ErrInvalidCredentials
	}

	// Deleted or suspended accounts lose their sessions on the next request.
	user, err := s.users.GetByID(ctx, session.ID)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		s.endSession(ctx, claims.SessionID)
		return models.Session{}, ErrInvalidCredentials
	case err != nil:
		return models.Session{}, err
	case user.Status != models.UserStatusActive:
		s.endSession(ctx, claims.SessionID)
		return models.Session{}, ErrUserSuspended
	}
	return session, nil
}

func (s *AuthService) endSession(ctx context.Context, sessionID string) {
	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("clear session failed")
	}
}

func (s *AuthService) Current(ctx context.Context, sessionID string) (models.Session, error) {
	return s.sessions.GetByID(ctx, sessionID)
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.DeleteByID(ctx, sessionID)
}

// EnsureAdmin creates the bootstrap admin when no admin account exists.
// It reports whether one was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, email string, password string, name string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, nil
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, err
	}

	created := false
	err = s.users.Mutate(ctx, func(users []models.User) ([]models.User, bool, error) {
		created = false
		for _, u := range users {
			if u.Role == models.UserRoleAdmin {
				return users, false, nil
			}
		}
		created = true
		return append(users, models.User{
			ID:           ids.New(),
			Name:         name,
			Email:        email,
			PasswordHash: hash,
			Role:         models.UserRoleAdmin,
			Status:       models.UserStatusActive,
			CreatedAt:    s.now().UTC(),
		}), true, nil
	})
	if err != nil {
		return false, fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		s.log.Info().Str("email", email).Msg("bootstrap admin created")
	}
	return created, nil
}
