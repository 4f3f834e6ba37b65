// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package backend is the site's backend-as-a-service: password auth with
// email confirmation, opaque refreshable sessions, the has_role RPC and
// row-level rules over the content tables.
//
// Service is the server side and owns the database. Client is what the
// site talks to: one per client context, holding at most one session and
// announcing session changes to subscribers.
package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/automatepro/internal/auth"
	"github.com/olegiv/automatepro/internal/mail"
	"github.com/olegiv/automatepro/internal/model"
	"github.com/olegiv/automatepro/internal/store"
)

// AuditLog records security-relevant auth events.
type AuditLog interface {
	LogAuthEvent(ctx context.Context, level, message, userID, ipAddress, userAgent string, metadata map[string]any) error
}

// Config tunes token lifetimes and confirmation behaviour.
type Config struct {
	AccessTTL           time.Duration
	RefreshTTL          time.Duration
	RefreshReuseWindow  time.Duration // a just-rotated refresh token still works this long
	ConfirmationTTL     time.Duration
	RequireConfirmation bool
	SiteName            string
	SiteURL             string // base for confirmation links
}

// DefaultConfig returns the lifetimes used when none are configured.
func DefaultConfig() Config {
	return Config{
		AccessTTL:           time.Hour,
		RefreshTTL:          30 * 24 * time.Hour,
		RefreshReuseWindow:  10 * time.Second,
		ConfirmationTTL:     48 * time.Hour,
		RequireConfirmation: true,
		SiteName:            "AutomatePro",
		SiteURL:             "http://localhost:8080",
	}
}

// Service implements the backend over SQLite.
type Service struct {
	db      *sql.DB
	queries *store.Queries
	mailer  mail.Sender
	audit   AuditLog
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
	changed []func(ctx context.Context, table string)
}

// Option customises a Service.
type Option func(*Service)

// WithAuditLog records auth events to log.
func WithAuditLog(log AuditLog) Option {
	return func(s *Service) { s.audit = log }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger replaces slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// OnChange calls fn after every successful write to a table, with the
// table's name. Caches use it to drop stale entries.
func OnChange(fn func(ctx context.Context, table string)) Option {
	return func(s *Service) { s.changed = append(s.changed, fn) }
}

// Table names passed to OnChange listeners.
const (
	TablePosts    = "blog_posts"
	TableReviews  = "reviews"
	TableContacts = "contact_messages"
)

func (s *Service) notifyChange(ctx context.Context, table string) {
	for _, fn := range s.changed {
		fn(ctx, table)
	}
}

// NewService creates a Service. mailer delivers confirmation emails.
func NewService(db *sql.DB, mailer mail.Sender, cfg Config, opts ...Option) *Service {
	s := &Service{
		db:      db,
		queries: store.New(db),
		mailer:  mailer,
		cfg:     cfg,
		logger:  slog.Default(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) auditEvent(ctx context.Context, level, message, userID string, meta ClientMeta, extra map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogAuthEvent(ctx, level, message, userID, meta.IPAddress, meta.UserAgent, extra); err != nil {
		s.logger.Error("failed to record auth event", "error", err, "message", message)
	}
}

// SignUp creates an account with its profile and the user role, then mails
// a confirmation link. The account cannot sign in until confirmed when
// confirmation is required. A mail failure is logged and does not undo the
// account.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest, meta ClientMeta) (SignUpResult, error) {
	req, err := req.Validate()
	if err != nil {
		return SignUpResult{}, invalid(err)
	}

	if _, err := s.queries.GetUserByEmail(ctx, req.Email); err == nil {
		return SignUpResult{}, ErrUserExists
	} else if !errors.Is(err, sql.ErrNoRows) {
		return SignUpResult{}, storeErr("looking up email", err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return SignUpResult{}, fmt.Errorf("hashing password: %w", err)
	}
	token, err := auth.NewToken()
	if err != nil {
		return SignUpResult{}, err
	}

	now := s.now()
	id := uuid.NewString()
	confirmed := sql.NullTime{}
	if !s.cfg.RequireConfirmation {
		confirmed = sql.NullTime{Time: now, Valid: true}
	}

	var created store.User
	err = store.InTx(ctx, s.db, func(q *store.Queries) error {
		var err error
		created, err = q.CreateUser(ctx, store.CreateUserParams{
			ID:               id,
			Email:            req.Email,
			PasswordHash:     hash,
			EmailConfirmedAt: confirmed,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
		if err != nil {
			if isUniqueViolation(err) {
				return ErrUserExists
			}
			return storeErr("creating user", err)
		}
		if _, err := q.CreateProfile(ctx, store.CreateProfileParams{
			UserID:      id,
			FirstName:   req.Profile.FirstName,
			LastName:    req.Profile.LastName,
			PhoneNumber: req.Profile.PhoneNumber,
			CreatedAt:   now,
		}); err != nil {
			return storeErr("creating profile", err)
		}
		if err := q.GrantRole(ctx, store.GrantRoleParams{UserID: id, Role: RoleUser, CreatedAt: now}); err != nil {
			return storeErr("granting role", err)
		}
		if s.cfg.RequireConfirmation {
			if err := q.CreateEmailConfirmation(ctx, store.CreateEmailConfirmationParams{
				TokenHash: auth.HashToken(token),
				UserID:    id,
				ExpiresAt: now.Add(s.cfg.ConfirmationTTL),
				CreatedAt: now,
			}); err != nil {
				return storeErr("creating confirmation", err)
			}
		}
		return nil
	})
	if err != nil {
		return SignUpResult{}, err
	}

	s.auditEvent(ctx, model.EventLevelInfo, "User signed up", id, meta, nil)

	if s.cfg.RequireConfirmation {
		s.sendConfirmation(ctx, req.Email, req.Profile.FirstName, token)
	}

	return SignUpResult{User: userFromStore(created), ConfirmationRequired: s.cfg.RequireConfirmation}, nil
}

func (s *Service) sendConfirmation(ctx context.Context, email, name, token string) {
	msg, err := mail.ConfirmationEmail(email, mail.ConfirmationData{
		Site:  s.cfg.SiteName,
		Name:  name,
		Link:  s.cfg.SiteURL + "/auth/confirm?token=" + token,
		Hours: int(s.cfg.ConfirmationTTL.Hours()),
	})
	if err == nil {
		_, err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		s.logger.Warn("failed to send confirmation email", "error", err, "category", model.EventCategoryAuth)
	}
}

// ConfirmEmail marks the account owning token as confirmed.
func (s *Service) ConfirmEmail(ctx context.Context, token string) (User, error) {
	if token == "" {
		return User{}, ErrInvalidToken
	}
	c, err := s.queries.GetEmailConfirmation(ctx, auth.HashToken(token))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrInvalidToken
	}
	if err != nil {
		return User{}, storeErr("loading confirmation", err)
	}
	now := s.now()
	if !now.Before(c.ExpiresAt) {
		return User{}, ErrInvalidToken
	}

	var user store.User
	err = store.InTx(ctx, s.db, func(q *store.Queries) error {
		if err := q.ConfirmUserEmail(ctx, store.ConfirmUserEmailParams{
			EmailConfirmedAt: now, UpdatedAt: now, ID: c.UserID,
		}); err != nil {
			return storeErr("confirming email", err)
		}
		if err := q.DeleteUserEmailConfirmations(ctx, c.UserID); err != nil {
			return storeErr("clearing confirmations", err)
		}
		var err error
		user, err = q.GetUserByID(ctx, c.UserID)
		return storeErr("loading user", err)
	})
	if err != nil {
		return User{}, err
	}
	s.auditEvent(ctx, model.EventLevelInfo, "Email confirmed", user.ID, ClientMeta{}, nil)
	return userFromStore(user), nil
}

// SignInWithPassword checks credentials and issues a new session.
func (s *Service) SignInWithPassword(ctx context.Context, email, password string, meta ClientMeta) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.queries.GetUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		s.auditEvent(ctx, model.EventLevelWarning, "Failed sign-in: unknown email", "", meta, map[string]any{"email": email})
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, storeErr("looking up user", err)
	}

	ok, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil || !ok {
		s.auditEvent(ctx, model.EventLevelWarning, "Failed sign-in: wrong password", user.ID, meta, nil)
		return nil, ErrInvalidCredentials
	}
	if s.cfg.RequireConfirmation && !user.EmailConfirmedAt.Valid {
		return nil, ErrEmailNotConfirmed
	}

	now := s.now()
	if auth.NeedsRehash(user.PasswordHash) {
		if hash, err := auth.HashPassword(password); err == nil {
			if err := s.queries.UpdateUserPassword(ctx, store.UpdateUserPasswordParams{
				PasswordHash: hash, UpdatedAt: now, ID: user.ID,
			}); err != nil {
				s.logger.Error("failed to upgrade password hash", "error", err, "user_id", user.ID)
			}
		}
	}
	if err := s.queries.UpdateUserLastSignIn(ctx, store.UpdateUserLastSignInParams{
		LastSignInAt: now, UpdatedAt: now, ID: user.ID,
	}); err != nil {
		s.logger.Error("failed to record sign-in time", "error", err, "user_id", user.ID)
	}

	sess, err := s.issueSession(ctx, user, meta)
	if err != nil {
		return nil, err
	}
	s.auditEvent(ctx, model.EventLevelInfo, "User signed in", user.ID, meta, nil)
	return sess, nil
}

func (s *Service) issueSession(ctx context.Context, user store.User, meta ClientMeta) (*Session, error) {
	access, err := auth.NewToken()
	if err != nil {
		return nil, err
	}
	refresh, err := auth.NewToken()
	if err != nil {
		return nil, err
	}
	now := s.now()
	row, err := s.queries.CreateAuthSession(ctx, store.CreateAuthSessionParams{
		ID:               uuid.NewString(),
		UserID:           user.ID,
		AccessTokenHash:  auth.HashToken(access),
		RefreshTokenHash: auth.HashToken(refresh),
		AccessExpiresAt:  now.Add(s.cfg.AccessTTL),
		RefreshExpiresAt: now.Add(s.cfg.RefreshTTL),
		UserAgent:        meta.UserAgent,
		IpAddress:        meta.IPAddress,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		return nil, storeErr("creating session", err)
	}
	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    row.AccessExpiresAt,
		User:         userFromStore(user),
	}, nil
}

// GetUser resolves an access token to its user.
func (s *Service) GetUser(ctx context.Context, accessToken string) (User, error) {
	_, user, err := s.lookupAccess(ctx, accessToken)
	return user, err
}

// SessionForAccessToken rebuilds a session (without refresh token) from a
// bearer access token.
func (s *Service) SessionForAccessToken(ctx context.Context, accessToken string) (*Session, error) {
	row, user, err := s.lookupAccess(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return &Session{AccessToken: accessToken, ExpiresAt: row.AccessExpiresAt, User: user}, nil
}

func (s *Service) lookupAccess(ctx context.Context, accessToken string) (store.AuthSession, User, error) {
	if accessToken == "" {
		return store.AuthSession{}, User{}, ErrNotAuthenticated
	}
	row, err := s.queries.GetAuthSessionByAccessHash(ctx, auth.HashToken(accessToken))
	if errors.Is(err, sql.ErrNoRows) {
		return store.AuthSession{}, User{}, ErrNotAuthenticated
	}
	if err != nil {
		return store.AuthSession{}, User{}, storeErr("loading session", err)
	}
	if !s.now().Before(row.AccessExpiresAt) {
		return row, User{}, ErrSessionExpired
	}
	user, err := s.queries.GetUserByID(ctx, row.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return row, User{}, ErrNotAuthenticated
		}
		return row, User{}, storeErr("loading user", err)
	}
	return row, userFromStore(user), nil
}

// RefreshSession exchanges a refresh token for a new token pair. Each
// refresh token works once, except that the token replaced by a session's
// last rotation is accepted again within Config.RefreshReuseWindow. Two
// requests racing to refresh the same stored session then both stay signed
// in.
func (s *Service) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrNotAuthenticated
	}
	hash := auth.HashToken(refreshToken)
	row, err := s.queries.GetAuthSessionByRefreshHash(ctx, hash)
	if errors.Is(err, sql.ErrNoRows) {
		return s.refreshReused(ctx, hash)
	}
	if err != nil {
		return nil, storeErr("loading session", err)
	}
	if !s.now().Before(row.RefreshExpiresAt) {
		s.deleteAuthSession(ctx, row.ID, "refresh token expired")
		return nil, ErrNotAuthenticated
	}

	sess, err := s.rotate(ctx, row)
	if errors.Is(err, ErrNotAuthenticated) {
		// Lost a race with another refresh of the same token.
		return s.refreshReused(ctx, hash)
	}
	return sess, err
}

// refreshReused rotates the session whose previous refresh token hashes to
// hash, provided that rotation happened within the reuse window.
func (s *Service) refreshReused(ctx context.Context, hash string) (*Session, error) {
	if s.cfg.RefreshReuseWindow <= 0 {
		return nil, ErrNotAuthenticated
	}
	row, err := s.queries.GetAuthSessionByPreviousRefreshHash(ctx, hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, storeErr("loading session", err)
	}
	now := s.now()
	if now.Sub(row.UpdatedAt) > s.cfg.RefreshReuseWindow || !now.Before(row.RefreshExpiresAt) {
		s.logger.Warn("rotated refresh token reused", "session_id", row.ID, "user_id", row.UserID,
			"category", model.EventCategoryAuth)
		return nil, ErrNotAuthenticated
	}
	return s.rotate(ctx, row)
}

// rotate issues a new token pair for row, guarded on its current refresh
// hash.
func (s *Service) rotate(ctx context.Context, row store.AuthSession) (*Session, error) {
	access, err := auth.NewToken()
	if err != nil {
		return nil, err
	}
	refresh, err := auth.NewToken()
	if err != nil {
		return nil, err
	}
	now := s.now()
	expires := now.Add(s.cfg.AccessTTL)
	n, err := s.queries.RotateAuthSession(ctx, store.RotateAuthSessionParams{
		AccessTokenHash:     auth.HashToken(access),
		RefreshTokenHash:    auth.HashToken(refresh),
		AccessExpiresAt:     expires,
		RefreshExpiresAt:    now.Add(s.cfg.RefreshTTL),
		UpdatedAt:           now,
		ID:                  row.ID,
		OldRefreshTokenHash: row.RefreshTokenHash,
	})
	if err != nil {
		return nil, storeErr("rotating session", err)
	}
	if n == 0 {
		return nil, ErrNotAuthenticated
	}

	user, err := s.queries.GetUserByID(ctx, row.UserID)
	if err != nil {
		return nil, storeErr("loading user", err)
	}
	return &Session{AccessToken: access, RefreshToken: refresh, ExpiresAt: expires, User: userFromStore(user)}, nil
}

// deleteAuthSession removes a dead session row. Errors are only logged; the
// expiry sweep removes the row later.
func (s *Service) deleteAuthSession(ctx context.Context, id, reason string) {
	if err := s.queries.DeleteAuthSession(ctx, id); err != nil {
		s.logger.Error("failed to delete auth session", "error", err, "session_id", id, "reason", reason,
			"category", model.EventCategoryAuth)
	}
}

// SignOut revokes the session owning accessToken. Unknown or expired
// tokens are already signed out and succeed.
func (s *Service) SignOut(ctx context.Context, accessToken string, meta ClientMeta) error {
	if accessToken == "" {
		return nil
	}
	row, err := s.queries.GetAuthSessionByAccessHash(ctx, auth.HashToken(accessToken))
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return storeErr("loading session", err)
	}
	if err := s.queries.DeleteAuthSession(ctx, row.ID); err != nil {
		return storeErr("deleting session", err)
	}
	s.auditEvent(ctx, model.EventLevelInfo, "User signed out", row.UserID, meta, nil)
	return nil
}

// HasRole is the has_role RPC: whether userID holds role.
func (s *Service) HasRole(ctx context.Context, userID, role string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	ok, err := s.queries.HasRole(ctx, store.HasRoleParams{UserID: userID, Role: role})
	if err != nil {
		return false, storeErr("has_role", err)
	}
	return ok, nil
}

// PurgeExpiredSessions deletes sessions whose refresh token has expired.
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.queries.DeleteExpiredAuthSessions(ctx, s.now())
	return n, storeErr("purging sessions", err)
}

// PurgeUnconfirmedUsers deletes accounts never confirmed within the
// confirmation window.
func (s *Service) PurgeUnconfirmedUsers(ctx context.Context) (int64, error) {
	if !s.cfg.RequireConfirmation {
		return 0, nil
	}
	n, err := s.queries.DeleteUnconfirmedUsersBefore(ctx, s.now().Add(-s.cfg.ConfirmationTTL))
	return n, storeErr("purging unconfirmed users", err)
}

// Ping checks the database.
func (s *Service) Ping(ctx context.Context) error {
	return store.Ping(ctx, s.db)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
