// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package authstate holds the session of one client context and the three
// operations that change it.
package authstate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/olegiv/automatepro/internal/auth"
	"github.com/olegiv/automatepro/internal/backend"
	"github.com/olegiv/automatepro/internal/notify"
)

// Backend is the part of backend.Client the store depends on.
type Backend interface {
	GetSession(ctx context.Context) (backend.Snapshot, error)
	OnAuthStateChange(fn func(backend.AuthChange)) (unsubscribe func())
	SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error)
	SignUp(ctx context.Context, req backend.SignUpRequest) (backend.SignUpResult, error)
	SignOut(ctx context.Context) error
}

// Profile is collected on the sign-up form.
type Profile = auth.SignUpProfile

// Store exposes the current session read-only. The session changes only
// through SignIn, SignUp, SignOut or the backend's change notifications.
type Store struct {
	client   Backend
	notifier notify.Notifier
	logger   *slog.Logger

	cell        Cell[*backend.Session]
	unsubscribe func()

	mu        sync.Mutex
	observers map[int]func(*backend.Session)
	nextID    int
	closed    bool
}

// New subscribes to client and resolves the initial session.
func New(ctx context.Context, client Backend, notifier notify.Notifier) (*Store, error) {
	if notifier == nil {
		notifier = notify.Discard
	}
	s := &Store{
		client:    client,
		notifier:  notifier,
		logger:    slog.Default(),
		observers: make(map[int]func(*backend.Session)),
	}

	// Subscribe before reading so no change is missed; the cell drops
	// whichever of the two is older.
	s.unsubscribe = client.OnAuthStateChange(func(c backend.AuthChange) {
		s.apply(c.Seq, c.Session)
	})

	snap, err := client.GetSession(ctx)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("resolving session: %w", err)
	}
	s.apply(snap.Seq, snap.Session)
	return s, nil
}

func (s *Store) apply(seq uint64, sess *backend.Session) {
	if !s.cell.Set(seq, sess) {
		return
	}
	s.mu.Lock()
	fns := make([]func(*backend.Session), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(sess)
	}
}

// Session returns the current session, or nil when signed out.
func (s *Store) Session() *backend.Session {
	sess, _ := s.cell.Get()
	return sess
}

// UserID returns the signed-in user's id, or "".
func (s *Store) UserID() string {
	if sess := s.Session(); sess != nil {
		return sess.User.ID
	}
	return ""
}

// Subscribe calls fn after every accepted session change.
func (s *Store) Subscribe(fn func(*backend.Session)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

// SignIn signs in with a password. The session is updated by the backend's
// change notification.
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	if _, err := s.client.SignInWithPassword(ctx, email, password); err != nil {
		s.notifier.Notify(ctx, notify.Error("Error signing in", Message(err)))
		return err
	}
	return nil
}

// SignUp creates an account. Profile fields are checked before the backend
// is contacted. The user is not signed in.
func (s *Store) SignUp(ctx context.Context, email, password string, profile Profile) error {
	profile, err := profile.Normalize()
	if err != nil {
		s.notifier.Notify(ctx, notify.Error("Error signing up", Message(err)))
		return err
	}

	res, err := s.client.SignUp(ctx, backend.SignUpRequest{Email: email, Password: password, Profile: profile})
	if err != nil {
		s.notifier.Notify(ctx, notify.Error("Error signing up", Message(err)))
		return err
	}
	if res.ConfirmationRequired {
		s.notifier.Notify(ctx, notify.Info("Account created successfully", "Please check your email for verification."))
	} else {
		s.notifier.Notify(ctx, notify.Info("Account created successfully", "You can now sign in."))
	}
	return nil
}

// SignOut ends the session.
func (s *Store) SignOut(ctx context.Context) error {
	if err := s.client.SignOut(ctx); err != nil {
		s.notifier.Notify(ctx, notify.Error("Error signing out", Message(err)))
		return err
	}
	return nil
}

// Close stops mirroring backend changes and drops all observers.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.observers = make(map[int]func(*backend.Session))
	s.mu.Unlock()
	s.unsubscribe()
}

// Message returns the user-facing text for err. Backend failures that are
// not the user's doing are reported generically.
func Message(err error) string {
	var verr *auth.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, backend.ErrInvalidCredentials):
		return "Invalid login credentials"
	case errors.Is(err, backend.ErrEmailNotConfirmed):
		return "Email not confirmed"
	case errors.Is(err, backend.ErrUserExists):
		return "User already registered"
	case errors.Is(err, backend.ErrNotAuthenticated), errors.Is(err, backend.ErrSessionExpired):
		return "Your session has expired. Please sign in again."
	default:
		return "Something went wrong. Please try again later."
	}
}

type ctxKey struct{}

// NewContext returns ctx carrying s.
func NewContext(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the store carried by ctx, or nil.
func FromContext(ctx context.Context) *Store {
	s, _ := ctx.Value(ctxKey{}).(*Store)
	return s
}
