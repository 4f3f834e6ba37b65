// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package backend

import (
	"context"
	"errors"
	"sync"
)

// AuthEvent names a session change.
type AuthEvent string

const (
	EventInitialSession AuthEvent = "INITIAL_SESSION"
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// AuthChange is delivered to OnAuthStateChange subscribers. Seq increases
// with every change made by the same client.
type AuthChange struct {
	Event   AuthEvent
	Session *Session
	Seq     uint64
}

// Snapshot is a session read together with the sequence number it was
// current at.
type Snapshot struct {
	Session *Session
	Seq     uint64
}

// TokenStorage persists the client's session between requests.
type TokenStorage interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context) error
}

// Client is the per-client-context handle onto the backend. It holds at
// most one session. Safe for concurrent use.
type Client struct {
	svc     *Service
	storage TokenStorage
	meta    ClientMeta

	// loadMu is held while storage and the current session change
	// together. mu guards the fields below it.
	loadMu    sync.Mutex
	mu        sync.Mutex
	loaded    bool
	current   *Session
	seq       uint64
	listeners map[int]func(AuthChange)
	nextID    int
}

// NewClient returns a client whose session lives in storage.
func NewClient(svc *Service, storage TokenStorage, meta ClientMeta) *Client {
	return &Client{
		svc:       svc,
		storage:   storage,
		meta:      meta,
		listeners: make(map[int]func(AuthChange)),
	}
}

// OnAuthStateChange registers fn for session changes and returns a function
// that removes it. fn runs on the goroutine that caused the change and must
// not call back into the client's sign-in or sign-out methods.
func (c *Client) OnAuthStateChange(fn func(AuthChange)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// ListenerCount returns the number of registered subscribers.
func (c *Client) ListenerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners)
}

// snapshot returns the current session and whether one has been loaded.
func (c *Client) snapshot() (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{Session: c.current, Seq: c.seq}, c.loaded
}

// set replaces the current session and notifies subscribers. Callers hold
// loadMu.
func (c *Client) set(event AuthEvent, s *Session) AuthChange {
	c.mu.Lock()
	c.loaded = true
	c.current = s
	c.seq++
	change := AuthChange{Event: event, Session: s, Seq: c.seq}
	fns := make([]func(AuthChange), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(change)
	}
	return change
}

// GetSession returns the current session, loading it from storage on first
// use. A stored session with an expired access token is refreshed; one that
// the backend no longer knows is cleared.
func (c *Client) GetSession(ctx context.Context) (Snapshot, error) {
	if snap, ok := c.snapshot(); ok {
		return snap, nil
	}
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	// Another load, sign-in or sign-out may have finished while waiting.
	if snap, ok := c.snapshot(); ok {
		return snap, nil
	}

	stored, err := c.storage.Load(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	event := EventInitialSession
	sess := stored
	if stored != nil {
		sess, event, err = c.recover(ctx, stored)
		if err != nil {
			return Snapshot{}, err
		}
	}

	change := c.set(event, sess)
	return Snapshot{Session: change.Session, Seq: change.Seq}, nil
}

func (c *Client) recover(ctx context.Context, stored *Session) (*Session, AuthEvent, error) {
	user, err := c.svc.GetUser(ctx, stored.AccessToken)
	if err == nil {
		s := *stored
		s.User = user
		return &s, EventInitialSession, nil
	}
	if errors.Is(err, ErrUnavailable) {
		return nil, "", err
	}

	if errors.Is(err, ErrSessionExpired) && stored.RefreshToken != "" {
		refreshed, rerr := c.svc.RefreshSession(ctx, stored.RefreshToken)
		if rerr == nil {
			if err := c.storage.Save(ctx, refreshed); err != nil {
				return nil, "", err
			}
			return refreshed, EventTokenRefreshed, nil
		}
		if errors.Is(rerr, ErrUnavailable) {
			return nil, "", rerr
		}
	}

	if err := c.storage.Clear(ctx); err != nil {
		return nil, "", err
	}
	return nil, EventInitialSession, nil
}

// SignInWithPassword signs in and makes the new session current.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	sess, err := c.svc.SignInWithPassword(ctx, email, password, c.meta)
	if err != nil {
		return nil, err
	}
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	if err := c.storage.Save(ctx, sess); err != nil {
		return nil, err
	}
	c.set(EventSignedIn, sess)
	return sess, nil
}

// SignUp creates an account. The current session is not changed.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (SignUpResult, error) {
	return c.svc.SignUp(ctx, req, c.meta)
}

// SignOut revokes the current session and clears it.
func (c *Client) SignOut(ctx context.Context) error {
	snap, err := c.GetSession(ctx)
	if err != nil {
		return err
	}
	if snap.Session != nil {
		if err := c.svc.SignOut(ctx, snap.Session.AccessToken, c.meta); err != nil {
			return err
		}
	}
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	if err := c.storage.Clear(ctx); err != nil {
		return err
	}
	c.set(EventSignedOut, nil)
	return nil
}

// RefreshSession exchanges the current refresh token for a new pair.
func (c *Client) RefreshSession(ctx context.Context) (*Session, error) {
	snap, err := c.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if snap.Session == nil {
		return nil, ErrNotAuthenticated
	}
	sess, err := c.svc.RefreshSession(ctx, snap.Session.RefreshToken)
	if err != nil {
		return nil, err
	}
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	if err := c.storage.Save(ctx, sess); err != nil {
		return nil, err
	}
	c.set(EventTokenRefreshed, sess)
	return sess, nil
}

// HasRole calls the has_role RPC.
func (c *Client) HasRole(ctx context.Context, userID, role string) (bool, error) {
	return c.svc.HasRole(ctx, userID, role)
}

func (c *Client) principal(ctx context.Context) (Principal, error) {
	snap, err := c.GetSession(ctx)
	if err != nil {
		return Principal{}, err
	}
	if snap.Session == nil {
		return Principal{}, nil
	}
	return Principal{UserID: snap.Session.User.ID}, nil
}

// Posts returns the blog_posts table.
func (c *Client) Posts() *PostsTable { return &PostsTable{c: c} }

// Contacts returns the contact_messages table.
func (c *Client) Contacts() *ContactsTable { return &ContactsTable{c: c} }

// Reviews returns the reviews table.
func (c *Client) Reviews() *ReviewsTable { return &ReviewsTable{c: c} }

// Events returns the audit events table.
func (c *Client) Events() *EventsTable { return &EventsTable{c: c} }
