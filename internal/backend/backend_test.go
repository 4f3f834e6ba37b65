// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/automatepro/internal/auth"
	"github.com/olegiv/automatepro/internal/mail"
	"github.com/olegiv/automatepro/internal/store"
	"github.com/olegiv/automatepro/internal/testutil"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	db     *sql.DB
	svc    *Service
	outbox *mail.Outbox
	clock  *testClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.TestDB(t)
	outbox := &mail.Outbox{}
	clock := &testClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewService(db, outbox, DefaultConfig(),
		WithClock(clock.Now),
		WithLogger(testutil.TestLogger()),
	)
	return &fixture{db: db, svc: svc, outbox: outbox, clock: clock}
}

func signUpRequest(email string) SignUpRequest {
	return SignUpRequest{
		Email:    email,
		Password: "correct-horse",
		Profile:  auth.SignUpProfile{PhoneNumber: "555-0100", FirstName: "Jane", LastName: "Doe"},
	}
}

func confirmationToken(t *testing.T, msg mail.Message) string {
	t.Helper()
	i := strings.Index(msg.HTML, "token=")
	require.GreaterOrEqual(t, i, 0, "confirmation link missing")
	rest := msg.HTML[i+len("token="):]
	end := strings.IndexFunc(rest, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_')
	})
	require.Greater(t, end, 0)
	return rest[:end]
}

// confirmedUser signs up email and confirms it through the mailed link.
func (f *fixture) confirmedUser(t *testing.T, email string) User {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.SignUp(ctx, signUpRequest(email), ClientMeta{})
	require.NoError(t, err)
	sent := f.outbox.Sent()
	user, err := f.svc.ConfirmEmail(ctx, confirmationToken(t, sent[len(sent)-1]))
	require.NoError(t, err)
	return user
}

func (f *fixture) makeAdmin(t *testing.T, userID string) {
	t.Helper()
	err := store.New(f.db).GrantRole(context.Background(), store.GrantRoleParams{
		UserID: userID, Role: RoleAdmin, CreatedAt: f.clock.Now(),
	})
	require.NoError(t, err)
}

func (f *fixture) signedInClient(t *testing.T, email string) *Client {
	t.Helper()
	c := NewClient(f.svc, NewMemoryStorage(nil), ClientMeta{UserAgent: "test"})
	_, err := c.SignInWithPassword(context.Background(), email, "correct-horse")
	require.NoError(t, err)
	return c
}

func TestSignUpValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := signUpRequest("jane@example.com")
	req.Profile.PhoneNumber = "  "
	_, err := f.svc.SignUp(ctx, req, ClientMeta{})
	require.ErrorIs(t, err, ErrInvalidInput)
	var ve *auth.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Phone number is required", ve.Message)

	req = signUpRequest("not-an-email")
	_, err = f.svc.SignUp(ctx, req, ClientMeta{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	req = signUpRequest("jane@example.com")
	req.Password = "short"
	_, err = f.svc.SignUp(ctx, req, ClientMeta{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	n, err := store.New(f.db).CountUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "no account may be created by a rejected sign-up")
}

func TestSignUpRequiresConfirmation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.SignUp(ctx, signUpRequest("jane@example.com"), ClientMeta{})
	require.NoError(t, err)
	assert.True(t, res.ConfirmationRequired)
	assert.Nil(t, res.User.ConfirmedAt)
	require.Len(t, f.outbox.Sent(), 1)

	_, err = f.svc.SignInWithPassword(ctx, "jane@example.com", "correct-horse", ClientMeta{})
	assert.ErrorIs(t, err, ErrEmailNotConfirmed)

	_, err = f.svc.SignUp(ctx, signUpRequest("JANE@example.com"), ClientMeta{})
	assert.ErrorIs(t, err, ErrUserExists)

	user, err := f.svc.ConfirmEmail(ctx, confirmationToken(t, f.outbox.Sent()[0]))
	require.NoError(t, err)
	assert.NotNil(t, user.ConfirmedAt)

	_, err = f.svc.ConfirmEmail(ctx, confirmationToken(t, f.outbox.Sent()[0]))
	assert.ErrorIs(t, err, ErrInvalidToken, "confirmation tokens are single use")

	sess, err := f.svc.SignInWithPassword(ctx, "jane@example.com", "correct-horse", ClientMeta{})
	require.NoError(t, err)
	assert.Equal(t, user.ID, sess.User.ID)

	profile, err := store.New(f.db).GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", profile.FirstName)
	assert.Equal(t, "555-0100", profile.PhoneNumber)
}

func TestSignUpMailFailureKeepsAccount(t *testing.T) {
	f := newFixture(t)
	f.outbox.Err = errors.New("smtp down")

	res, err := f.svc.SignUp(context.Background(), signUpRequest("jane@example.com"), ClientMeta{})
	require.NoError(t, err)
	assert.NotEmpty(t, res.User.ID)
}

func TestConfirmationExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.SignUp(ctx, signUpRequest("jane@example.com"), ClientMeta{})
	require.NoError(t, err)

	f.clock.Advance(49 * time.Hour)
	_, err = f.svc.ConfirmEmail(ctx, confirmationToken(t, f.outbox.Sent()[0]))
	assert.ErrorIs(t, err, ErrInvalidToken)

	n, err := f.svc.PurgeUnconfirmedUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestSignInWrongPassword(t *testing.T) {
	f := newFixture(t)
	f.confirmedUser(t, "jane@example.com")

	_, err := f.svc.SignInWithPassword(context.Background(), "jane@example.com", "nope-nope", ClientMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.SignInWithPassword(context.Background(), "nobody@example.com", "whatever1", ClientMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestClientSessionLifecycle(t *testing.T) {
	f := newFixture(t)
	f.confirmedUser(t, "jane@example.com")
	ctx := context.Background()

	storage := NewMemoryStorage(nil)
	c := NewClient(f.svc, storage, ClientMeta{})

	var changes []AuthChange
	unsubscribe := c.OnAuthStateChange(func(ch AuthChange) { changes = append(changes, ch) })

	snap, err := c.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap.Session)

	sess, err := c.SignInWithPassword(ctx, "jane@example.com", "correct-horse")
	require.NoError(t, err)

	snap, err = c.GetSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap.Session)
	assert.Equal(t, sess.AccessToken, snap.Session.AccessToken)

	require.NoError(t, c.SignOut(ctx))
	snap, err = c.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap.Session)

	require.Len(t, changes, 3)
	assert.Equal(t, EventInitialSession, changes[0].Event)
	assert.Equal(t, EventSignedIn, changes[1].Event)
	assert.Equal(t, EventSignedOut, changes[2].Event)
	for i := 1; i < len(changes); i++ {
		assert.Greater(t, changes[i].Seq, changes[i-1].Seq)
	}

	// The revoked token no longer resolves.
	_, err = f.svc.GetUser(ctx, sess.AccessToken)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	unsubscribe()
	unsubscribe()
	assert.Zero(t, c.ListenerCount())
}

func TestClientRestoresAndRefreshesStoredSession(t *testing.T) {
	f := newFixture(t)
	f.confirmedUser(t, "jane@example.com")
	ctx := context.Background()

	first := f.signedInClient(t, "jane@example.com")
	snap, err := first.GetSession(ctx)
	require.NoError(t, err)
	stored := snap.Session

	// A later request with the same storage sees the same session.
	restored := NewClient(f.svc, NewMemoryStorage(stored), ClientMeta{})
	snap, err = restored.GetSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap.Session)
	assert.Equal(t, stored.AccessToken, snap.Session.AccessToken)

	// After the access token expires the refresh token is used once.
	f.clock.Advance(2 * time.Hour)
	storage := NewMemoryStorage(stored)
	refreshed := NewClient(f.svc, storage, ClientMeta{})
	var events []AuthEvent
	refreshed.OnAuthStateChange(func(ch AuthChange) { events = append(events, ch.Event) })
	snap, err = refreshed.GetSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap.Session)
	assert.NotEqual(t, stored.AccessToken, snap.Session.AccessToken)
	assert.Equal(t, []AuthEvent{EventTokenRefreshed}, events)

	saved, _ := storage.Load(ctx)
	assert.Equal(t, snap.Session.AccessToken, saved.AccessToken)

	// Once the reuse window has passed, replaying the old refresh token
	// fails and clears storage.
	f.clock.Advance(time.Minute)
	replay := NewMemoryStorage(stored)
	stale := NewClient(f.svc, replay, ClientMeta{})
	snap, err = stale.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap.Session)
	gone, _ := replay.Load(ctx)
	assert.Nil(t, gone)
}

func TestClientConcurrentRequestsShareRefresh(t *testing.T) {
	f := newFixture(t)
	f.confirmedUser(t, "jane@example.com")
	ctx := context.Background()

	snap, err := f.signedInClient(t, "jane@example.com").GetSession(ctx)
	require.NoError(t, err)
	stored := snap.Session
	f.clock.Advance(2 * time.Hour)

	// Two requests carrying the same expired session each refresh it.
	first, second := NewMemoryStorage(stored), NewMemoryStorage(stored)
	a, err := NewClient(f.svc, first, ClientMeta{}).GetSession(ctx)
	require.NoError(t, err)
	b, err := NewClient(f.svc, second, ClientMeta{}).GetSession(ctx)
	require.NoError(t, err)

	require.NotNil(t, a.Session)
	require.NotNil(t, b.Session, "second request was signed out")
	assert.NotEqual(t, a.Session.RefreshToken, b.Session.RefreshToken)
	kept, _ := second.Load(ctx)
	require.NotNil(t, kept)
	assert.Equal(t, b.Session.AccessToken, kept.AccessToken)

	user, err := f.svc.GetUser(ctx, b.Session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", user.Email)
}

func TestClientConcurrentGetSessionLoadsOnce(t *testing.T) {
	f := newFixture(t)
	f.confirmedUser(t, "jane@example.com")
	ctx := context.Background()

	snap, err := f.signedInClient(t, "jane@example.com").GetSession(ctx)
	require.NoError(t, err)
	f.clock.Advance(2 * time.Hour)

	c := NewClient(f.svc, NewMemoryStorage(snap.Session), ClientMeta{})
	var mu sync.Mutex
	var events []AuthEvent
	c.OnAuthStateChange(func(ch AuthChange) {
		mu.Lock()
		events = append(events, ch.Event)
		mu.Unlock()
	})

	const callers = 8
	snaps := make([]Snapshot, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snaps[i], _ = c.GetSession(ctx)
		}()
	}
	wg.Wait()

	assert.Equal(t, []AuthEvent{EventTokenRefreshed}, events)
	for _, got := range snaps {
		require.NotNil(t, got.Session)
		assert.Equal(t, snaps[0].Seq, got.Seq)
		assert.Equal(t, snaps[0].Session.AccessToken, got.Session.AccessToken)
	}
}

func TestRefreshReuseWindow(t *testing.T) {
	f := newFixture(t)
	f.confirmedUser(t, "jane@example.com")
	ctx := context.Background()

	snap, err := f.signedInClient(t, "jane@example.com").GetSession(ctx)
	require.NoError(t, err)
	original := snap.Session.RefreshToken

	rotated, err := f.svc.RefreshSession(ctx, original)
	require.NoError(t, err)

	// The replaced token still works right after the rotation.
	f.clock.Advance(5 * time.Second)
	again, err := f.svc.RefreshSession(ctx, original)
	require.NoError(t, err)
	assert.Equal(t, snap.Session.User.ID, again.User.ID)

	// Only the last replaced token is remembered.
	_, err = f.svc.RefreshSession(ctx, original)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	// Past the window the replaced token is refused.
	f.clock.Advance(time.Minute)
	_, err = f.svc.RefreshSession(ctx, rotated.RefreshToken)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = f.svc.RefreshSession(ctx, again.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshReuseDisabled(t *testing.T) {
	db := testutil.TestDB(t)
	cfg := DefaultConfig()
	cfg.RefreshReuseWindow = 0
	clock := &testClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	f := &fixture{db: db, outbox: &mail.Outbox{}, clock: clock}
	f.svc = NewService(db, f.outbox, cfg, WithClock(clock.Now), WithLogger(testutil.TestLogger()))
	f.confirmedUser(t, "jane@example.com")
	ctx := context.Background()

	snap, err := f.signedInClient(t, "jane@example.com").GetSession(ctx)
	require.NoError(t, err)
	_, err = f.svc.RefreshSession(ctx, snap.Session.RefreshToken)
	require.NoError(t, err)
	_, err = f.svc.RefreshSession(ctx, snap.Session.RefreshToken)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestRefreshExpiredLogsDeleteFailure(t *testing.T) {
	f := newFixture(t)
	f.confirmedUser(t, "jane@example.com")
	ctx := context.Background()

	var logs bytes.Buffer
	svc := NewService(f.db, f.outbox, DefaultConfig(), WithClock(f.clock.Now),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	sess, err := svc.SignInWithPassword(ctx, "jane@example.com", "correct-horse", ClientMeta{})
	require.NoError(t, err)

	_, err = f.db.ExecContext(ctx, `CREATE TRIGGER keep_auth_sessions BEFORE DELETE ON auth_sessions
BEGIN SELECT RAISE(ABORT, 'delete blocked'); END`)
	require.NoError(t, err)

	f.clock.Advance(31 * 24 * time.Hour)
	_, err = svc.RefreshSession(ctx, sess.RefreshToken)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Contains(t, logs.String(), "failed to delete auth session")
	assert.Contains(t, logs.String(), "delete blocked")
}

func TestHasRole(t *testing.T) {
	f := newFixture(t)
	user := f.confirmedUser(t, "jane@example.com")
	ctx := context.Background()

	ok, err := f.svc.HasRole(ctx, user.ID, RoleAdmin)
	require.NoError(t, err)
	assert.False(t, ok)

	f.makeAdmin(t, user.ID)
	ok, err = f.svc.HasRole(ctx, user.ID, RoleAdmin)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.HasRole(ctx, "", RoleAdmin)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostRules(t *testing.T) {
	f := newFixture(t)
	admin := f.confirmedUser(t, "admin@example.com")
	f.makeAdmin(t, admin.ID)
	f.confirmedUser(t, "jane@example.com")
	ctx := context.Background()

	adminClient := f.signedInClient(t, "admin@example.com")
	userClient := f.signedInClient(t, "jane@example.com")
	anon := NewClient(f.svc, NewMemoryStorage(nil), ClientMeta{})

	in := PostInput{Title: "T", Excerpt: "E", Content: "C", Status: PostDraft}

	_, err := anon.Posts().Insert(ctx, admin.ID, in)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = userClient.Posts().Insert(ctx, admin.ID, in)
	assert.ErrorIs(t, err, ErrForbidden)

	post, err := adminClient.Posts().Insert(ctx, admin.ID, in)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, post.AuthorID)
	assert.Equal(t, "t", post.Slug)

	// Round trip: the stored record matches what was saved.
	got, err := adminClient.Posts().Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "T", got.Title)
	assert.Equal(t, "E", got.Excerpt)
	assert.Equal(t, "C", got.Content)
	assert.Equal(t, PostDraft, got.Status)

	// Drafts are hidden from everyone but admins.
	_, err = anon.Posts().Get(ctx, post.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = anon.Posts().List(ctx, ListOptions{})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	published, err := anon.Posts().List(ctx, ListOptions{Status: PostPublished})
	require.NoError(t, err)
	assert.Empty(t, published)

	// Identical updates only move UpdatedAt.
	f.clock.Advance(time.Minute)
	first, err := adminClient.Posts().Update(ctx, post.ID, in)
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	second, err := adminClient.Posts().Update(ctx, post.ID, in)
	require.NoError(t, err)
	assert.Equal(t, first.Title, second.Title)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, first.AuthorID, second.AuthorID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	in.Status = PostPublished
	_, err = adminClient.Posts().Update(ctx, post.ID, in)
	require.NoError(t, err)
	bySlug, err := anon.Posts().GetBySlug(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, post.ID, bySlug.ID)

	second2, err := adminClient.Posts().Insert(ctx, admin.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "t-2", second2.Slug)

	assert.ErrorIs(t, userClient.Posts().Delete(ctx, post.ID), ErrForbidden)
	require.NoError(t, adminClient.Posts().Delete(ctx, post.ID))
	assert.ErrorIs(t, adminClient.Posts().Delete(ctx, post.ID), ErrNotFound)

	_, err = adminClient.Posts().Update(ctx, "missing", in)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = adminClient.Posts().Insert(ctx, admin.ID, PostInput{Title: "T", Excerpt: " ", Content: "C"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestContactRules(t *testing.T) {
	f := newFixture(t)
	admin := f.confirmedUser(t, "admin@example.com")
	f.makeAdmin(t, admin.ID)
	ctx := context.Background()
	anon := NewClient(f.svc, NewMemoryStorage(nil), ClientMeta{})

	msg, err := anon.Contacts().Insert(ctx, ContactInput{
		Name:    "Jane Doe",
		Email:   "jane@example.com",
		Phone:   "555-0100",
		Company: "",
		Message: "Hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "", msg.Company)

	_, err = anon.Contacts().List(ctx, ListOptions{})
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	list, err := f.signedInClient(t, "admin@example.com").Contacts().List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Jane Doe", list[0].Name)
	assert.Equal(t, "jane@example.com", list[0].Email)
	assert.Equal(t, "555-0100", list[0].Phone)
	assert.Equal(t, "", list[0].Company)
	assert.Equal(t, "Hello", list[0].Message)

	_, err = anon.Contacts().Insert(ctx, ContactInput{Name: "x", Email: "x@example.com", Message: "m"})
	assert.ErrorIs(t, err, ErrInvalidInput, "phone is required")
}

func TestReviewRules(t *testing.T) {
	f := newFixture(t)
	f.confirmedUser(t, "jane@example.com")
	ctx := context.Background()

	anon := NewClient(f.svc, NewMemoryStorage(nil), ClientMeta{})
	_, err := anon.Reviews().Insert(ctx, ReviewInput{Rating: 5})
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	c := f.signedInClient(t, "jane@example.com")
	_, err = c.Reviews().Insert(ctx, ReviewInput{Rating: 0, Comment: "meh"})
	require.ErrorIs(t, err, ErrInvalidInput)
	var ve *auth.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Please select a rating", ve.Message)

	for i := 1; i <= 4; i++ {
		f.clock.Advance(time.Minute)
		_, err := c.Reviews().Insert(ctx, ReviewInput{Rating: i, Comment: "ok"})
		require.NoError(t, err)
	}

	latest, err := anon.Reviews().List(ctx, ListOptions{Limit: 3})
	require.NoError(t, err)
	require.Len(t, latest, 3)
	assert.Equal(t, 4, latest[0].Rating)
	assert.Equal(t, "Jane Doe", latest[0].AuthorName())
}

func TestPurgeExpiredSessions(t *testing.T) {
	f := newFixture(t)
	f.confirmedUser(t, "jane@example.com")
	f.signedInClient(t, "jane@example.com")

	f.clock.Advance(31 * 24 * time.Hour)
	n, err := f.svc.PurgeExpiredSessions(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestOnChange(t *testing.T) {
	db := testutil.TestDB(t)
	var changed []string
	cfg := DefaultConfig()
	cfg.RequireConfirmation = false
	svc := NewService(db, &mail.Outbox{}, cfg,
		WithLogger(testutil.TestLogger()),
		OnChange(func(_ context.Context, table string) { changed = append(changed, table) }),
	)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, signUpRequest("admin@example.com"), ClientMeta{})
	require.NoError(t, err)
	assert.Empty(t, changed, "sign-up is not a content change")

	c := NewClient(svc, NewMemoryStorage(nil), ClientMeta{})
	sess, err := c.SignInWithPassword(ctx, "admin@example.com", "correct-horse")
	require.NoError(t, err)
	require.NoError(t, store.New(db).GrantRole(ctx, store.GrantRoleParams{
		UserID: sess.User.ID, Role: RoleAdmin, CreatedAt: time.Now(),
	}))

	_, err = c.Posts().Insert(ctx, sess.User.ID, PostInput{Title: "T", Excerpt: "E", Content: "C"})
	require.NoError(t, err)
	_, err = c.Reviews().Insert(ctx, ReviewInput{Rating: 5, Comment: "Great"})
	require.NoError(t, err)
	_, err = c.Posts().Insert(ctx, sess.User.ID, PostInput{Title: "", Excerpt: "E", Content: "C"})
	require.Error(t, err)

	assert.Equal(t, []string{TablePosts, TableReviews}, changed)
}
