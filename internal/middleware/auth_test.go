// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/automatepro/internal/access"
	"github.com/olegiv/automatepro/internal/authstate"
	"github.com/olegiv/automatepro/internal/backend"
	"github.com/olegiv/automatepro/internal/mail"
	"github.com/olegiv/automatepro/internal/notify"
	"github.com/olegiv/automatepro/internal/session"
	"github.com/olegiv/automatepro/internal/testutil"
)

const testPassword = "correct-horse"

type authFixture struct {
	db  *sql.DB
	svc *backend.Service
	sm  *scs.SessionManager
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db := testutil.TestDB(t)
	svc := backend.NewService(db, &mail.Outbox{}, backend.DefaultConfig(),
		backend.WithLogger(testutil.TestLogger()))
	return &authFixture{db: db, svc: svc, sm: session.New(db, true)}
}

func (f *authFixture) signIn(t *testing.T, email string, roles ...string) *backend.Session {
	t.Helper()
	testutil.CreateUser(t, f.db, email, testPassword, roles...)
	sess, err := f.svc.SignInWithPassword(context.Background(), email, testPassword, backend.ClientMeta{})
	require.NoError(t, err)
	return sess
}

// withSession returns r carrying a client and store holding sess.
func (f *authFixture) withSession(t *testing.T, r *http.Request, sess *backend.Session) *http.Request {
	t.Helper()
	client := backend.NewClient(f.svc, backend.NewMemoryStorage(sess), backend.ClientMeta{})
	st, err := authstate.New(r.Context(), client, notify.Discard)
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return r.WithContext(withAuth(r.Context(), client, st))
}

func TestAuth_CookieSessionAcrossRequests(t *testing.T) {
	f := newAuthFixture(t)
	testutil.CreateUser(t, f.db, "jane@example.com", testPassword)

	mux := http.NewServeMux()
	mux.HandleFunc("/signin", func(w http.ResponseWriter, r *http.Request) {
		require.Nil(t, GetSession(r))
		require.NotNil(t, GetClient(r))
		require.NoError(t, GetStore(r).SignIn(r.Context(), "jane@example.com", testPassword))
		assert.NotNil(t, GetSession(r))
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/whoami", func(w http.ResponseWriter, r *http.Request) {
		if sess := GetSession(r); sess != nil {
			_, _ = w.Write([]byte(sess.User.Email))
		}
	})
	h := f.sm.LoadAndSave(Auth(f.svc, f.sm, testutil.TestLogger())(mux))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/signin", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "jane@example.com", rec.Body.String())

	// A request without the cookie is anonymous.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Empty(t, rec.Body.String())
}

func TestRequireSession(t *testing.T) {
	f := newAuthFixture(t)
	h := RequireSession(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req := f.withSession(t, httptest.NewRequest(http.MethodGet, "/admin?tab=posts", nil), nil)
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth?next=%2Fadmin%3Ftab%3Dposts", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, f.withSession(t, httptest.NewRequest(http.MethodGet, "/admin", nil), f.signIn(t, "a@example.com")))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	f := newAuthFixture(t)
	checker := access.NewChecker(f.svc, access.WithLogger(testutil.TestLogger()))
	rec := &notify.Recorder{}
	h := RequireAdmin(checker, rec)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("no session", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, f.withSession(t, httptest.NewRequest(http.MethodGet, "/admin", nil), nil))
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Contains(t, w.Header().Get("Location"), "/auth")
		assert.Empty(t, rec.All())
	})

	t.Run("not admin", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, f.withSession(t, httptest.NewRequest(http.MethodGet, "/admin", nil), f.signIn(t, "user@example.com", backend.RoleUser)))
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
		assert.Equal(t, access.Denied, rec.Last())
	})

	t.Run("admin", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, f.withSession(t, httptest.NewRequest(http.MethodGet, "/admin", nil), f.signIn(t, "admin@example.com", backend.RoleAdmin)))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

// unavailableRoles fails every role check as unreachable.
type unavailableRoles struct{ calls int }

func (u *unavailableRoles) HasRole(context.Context, string, string) (bool, error) {
	u.calls++
	return false, backend.ErrUnavailable
}

func TestRequireAdmin_RoleCheckUnavailable(t *testing.T) {
	f := newAuthFixture(t)
	roles := &unavailableRoles{}
	checker := access.NewChecker(roles, access.WithRetries(1, time.Millisecond), access.WithLogger(testutil.TestLogger()))
	rec := &notify.Recorder{}
	served := false
	h := RequireAdmin(checker, rec)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		served = true
		_, _ = w.Write([]byte("admin dashboard"))
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, f.withSession(t, httptest.NewRequest(http.MethodGet, "/admin", nil), f.signIn(t, "admin@example.com", backend.RoleAdmin)))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.NotContains(t, w.Body.String(), "admin dashboard")
	assert.False(t, served)
	assert.Equal(t, access.Denied, rec.Last())
	assert.Equal(t, 2, roles.calls)
}

func TestGatedAction(t *testing.T) {
	f := newAuthFixture(t)
	rec := &notify.Recorder{}
	var observed []bool
	runs := 0
	h := GatedAction(rec, func(_ *http.Request, ran bool) { observed = append(observed, ran) })(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			runs++
			w.WriteHeader(http.StatusAccepted)
		}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, f.withSession(t, httptest.NewRequest(http.MethodPost, "/tools/pdf-to-word", nil), nil))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, LoginPath, w.Header().Get("Location"))
	assert.Equal(t, access.SignInRequired, rec.Last())
	assert.Zero(t, runs)

	// Outside Auth there is no store at all; the action is still gated.
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/tools/pdf-to-word", nil))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Zero(t, runs)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, f.withSession(t, httptest.NewRequest(http.MethodPost, "/tools/pdf-to-word", nil), f.signIn(t, "u@example.com")))
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, runs)
	assert.Equal(t, []bool{false, false, true}, observed)
	assert.Len(t, rec.All(), 2)
}

func decodeAPIError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var e APIError
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&e))
	return e
}

func TestBearerAuth(t *testing.T) {
	f := newAuthFixture(t)
	sess := f.signIn(t, "api@example.com")
	h := BearerAuth(f.svc, testutil.TestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s := GetSession(r); s != nil {
			_, _ = w.Write([]byte(s.User.ID))
			return
		}
		_, _ = w.Write([]byte("anonymous"))
	}))

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
		wantErr  string
	}{
		{"no header", "", http.StatusOK, "anonymous", ""},
		{"valid token", "Bearer " + sess.AccessToken, http.StatusOK, sess.User.ID, ""},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, "", "invalid_token"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "", "unauthorized"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, decodeAPIError(t, rec).Error.Code)
				return
			}
			assert.Equal(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestAPIRequireRole(t *testing.T) {
	f := newAuthFixture(t)
	checker := access.NewChecker(f.svc, access.WithLogger(testutil.TestLogger()))
	h := APIRequireRole(checker, backend.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, f.withSession(t, httptest.NewRequest(http.MethodGet, "/", nil), nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, f.withSession(t, httptest.NewRequest(http.MethodGet, "/", nil), f.signIn(t, "u@example.com")))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeAPIError(t, rec).Error.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, f.withSession(t, httptest.NewRequest(http.MethodGet, "/", nil), f.signIn(t, "a@example.com", backend.RoleAdmin)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:52100"
	assert.Equal(t, "203.0.113.9", ClientIP(req))

	req.RemoteAddr = "203.0.113.9"
	assert.Equal(t, "203.0.113.9", ClientIP(req))

	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", ClientIP(req))
}

func TestRequestPath(t *testing.T) {
	var got string
	h := RequestPath(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = GetRequestPath(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/blog/hello", nil))
	assert.Equal(t, "/blog/hello", got)
	assert.Empty(t, GetRequestPath(context.Background()))
}
