// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package editor drives the blog post editor: loading a post for an admin,
// validating the draft and saving it.
package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/olegiv/automatepro/internal/access"
	"github.com/olegiv/automatepro/internal/backend"
	"github.com/olegiv/automatepro/internal/notify"
)

// State is where the editor is in its lifecycle.
type State int

const (
	Loading State = iota
	NotAuthorized
	ReadyNew
	ReadyEdit
	Saving
	Saved
	SaveFailed
)

var stateNames = [...]string{"loading", "not-authorized", "ready-new", "ready-edit", "saving", "saved", "save-failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Ready reports whether the form can be shown and edited.
func (s State) Ready() bool {
	return s == ReadyNew || s == ReadyEdit
}

// Redirect targets.
const (
	SignInPath = "/auth"
	AdminPath  = "/admin"
)

// Notifications raised by the editor.
var (
	CouldNotLoad  = notify.Error("Error", "Could not load the blog post.")
	MissingFields = notify.Error("Validation Error", "Please fill in all required fields.")
	CouldNotSave  = notify.Error("Error", "Could not save the blog post.")
	PostCreated   = notify.Info("Success", "Post created successfully")
	PostUpdated   = notify.Info("Success", "Post updated successfully")
)

var (
	// ErrMissingFields is returned by Save when title, excerpt or content
	// is blank.
	ErrMissingFields  = errors.New("title, excerpt and content are required")
	ErrNotReady       = errors.New("editor is not ready")
	ErrSaveInProgress = errors.New("a save is already in progress")
)

// Posts is the blog_posts table as seen by the signed-in user.
type Posts interface {
	Get(ctx context.Context, id string) (backend.Post, error)
	Insert(ctx context.Context, authorID string, in backend.PostInput) (backend.Post, error)
	Update(ctx context.Context, id string, in backend.PostInput) (backend.Post, error)
}

// RoleCheck answers whether a user holds a role.
type RoleCheck interface {
	Check(ctx context.Context, userID, role string) access.Decision
}

// Deps are the editor's collaborators.
type Deps struct {
	Sessions access.SessionSource
	Roles    RoleCheck
	Posts    Posts
	Notifier notify.Notifier
	// Navigate is called with the path to leave the editor for.
	Navigate func(path string)
}

// Editor is one open editor. Safe for concurrent use; only one save runs at
// a time.
type Editor struct {
	deps Deps

	mu     sync.Mutex
	state  State
	postID string
	draft  backend.PostInput
	saved  backend.Post
}

// New returns an editor in the Loading state.
func New(deps Deps) *Editor {
	if deps.Notifier == nil {
		deps.Notifier = notify.Discard
	}
	if deps.Navigate == nil {
		deps.Navigate = func(string) {}
	}
	return &Editor{deps: deps, state: Loading}
}

// Load resolves the session, checks the admin role and, for a non-empty
// postID, fetches the post into the draft.
func (e *Editor) Load(ctx context.Context, postID string) State {
	var sess *backend.Session
	if e.deps.Sessions != nil {
		sess = e.deps.Sessions.Session()
	}
	if sess == nil {
		return e.leave(NotAuthorized, SignInPath)
	}

	if d := e.deps.Roles.Check(ctx, sess.User.ID, backend.RoleAdmin); !d.Allowed {
		e.deps.Notifier.Notify(ctx, access.Denied)
		return e.leave(NotAuthorized, AdminPath)
	}

	if postID == "" {
		e.mu.Lock()
		e.state = ReadyNew
		e.mu.Unlock()
		return ReadyNew
	}

	post, err := e.deps.Posts.Get(ctx, postID)
	if err != nil {
		e.deps.Notifier.Notify(ctx, CouldNotLoad)
		return e.leave(NotAuthorized, AdminPath)
	}

	e.mu.Lock()
	e.postID = post.ID
	e.draft = backend.PostInput{
		Title:    post.Title,
		Excerpt:  post.Excerpt,
		Content:  post.Content,
		ImageURL: post.ImageURL,
		Status:   post.Status,
	}
	e.state = ReadyEdit
	e.mu.Unlock()
	return ReadyEdit
}

func (e *Editor) leave(s State, path string) State {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
	e.deps.Navigate(path)
	return s
}

// State returns the current state.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Draft returns the form values.
func (e *Editor) Draft() backend.PostInput {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

// PostID returns the id of the post being edited, or "" for a new post.
func (e *Editor) PostID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.postID
}

// Saved returns the record written by the last successful save.
func (e *Editor) Saved() backend.Post {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saved
}

// Save validates draft and writes it. The draft is kept on failure so the
// form can be shown again with the same values.
func (e *Editor) Save(ctx context.Context, draft backend.PostInput) (State, error) {
	e.mu.Lock()
	switch {
	case e.state == Saving:
		e.mu.Unlock()
		return Saving, ErrSaveInProgress
	case !e.state.Ready():
		s := e.state
		e.mu.Unlock()
		return s, ErrNotReady
	}
	ready := e.state
	e.draft = draft
	if blank(draft.Title) || blank(draft.Excerpt) || blank(draft.Content) {
		e.mu.Unlock()
		e.deps.Notifier.Notify(ctx, MissingFields)
		return ready, ErrMissingFields
	}
	e.state = Saving
	postID := e.postID
	e.mu.Unlock()

	var (
		post backend.Post
		err  error
	)
	if ready == ReadyNew {
		authorID := ""
		if sess := e.deps.Sessions.Session(); sess != nil {
			authorID = sess.User.ID
		}
		post, err = e.deps.Posts.Insert(ctx, authorID, draft)
	} else {
		post, err = e.deps.Posts.Update(ctx, postID, draft)
	}

	e.mu.Lock()
	if err != nil {
		e.state = ready
		e.mu.Unlock()
		e.deps.Notifier.Notify(ctx, CouldNotSave)
		return SaveFailed, fmt.Errorf("saving post: %w", err)
	}
	e.state = Saved
	e.saved = post
	e.postID = post.ID
	e.mu.Unlock()

	if ready == ReadyNew {
		e.deps.Notifier.Notify(ctx, PostCreated)
	} else {
		e.deps.Notifier.Notify(ctx, PostUpdated)
	}
	e.deps.Navigate(AdminPath)
	return Saved, nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
