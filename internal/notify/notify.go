// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package notify defines the short user-facing notifications ("toasts")
// raised by the session store, the access checks and the editors.
package notify

import (
	"context"
	"sync"
)

// Variant selects how a notification is presented.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notification is a title with an optional description.
type Notification struct {
	Title       string
	Description string
	Variant     Variant
}

// Notifier shows notifications to the current user.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Info builds a default notification.
func Info(title, description string) Notification {
	return Notification{Title: title, Description: description, Variant: VariantDefault}
}

// Error builds a destructive notification.
func Error(title, description string) Notification {
	return Notification{Title: title, Description: description, Variant: VariantDestructive}
}

// Discard drops every notification.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(context.Context, Notification) {}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns the recorded notifications in order.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Last returns the most recent notification, or the zero value.
func (r *Recorder) Last() Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}
	}
	return r.items[len(r.items)-1]
}
