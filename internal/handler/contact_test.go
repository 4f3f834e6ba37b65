// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/automatepro/internal/backend"
	"github.com/olegiv/automatepro/internal/store"
)

func contactForm() url.Values {
	return url.Values{
		"name":    {"Jane Doe"},
		"email":   {"jane@example.com"},
		"phone":   {"+64 21 555 0100"},
		"company": {""},
		"message": {"We need help automating our invoices."},
	}
}

func TestContactHandler_Submit(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)

	rec := b.post("/contact", contactForm())
	page := b.follow(rec)
	assertToast(t, page.Body.String(), MessageSent)

	rows, err := store.New(app.db).ListContactMessages(context.Background(), store.ListContactMessagesParams{Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Jane Doe", rows[0].Name)
	assert.Equal(t, "", rows[0].Company, "an empty company stays empty")

	sent := app.outbox.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"owner@automatepro.test"}, sent[0].To)
	assert.Equal(t, "jane@example.com", sent[0].ReplyTo)
	assert.Contains(t, sent[0].Subject, "Jane Doe")
}

func TestContactHandler_SubmitValidation(t *testing.T) {
	app := newTestApp(t)

	form := contactForm()
	form.Set("phone", "  ")
	rec := app.browser(t).post("/contact", form)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Phone is required")
	assert.Contains(t, body, `value="Jane Doe"`, "the form keeps its values")
	assert.Empty(t, app.outbox.Sent())
}

func TestContactHandler_MailFailureDoesNotFailSubmission(t *testing.T) {
	app := newTestApp(t)
	app.outbox.Err = errors.New("smtp down")
	b := app.browser(t)

	rec := b.post("/contact", contactForm())
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assertToast(t, b.follow(rec).Body.String(), MessageSent)
}

func TestContactHandler_AdminSeesMessage(t *testing.T) {
	app := newTestApp(t)
	app.browser(t).post("/contact", contactForm())

	admin, _ := app.signedIn(t, "admin@example.com", backend.RoleAdmin)
	rec := admin.get("/admin")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "We need help automating our invoices.")
}
