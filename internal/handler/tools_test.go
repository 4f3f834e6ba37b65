// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/automatepro/internal/access"
	"github.com/olegiv/automatepro/internal/gst"
	"github.com/olegiv/automatepro/internal/notify"
	"github.com/olegiv/automatepro/internal/tools"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")

func TestToolsHandler_Index(t *testing.T) {
	app := newTestApp(t)

	rec := app.browser(t).get("/tools")
	assert.Equal(t, http.StatusOK, rec.Code)
	for _, tool := range tools.All() {
		assert.Contains(t, rec.Body.String(), `href="/tools/`+tool.Slug+`"`)
	}
	assert.Contains(t, rec.Body.String(), `href="/tools/gst-calculator"`)
}

func TestToolsHandler_Show(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)

	rec := b.get("/tools/pdf-merge")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "PDF Merge")
	assert.Contains(t, rec.Body.String(), " multiple")

	rec = b.get("/tools/no-such-tool")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Tool Not Found")
}

func TestToolsHandler_SubmitRequiresSession(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)

	rec := b.upload("/tools/pdf-to-word", map[string][]byte{"doc.pdf": samplePDF})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth", rec.Header().Get("Location"))
	page := b.follow(rec).Body.String()
	assertToast(t, page, access.SignInRequired)
	assert.NotContains(t, page, "toast-destructive")
}

func TestToolsHandler_SubmitValidation(t *testing.T) {
	app := newTestApp(t)
	b, _ := app.signedIn(t, "jane@example.com")

	tests := []struct {
		name  string
		slug  string
		files map[string][]byte
		want  notify.Notification
	}{
		{
			name:  "no file",
			slug:  "pdf-to-word",
			files: nil,
			want:  notify.Error("No file selected", "Please choose a PDF file to continue"),
		},
		{
			name:  "wrong type",
			slug:  "pdf-to-word",
			files: map[string][]byte{"notes.pdf": []byte("just some text")},
			want:  notify.Error("Invalid file type", "Please upload a PDF file"),
		},
		{
			name:  "too few files to merge",
			slug:  "pdf-merge",
			files: map[string][]byte{"a.pdf": samplePDF},
			want:  notify.Error("Not enough files", "Please select at least 2 files"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := b.upload("/tools/"+tt.slug, tt.files)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assertToast(t, rec.Body.String(), tt.want)
		})
	}
}

func TestToolsHandler_SubmitValidFilesIsNotAvailable(t *testing.T) {
	app := newTestApp(t)
	b, _ := app.signedIn(t, "jane@example.com")

	rec := b.upload("/tools/pdf-merge", map[string][]byte{"a.pdf": samplePDF, "b.pdf": samplePDF})
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assertToast(t, rec.Body.String(), tools.NotAvailable)
}

func TestToolsHandler_SubmitTooLarge(t *testing.T) {
	app := newTestApp(t)
	b, _ := app.signedIn(t, "jane@example.com")
	tool, ok := tools.Lookup("pdf-to-word")
	require.True(t, ok)

	big := append(bytes.Clone(samplePDF), make([]byte, tool.MaxUpload())...)
	rec := b.upload("/tools/pdf-to-word", map[string][]byte{"big.pdf": big})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "File too large")
}

func TestToolsHandler_GST(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)

	rec := b.get("/tools/gst-calculator")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "The standard rate is 18%")

	tests := []struct {
		name string
		form url.Values
		want []string
	}{
		{"before and gst", url.Values{"before": {"100"}, "gst": {"18"}}, []string{"<dd>118.00</dd>"}},
		{"before and after", url.Values{"before": {"100"}, "after": {"115"}}, []string{"<dd>15.00</dd>"}},
		{"gst and after", url.Values{"gst": {"18"}, "after": {"118"}}, []string{"<dd>100.00</dd>"}},
		{"before only uses the rate", url.Values{"before": {"200"}}, []string{"<dd>36.00</dd>", "<dd>236.00</dd>"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := b.post("/tools/gst-calculator", tt.form)
			assert.Equal(t, http.StatusOK, rec.Code)
			for _, want := range tt.want {
				assert.Contains(t, rec.Body.String(), want)
			}
		})
	}
}

func TestToolsHandler_GSTRejectsBadAmount(t *testing.T) {
	app := newTestApp(t)

	rec := app.browser(t).post("/tools/gst-calculator", url.Values{"before": {"1,000"}, "gst": {"10"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please enter a number")
	assert.NotContains(t, rec.Body.String(), `class="card result"`)
}

func TestCalculateGST(t *testing.T) {
	res, err := CalculateGST(gst.Input{Before: "50"})
	require.NoError(t, err)
	assert.Equal(t, "9.00", res.GST)
	assert.Equal(t, "59.00", res.After)

	res, err = CalculateGST(gst.Input{})
	require.NoError(t, err)
	assert.Empty(t, res.Computed)
}
