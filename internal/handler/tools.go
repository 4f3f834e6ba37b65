// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/automatepro/internal/gst"
	"github.com/olegiv/automatepro/internal/model"
	"github.com/olegiv/automatepro/internal/notify"
	"github.com/olegiv/automatepro/internal/render"
	"github.com/olegiv/automatepro/internal/tools"
	"github.com/olegiv/automatepro/internal/util"
)

// Multipart form field holding the uploaded files.
const filesField = "files"

// multipartMemory is kept in memory before parts spill to temp files.
const multipartMemory = 8 << 20

// ToolsHandler serves the tools index, the file tool pages and the GST
// calculator.
type ToolsHandler struct {
	renderer *render.Renderer
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewToolsHandler creates a new ToolsHandler.
func NewToolsHandler(renderer *render.Renderer, notifier notify.Notifier, logger *slog.Logger) *ToolsHandler {
	return &ToolsHandler{renderer: renderer, notifier: notifier, logger: logger}
}

// Index handles GET /tools.
func (h *ToolsHandler) Index(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, http.StatusOK, "tools/index", render.TemplateData{
		Title:       "Tools",
		Description: "Free PDF, image and tax tools for small businesses.",
		Data:        tools.All(),
	})
}

// Show handles GET /tools/{slug}.
func (h *ToolsHandler) Show(w http.ResponseWriter, r *http.Request) {
	tool, ok := tools.Lookup(chi.URLParam(r, "slug"))
	if !ok {
		h.notFound(w, r)
		return
	}
	h.renderTool(w, r, http.StatusOK, tool)
}

func (h *ToolsHandler) renderTool(w http.ResponseWriter, r *http.Request, status int, tool tools.Tool) {
	renderPage(w, r, h.renderer, status, "tools/tool", render.TemplateData{
		Title:       tool.Title,
		Description: tool.Description,
		Data:        tool,
	})
}

// Submit handles POST /tools/{slug}. The route is a gated action, so a
// session is present here. Files are checked and discarded.
func (h *ToolsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	tool, ok := tools.Lookup(chi.URLParam(r, "slug"))
	if !ok {
		h.notFound(w, r)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, tool.MaxUpload())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.notifier.Notify(r.Context(), notify.Error("File too large",
				"The upload is larger than this tool accepts."))
			h.renderTool(w, r, http.StatusRequestEntityTooLarge, tool)
			return
		}
		h.notifier.Notify(r.Context(), notify.Error("Upload failed", "The files could not be read. Please try again."))
		h.renderTool(w, r, http.StatusBadRequest, tool)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	err := tools.Submit(tool, r.MultipartForm.File[filesField])
	var uerr *tools.UploadError
	switch {
	case errors.As(err, &uerr):
		h.notifier.Notify(r.Context(), uerr.Notification())
		h.renderTool(w, r, http.StatusUnprocessableEntity, tool)
	case errors.Is(err, tools.ErrNotAvailable):
		h.logger.Info("tool submission checked", "tool", tool.Slug,
			"files", uploadNames(r.MultipartForm.File[filesField]), "category", model.EventCategorySystem)
		h.notifier.Notify(r.Context(), tools.NotAvailable)
		h.renderTool(w, r, http.StatusNotImplemented, tool)
	default:
		h.logger.Error("tool submission failed", "error", err, "tool", tool.Slug)
		h.notifier.Notify(r.Context(), notify.Error("Upload failed", "The files could not be read. Please try again."))
		h.renderTool(w, r, http.StatusInternalServerError, tool)
	}
}

// uploadNames returns the base names of files for logging.
func uploadNames(files []*multipart.FileHeader) []string {
	names := make([]string, 0, len(files))
	for _, f := range files {
		if name, err := util.SanitizeFilename(f.Filename); err == nil {
			names = append(names, name)
		}
	}
	return names
}

// GSTData fills the GST calculator.
type GSTData struct {
	Input  gst.Input
	Result *gst.Result
	Rate   float64
}

// GST handles GET /tools/gst-calculator.
func (h *ToolsHandler) GST(w http.ResponseWriter, r *http.Request) {
	h.renderGST(w, r, http.StatusOK, GSTData{Rate: gst.DefaultRate}, nil)
}

// Calculate handles POST /tools/gst-calculator. A lone price before GST is
// taxed at the default rate.
func (h *ToolsHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.notifier, RouteGST) {
		return
	}
	data := GSTData{
		Input: gst.Input{
			Before: r.FormValue("before"),
			GST:    r.FormValue("gst"),
			After:  r.FormValue("after"),
		},
		Rate: gst.DefaultRate,
	}

	res, err := CalculateGST(data.Input)
	if err != nil {
		var ferr *gst.FieldError
		if errors.As(err, &ferr) {
			h.renderGST(w, r, http.StatusUnprocessableEntity, data,
				map[string]string{string(ferr.Field): "Please enter a number"})
			return
		}
		logAndInternalError(w, "gst calculation failed", "error", err)
		return
	}
	if res.Computed != "" {
		data.Result = &res
	}
	h.renderGST(w, r, http.StatusOK, data, nil)
}

// CalculateGST solves in, falling back to the default rate when only the
// price before GST is known.
func CalculateGST(in gst.Input) (gst.Result, error) {
	res, err := gst.Solve(in)
	if err != nil || res.Computed != "" || in.Before == "" {
		return res, err
	}
	return gst.FromRate(in.Before, gst.DefaultRate)
}

func (h *ToolsHandler) renderGST(w http.ResponseWriter, r *http.Request, status int, data GSTData, errs map[string]string) {
	renderPage(w, r, h.renderer, status, "tools/gst", render.TemplateData{
		Title:       "GST Calculator",
		Description: "Work out GST from any two of price, tax and total.",
		Data:        data,
		Errors:      errs,
	})
}

func (h *ToolsHandler) notFound(w http.ResponseWriter, r *http.Request) {
	renderError(w, r, h.renderer, http.StatusNotFound, "Tool Not Found", "There is no tool at this address.")
}
