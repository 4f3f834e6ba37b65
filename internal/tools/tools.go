// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package tools lists the file tools offered on the site and checks the
// files submitted to them. File contents are never converted.
package tools

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"slices"
	"strings"

	"github.com/olegiv/automatepro/internal/notify"
)

// Accepted MIME types.
const (
	MimePDF  = "application/pdf"
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeGIF  = "image/gif"
	MimeWebP = "image/webp"
)

var imageTypes = []string{MimeJPEG, MimePNG, MimeGIF, MimeWebP}

const mb = 1 << 20

// Tool describes one file tool.
type Tool struct {
	Slug        string
	Title       string
	Description string
	Category    string
	Accept      []string
	MinFiles    int
	MaxFiles    int
	MaxFileSize int64
	// Action is the label of the button that runs the tool.
	Action string
	// Kind is used in the wrong-type message, e.g. "a PDF file".
	Kind string
}

// AcceptAttr returns the value for an <input type="file" accept> attribute.
func (t Tool) AcceptAttr() string {
	return strings.Join(t.Accept, ",")
}

// Multiple reports whether the tool takes more than one file.
func (t Tool) Multiple() bool {
	return t.MaxFiles > 1
}

// MaxFileSizeMB is MaxFileSize in whole megabytes.
func (t Tool) MaxFileSizeMB() int64 {
	return t.MaxFileSize / mb
}

// MaxUpload is the largest request body the tool can receive.
func (t Tool) MaxUpload() int64 {
	return int64(t.MaxFiles)*t.MaxFileSize + mb
}

var registry = []Tool{
	{
		Slug: "pdf-merge", Title: "PDF Merge", Category: "PDF Tools",
		Description: "Combine multiple PDF files into a single document",
		Accept:      []string{MimePDF}, MinFiles: 2, MaxFiles: 20, MaxFileSize: 25 * mb,
		Action: "Merge PDFs", Kind: "PDF files",
	},
	{
		Slug: "pdf-to-jpg", Title: "PDF to JPG", Category: "PDF Tools",
		Description: "Convert PDF pages to JPG images",
		Accept:      []string{MimePDF}, MinFiles: 1, MaxFiles: 1, MaxFileSize: 25 * mb,
		Action: "Convert to JPG", Kind: "a PDF file",
	},
	{
		Slug: "pdf-to-word", Title: "PDF to Word", Category: "PDF Tools",
		Description: "Convert PDF files to editable Word documents",
		Accept:      []string{MimePDF}, MinFiles: 1, MaxFiles: 1, MaxFileSize: 25 * mb,
		Action: "Convert to Word", Kind: "a PDF file",
	},
	{
		Slug: "jpg-to-pdf", Title: "JPG to PDF", Category: "PDF Tools",
		Description: "Convert JPG images to PDF format",
		Accept:      imageTypes, MinFiles: 1, MaxFiles: 20, MaxFileSize: 10 * mb,
		Action: "Convert to PDF", Kind: "only image files",
	},
	{
		Slug: "compress-image", Title: "Compress Image", Category: "Image Tools",
		Description: "Reduce image file size without losing quality",
		Accept:      imageTypes, MinFiles: 1, MaxFiles: 1, MaxFileSize: 10 * mb,
		Action: "Compress Image", Kind: "an image file",
	},
	{
		Slug: "background-remove", Title: "Background Remove", Category: "Image Tools",
		Description: "Remove image backgrounds with AI precision",
		Accept:      imageTypes, MinFiles: 1, MaxFiles: 1, MaxFileSize: 10 * mb,
		Action: "Remove Background", Kind: "an image file",
	},
}

// All returns every tool in display order.
func All() []Tool {
	return slices.Clone(registry)
}

// Lookup returns the tool with slug.
func Lookup(slug string) (Tool, bool) {
	for _, t := range registry {
		if t.Slug == slug {
			return t, true
		}
	}
	return Tool{}, false
}

// ErrNotAvailable is returned once a submission has been checked: no tool
// processes files yet.
var ErrNotAvailable = errors.New("processing is not available yet")

// NotAvailable is shown after a valid submission.
var NotAvailable = notify.Info("Coming soon", "This tool is not available yet. Your files were not stored.")

// UploadError is a problem with the submitted files. Title and Message are
// shown to the user.
type UploadError struct {
	Title   string
	Message string
}

func (e *UploadError) Error() string {
	return e.Title + ": " + e.Message
}

// Notification returns e as a destructive notification.
func (e *UploadError) Notification() notify.Notification {
	return notify.Error(e.Title, e.Message)
}

// Validate checks the number, size and sniffed type of files.
func Validate(t Tool, files []*multipart.FileHeader) error {
	switch {
	case len(files) == 0:
		return &UploadError{Title: "No file selected", Message: "Please choose " + t.Kind + " to continue"}
	case len(files) < t.MinFiles:
		return &UploadError{Title: "Not enough files", Message: fmt.Sprintf("Please select at least %d files", t.MinFiles)}
	case len(files) > t.MaxFiles:
		return &UploadError{Title: "Too many files", Message: fmt.Sprintf("Please select at most %d files", t.MaxFiles)}
	}

	for _, fh := range files {
		if fh.Size > t.MaxFileSize {
			return &UploadError{
				Title:   "File too large",
				Message: fmt.Sprintf("%s is larger than %d MB", fh.Filename, t.MaxFileSize/mb),
			}
		}
		ct, err := sniff(fh)
		if err != nil {
			return fmt.Errorf("reading %s: %w", fh.Filename, err)
		}
		if !slices.Contains(t.Accept, ct) {
			return &UploadError{Title: "Invalid file type", Message: "Please upload " + t.Kind}
		}
	}
	return nil
}

// sniff detects the content type from the file's leading bytes, ignoring
// the client-supplied header.
func sniff(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	ct := http.DetectContentType(buf[:n])
	if i := strings.Index(ct, ";"); i != -1 {
		ct = ct[:i]
	}
	return ct, nil
}

// Submit validates files for t. A valid submission still returns
// ErrNotAvailable.
func Submit(t Tool, files []*multipart.FileHeader) error {
	if err := Validate(t, files); err != nil {
		return err
	}
	return ErrNotAvailable
}
