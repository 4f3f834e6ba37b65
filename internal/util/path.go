// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SanitizeFilename keeps only the base name of an uploaded file name.
func SanitizeFilename(filename string) (string, error) {
	safe := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	if safe == "." || safe == ".." || safe == "" || safe == "/" {
		return "", fmt.Errorf("invalid filename: %q", filename)
	}
	return safe, nil
}
