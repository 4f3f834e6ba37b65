// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "testing"

func TestEventIsProblem(t *testing.T) {
	tests := []struct {
		level string
		want  bool
	}{
		{EventLevelInfo, false},
		{EventLevelWarning, true},
		{EventLevelError, true},
		{"", false},
	}
	for _, tt := range tests {
		if got := (Event{Level: tt.level}).IsProblem(); got != tt.want {
			t.Errorf("Event{Level: %q}.IsProblem() = %v, want %v", tt.level, got, tt.want)
		}
	}
}
