// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"errors"
	"strings"
)

// ValidationError reports a user input problem caught before any backend call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// SignUpProfile holds the profile fields collected at sign-up.
type SignUpProfile struct {
	PhoneNumber string
	FirstName   string
	LastName    string
}

// Normalize trims every field and rejects blanks, checking phone first,
// then first name, then last name.
func (p SignUpProfile) Normalize() (SignUpProfile, error) {
	out := SignUpProfile{
		PhoneNumber: strings.TrimSpace(p.PhoneNumber),
		FirstName:   strings.TrimSpace(p.FirstName),
		LastName:    strings.TrimSpace(p.LastName),
	}
	switch {
	case out.PhoneNumber == "":
		return out, &ValidationError{Field: "phone_number", Message: "Phone number is required"}
	case out.FirstName == "":
		return out, &ValidationError{Field: "first_name", Message: "First name is required"}
	case out.LastName == "":
		return out, &ValidationError{Field: "last_name", Message: "Last name is required"}
	}
	return out, nil
}
