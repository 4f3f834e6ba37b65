// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"strings"
	"testing"
)

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("changeme")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=19456,t=2,p=1$") {
		t.Fatalf("unexpected hash format: %s", hash)
	}

	valid, err := CheckPassword("changeme", hash)
	if err != nil {
		t.Fatalf("CheckPassword error: %v", err)
	}
	if !valid {
		t.Fatal("correct password was rejected")
	}

	valid, err = CheckPassword("wrongpassword", hash)
	if err != nil {
		t.Fatalf("CheckPassword error: %v", err)
	}
	if valid {
		t.Fatal("wrong password was accepted")
	}
}

func TestCheckPassword_Malformed(t *testing.T) {
	for _, h := range []string{"", "plain", "$bcrypt$x$y$z$w", "$argon2id$v=19$m=x$a$b"} {
		if _, err := CheckPassword("x", h); err == nil {
			t.Errorf("CheckPassword(%q) should fail", h)
		}
	}
}

func TestNeedsRehash(t *testing.T) {
	hash, err := HashPassword("changeme")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if NeedsRehash(hash) {
		t.Error("fresh hash should not need rehash")
	}
	legacy := "$argon2id$v=19$m=65536,t=1,p=4$mucMvOaS6lZ2LWNS1OEFKw$UYEWv8cvCOO6l2zGeqv3JPVe1nyy0x9GXBfYEuDM544"
	if !NeedsRehash(legacy) {
		t.Error("hash with old parameters should need rehash")
	}
	if !NeedsRehash("garbage") {
		t.Error("garbage should need rehash")
	}
}

func TestTokens(t *testing.T) {
	a, err := NewToken()
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	b, _ := NewToken()
	if a == b {
		t.Fatal("tokens should be unique")
	}
	if HashToken(a) == a || len(HashToken(a)) != 64 {
		t.Errorf("HashToken(%q) = %q", a, HashToken(a))
	}
	if HashToken(a) != HashToken(a) {
		t.Error("HashToken should be deterministic")
	}
}

func TestSignUpProfileNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      SignUpProfile
		field   string
		message string
	}{
		{"blank phone", SignUpProfile{PhoneNumber: "   ", FirstName: "Jane", LastName: "Doe"}, "phone_number", "Phone number is required"},
		{"blank first", SignUpProfile{PhoneNumber: "555", FirstName: "", LastName: "Doe"}, "first_name", "First name is required"},
		{"blank last", SignUpProfile{PhoneNumber: "555", FirstName: "Jane", LastName: "\t"}, "last_name", "Last name is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.in.Normalize()
			ve, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
			if ve.Field != tt.field || ve.Message != tt.message {
				t.Errorf("got %s/%q, want %s/%q", ve.Field, ve.Message, tt.field, tt.message)
			}
			if !IsValidation(err) {
				t.Error("IsValidation should be true")
			}
		})
	}

	out, err := SignUpProfile{PhoneNumber: " 555-0100 ", FirstName: " Jane", LastName: "Doe "}.Normalize()
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if out.PhoneNumber != "555-0100" || out.FirstName != "Jane" || out.LastName != "Doe" {
		t.Errorf("fields not trimmed: %+v", out)
	}
}
