// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package gst fills in the missing one of three related amounts: the price
// before GST, the GST amount and the price after GST.
package gst

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// DefaultRate is the GST rate shown on the calculator, in percent.
const DefaultRate = 18.0

var amountPattern = regexp.MustCompile(`^\d*\.?\d*$`)

// Field names one of the three amounts.
type Field string

const (
	FieldBefore Field = "before"
	FieldGST    Field = "gst"
	FieldAfter  Field = "after"
)

// ErrInvalidAmount is returned for input that is not a plain non-negative
// decimal number.
var ErrInvalidAmount = errors.New("amount must contain only digits and a decimal point")

// Input holds the amounts as typed. Empty strings are unknown.
type Input struct {
	Before string `json:"before"`
	GST    string `json:"gst"`
	After  string `json:"after"`
}

// Result holds all three amounts after solving. Computed is empty when
// fewer than two amounts were given.
type Result struct {
	Before   string `json:"before"`
	GST      string `json:"gst"`
	After    string `json:"after"`
	Computed Field  `json:"computed,omitempty"`
}

// FieldError reports which amount failed to parse.
type FieldError struct {
	Field Field
	Value string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %q: %v", e.Field, e.Value, ErrInvalidAmount)
}

func (e *FieldError) Unwrap() error { return ErrInvalidAmount }

// parse returns the amount and whether it is present. "" and "." are
// accepted by the pattern but are not numbers.
func parse(f Field, s string) (float64, bool, error) {
	if !amountPattern.MatchString(s) {
		return 0, false, &FieldError{Field: f, Value: s}
	}
	if s == "" || s == "." {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, &FieldError{Field: f, Value: s}
	}
	return v, true, nil
}

// Solve computes the missing amount from the first complete pair, in this
// order: before and gst give after, before and after give gst, gst and
// after give before. Computed values have two decimals; given values are
// returned as typed.
func Solve(in Input) (Result, error) {
	before, hasBefore, err := parse(FieldBefore, in.Before)
	if err != nil {
		return Result{}, err
	}
	tax, hasGST, err := parse(FieldGST, in.GST)
	if err != nil {
		return Result{}, err
	}
	after, hasAfter, err := parse(FieldAfter, in.After)
	if err != nil {
		return Result{}, err
	}

	res := Result{Before: in.Before, GST: in.GST, After: in.After}
	switch {
	case hasBefore && hasGST:
		res.After = format(before + tax)
		res.Computed = FieldAfter
	case hasBefore && hasAfter:
		res.GST = format(after - before)
		res.Computed = FieldGST
	case hasGST && hasAfter:
		res.Before = format(after - tax)
		res.Computed = FieldBefore
	}
	return res, nil
}

// FromRate computes the GST and the total for a price before GST at
// ratePercent.
func FromRate(before string, ratePercent float64) (Result, error) {
	v, ok, err := parse(FieldBefore, before)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Before: before}, nil
	}
	tax := v * ratePercent / 100
	return Result{
		Before:   before,
		GST:      format(tax),
		After:    format(v + tax),
		Computed: FieldAfter,
	}, nil
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
