// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package rules holds the automation rule model, its request payloads and
// the form helpers that suggest connectors and gate saving.
package rules

import (
	"time"

	"github.com/aira-org/aira-client-os/internal/schedule"
	"github.com/aira-org/aira-client-os/internal/validate"
)

// Status of a rule.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

var statuses = []string{string(StatusActive), string(StatusInactive)}

// Rule is an automation rule as returned by the backend.
type Rule struct {
	ID      string   `json:"rule_id"`
	WIDs    []string `json:"w_id"`
	RawText string   `json:"raw_text"`
	Status  Status   `json:"status"`
	schedule.Fields
	IsDefault bool `json:"is_default"`
}

// Validate checks the fields the backend guarantees.
func (r Rule) Validate() error {
	v := validate.New()
	v.NotEmpty("rule_id", r.ID)
	v.OneOf("status", string(r.Status), statuses)
	if r.WIDs == nil {
		v.AddError("w_id", "value is required", nil)
	}
	validateFields(v, r.Fields)
	return v.Err()
}

// Schedule returns the rule's schedule in form terms.
func (r Rule) Schedule(loc *time.Location) schedule.Spec {
	return schedule.FromFields(r.Fields, loc)
}

// CreateRequest is the body of a rule creation.
type CreateRequest struct {
	WIDs    []string `json:"w_id"`
	RawText string   `json:"raw_text"`
	schedule.Fields
	Status       Status `json:"status,omitempty"`
	SuggestionID string `json:"suggestion_id,omitempty"`
}

// Validate checks a creation payload before it is sent.
func (c CreateRequest) Validate() error {
	v := validate.New()
	validateCreate(v, c)
	return v.Err()
}

// UpdateRequest is the body of a rule update.
type UpdateRequest struct {
	RuleID string `json:"rule_id"`
	CreateRequest
}

// Validate checks an update payload before it is sent.
func (u UpdateRequest) Validate() error {
	v := validate.New()
	v.NotEmpty("rule_id", u.RuleID)
	validateCreate(v, u.CreateRequest)
	return v.Err()
}

// DeleteRequest is the body of a rule deletion.
type DeleteRequest struct {
	RuleID string `json:"rule_id"`
}

// MutationResponse is returned by create, update and delete.
type MutationResponse struct {
	Success string `json:"success"`
	RuleID  string `json:"rule_id"`
}

func validateCreate(v *validate.Validator, c CreateRequest) {
	v.NotEmpty("raw_text", c.RawText)
	if c.WIDs == nil {
		v.AddError("w_id", "value is required", nil)
	}
	if c.Status != "" {
		v.OneOf("status", string(c.Status), statuses)
	}
	validateFields(v, c.Fields)
}

func validateFields(v *validate.Validator, f schedule.Fields) {
	if f.Interval != nil {
		v.NonNegative("interval", *f.Interval)
	}
	if f.IntervalMinutes != nil {
		v.NonNegative("interval_minutes", *f.IntervalMinutes)
	}
	if f.RunCount != nil {
		v.Range("run_count", *f.RunCount, schedule.MinRunCount, schedule.MaxRunCount)
	}
}
