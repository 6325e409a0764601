// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rules

import (
	"slices"
	"strings"
	"time"

	"github.com/aira-org/aira-client-os/internal/schedule"
)

// Connector is a service the user may have connected.
type Connector struct {
	ID        string
	Name      string
	Connected bool
}

// DefaultConnectors lists the known services; Connected is filled from
// the backend's available services.
func DefaultConnectors(available []string) []Connector {
	return []Connector{
		{ID: ConnectorDrive, Name: "Google Drive", Connected: slices.Contains(available, ConnectorDrive)},
		{ID: ConnectorCalendar, Name: "Google Calendar", Connected: slices.Contains(available, ConnectorCalendar)},
		{ID: ConnectorEmail, Name: "Email", Connected: slices.Contains(available, ConnectorEmail)},
		{ID: ConnectorWhatsApp, Name: "WhatsApp", Connected: slices.Contains(available, ConnectorWhatsApp)},
	}
}

// Chat is a WhatsApp group or chat as listed by the backend.
type Chat struct {
	WID              string `json:"w_id"`
	ChatName         string `json:"chat_name"`
	NumActiveRules   int    `json:"num_active_rules"`
	NumInactiveRules int    `json:"num_inactive_rules"`
}

// Group is a pickable target in the rule form.
type Group struct {
	ID         string
	Name       string
	RulesCount int
}

// MergeGroups dedupes groups and chats by w_id. Groups win over chats and
// the first occurrence keeps its position.
func MergeGroups(groups, chats []Chat) []Group {
	seen := make(map[string]int, len(groups)+len(chats))
	var out []Group
	add := func(c Chat, override bool) {
		g := Group{ID: c.WID, Name: c.ChatName, RulesCount: c.NumActiveRules + c.NumInactiveRules}
		if i, ok := seen[c.WID]; ok {
			if override {
				out[i] = g
			}
			return
		}
		seen[c.WID] = len(out)
		out = append(out, g)
	}
	for _, c := range groups {
		add(c, true)
	}
	for _, c := range chats {
		add(c, false)
	}
	return out
}

// FilterGroups keeps groups whose name or ID contains the trimmed query,
// case-insensitively. An empty query returns groups unchanged. Selected
// groups are listed first, otherwise order is preserved.
func FilterGroups(groups []Group, query string, selected []string) []Group {
	q := strings.ToLower(strings.TrimSpace(query))
	var picked, rest []Group
	for _, g := range groups {
		if q != "" && !strings.Contains(strings.ToLower(g.Name), q) && !strings.Contains(strings.ToLower(g.ID), q) {
			continue
		}
		if slices.Contains(selected, g.ID) {
			picked = append(picked, g)
		} else {
			rest = append(rest, g)
		}
	}
	return append(picked, rest...)
}

// Form is the rule editor state.
type Form struct {
	RawText        string
	SelectedGroups []string
	Schedule       schedule.Spec
	SuggestionID   string
}

// NewForm returns an empty form with the default schedule.
func NewForm() Form {
	return Form{Schedule: schedule.DefaultSpec()}
}

// FormFromRule loads an existing rule into the editor.
func FormFromRule(r Rule, loc *time.Location) Form {
	return Form{
		RawText:        r.RawText,
		SelectedGroups: slices.Clone(r.WIDs),
		Schedule:       r.Schedule(loc),
	}
}

// SuggestedConnectors derives suggestions from the rule text.
func (f Form) SuggestedConnectors() []string {
	return SuggestConnectors(f.RawText)
}

// SelectedConnectors are the suggested connectors the user has connected.
func (f Form) SelectedConnectors(connectors []Connector) []string {
	var out []string
	for _, id := range f.SuggestedConnectors() {
		if slices.ContainsFunc(connectors, func(c Connector) bool { return c.ID == id && c.Connected }) {
			out = append(out, id)
		}
	}
	return out
}

// ShowGroupSelector reports whether the form must ask for groups.
func (f Form) ShowGroupSelector(connectors []Connector) bool {
	return slices.Contains(f.SelectedConnectors(connectors), ConnectorWhatsApp)
}

// CanSave gates the save action: text is required, groups are required
// when WhatsApp is suggested and connected, and an enabled schedule needs
// a recurrence.
func (f Form) CanSave(connectors []Connector) bool {
	if strings.TrimSpace(f.RawText) == "" {
		return false
	}
	if f.ShowGroupSelector(connectors) && len(f.SelectedGroups) == 0 {
		return false
	}
	if f.Schedule.Enabled && f.Schedule.Interval == schedule.None {
		return false
	}
	return true
}

// CreateRequest builds the creation payload. The schedule is rendered in
// UTC using the date of now in loc.
func (f Form) CreateRequest(now time.Time, loc *time.Location) (CreateRequest, error) {
	fields, err := f.Schedule.ToFields(now, loc)
	if err != nil {
		return CreateRequest{}, err
	}
	req := CreateRequest{
		WIDs:         slices.Clone(f.SelectedGroups),
		RawText:      strings.TrimSpace(f.RawText),
		Fields:       fields,
		Status:       StatusActive,
		SuggestionID: f.SuggestionID,
	}
	if req.WIDs == nil {
		req.WIDs = []string{}
	}
	return req, req.Validate()
}

// UpdateRequest builds the update payload for ruleID.
func (f Form) UpdateRequest(ruleID string, now time.Time, loc *time.Location) (UpdateRequest, error) {
	c, err := f.CreateRequest(now, loc)
	if err != nil {
		return UpdateRequest{}, err
	}
	u := UpdateRequest{RuleID: ruleID, CreateRequest: c}
	return u, u.Validate()
}
