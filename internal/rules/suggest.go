// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rules

import (
	"slices"
	"strings"
)

// Connector IDs known to the suggestion table.
const (
	ConnectorDrive    = "google_drive"
	ConnectorCalendar = "google_calendar"
	ConnectorEmail    = "email_scope"
	ConnectorWhatsApp = "whatsapp"
)

// MaxKeywords caps DetectKeywords.
const MaxKeywords = 5

type serviceKeywords struct {
	connector string
	keywords  []string
}

// serviceTable is ordered; suggestions and keywords follow this order.
var serviceTable = []serviceKeywords{
	{ConnectorDrive, []string{"drive", "file", "document", "folder", "upload", "download"}},
	{ConnectorCalendar, []string{"calendar", "event", "meeting", "schedule", "appointment", "reminder"}},
	{ConnectorEmail, []string{"email", "mail", "send", "inbox", "message"}},
	{ConnectorWhatsApp, []string{"whatsapp", "group", "chat", "message"}},
}

// SuggestConnectors returns the connectors whose keywords appear in text,
// matched case-insensitively as substrings. WhatsApp is always included.
func SuggestConnectors(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, svc := range serviceTable {
		if slices.ContainsFunc(svc.keywords, func(k string) bool { return strings.Contains(lower, k) }) {
			out = append(out, svc.connector)
		}
	}
	if !slices.Contains(out, ConnectorWhatsApp) {
		out = append(out, ConnectorWhatsApp)
	}
	return out
}

// DetectKeywords returns up to MaxKeywords distinct keywords found in text.
func DetectKeywords(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, svc := range serviceTable {
		for _, k := range svc.keywords {
			if strings.Contains(lower, k) && !slices.Contains(out, k) {
				out = append(out, k)
			}
		}
	}
	if len(out) > MaxKeywords {
		out = out[:MaxKeywords]
	}
	return out
}
