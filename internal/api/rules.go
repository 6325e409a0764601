// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"fmt"
	"net/http"

	xglog "github.com/aira-org/aira-client-os/internal/log"
	"github.com/aira-org/aira-client-os/internal/rules"
)

// ConnectorsResponse lists the services the user has connected.
type ConnectorsResponse struct {
	AvailableServices []string `json:"available_services"`
}

// Connectors returns every known connector with its connected flag.
func (c *Client) Connectors(ctx context.Context) ([]rules.Connector, error) {
	var resp ConnectorsResponse
	if err := c.do(ctx, "connectors_list", http.MethodGet, PathConnectors, nil, &resp); err != nil {
		return nil, err
	}
	return rules.DefaultConnectors(resp.AvailableServices), nil
}

// Rules lists the user's rules. Rules that fail validation are skipped.
func (c *Client) Rules(ctx context.Context) ([]rules.Rule, error) {
	var list []rules.Rule
	if err := c.do(ctx, "rules_list", http.MethodGet, PathRules, nil, &list); err != nil {
		return nil, err
	}
	out := list[:0]
	for _, r := range list {
		if err := r.Validate(); err != nil {
			logger := xglog.WithContext(ctx, c.logger)
			logger.Warn().Err(err).
				Str(xglog.FieldEvent, "api.rule_invalid").
				Str("rule_id", r.ID).
				Msg("skipping invalid rule")
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// CreateRule validates and submits a new rule.
func (c *Client) CreateRule(ctx context.Context, req rules.CreateRequest) (rules.MutationResponse, error) {
	if err := req.Validate(); err != nil {
		return rules.MutationResponse{}, fmt.Errorf("api: invalid rule: %w", err)
	}
	var resp rules.MutationResponse
	err := c.do(ctx, "rules_create", http.MethodPost, PathRules, req, &resp)
	return resp, err
}

// UpdateRule validates and submits changes to an existing rule.
func (c *Client) UpdateRule(ctx context.Context, req rules.UpdateRequest) (rules.MutationResponse, error) {
	if err := req.Validate(); err != nil {
		return rules.MutationResponse{}, fmt.Errorf("api: invalid rule: %w", err)
	}
	var resp rules.MutationResponse
	err := c.do(ctx, "rules_update", http.MethodPut, PathRules, req, &resp)
	return resp, err
}

// DeleteRule removes a rule.
func (c *Client) DeleteRule(ctx context.Context, ruleID string) (rules.MutationResponse, error) {
	if ruleID == "" {
		return rules.MutationResponse{}, fmt.Errorf("api: rule id is required")
	}
	var resp rules.MutationResponse
	err := c.do(ctx, "rules_delete", http.MethodDelete, PathRules, rules.DeleteRequest{RuleID: ruleID}, &resp)
	return resp, err
}
