// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/aira-org/aira-client-os/internal/linking"
	"github.com/aira-org/aira-client-os/internal/rules"
)

// ConnectResponse is returned by the connect call.
type ConnectResponse struct {
	Code string `json:"code"`
}

// Connect asks the backend for a fresh WhatsApp linking code.
func (c *Client) Connect(ctx context.Context) (string, error) {
	var resp ConnectResponse
	if err := c.do(ctx, "whatsapp_connect", http.MethodPost, PathConnect, struct{}{}, &resp); err != nil {
		return "", err
	}
	code := strings.TrimSpace(resp.Code)
	if code == "" {
		return "", &APIError{Status: http.StatusOK, Message: "Backend returned no linking code"}
	}
	return code, nil
}

// LinkStatus reports how far the WhatsApp account link has progressed.
func (c *Client) LinkStatus(ctx context.Context) (linking.Status, error) {
	var st linking.Status
	if err := c.do(ctx, "whatsapp_status", http.MethodGet, PathLinkStatus, nil, &st); err != nil {
		return linking.Status{}, err
	}
	return st, nil
}

// GroupsResponse lists the user's WhatsApp groups and direct chats.
type GroupsResponse struct {
	Groups []rules.Chat `json:"groups"`
	Chats  []rules.Chat `json:"chats"`
}

// Groups returns the pickable groups, deduplicated by w_id.
func (c *Client) Groups(ctx context.Context) ([]rules.Group, error) {
	var resp GroupsResponse
	if err := c.do(ctx, "whatsapp_groups", http.MethodGet, PathGroups, nil, &resp); err != nil {
		return nil, err
	}
	return rules.MergeGroups(resp.Groups, resp.Chats), nil
}

var (
	_ linking.Connector    = (*Client)(nil)
	_ linking.StatusSource = (*Client)(nil)
)
