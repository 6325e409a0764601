// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aira-org/aira-client-os/internal/api"
	"github.com/aira-org/aira-client-os/internal/sse"
	"github.com/spf13/cobra"
)

func newListenCmd(a *app) *cobra.Command {
	var (
		event   string
		timeout time.Duration
		process bool
	)
	cmd := &cobra.Command{
		Use:   "listen <path|process-id>",
		Short: "Wait for a completion event on a server-sent event stream",
		Long: "Opens an event stream relative to the API base URL and prints the payload of the " +
			"completion event. With --process the argument is a process ID.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if process {
				path = api.ProcessEventsPath(path)
			}
			return a.runListen(cmd.Context(), cmd.OutOrStdout(), path, event, timeout)
		},
	}
	cmd.Flags().StringVar(&event, "event", "", "completion event name (default from config)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "hard session timeout (default from config)")
	cmd.Flags().BoolVar(&process, "process", false, "treat the argument as a process ID")
	return cmd
}

func (a *app) runListen(ctx context.Context, out io.Writer, path, event string, timeout time.Duration) error {
	client, err := a.apiClient()
	if err != nil {
		return err
	}
	flush, err := a.startTelemetry(ctx)
	if err != nil {
		return err
	}
	defer flush()

	if event == "" {
		event = a.cfg.SSE.CompleteEvent
	}
	if timeout <= 0 {
		timeout = a.cfg.SSE.Timeout
	}
	if !strings.HasPrefix(path, "/") && !strings.Contains(path, "://") {
		path = "/" + path
	}

	req := sse.Request[json.RawMessage]{
		URL:           path,
		CompleteEvent: event,
		Timeout:       timeout,
	}
	if !strings.Contains(path, "://") {
		req.BaseURL = client.BaseURL()
	}

	var payload json.RawMessage
	req.OnMessage = func(m json.RawMessage) { payload = m }

	listener := sse.NewListener(sse.NewHTTPDialer(client.Credentials))
	if err := sse.Listen(ctx, listener, req); err != nil {
		return fmt.Errorf("listen %s: %w", path, err)
	}

	if len(payload) == 0 {
		_, err = fmt.Fprintln(out, "completed")
		return err
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, payload, "", "  "); err != nil {
		_, err = fmt.Fprintln(out, string(payload))
		return err
	}
	_, err = fmt.Fprintln(out, pretty.String())
	return err
}
