// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aira-org/aira-client-os/internal/cache"
	"github.com/aira-org/aira-client-os/internal/health"
	xglog "github.com/aira-org/aira-client-os/internal/log"
	"github.com/spf13/cobra"
)

func newDoctorCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the backend, preference store and session cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := xglog.WithComponent("cli.doctor")

			client, err := a.apiClient()
			if err != nil {
				return err
			}

			m := health.NewManager(a.cfg.Version)
			m.RegisterChecker(health.BackendChecker(client))
			m.RegisterChecker(health.BreakerChecker("backend_circuit", client.BreakerState))

			store, err := a.cfg.Prefs.OpenStore()
			if err != nil {
				m.RegisterChecker(failed("prefs", err))
			} else {
				defer store.Close()
				m.RegisterChecker(health.PrefsChecker(store))
			}

			if a.cfg.Cache.Backend != cache.BackendNone {
				c, err := cache.New(ctx, a.cfg.Cache.CacheSettings(), logger)
				if err != nil {
					m.RegisterChecker(failed("cache", err))
				} else {
					defer c.Close()
					m.RegisterChecker(health.CacheChecker(c))
				}
			}

			report := m.Health(ctx)
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				for _, name := range report.Names() {
					r := report.Checks[name]
					detail := r.Message
					if r.Error != "" {
						detail = r.Error
					}
					fmt.Fprintf(out, "%-16s %-10s %s\n", name, r.Status, detail)
				}
				fmt.Fprintf(out, "overall: %s\n", report.Status)
			}
			if report.Status == health.StatusUnhealthy {
				return errors.New("one or more checks are unhealthy")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func failed(name string, err error) health.Checker {
	return health.CheckerFunc(name, func(_ context.Context) health.CheckResult {
		return health.CheckResult{Status: health.StatusUnhealthy, Error: err.Error()}
	})
}
