// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"

	"github.com/aira-org/aira-client-os/internal/prefs"
	"github.com/spf13/cobra"
)

func newOnboardingCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "onboarding",
		Short: "Inspect or change the onboarding and welcome banner flags",
	}

	// withStore opens the configured preference store for one command.
	withStore := func(run func(cmd *cobra.Command, store prefs.Store) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			store, err := a.cfg.Prefs.OpenStore()
			if err != nil {
				return fmt.Errorf("open preferences: %w", err)
			}
			defer store.Close()
			return run(cmd, store)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show where the app would route and whether the banner is visible",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, store prefs.Store) error {
			ctx := cmd.Context()
			guard := prefs.NewOnboardingGuard(store)
			done, err := guard.Completed(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "onboarding completed: %t\n", done)
			fmt.Fprintf(out, "route: %s\n", guard.Check(ctx, "/"))
			fmt.Fprintf(out, "welcome banner visible: %t\n", prefs.NewWelcomeBanner(store).Visible(ctx))
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "complete",
		Short: "Mark onboarding as completed",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, store prefs.Store) error {
			return prefs.NewOnboardingGuard(store).Complete(cmd.Context())
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Forget onboarding completion",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, store prefs.Store) error {
			return prefs.NewOnboardingGuard(store).Reset(cmd.Context())
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "dismiss-banner",
		Short: "Hide the welcome banner permanently",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, store prefs.Store) error {
			return prefs.NewWelcomeBanner(store).Dismiss(cmd.Context())
		}),
	})

	return cmd
}
