// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aira-org/aira-client-os/internal/schedule"
	"github.com/spf13/cobra"
)

func newScheduleCmd(a *app) *cobra.Command {
	var tz string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Convert rule trigger times and intervals",
	}
	cmd.PersistentFlags().StringVar(&tz, "tz", "", "IANA time zone (default: local)")

	location := func() (*time.Location, error) {
		if tz == "" {
			return time.Local, nil
		}
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("--tz: %w", err)
		}
		return loc, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "to-utc <HH:MM>",
		Short: "Render a local time of day as a UTC trigger time for today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := location()
			if err != nil {
				return err
			}
			s, err := schedule.BuildTriggerTimeUTC(args[0], a.now(), loc)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "to-local <trigger-time>",
		Short: "Render a stored UTC trigger time as local HH:MM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := location()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), schedule.ParseTriggerTimeToLocal(args[0], loc))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "interval <days|name>",
		Short: "Map between interval day counts and names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if days, err := strconv.Atoi(args[0]); err == nil {
				i := schedule.FromDays(days)
				fmt.Fprintf(out, "%s (%s)\n", i, i.Label())
				return nil
			}
			i, err := schedule.ParseInterval(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, i.Days())
			return nil
		},
	})

	return cmd
}
