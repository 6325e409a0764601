// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aira-org/aira-client-os/internal/rules"
	"github.com/aira-org/aira-client-os/internal/schedule"
	"github.com/spf13/cobra"
)

func newRulesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List, create and delete automation rules",
	}
	cmd.AddCommand(
		newRulesListCmd(a),
		newRulesCreateCmd(a),
		newRulesDeleteCmd(a),
		newRulesSuggestCmd(),
	)
	return cmd
}

func newRulesListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rules with their schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			list, err := client.Rules(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tGROUPS\tSCHEDULE\tTEXT")
			for _, r := range list {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
					r.ID, r.Status, len(r.WIDs), r.Schedule(time.Local).Describe(), r.RawText)
			}
			return tw.Flush()
		},
	}
}

func newRulesCreateCmd(a *app) *cobra.Command {
	var (
		text     string
		groups   []string
		interval string
		at       string
		until    string
		every    int
		runs     int
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := a.apiClient()
			if err != nil {
				return err
			}

			form := rules.NewForm()
			form.RawText = text
			form.SelectedGroups = groups
			if interval != "" {
				iv, err := schedule.ParseInterval(interval)
				if err != nil {
					return err
				}
				form.Schedule.Enabled = true
				form.Schedule.Interval = iv
				if at != "" {
					form.Schedule.Time = at
				}
				if until != "" {
					form.Schedule.TimeEnd = until
				}
				form.Schedule.IntervalMinutes = every
				if runs > 0 {
					form.Schedule.RunCount = runs
				}
			}

			connectors, err := client.Connectors(ctx)
			if err != nil {
				return err
			}
			if !form.CanSave(connectors) {
				if form.ShowGroupSelector(connectors) && len(groups) == 0 {
					return errors.New("this rule needs at least one --group")
				}
				return errors.New("rule is incomplete: --text is required")
			}

			req, err := form.CreateRequest(a.now(), time.Local)
			if err != nil {
				return err
			}
			res, err := client.CreateRule(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", res.RuleID, form.Schedule.Describe())
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "rule instruction text")
	cmd.Flags().StringSliceVar(&groups, "group", nil, "WhatsApp group ID (repeatable)")
	cmd.Flags().StringVar(&interval, "interval", "", "schedule interval: once, daily, weekly, monthly, quarterly, yearly")
	cmd.Flags().StringVar(&at, "at", "", "local start time HH:MM")
	cmd.Flags().StringVar(&until, "until", "", "local end time HH:MM")
	cmd.Flags().IntVar(&every, "every", 0, "repeat every N minutes inside the window")
	cmd.Flags().IntVar(&runs, "runs", 0, "run count for once rules")
	return cmd
}

func newRulesDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			if _, err := client.DeleteRule(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newRulesSuggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <text>",
		Short: "Show the connectors and keywords detected in rule text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "connectors: %s\n", strings.Join(rules.SuggestConnectors(text), ", "))
			fmt.Fprintf(out, "keywords: %s\n", strings.Join(rules.DetectKeywords(text), ", "))
			return nil
		},
	}
}
