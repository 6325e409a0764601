// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/aira-org/aira-client-os/internal/api"
	"github.com/aira-org/aira-client-os/internal/config"
	xglog "github.com/aira-org/aira-client-os/internal/log"
	"github.com/aira-org/aira-client-os/internal/validate"
	"github.com/aira-org/aira-client-os/internal/version"
	"github.com/spf13/cobra"
)

// app carries state shared by every subcommand.
type app struct {
	configPath string
	logLevel   string
	stderr     io.Writer
	now        func() time.Time

	cfg config.AppConfig
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stderr: stderr, now: time.Now}

	root := &cobra.Command{
		Use:           "aira",
		Short:         "AiRA terminal client",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to config file (YAML)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(
		newLinkCmd(a),
		newListenCmd(a),
		newScheduleCmd(a),
		newOnboardingCmd(a),
		newRulesCmd(a),
		newDoctorCmd(a),
	)
	return root
}

// load reads configuration and configures logging.
func (a *app) load() error {
	cfg, err := config.NewLoader(a.configPath, version.Version).Load()
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		lvl, err := validate.ParseLogLevel(a.logLevel)
		if err != nil {
			return fmt.Errorf("--log-level: %w", err)
		}
		cfg.LogLevel = lvl.String()
	}
	a.cfg = cfg

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Output:  a.stderr,
		Service: "aira",
		Version: cfg.Version,
	})

	source := "env+defaults"
	if a.configPath != "" {
		source = "file"
	}
	logger := xglog.WithComponent("cli")
	logger.Debug().
		Str(xglog.FieldEvent, "config.loaded").
		Str("source", source).
		Str("path", a.configPath).
		Msg("configuration loaded")
	return nil
}

func (a *app) apiClient() (*api.Client, error) {
	return api.New(api.Config{
		BaseURL:          a.cfg.API.BaseURL,
		Token:            a.cfg.API.Token,
		Timeout:          a.cfg.API.Timeout,
		BreakerThreshold: a.cfg.API.BreakerThreshold,
		BreakerReset:     a.cfg.API.BreakerReset,
	})
}
