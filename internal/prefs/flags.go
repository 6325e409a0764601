// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package prefs

import (
	"context"

	xglog "github.com/aira-org/aira-client-os/internal/log"
)

const (
	// KeyOnboardingCompleted records that the onboarding flow finished.
	KeyOnboardingCompleted = "onboarding_completed"
	// KeyWelcomeBannerDismissed records that the hub welcome banner was closed.
	KeyWelcomeBannerDismissed = "aira_welcome_banner_dismissed"

	flagTrue = "true"

	// RouteOnboarding is where the guard sends first-time users.
	RouteOnboarding = "/onboarding"
)

// Flag is a boolean stored as the string "true".
type Flag struct {
	store Store
	key   string
}

// NewFlag binds a flag to key.
func NewFlag(store Store, key string) Flag {
	return Flag{store: store, key: key}
}

// IsSet reports whether the flag is "true". Any other value is unset.
func (f Flag) IsSet(ctx context.Context) (bool, error) {
	v, ok, err := f.store.Get(ctx, f.key)
	if err != nil {
		return false, err
	}
	return ok && v == flagTrue, nil
}

// Set stores "true".
func (f Flag) Set(ctx context.Context) error {
	return f.store.Set(ctx, f.key, flagTrue)
}

// Clear removes the flag.
func (f Flag) Clear(ctx context.Context) error {
	return f.store.Delete(ctx, f.key)
}

// OnboardingGuard routes users who have not finished onboarding.
type OnboardingGuard struct {
	flag Flag
}

// NewOnboardingGuard returns a guard over store.
func NewOnboardingGuard(store Store) *OnboardingGuard {
	return &OnboardingGuard{flag: NewFlag(store, KeyOnboardingCompleted)}
}

// Completed reads the flag. It is read on every call; nothing is cached.
func (g *OnboardingGuard) Completed(ctx context.Context) (bool, error) {
	return g.flag.IsSet(ctx)
}

// Check returns the route to show: target when onboarding is complete and
// RouteOnboarding otherwise. A store error counts as not completed.
func (g *OnboardingGuard) Check(ctx context.Context, target string) string {
	done, err := g.flag.IsSet(ctx)
	if err != nil {
		xglog.FromContext(ctx).Warn().Err(err).
			Str(xglog.FieldEvent, "prefs.onboarding_read_failed").
			Msg("onboarding flag unreadable")
	}
	if !done {
		return RouteOnboarding
	}
	return target
}

// Complete marks onboarding as finished.
func (g *OnboardingGuard) Complete(ctx context.Context) error {
	return g.flag.Set(ctx)
}

// Reset clears the flag.
func (g *OnboardingGuard) Reset(ctx context.Context) error {
	return g.flag.Clear(ctx)
}

// WelcomeBanner tracks whether the welcome banner was dismissed.
type WelcomeBanner struct {
	flag Flag
}

// NewWelcomeBanner returns the banner state over store.
func NewWelcomeBanner(store Store) *WelcomeBanner {
	return &WelcomeBanner{flag: NewFlag(store, KeyWelcomeBannerDismissed)}
}

// Visible reports whether the banner should show. An unreadable store
// shows it, as if it had never been dismissed.
func (b *WelcomeBanner) Visible(ctx context.Context) bool {
	dismissed, err := b.flag.IsSet(ctx)
	if err != nil {
		xglog.FromContext(ctx).Warn().Err(err).
			Str(xglog.FieldEvent, "prefs.banner_read_failed").
			Msg("welcome banner state unreadable")
		return true
	}
	return !dismissed
}

// Dismiss hides the banner for good.
func (b *WelcomeBanner) Dismiss(ctx context.Context) error {
	return b.flag.Set(ctx)
}
