// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fsm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type state string
type event string

func TestMachine_FireFollowsTable(t *testing.T) {
	m, err := New[state, event]("idle", []Transition[state, event]{
		{From: "idle", Event: "start", To: "running"},
		{From: "running", Event: "stop", To: "idle"},
	})
	require.NoError(t, err)

	to, err := m.Fire(context.Background(), "start")
	require.NoError(t, err)
	assert.Equal(t, state("running"), to)
	assert.Equal(t, state("running"), m.State())

	_, err = m.Fire(context.Background(), "start")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, state("running"), m.State())
}

func TestMachine_WildcardAndExplicitPrecedence(t *testing.T) {
	m, err := New[state, event]("a", []Transition[state, event]{
		{Event: "reset", To: "a"},
		{From: "b", Event: "reset", To: "c"},
		{From: "a", Event: "next", To: "b"},
	})
	require.NoError(t, err)

	assert.True(t, m.Can("reset"))
	_, err = m.Fire(context.Background(), "next")
	require.NoError(t, err)

	to, err := m.Fire(context.Background(), "reset")
	require.NoError(t, err)
	assert.Equal(t, state("c"), to, "explicit edge wins over wildcard")

	to, err = m.Fire(context.Background(), "reset")
	require.NoError(t, err)
	assert.Equal(t, state("a"), to)
}

func TestMachine_GuardRejects(t *testing.T) {
	errNo := errors.New("no")
	m, err := New[state, event]("a", []Transition[state, event]{
		{From: "a", Event: "go", To: "b", Guard: func(context.Context, state, event) error { return errNo }},
	})
	require.NoError(t, err)

	_, err = m.Fire(context.Background(), "go")
	assert.ErrorIs(t, err, errNo)
	assert.Equal(t, state("a"), m.State())
}

func TestMachine_ObserverSeesTransitions(t *testing.T) {
	var seen []string
	m, err := New[state, event]("a", []Transition[state, event]{
		{From: "a", Event: "go", To: "b"},
	}, WithObserver[state, event](func(from, to state, ev event) {
		seen = append(seen, string(from)+">"+string(to)+":"+string(ev))
	}))
	require.NoError(t, err)

	_, err = m.Fire(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, []string{"a>b:go"}, seen)
}

func TestNew_RejectsDuplicates(t *testing.T) {
	_, err := New[state, event]("a", []Transition[state, event]{
		{From: "a", Event: "go", To: "b"},
		{From: "a", Event: "go", To: "c"},
	})
	assert.Error(t, err)

	_, err = New[state, event]("a", []Transition[state, event]{
		{Event: "x", To: "b"},
		{Event: "x", To: "c"},
	})
	assert.Error(t, err)
}
