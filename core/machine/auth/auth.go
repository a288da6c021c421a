/*
 * === This file is part of Hive ===
 *
 * Copyright 2025 the Hive authors.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

// Package auth is the reference hand-written machine: a login flow with
// attempt counting and a terminal LOCKED state. It doubles as the worked
// example for implementing the state contract directly, next to the
// declarative route offered by core/machine.
package auth

import (
	"fmt"

	"github.com/swarmind/hive/core/sm"
)

const (
	IDLE           = sm.StateID("IDLE")
	AUTHENTICATING = sm.StateID("AUTHENTICATING")
	AUTHENTICATED  = sm.StateID("AUTHENTICATED")
	FAILED         = sm.StateID("FAILED")
	LOCKED         = sm.StateID("LOCKED")
)

const (
	LOGIN_REQUEST       = sm.EventType("LOGIN_REQUEST")
	CREDENTIALS_VALID   = sm.EventType("CREDENTIALS_VALID")
	CREDENTIALS_INVALID = sm.EventType("CREDENTIALS_INVALID")
	ABORT               = sm.EventType("ABORT")
	RETRY               = sm.EventType("RETRY")
	LOGOUT              = sm.EventType("LOGOUT")
)

// MaxAttempts is the number of consecutive failed credential checks before
// the machine locks.
const MaxAttempts = 3

// simpleState covers the stateless members of the machine: a name, a static
// edge set, and lifecycle bookkeeping.
type simpleState struct {
	name   sm.StateID
	edges  map[sm.EventType]sm.StateID
	active bool
}

func (s *simpleState) Name() sm.StateID {
	return s.name
}

func (s *simpleState) Init() error {
	if s.active {
		return fmt.Errorf("state %s still active from a previous lifecycle", s.name)
	}
	s.active = true
	return nil
}

func (s *simpleState) Update(ev sm.Event) (*sm.TransitionResult, error) {
	to, ok := s.edges[ev.Type]
	if !ok {
		return nil, fmt.Errorf("state %s does not accept event %s", s.name, ev.Type)
	}
	return &sm.TransitionResult{NextState: to}, nil
}

func (s *simpleState) Shutdown() error {
	if !s.active {
		return fmt.Errorf("state %s was not active", s.name)
	}
	s.active = false
	return nil
}

func (s *simpleState) CheckInvariants() bool {
	return true
}

// AuthenticatingState tracks the consecutive failed attempt count. The count
// is staged during Update and committed by a post-commit side effect, so a
// failed transition leaves it untouched.
type AuthenticatingState struct {
	simpleState
	attempts int
}

func NewAuthenticatingState() *AuthenticatingState {
	return &AuthenticatingState{
		simpleState: simpleState{name: AUTHENTICATING},
	}
}

func (s *AuthenticatingState) Init() error {
	if err := s.simpleState.Init(); err != nil {
		return err
	}
	s.attempts = 0
	return nil
}

func (s *AuthenticatingState) Update(ev sm.Event) (*sm.TransitionResult, error) {
	switch ev.Type {
	case CREDENTIALS_VALID:
		return &sm.TransitionResult{NextState: AUTHENTICATED}, nil
	case CREDENTIALS_INVALID:
		staged := s.attempts + 1
		next := AUTHENTICATING
		if staged >= MaxAttempts {
			next = LOCKED
		}
		return &sm.TransitionResult{
			NextState: next,
			SideEffects: []func() error{
				func() error {
					s.attempts = staged
					return nil
				},
			},
		}, nil
	case ABORT:
		return &sm.TransitionResult{NextState: FAILED}, nil
	default:
		return nil, fmt.Errorf("state %s does not accept event %s", s.name, ev.Type)
	}
}

func (s *AuthenticatingState) Attempts() int {
	return s.attempts
}

func (s *AuthenticatingState) CheckInvariants() bool {
	return s.attempts >= 0 && s.attempts <= MaxAttempts
}

// lockedState proposes a self-loop for every event; the deny-all guard
// registered for (LOCKED, *) is what actually keeps the machine locked, and
// it rejects at the policy level rather than in Update.
type lockedState struct {
	simpleState
}

func (s *lockedState) Update(ev sm.Event) (*sm.TransitionResult, error) {
	return &sm.TransitionResult{NextState: LOCKED}, nil
}

// Table declares the full transition table, used for reachability
// validation and display.
func Table() []sm.Transition {
	edges := []struct {
		src sm.StateID
		evt sm.EventType
		dst sm.StateID
	}{
		{IDLE, LOGIN_REQUEST, AUTHENTICATING},
		{AUTHENTICATING, CREDENTIALS_VALID, AUTHENTICATED},
		{AUTHENTICATING, CREDENTIALS_INVALID, AUTHENTICATING},
		{AUTHENTICATING, CREDENTIALS_INVALID, LOCKED},
		{AUTHENTICATING, ABORT, FAILED},
		{AUTHENTICATED, LOGOUT, IDLE},
		{FAILED, RETRY, AUTHENTICATING},
	}
	table := make([]sm.Transition, 0, len(edges))
	for _, e := range edges {
		table = append(table, sm.Transition{
			Evt: sm.NewEvent(e.evt),
			Src: e.src,
			Dst: e.dst,
		})
	}
	return table
}

// NewHub builds a sealed hub for the login machine, starting in IDLE, with
// a deny-all guard on the terminal LOCKED state.
func NewHub() (*sm.Hub, error) {
	idle := &simpleState{
		name:  IDLE,
		edges: map[sm.EventType]sm.StateID{LOGIN_REQUEST: AUTHENTICATING},
	}
	authenticated := &simpleState{
		name:  AUTHENTICATED,
		edges: map[sm.EventType]sm.StateID{LOGOUT: IDLE},
	}
	failed := &simpleState{
		name:  FAILED,
		edges: map[sm.EventType]sm.StateID{RETRY: AUTHENTICATING},
	}
	locked := &lockedState{
		simpleState: simpleState{name: LOCKED},
	}

	hub, err := sm.NewHub(idle)
	if err != nil {
		return nil, err
	}
	for _, s := range []sm.State{NewAuthenticatingState(), authenticated, failed, locked} {
		if err = hub.RegisterState(s); err != nil {
			return nil, err
		}
	}
	if err = hub.RegisterGuard(LOCKED, "*", sm.DenyAllGuard{}); err != nil {
		return nil, err
	}

	hub.Seal()
	return hub, nil
}
