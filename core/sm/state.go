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

package sm

import (
	"github.com/swarmind/hive/common/gera"
)

// StateID is the immutable identity of a state within one machine.
type StateID string

func (s StateID) String() string {
	return string(s)
}

// NilState marks a hub with no valid current state, i.e. a degraded hub.
const NilState = StateID("")

// State is the behavioral contract every state in a machine must satisfy.
// Implementations are instantiated once per machine definition and registered
// into the hub's state registry at construction; the registry is sealed
// before the first transition and never modified afterwards.
type State interface {
	// Name returns the immutable identity of this state.
	Name() StateID

	// Init is called immediately before this state becomes current. It must
	// establish the state's own invariants. A failure is fatal to the
	// enclosing transition.
	Init() error

	// Update is the pure decision function mapping an incoming event to a
	// proposed next state plus optional rollback/side-effect closures. It
	// must not mutate anything visible outside this instance except through
	// the returned TransitionResult.
	Update(ev Event) (*TransitionResult, error)

	// Shutdown is called immediately after this state stops being current.
	// It releases resources and asserts that invariants held throughout.
	Shutdown() error

	// CheckInvariants is synchronous and side-effect-free, callable at any
	// time to audit correctness.
	CheckInvariants() bool
}

// VarsHolder is optionally implemented by states that expose a variable
// stack; expression guards evaluate against it.
type VarsHolder interface {
	Vars() gera.StringMap
}

// TransitionResult is produced by a State's Update call and consumed
// immediately by the hub.
type TransitionResult struct {
	NextState StateID

	// Rollback undoes locally staged, not-yet-committed work from the Update
	// call that produced this result. It never undoes a committed
	// transition; that is the hub's RollbackLastTransition.
	Rollback func()

	// SideEffects run sequentially after commit, best-effort. Failures are
	// logged but do not roll back the committed transition.
	SideEffects []func() error
}

// Transition declares one edge of a machine's transition table. Tables are
// used for reachability validation and declarative machine definitions; the
// hub itself learns transitions from State.Update.
type Transition struct {
	Evt Event
	Src StateID
	Dst StateID
}
