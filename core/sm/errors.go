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
	"fmt"
)

// TransitionError is implemented by every failure kind the hub can return.
// Callers match on the concrete type with errors.As to decide their
// retry/abort policy; only FatalInitFailureError is non-recoverable.
type TransitionError interface {
	error
	GetFrom() StateID
	GetEvent() EventType
}

type transitionErrorBase struct {
	from  StateID
	event EventType
}

func (t transitionErrorBase) GetFrom() StateID {
	return t.from
}

func (t transitionErrorBase) GetEvent() EventType {
	return t.event
}

// PreconditionViolationError: the guard's precondition check failed before
// the current state's Update was ever called. Recoverable, no mutation.
type PreconditionViolationError struct {
	transitionErrorBase
}

func (e PreconditionViolationError) Error() string {
	return fmt.Sprintf("precondition violated in state %s for event %s", e.from, e.event)
}

// UpdateRejectedError: the current state's own logic declined the event.
// Recoverable, no mutation.
type UpdateRejectedError struct {
	transitionErrorBase
	Reason error
}

func (e UpdateRejectedError) Error() string {
	return fmt.Sprintf("state %s rejected event %s: %v", e.from, e.event, e.Reason)
}

func (e UpdateRejectedError) Unwrap() error {
	return e.Reason
}

// GuardRejectedError: policy-level denial by a guard's CanTransition.
// Recoverable, no mutation.
type GuardRejectedError struct {
	transitionErrorBase
	to StateID
}

func (e GuardRejectedError) Error() string {
	return fmt.Sprintf("guard rejected transition %s -> %s on event %s", e.from, e.to, e.event)
}

func (e GuardRejectedError) GetTo() StateID {
	return e.to
}

// UnknownStateError: Update proposed a state absent from the registry. This
// is a configuration bug, not a runtime condition; fail fast.
type UnknownStateError struct {
	transitionErrorBase
	to StateID
}

func (e UnknownStateError) Error() string {
	return fmt.Sprintf("unknown state %s proposed by state %s on event %s", e.to, e.from, e.event)
}

func (e UnknownStateError) GetTo() StateID {
	return e.to
}

// PostconditionViolationError: the guard's postcondition check failed on the
// resolved next state. The result's rollback hook has already run; no
// mutation is observable.
type PostconditionViolationError struct {
	transitionErrorBase
	to StateID
}

func (e PostconditionViolationError) Error() string {
	return fmt.Sprintf("postcondition violated entering state %s from %s on event %s", e.to, e.from, e.event)
}

func (e PostconditionViolationError) GetTo() StateID {
	return e.to
}

// FatalInitFailureError: the next state's Init (or the outgoing state's
// Shutdown) failed mid-commit. The hub enters a degraded state rejecting all
// further transitions until externally reset.
type FatalInitFailureError struct {
	transitionErrorBase
	to     StateID
	Reason error
}

func (e FatalInitFailureError) Error() string {
	return fmt.Sprintf("fatal init failure entering state %s from %s on event %s: %v", e.to, e.from, e.event, e.Reason)
}

func (e FatalInitFailureError) GetTo() StateID {
	return e.to
}

func (e FatalInitFailureError) Unwrap() error {
	return e.Reason
}

// HubDegradedError: the hub previously suffered a fatal init failure and has
// not been reset.
type HubDegradedError struct {
	Reason *FatalInitFailureError
}

func (e HubDegradedError) Error() string {
	return fmt.Sprintf("hub degraded, transitions rejected until reset: %v", e.Reason)
}

func (e HubDegradedError) Unwrap() error {
	return e.Reason
}

// RollbackError: RollbackLastTransition was called with insufficient
// history. Recoverable; callers should check history depth first.
type RollbackError struct {
	HistoryLen int
}

func (e RollbackError) Error() string {
	return fmt.Sprintf("cannot roll back with %d history entries, at least 2 required", e.HistoryLen)
}
