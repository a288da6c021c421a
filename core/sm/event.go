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

// Package sm provides the Hive state machine core: the state contract,
// transition guards and the transition hub with its auditable,
// rollback-capable transition protocol.
package sm

// EventType is the enumerated trigger identity of an event.
type EventType string

func (e EventType) String() string {
	return string(e)
}

// EventArgs is the optional payload of an event, opaque to the hub.
type EventArgs map[string]string

// Event is an ephemeral trigger value, created by a caller and consumed by
// exactly one Transition call.
type Event struct {
	Type EventType
	Args EventArgs
}

func NewEvent(t EventType) Event {
	return Event{Type: t}
}

func NewEventWithArgs(t EventType, args EventArgs) Event {
	return Event{Type: t, Args: args}
}
