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

package dispatch

import (
	"fmt"
	"strings"

	"github.com/swarmind/hive/core/sm"
)

type TierError interface {
	error
	GetTierId() TierID
}

type tierErrorBase struct {
	tierId TierID
}

func (t tierErrorBase) GetTierId() TierID {
	return t.tierId
}

// UnroutableEventError: the routing table has no entry for (fromTier,
// eventType). A configuration gap, recoverable at the dispatcher level.
type UnroutableEventError struct {
	tierErrorBase
	event sm.EventType
}

func (e UnroutableEventError) Error() string {
	return fmt.Sprintf("no route for event %s from tier %s", e.event, e.tierId)
}

func (e UnroutableEventError) GetEvent() sm.EventType {
	return e.event
}

type TierAlreadyRegisteredError struct {
	tierErrorBase
}

func (e TierAlreadyRegisteredError) Error() string {
	return fmt.Sprintf("tier %s already registered", e.tierId)
}

type TierNotFoundError struct {
	tierErrorBase
}

func (e TierNotFoundError) Error() string {
	return fmt.Sprintf("tier %s not found", e.tierId)
}

// BroadcastError aggregates per-tier failures of one broadcast. Committed
// sibling transitions are not rolled back; the first failure in registration
// order drives the wrapped error.
type BroadcastError struct {
	tierErrorBase
	event       sm.EventType
	FailedTiers []TierID
	First       error
	All         error
}

func (e BroadcastError) Error() string {
	names := make([]string, len(e.FailedTiers))
	for i, t := range e.FailedTiers {
		names[i] = string(t)
	}
	return fmt.Sprintf("broadcast of %s from tier %s failed for tiers [%s]: %v",
		e.event, e.tierId, strings.Join(names, ", "), e.First)
}

func (e BroadcastError) Unwrap() error {
	return e.First
}
