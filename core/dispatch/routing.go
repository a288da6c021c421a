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

	"github.com/gobwas/glob"

	"github.com/swarmind/hive/core/sm"
)

// Target is the destination of one routing table entry: either a single
// tier or a broadcast to all children of the source tier.
type Target struct {
	Tier      TierID
	Broadcast bool
}

// BroadcastTarget routes an event to all children of the source tier.
var BroadcastTarget = Target{Broadcast: true}

type routeEntry struct {
	from    TierID
	pattern string
	matcher glob.Glob // nil for exact event-type patterns
	target  Target
}

// RoutingTable is the static (fromTier, eventType) -> target map consulted
// by the dispatcher. Event types may be glob patterns; exact entries win
// over patterns, patterns match in insertion order. The table is fixed
// after construction, so routing is deterministic regardless of call order.
type RoutingTable struct {
	entries []routeEntry
}

func NewRoutingTable() *RoutingTable {
	return &RoutingTable{}
}

// Add appends one entry. Returns the table for chaining.
func (t *RoutingTable) Add(from TierID, eventPattern string, target Target) (*RoutingTable, error) {
	entry := routeEntry{
		from:    from,
		pattern: eventPattern,
		target:  target,
	}
	if eventPattern != string(glob.QuoteMeta(eventPattern)) {
		matcher, err := glob.Compile(eventPattern)
		if err != nil {
			return t, fmt.Errorf("bad route event pattern %s: %w", eventPattern, err)
		}
		entry.matcher = matcher
	}
	t.entries = append(t.entries, entry)
	return t, nil
}

// MustAdd is Add for statically known patterns.
func (t *RoutingTable) MustAdd(from TierID, eventPattern string, target Target) *RoutingTable {
	t, err := t.Add(from, eventPattern, target)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *RoutingTable) Lookup(from TierID, evType sm.EventType) (Target, bool) {
	for _, entry := range t.entries {
		if entry.from == from && entry.matcher == nil && entry.pattern == string(evType) {
			return entry.target, true
		}
	}
	for _, entry := range t.entries {
		if entry.from == from && entry.matcher != nil && entry.matcher.Match(string(evType)) {
			return entry.target, true
		}
	}
	return Target{}, false
}

// Len returns the number of entries.
func (t *RoutingTable) Len() int {
	return len(t.entries)
}
