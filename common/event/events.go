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

// Package event provides the audit event stream for hub transitions.
package event

// HubEvent is one audit entry published by a hub. A HubEvent is emitted for
// every committed transition, every rollback and every degraded-mode entry;
// failed transitions emit one with Error set.
type HubEvent struct {
	Timestamp int64  `json:"timestamp"`
	HubId     string `json:"hubId"`
	RecordId  string `json:"recordId,omitempty"`
	From      string `json:"from"`
	Event     string `json:"event,omitempty"`
	To        string `json:"to,omitempty"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message,omitempty"`
}

// DispatchEvent is one audit entry published by the hierarchical dispatcher
// for every routed or broadcast event.
type DispatchEvent struct {
	Timestamp int64    `json:"timestamp"`
	FromTier  string   `json:"fromTier"`
	ToTiers   []string `json:"toTiers"`
	Event     string   `json:"event"`
	Broadcast bool     `json:"broadcast"`
	Error     string   `json:"error,omitempty"`
}
