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

// Package topic defines the Kafka topic hierarchy for Hive audit events.
package topic

type Topic string

const (
	Separator       = "." // used to separate topic segments
	Root      Topic = "hive"
	Event     Topic = Root + Separator + "event"

	Ev_Hub            Topic = Event + Separator + "hub"
	Ev_Hub_Transition Topic = Ev_Hub + Separator + "transition"
	Ev_Hub_Rollback   Topic = Ev_Hub + Separator + "rollback"
	Ev_Hub_Degraded   Topic = Ev_Hub + Separator + "degraded"

	Ev_Dispatch       Topic = Event + Separator + "dispatch"
	Ev_Dispatch_Route Topic = Ev_Dispatch + Separator + "route"
)
