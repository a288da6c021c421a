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
	"time"

	"github.com/swarmind/hive/common/utils/uid"
)

// TransitionRecord captures one committed state change. Records are owned
// exclusively by the hub's history log: append-only, never mutated, totally
// ordered by commit sequence. The timestamp is diagnostic only.
type TransitionRecord struct {
	Id        uid.ID    `json:"id"`
	From      StateID   `json:"from"`
	Event     EventType `json:"event"`
	To        StateID   `json:"to"`
	Timestamp time.Time `json:"timestamp"`
}
