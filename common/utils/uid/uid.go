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

// Package uid provides unique identifier generation for hubs and
// transition records.
package uid

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/osamingo/indigo"
	"github.com/pborman/uuid"
	"github.com/rs/xid"
)

type ID string

var uidGen *indigo.Generator

func init() {
	// Sonyflake/Indigo normally derives a machine ID from the private IP
	// address, which doesn't always work (e.g. in some containers). We read
	// the standard machine-id instead and fold 2 bytes of its node ID into
	// the uint16 the generator needs. If that fails, the ID defaults to 42.
	var machineId uint16 = 42

	id, err := machineid.ID()
	if err == nil {
		parsed := uuid.Parse(id)
		if parsed != nil {
			// The first 10 bits of a UUID node ID block are clock-dependent,
			// so we take the first 2 bytes of the 6-byte node ID instead.
			array := parsed.NodeID()
			machineId = binary.BigEndian.Uint16(array[0:2])
		}
	}

	uidGen = indigo.New(
		nil,
		indigo.StartTime(time.Unix(1257894000, 0)), // Go epoch
		indigo.MachineID(func() (uint16, error) { return machineId, nil }),
	)
}

func (u ID) String() string {
	return string(u)
}

func (u ID) IsNil() bool {
	return len(u) == 0
}

func FromString(s string) (ID, error) {
	_, err := uidGen.Decompose(s)
	if err != nil {
		return "", err
	}
	return ID(s), nil
}

func NilID() ID {
	return ""
}

func New() ID {
	id, err := uidGen.NextID()
	if err != nil {
		// indigo can fail if the clock goes backwards; XID has no such mode
		return ID(xid.New().String())
	}
	return ID(id)
}

func (u ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}
