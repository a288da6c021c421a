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

// Package audit persists transition records to SQLite. It is the durable
// collaborator layered on top of the hub's History accessor and event
// stream; the hub itself never touches storage.
package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/swarmind/hive/common/event"
	"github.com/swarmind/hive/common/logger"
	"github.com/swarmind/hive/common/utils/uid"
	"github.com/swarmind/hive/core/sm"
)

var log = logger.New(logrus.StandardLogger(), "audit")

const schema = `
CREATE TABLE IF NOT EXISTS transition_records (
	id         TEXT PRIMARY KEY,
	hub_id     TEXT NOT NULL,
	from_state TEXT NOT NULL,
	event      TEXT NOT NULL,
	to_state   TEXT NOT NULL,
	ts         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_hub ON transition_records(hub_id, ts);

CREATE TABLE IF NOT EXISTS hub_failures (
	hub_id     TEXT NOT NULL,
	from_state TEXT NOT NULL,
	event      TEXT NOT NULL,
	error      TEXT NOT NULL,
	ts         INTEGER NOT NULL
);
`

// Store is a SQLite-backed sink for hub audit events.
type Store struct {
	db *sql.DB
}

func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cannot create audit store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cannot open audit store: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err = db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma failed: %w", err)
		}
	}

	if _, err = db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot initialize audit schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Append persists one committed transition record.
func (s *Store) Append(hubId uid.ID, rec sm.TransitionRecord) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO transition_records (id, hub_id, from_state, event, to_state, ts)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Id.String(), hubId.String(), rec.From.String(), string(rec.Event), rec.To.String(),
		rec.Timestamp.UnixMilli())
	return err
}

// AppendFailure persists one rejected transition or degraded-mode entry.
func (s *Store) AppendFailure(hubId uid.ID, from sm.StateID, evType sm.EventType, cause string) error {
	_, err := s.db.Exec(
		`INSERT INTO hub_failures (hub_id, from_state, event, error, ts)
		 VALUES (?, ?, ?, ?, ?)`,
		hubId.String(), from.String(), string(evType), cause, time.Now().UnixMilli())
	return err
}

// Records returns all persisted records for a hub, in commit order.
func (s *Store) Records(hubId uid.ID) ([]sm.TransitionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, from_state, event, to_state, ts
		 FROM transition_records WHERE hub_id = ? ORDER BY ts, id`,
		hubId.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]sm.TransitionRecord, 0)
	for rows.Next() {
		var rec sm.TransitionRecord
		var id, from, evt, to string
		var ts int64
		if err = rows.Scan(&id, &from, &evt, &to, &ts); err != nil {
			return nil, err
		}
		rec.Id = uid.ID(id)
		rec.From = sm.StateID(from)
		rec.Event = sm.EventType(evt)
		rec.To = sm.StateID(to)
		rec.Timestamp = time.UnixMilli(ts)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Sync backfills the store from a hub's in-memory history.
func (s *Store) Sync(hub *sm.Hub) error {
	for _, rec := range hub.History() {
		if err := s.Append(hub.Id(), rec); err != nil {
			return err
		}
	}
	return nil
}

// Consume drains a hub event subscription channel into the store until the
// channel closes. Meant to run in its own goroutine, paired with
// Hub.Subscribe.
func (s *Store) Consume(ch <-chan event.HubEvent) {
	for e := range ch {
		var err error
		if len(e.RecordId) > 0 && len(e.Error) == 0 && len(e.Event) > 0 {
			err = s.Append(uid.ID(e.HubId), sm.TransitionRecord{
				Id:        uid.ID(e.RecordId),
				From:      sm.StateID(e.From),
				Event:     sm.EventType(e.Event),
				To:        sm.StateID(e.To),
				Timestamp: time.UnixMilli(e.Timestamp),
			})
		} else if len(e.Error) > 0 {
			err = s.AppendFailure(uid.ID(e.HubId), sm.StateID(e.From), sm.EventType(e.Event), e.Error)
		}
		if err != nil {
			log.WithField("hub", e.HubId).
				Warnf("cannot persist audit event: %v", err)
		}
	}
}
