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

package machine

import (
	"fmt"
	"sync"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
	"github.com/gobwas/glob"

	"github.com/swarmind/hive/common/gera"
	"github.com/swarmind/hive/core/sm"
)

type edge struct {
	pattern string
	matcher glob.Glob // nil for exact event-type patterns
	to      sm.StateID
}

// tableState is a declarative sm.State: its Update consults the machine's
// transition table instead of hand-written logic. Per-state vars stack on
// the machine defaults via gera and incoming event args are layered on top
// for the duration of one Update.
type tableState struct {
	mu        sync.Mutex
	name      sm.StateID
	vars      gera.StringMap
	edges     []edge
	invariant *vm.Program
	active    bool
}

func newTableState(def StateDef, defaults map[string]string) (*tableState, error) {
	ts := &tableState{
		name: sm.StateID(def.Name),
		vars: gera.MakeStringMapWithMapCopy(def.Vars).
			Wrap(gera.MakeStringMapWithMapCopy(defaults)),
	}
	if len(def.Invariant) > 0 {
		program, err := expr.Compile(def.Invariant,
			expr.AsBool(),
			expr.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("bad invariant expression: %w", err)
		}
		ts.invariant = program
	}
	return ts, nil
}

func (ts *tableState) addEdge(eventPattern string, to sm.StateID) error {
	e := edge{pattern: eventPattern, to: to}
	if eventPattern != string(glob.QuoteMeta(eventPattern)) {
		matcher, err := glob.Compile(eventPattern)
		if err != nil {
			return fmt.Errorf("bad transition event pattern %s: %w", eventPattern, err)
		}
		e.matcher = matcher
	}
	ts.edges = append(ts.edges, e)
	return nil
}

func (ts *tableState) Name() sm.StateID {
	return ts.name
}

func (ts *tableState) Vars() gera.StringMap {
	return ts.vars
}

func (ts *tableState) Init() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.active {
		return fmt.Errorf("state %s still active from a previous lifecycle", ts.name)
	}
	ts.active = true
	return nil
}

func (ts *tableState) Update(ev sm.Event) (*sm.TransitionResult, error) {
	to, ok := ts.lookup(ev.Type)
	if !ok {
		return nil, fmt.Errorf("no transition for event %s from state %s", ev.Type, ts.name)
	}

	// stage the event args onto the state's var stack, and hand the hub a
	// rollback hook that unstages them
	added := make([]string, 0, len(ev.Args))
	replaced := make(map[string]string)
	for k, v := range ev.Args {
		if prev, ok := ts.vars.Get(k); ok {
			replaced[k] = prev
		} else {
			added = append(added, k)
		}
		ts.vars.Set(k, v)
	}

	return &sm.TransitionResult{
		NextState: to,
		Rollback: func() {
			for _, k := range added {
				ts.vars.Del(k)
			}
			for k, v := range replaced {
				ts.vars.Set(k, v)
			}
		},
	}, nil
}

func (ts *tableState) lookup(evType sm.EventType) (sm.StateID, bool) {
	for _, e := range ts.edges {
		if e.matcher == nil && e.pattern == string(evType) {
			return e.to, true
		}
	}
	for _, e := range ts.edges {
		if e.matcher != nil && e.matcher.Match(string(evType)) {
			return e.to, true
		}
	}
	return sm.StateID(""), false
}

func (ts *tableState) Shutdown() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if !ts.active {
		return fmt.Errorf("state %s was not active", ts.name)
	}
	ts.active = false
	return nil
}

func (ts *tableState) CheckInvariants() bool {
	if ts.invariant == nil {
		return true
	}
	flattened, err := ts.vars.Flattened()
	if err != nil {
		return false
	}
	out, err := expr.Run(ts.invariant, map[string]interface{}{
		"state": ts.name.String(),
		"vars":  flattened,
	})
	if err != nil {
		return false
	}
	result, ok := out.(bool)
	return ok && result
}
