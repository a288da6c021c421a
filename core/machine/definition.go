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

// Package machine loads declarative machine definitions and compiles them
// into ready-to-run transition hubs with table-driven states and expression
// guards.
package machine

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/swarmind/hive/core/sm"
)

// GuardDef declares the expression clauses of one guard. Empty clauses
// always pass.
type GuardDef struct {
	Can  string `yaml:"can"`
	Pre  string `yaml:"pre"`
	Post string `yaml:"post"`
}

// StateDef declares one state of a machine.
type StateDef struct {
	Name      string            `yaml:"name"`
	Vars      map[string]string `yaml:"vars,omitempty"`
	Invariant string            `yaml:"invariant,omitempty"`
}

// TransitionDef declares one edge of the transition table. The event may be
// a glob pattern.
type TransitionDef struct {
	From  string    `yaml:"from"`
	Event string    `yaml:"event"`
	To    string    `yaml:"to"`
	Guard *GuardDef `yaml:"guard,omitempty"`
}

// Definition is a full declarative machine: states, transition table and
// guards, as carried by a machine definition YAML file.
type Definition struct {
	Name        string            `yaml:"name"`
	Initial     string            `yaml:"initial"`
	Defaults    map[string]string `yaml:"defaults,omitempty"`
	States      []StateDef        `yaml:"states"`
	Transitions []TransitionDef   `yaml:"transitions"`
}

// Parse unmarshals and schema-validates a machine definition.
func Parse(input []byte) (*Definition, error) {
	if err := ValidateSchema(input); err != nil {
		return nil, err
	}

	def := &Definition{}
	if err := yaml.Unmarshal(input, def); err != nil {
		return nil, fmt.Errorf("unmarshaling machine definition failed: %w", err)
	}
	return def, nil
}

// Load reads, parses and validates a machine definition file.
func Load(path string) (*Definition, error) {
	input, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read machine definition: %w", err)
	}
	return Parse(input)
}

// Table returns the declared transition table in sm form.
func (d *Definition) Table() []sm.Transition {
	table := make([]sm.Transition, 0, len(d.Transitions))
	for _, t := range d.Transitions {
		table = append(table, sm.Transition{
			Evt: sm.NewEvent(sm.EventType(t.Event)),
			Src: sm.StateID(t.From),
			Dst: sm.StateID(t.To),
		})
	}
	return table
}

// Validate checks the definition for configuration bugs beyond the schema:
// an unregistered initial state, transitions referencing undeclared states,
// and dead states never appearing as a transition destination.
func (d *Definition) Validate() error {
	declared := make(map[string]bool, len(d.States))
	for _, s := range d.States {
		if declared[s.Name] {
			return fmt.Errorf("machine %s: state %s declared twice", d.Name, s.Name)
		}
		declared[s.Name] = true
	}
	if !declared[d.Initial] {
		return fmt.Errorf("machine %s: initial state %s not declared", d.Name, d.Initial)
	}

	for _, t := range d.Transitions {
		if !declared[t.From] {
			return fmt.Errorf("machine %s: transition from undeclared state %s", d.Name, t.From)
		}
		if !declared[t.To] {
			return fmt.Errorf("machine %s: transition to undeclared state %s", d.Name, t.To)
		}
	}

	targets := make(map[string]bool, len(d.Transitions))
	for _, t := range d.Transitions {
		targets[t.To] = true
	}
	dead := make([]string, 0)
	for _, s := range d.States {
		if s.Name == d.Initial {
			continue
		}
		if !targets[s.Name] {
			dead = append(dead, s.Name)
		}
	}
	if len(dead) > 0 {
		return fmt.Errorf("machine %s: dead states, never a transition target: [%s]",
			d.Name, strings.Join(dead, ", "))
	}
	return nil
}

// Build validates the definition and compiles it into a sealed hub with
// table-driven states and registered expression guards.
func (d *Definition) Build() (*sm.Hub, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	states := make(map[string]*tableState, len(d.States))
	for _, sd := range d.States {
		ts, err := newTableState(sd, d.Defaults)
		if err != nil {
			return nil, fmt.Errorf("machine %s: state %s: %w", d.Name, sd.Name, err)
		}
		states[sd.Name] = ts
	}

	for _, td := range d.Transitions {
		if err := states[td.From].addEdge(td.Event, sm.StateID(td.To)); err != nil {
			return nil, fmt.Errorf("machine %s: %w", d.Name, err)
		}
	}

	hub, err := sm.NewHub(states[d.Initial])
	if err != nil {
		return nil, err
	}
	for _, sd := range d.States {
		if sd.Name == d.Initial {
			continue
		}
		if err = hub.RegisterState(states[sd.Name]); err != nil {
			return nil, err
		}
	}

	for _, td := range d.Transitions {
		if td.Guard == nil {
			continue
		}
		guard, gErr := sm.NewExprGuard(td.Guard.Can, td.Guard.Pre, td.Guard.Post)
		if gErr != nil {
			return nil, fmt.Errorf("machine %s: guard for (%s, %s): %w", d.Name, td.From, td.Event, gErr)
		}
		if err = hub.RegisterGuard(sm.StateID(td.From), td.Event, guard); err != nil {
			return nil, err
		}
	}

	hub.Seal()
	return hub, nil
}
