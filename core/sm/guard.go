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
	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
)

// Guard gates a specific (fromState, event) pair. Implementations must be
// pure and synchronous: no I/O, no mutation of the State instances passed in.
// The hub treats a missing guard as an unguarded transition.
type Guard interface {
	CanTransition(from StateID, ev Event, to StateID) bool
	ValidatePreCondition(s State) bool
	ValidatePostCondition(s State) bool
}

// FuncGuard adapts plain predicates into a Guard. Nil members default to
// allow.
type FuncGuard struct {
	Can  func(from StateID, ev Event, to StateID) bool
	Pre  func(s State) bool
	Post func(s State) bool
}

func (g FuncGuard) CanTransition(from StateID, ev Event, to StateID) bool {
	if g.Can == nil {
		return true
	}
	return g.Can(from, ev, to)
}

func (g FuncGuard) ValidatePreCondition(s State) bool {
	if g.Pre == nil {
		return true
	}
	return g.Pre(s)
}

func (g FuncGuard) ValidatePostCondition(s State) bool {
	if g.Post == nil {
		return true
	}
	return g.Post(s)
}

// DenyAllGuard rejects every transition out of the state it is registered
// for. Useful for terminal states such as LOCKED.
type DenyAllGuard struct{}

func (DenyAllGuard) CanTransition(StateID, Event, StateID) bool { return false }
func (DenyAllGuard) ValidatePreCondition(State) bool            { return true }
func (DenyAllGuard) ValidatePostCondition(State) bool           { return true }

// ExprGuard is a Guard compiled from boolean expressions, evaluated over a
// read-only snapshot of the transition. The available identifiers are
// "from", "to", "event", "args", "state" and "vars". An empty expression
// always evaluates to true.
type ExprGuard struct {
	can  *vm.Program
	pre  *vm.Program
	post *vm.Program
}

func NewExprGuard(canExpr, preExpr, postExpr string) (g *ExprGuard, err error) {
	g = &ExprGuard{}
	compile := func(code string) (*vm.Program, error) {
		if len(code) == 0 {
			return nil, nil
		}
		return expr.Compile(code,
			expr.AsBool(),
			expr.AllowUndefinedVariables())
	}

	if g.can, err = compile(canExpr); err != nil {
		return nil, err
	}
	if g.pre, err = compile(preExpr); err != nil {
		return nil, err
	}
	if g.post, err = compile(postExpr); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *ExprGuard) CanTransition(from StateID, ev Event, to StateID) bool {
	return g.eval(g.can, map[string]interface{}{
		"from":  from.String(),
		"to":    to.String(),
		"event": ev.Type.String(),
		"args":  map[string]string(ev.Args),
	})
}

func (g *ExprGuard) ValidatePreCondition(s State) bool {
	return g.eval(g.pre, stateEnv(s))
}

func (g *ExprGuard) ValidatePostCondition(s State) bool {
	return g.eval(g.post, stateEnv(s))
}

func (g *ExprGuard) eval(program *vm.Program, env map[string]interface{}) bool {
	if program == nil {
		return true
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false
	}
	result, ok := out.(bool)
	return ok && result
}

func stateEnv(s State) map[string]interface{} {
	env := map[string]interface{}{
		"state": s.Name().String(),
		"vars":  map[string]string{},
	}
	if vh, ok := s.(VarsHolder); ok {
		if flattened, err := vh.Vars().Flattened(); err == nil {
			env["vars"] = flattened
		}
	}
	return env
}
