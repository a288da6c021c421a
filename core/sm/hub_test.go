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
	"context"
	"errors"
	"fmt"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type testState struct {
	name        StateID
	edges       map[EventType]StateID
	active      bool
	initErr     error
	shutdownErr error
	initCount   int
}

func (s *testState) Name() StateID {
	return s.name
}

func (s *testState) Init() error {
	if s.initErr != nil {
		return s.initErr
	}
	s.active = true
	s.initCount++
	return nil
}

func (s *testState) Update(ev Event) (*TransitionResult, error) {
	to, ok := s.edges[ev.Type]
	if !ok {
		return nil, fmt.Errorf("state %s does not accept event %s", s.name, ev.Type)
	}
	return &TransitionResult{NextState: to}, nil
}

func (s *testState) Shutdown() error {
	if s.shutdownErr != nil {
		return s.shutdownErr
	}
	s.active = false
	return nil
}

func (s *testState) CheckInvariants() bool {
	return s.active
}

func newTestHub() (hub *Hub, standby, configured, running *testState) {
	standby = &testState{
		name:  "STANDBY",
		edges: map[EventType]StateID{"CONFIGURE": "CONFIGURED"},
	}
	configured = &testState{
		name: "CONFIGURED",
		edges: map[EventType]StateID{
			"START": "RUNNING",
			"RESET": "STANDBY",
		},
	}
	running = &testState{
		name:  "RUNNING",
		edges: map[EventType]StateID{"STOP": "CONFIGURED"},
	}

	var err error
	hub, err = NewHub(standby)
	Expect(err).NotTo(HaveOccurred())
	Expect(hub.RegisterState(configured)).To(Succeed())
	Expect(hub.RegisterState(running)).To(Succeed())
	return
}

var _ = Describe("transition hub protocol", func() {
	var (
		hub        *Hub
		standby    *testState
		configured *testState
		running    *testState
		ctx        context.Context
	)

	BeforeEach(func() {
		hub, standby, configured, running = newTestHub()
		ctx = context.Background()
	})

	When("a hub is created", func() {
		It("should be in the initial state with empty history", func() {
			Expect(hub.CurrentState()).To(Equal(StateID("STANDBY")))
			Expect(hub.History()).To(BeEmpty())
			Expect(hub.ValidateInvariants()).To(BeTrue())
		})
	})

	When("an unguarded transition succeeds", func() {
		It("should commit state, history and lifecycle calls", func() {
			result, err := hub.Transition(ctx, NewEvent("CONFIGURE"))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.NextState).To(Equal(StateID("CONFIGURED")))
			Expect(hub.CurrentState()).To(Equal(StateID("CONFIGURED")))

			history := hub.History()
			Expect(history).To(HaveLen(1))
			Expect(history[0].From).To(Equal(StateID("STANDBY")))
			Expect(history[0].Event).To(Equal(EventType("CONFIGURE")))
			Expect(history[0].To).To(Equal(StateID("CONFIGURED")))
			Expect(history[0].Id.IsNil()).To(BeFalse())

			Expect(standby.active).To(BeFalse())
			Expect(configured.active).To(BeTrue())
		})

		It("should run side effects after commit, best-effort", func() {
			effectRan := false
			hub2, err := NewHub(&effectState{
				name: "SRC",
				result: &TransitionResult{
					NextState: "DST",
					SideEffects: []func() error{
						func() error { effectRan = true; return nil },
						func() error { return errors.New("boom") },
					},
				},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(hub2.RegisterState(&testState{name: "DST"})).To(Succeed())

			_, err = hub2.Transition(ctx, NewEvent("GO"))
			Expect(err).NotTo(HaveOccurred())
			Expect(effectRan).To(BeTrue())
			Expect(hub2.CurrentState()).To(Equal(StateID("DST")))
		})
	})

	When("the current state rejects the event", func() {
		It("should fail with UpdateRejectedError and mutate nothing", func() {
			before := hub.History()
			_, err := hub.Transition(ctx, NewEvent("STOP"))

			var rejected UpdateRejectedError
			Expect(errors.As(err, &rejected)).To(BeTrue())
			Expect(rejected.GetFrom()).To(Equal(StateID("STANDBY")))
			Expect(hub.CurrentState()).To(Equal(StateID("STANDBY")))
			Expect(hub.History()).To(Equal(before))
		})
	})

	When("a precondition fails", func() {
		It("should fail before Update is called", func() {
			updateCalled := false
			probe := &probeState{
				name:   "PROBE",
				update: func(Event) (*TransitionResult, error) { updateCalled = true; return nil, nil },
			}
			hub2, err := NewHub(probe)
			Expect(err).NotTo(HaveOccurred())
			Expect(hub2.RegisterGuard("PROBE", "GO", FuncGuard{
				Pre: func(State) bool { return false },
			})).To(Succeed())

			_, err = hub2.Transition(ctx, NewEvent("GO"))
			var violation PreconditionViolationError
			Expect(errors.As(err, &violation)).To(BeTrue())
			Expect(updateCalled).To(BeFalse())
			Expect(hub2.History()).To(BeEmpty())
		})
	})

	When("a guard denies the transition", func() {
		It("should fail with GuardRejectedError and mutate nothing", func() {
			Expect(hub.RegisterGuard("STANDBY", "CONFIGURE", FuncGuard{
				Can: func(from StateID, ev Event, to StateID) bool { return false },
			})).To(Succeed())

			_, err := hub.Transition(ctx, NewEvent("CONFIGURE"))
			var rejected GuardRejectedError
			Expect(errors.As(err, &rejected)).To(BeTrue())
			Expect(rejected.GetTo()).To(Equal(StateID("CONFIGURED")))
			Expect(hub.CurrentState()).To(Equal(StateID("STANDBY")))
			Expect(hub.History()).To(BeEmpty())
		})

		It("should match glob event patterns", func() {
			Expect(hub.RegisterGuard("STANDBY", "*", DenyAllGuard{})).To(Succeed())

			_, err := hub.Transition(ctx, NewEvent("CONFIGURE"))
			var rejected GuardRejectedError
			Expect(errors.As(err, &rejected)).To(BeTrue())
		})
	})

	When("the proposed next state is not registered", func() {
		It("should fail with UnknownStateError", func() {
			standby.edges["CONFIGURE"] = "NEVADA"
			_, err := hub.Transition(ctx, NewEvent("CONFIGURE"))

			var unknown UnknownStateError
			Expect(errors.As(err, &unknown)).To(BeTrue())
			Expect(unknown.GetTo()).To(Equal(StateID("NEVADA")))
			Expect(hub.History()).To(BeEmpty())
		})
	})

	When("a postcondition fails", func() {
		It("should invoke the result rollback hook and mutate nothing", func() {
			rolledBack := false
			probe := &probeState{
				name: "PROBE",
				update: func(Event) (*TransitionResult, error) {
					return &TransitionResult{
						NextState: "TARGET",
						Rollback:  func() { rolledBack = true },
					}, nil
				},
			}
			hub2, err := NewHub(probe)
			Expect(err).NotTo(HaveOccurred())
			Expect(hub2.RegisterState(&testState{name: "TARGET"})).To(Succeed())
			Expect(hub2.RegisterGuard("PROBE", "GO", FuncGuard{
				Post: func(State) bool { return false },
			})).To(Succeed())

			_, err = hub2.Transition(ctx, NewEvent("GO"))
			var violation PostconditionViolationError
			Expect(errors.As(err, &violation)).To(BeTrue())
			Expect(rolledBack).To(BeTrue())
			Expect(hub2.CurrentState()).To(Equal(StateID("PROBE")))
			Expect(hub2.History()).To(BeEmpty())
		})
	})

	When("the next state fails to initialize", func() {
		It("should degrade the hub until an external reset", func() {
			configured.initErr = errors.New("counters not null")

			_, err := hub.Transition(ctx, NewEvent("CONFIGURE"))
			var fatal FatalInitFailureError
			Expect(errors.As(err, &fatal)).To(BeTrue())
			Expect(hub.IsDegraded()).To(BeTrue())
			Expect(hub.CurrentState()).To(Equal(NilState))

			_, err = hub.Transition(ctx, NewEvent("CONFIGURE"))
			var degraded HubDegradedError
			Expect(errors.As(err, &degraded)).To(BeTrue())

			configured.initErr = nil
			Expect(hub.Reset("STANDBY")).To(Succeed())
			Expect(hub.IsDegraded()).To(BeFalse())
			Expect(hub.CurrentState()).To(Equal(StateID("STANDBY")))
		})
	})

	When("the context is cancelled before commit", func() {
		It("should reject the transition with no observable effect", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := hub.Transition(cancelled, NewEvent("CONFIGURE"))
			var rejected UpdateRejectedError
			Expect(errors.As(err, &rejected)).To(BeTrue())
			Expect(hub.CurrentState()).To(Equal(StateID("STANDBY")))
			Expect(hub.History()).To(BeEmpty())
		})
	})

	Describe("history chaining", func() {
		It("should keep record N's from equal to record N-1's to", func() {
			for _, evt := range []EventType{"CONFIGURE", "START", "STOP", "START"} {
				_, err := hub.Transition(ctx, NewEvent(evt))
				Expect(err).NotTo(HaveOccurred())
			}

			history := hub.History()
			Expect(history).To(HaveLen(4))
			for i := 1; i < len(history); i++ {
				Expect(history[i].From).To(Equal(history[i-1].To))
			}
			Expect(hub.CurrentState()).To(Equal(history[len(history)-1].To))
		})
	})

	Describe("rollback of the last transition", func() {
		When("at least two history entries exist", func() {
			It("should restore the previous state and pop one record", func() {
				_, err := hub.Transition(ctx, NewEvent("CONFIGURE"))
				Expect(err).NotTo(HaveOccurred())
				_, err = hub.Transition(ctx, NewEvent("START"))
				Expect(err).NotTo(HaveOccurred())

				Expect(hub.RollbackLastTransition()).To(Succeed())
				Expect(hub.CurrentState()).To(Equal(StateID("CONFIGURED")))
				Expect(hub.History()).To(HaveLen(1))
				Expect(configured.active).To(BeTrue())
				Expect(running.active).To(BeFalse())
			})
		})

		When("history has fewer than two entries", func() {
			It("should fail with RollbackError and change nothing", func() {
				err := hub.RollbackLastTransition()
				var rbErr RollbackError
				Expect(errors.As(err, &rbErr)).To(BeTrue())
				Expect(rbErr.HistoryLen).To(Equal(0))

				_, err = hub.Transition(ctx, NewEvent("CONFIGURE"))
				Expect(err).NotTo(HaveOccurred())
				err = hub.RollbackLastTransition()
				Expect(errors.As(err, &rbErr)).To(BeTrue())
				Expect(rbErr.HistoryLen).To(Equal(1))
				Expect(hub.CurrentState()).To(Equal(StateID("CONFIGURED")))
				Expect(hub.History()).To(HaveLen(1))
			})
		})
	})

	Describe("registry sealing", func() {
		It("should reject registration after the first transition", func() {
			_, err := hub.Transition(ctx, NewEvent("CONFIGURE"))
			Expect(err).NotTo(HaveOccurred())

			err = hub.RegisterState(&testState{name: "LATE"})
			Expect(err).To(HaveOccurred())
			err = hub.RegisterGuard("STANDBY", "CONFIGURE", DenyAllGuard{})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("reachability validation", func() {
		It("should flag states never appearing as a transition target", func() {
			table := []Transition{
				{Evt: NewEvent("CONFIGURE"), Src: "STANDBY", Dst: "CONFIGURED"},
				{Evt: NewEvent("RESET"), Src: "CONFIGURED", Dst: "STANDBY"},
			}
			dead := hub.ValidateReachability(table, "STANDBY")
			Expect(dead).To(ConsistOf(StateID("RUNNING")))
		})
	})
})

type effectState struct {
	name   StateID
	result *TransitionResult
	active bool
}

func (s *effectState) Name() StateID { return s.name }
func (s *effectState) Init() error   { s.active = true; return nil }
func (s *effectState) Update(Event) (*TransitionResult, error) {
	return s.result, nil
}
func (s *effectState) Shutdown() error       { s.active = false; return nil }
func (s *effectState) CheckInvariants() bool { return true }

type probeState struct {
	name   StateID
	update func(Event) (*TransitionResult, error)
	active bool
}

func (s *probeState) Name() StateID { return s.name }
func (s *probeState) Init() error   { s.active = true; return nil }
func (s *probeState) Update(ev Event) (*TransitionResult, error) {
	return s.update(ev)
}
func (s *probeState) Shutdown() error       { s.active = false; return nil }
func (s *probeState) CheckInvariants() bool { return true }

func TestHub(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Transition Hub Test Suite")
}
