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
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/swarmind/hive/common/gera"
)

type varsState struct {
	testState
	vars gera.StringMap
}

func (s *varsState) Vars() gera.StringMap {
	return s.vars
}

var _ = Describe("guards", func() {
	Describe("FuncGuard", func() {
		It("should default every nil member to allow", func() {
			g := FuncGuard{}
			Expect(g.CanTransition("A", NewEvent("GO"), "B")).To(BeTrue())
			Expect(g.ValidatePreCondition(nil)).To(BeTrue())
			Expect(g.ValidatePostCondition(nil)).To(BeTrue())
		})
	})

	Describe("ExprGuard", func() {
		It("should treat empty expressions as allow", func() {
			g, err := NewExprGuard("", "", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(g.CanTransition("A", NewEvent("GO"), "B")).To(BeTrue())
			Expect(g.ValidatePreCondition(&testState{name: "A"})).To(BeTrue())
		})

		It("should fail compilation on malformed expressions", func() {
			_, err := NewExprGuard("from ==", "", "")
			Expect(err).To(HaveOccurred())
		})

		It("should evaluate the transition snapshot in CanTransition", func() {
			g, err := NewExprGuard(`from == "IDLE" && event == "LOGIN_REQUEST"`, "", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(g.CanTransition("IDLE", NewEvent("LOGIN_REQUEST"), "AUTHENTICATING")).To(BeTrue())
			Expect(g.CanTransition("FAILED", NewEvent("LOGIN_REQUEST"), "AUTHENTICATING")).To(BeFalse())
		})

		It("should expose event args to CanTransition", func() {
			g, err := NewExprGuard(`args.user != ""`, "", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(g.CanTransition("IDLE",
				NewEventWithArgs("LOGIN_REQUEST", EventArgs{"user": "worker"}),
				"AUTHENTICATING")).To(BeTrue())
			Expect(g.CanTransition("IDLE",
				NewEventWithArgs("LOGIN_REQUEST", EventArgs{"user": ""}),
				"AUTHENTICATING")).To(BeFalse())
		})

		It("should evaluate state vars in pre and postconditions", func() {
			g, err := NewExprGuard("", `vars.mode == "ready"`, `state == "B"`)
			Expect(err).NotTo(HaveOccurred())

			s := &varsState{
				testState: testState{name: "A"},
				vars:      gera.MakeStringMapWithMap(map[string]string{"mode": "ready"}),
			}
			Expect(g.ValidatePreCondition(s)).To(BeTrue())

			s.vars.Set("mode", "draining")
			Expect(g.ValidatePreCondition(s)).To(BeFalse())

			Expect(g.ValidatePostCondition(&testState{name: "B"})).To(BeTrue())
			Expect(g.ValidatePostCondition(&testState{name: "C"})).To(BeFalse())
		})

		It("should treat states without vars as an empty var stack", func() {
			g, err := NewExprGuard("", `vars.mode == "ready"`, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(g.ValidatePreCondition(&testState{name: "A"})).To(BeFalse())
		})
	})
})
