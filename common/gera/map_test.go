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

package gera

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("hierarchical key-value store", func() {
	var defaults, vars *WrapMap[string, string]

	BeforeEach(func() {
		defaults = MakeMapWithMap(map[string]string{
			"site": "apiary",
			"mode": "open",
		})
		vars = MakeMapWithMap(map[string]string{
			"mode": "secure",
		})
	})

	When("a map is wrapped around another", func() {
		It("should resolve gets through the hierarchy, child first", func() {
			vars.Wrap(defaults)

			val, ok := vars.Get("mode")
			Expect(ok).To(BeTrue())
			Expect(val).To(Equal("secure"))

			val, ok = vars.Get("site")
			Expect(ok).To(BeTrue())
			Expect(val).To(Equal("apiary"))

			_, ok = vars.Get("queen")
			Expect(ok).To(BeFalse())
		})

		It("should flatten with child entries overriding the parent", func() {
			vars.Wrap(defaults)

			flattened, err := vars.Flattened()
			Expect(err).NotTo(HaveOccurred())
			Expect(flattened).To(Equal(map[string]string{
				"site": "apiary",
				"mode": "secure",
			}))

			parentOnly, err := vars.FlattenedParent()
			Expect(err).NotTo(HaveOccurred())
			Expect(parentOnly).To(Equal(map[string]string{
				"site": "apiary",
				"mode": "open",
			}))
		})

		It("should report hierarchy membership", func() {
			vars.Wrap(defaults)
			Expect(vars.IsHierarchyRoot()).To(BeFalse())
			Expect(defaults.IsHierarchyRoot()).To(BeTrue())
			Expect(vars.HierarchyContains(defaults)).To(BeTrue())
			Expect(defaults.HierarchyContains(vars)).To(BeFalse())
		})

		It("should detach the parent on Unwrap", func() {
			vars.Wrap(defaults)
			vars.Unwrap()
			_, ok := vars.Get("site")
			Expect(ok).To(BeFalse())
			Expect(vars.IsHierarchyRoot()).To(BeTrue())
		})
	})

	When("entries are modified", func() {
		It("should write to the child layer only", func() {
			vars.Wrap(defaults)
			vars.Set("site", "meadow")

			val, _ := vars.Get("site")
			Expect(val).To(Equal("meadow"))
			val, _ = defaults.Get("site")
			Expect(val).To(Equal("apiary"))

			vars.Del("site")
			val, _ = vars.Get("site")
			Expect(val).To(Equal("apiary"))
		})

		It("should count the flattened hierarchy in Len", func() {
			vars.Wrap(defaults)
			Expect(vars.Len()).To(Equal(2))
			vars.Set("queen", "b-001")
			Expect(vars.Len()).To(Equal(3))
		})
	})

	When("a map is copied", func() {
		It("should produce an independent map with the same parent", func() {
			vars.Wrap(defaults)
			cp := vars.Copy()

			cp.Set("mode", "draining")
			val, _ := vars.Get("mode")
			Expect(val).To(Equal("secure"))

			val, ok := cp.Get("site")
			Expect(ok).To(BeTrue())
			Expect(val).To(Equal("apiary"))
		})

		It("should detach raw copies from the hierarchy", func() {
			vars.Wrap(defaults)
			raw := vars.RawCopy()
			Expect(raw).To(Equal(map[string]string{"mode": "secure"}))

			raw["mode"] = "draining"
			val, _ := vars.Get("mode")
			Expect(val).To(Equal("secure"))
		})
	})

	Describe("flattening a stack of maps", func() {
		It("should merge bottom-up with later maps overriding", func() {
			top := MakeMapWithMap(map[string]string{"mode": "draining"})
			flattened, err := FlattenStack[string, string](defaults, vars, top)
			Expect(err).NotTo(HaveOccurred())
			Expect(flattened).To(Equal(map[string]string{
				"site": "apiary",
				"mode": "draining",
			}))
		})
	})
})

func TestGeraMap(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Hierarchical Map Test Suite")
}
