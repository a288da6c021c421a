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

package event

import (
	"encoding/json"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/segmentio/kafka-go"
)

var _ = Describe("Writer", func() {
	var (
		writer   *Writer
		messages []kafka.Message
	)

	BeforeEach(func() {
		messages = nil
		writer = &Writer{
			Writer: &kafka.Writer{},
			writeFunction: func(message kafka.Message) error {
				messages = append(messages, message)
				return nil
			},
		}
	})

	When("a hub event is written", func() {
		It("transforms it to a JSON kafka message with the given timestamp", func() {
			ts := time.Now()
			writer.WriteEventWithTimestamp(&HubEvent{
				HubId: "h-1",
				From:  "IDLE",
				Event: "LOGIN_REQUEST",
				To:    "AUTHENTICATING",
			}, ts)

			Expect(messages).To(HaveLen(1))
			decoded := &HubEvent{}
			Expect(json.Unmarshal(messages[0].Value, decoded)).To(Succeed())
			Expect(decoded.Timestamp).To(Equal(ts.UnixMilli()))
			Expect(decoded.From).To(Equal("IDLE"))
			Expect(decoded.To).To(Equal("AUTHENTICATING"))
		})
	})

	When("a dispatch event is written", func() {
		It("carries the routed tiers and broadcast flag", func() {
			writer.WriteEvent(&DispatchEvent{
				FromTier:  "princess",
				ToTiers:   []string{"drone-a", "drone-b"},
				Event:     "POWER_ON",
				Broadcast: true,
			})

			Expect(messages).To(HaveLen(1))
			decoded := &DispatchEvent{}
			Expect(json.Unmarshal(messages[0].Value, decoded)).To(Succeed())
			Expect(decoded.ToTiers).To(Equal([]string{"drone-a", "drone-b"}))
			Expect(decoded.Broadcast).To(BeTrue())
		})
	})

	When("an unsupported payload is written", func() {
		It("drops it without sending", func() {
			writer.WriteEvent(struct{}{})
			Expect(messages).To(BeEmpty())
		})
	})
})

func TestEventWriter(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Event Writer Test Suite")
}
