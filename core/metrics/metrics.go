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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	Subsystem = "hive_sm"
)

var (
	TransitionCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: Subsystem,
		Name:      "transition_count",
		Help:      "The number of committed transitions, by edge.",
	}, []string{"from", "event", "to"})
	TransitionFailedCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: Subsystem,
		Name:      "transition_failed_count",
		Help:      "The number of failed transitions, by error kind.",
	}, []string{"kind"})
	TransitionLatency = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Subsystem: Subsystem,
		Name:      "transition_latency",
		Help:      "Time to settle a transition attempt, by event.",
	}, []string{"event"})
	RouteCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: Subsystem,
		Name:      "route_count",
		Help:      "The number of dispatched events, by source tier.",
	}, []string{"tier"})
	RouteErrorCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: Subsystem,
		Name:      "route_error_count",
		Help:      "The number of dispatch failures, by source tier.",
	}, []string{"tier"})
)

func init() {
	prometheus.MustRegister(
		TransitionCount,
		TransitionFailedCount,
		TransitionLatency,
		RouteCount,
		RouteErrorCount,
	)
}
