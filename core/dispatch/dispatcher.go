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

// Package dispatch composes independent transition hubs into a fixed
// parent-child delegation tree (queen, princess, drone tiers) and relays
// events between tiers according to a static routing table. The dispatcher
// is stateless routing logic; all machine state lives in the per-tier hubs.
package dispatch

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/swarmind/hive/common/event"
	"github.com/swarmind/hive/common/logger"
	"github.com/swarmind/hive/core/metrics"
	"github.com/swarmind/hive/core/sm"
)

var log = logger.New(logrus.StandardLogger(), "dispatch")

// TierID identifies one level of the delegation tree.
type TierID string

func (t TierID) String() string {
	return string(t)
}

// Dispatcher relays events between tiers. Sibling hubs are independent
// single-writer domains, so a broadcast drives them concurrently; the
// dispatcher waits for all to settle and assumes no ordering between
// sibling completions.
type Dispatcher struct {
	mu       sync.RWMutex
	tiers    map[TierID]*sm.Hub
	children map[TierID][]TierID
	routes   *RoutingTable
	pool     pond.Pool
	sink     sm.EventSink
}

func NewDispatcher(routes *RoutingTable) *Dispatcher {
	return &Dispatcher{
		tiers:    make(map[TierID]*sm.Hub),
		children: make(map[TierID][]TierID),
		routes:   routes,
		pool:     pond.NewPool(16),
	}
}

// SetEventSink attaches an audit sink for routed events, usually an
// event.Writer bound to the dispatch topic.
func (d *Dispatcher) SetEventSink(sink sm.EventSink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sink = sink
}

// RegisterTier associates a hub with a tier identifier. No two tiers may
// share an identifier.
func (d *Dispatcher) RegisterTier(id TierID, hub *sm.Hub) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.tiers[id]; exists {
		return TierAlreadyRegisteredError{tierErrorBase{tierId: id}}
	}
	d.tiers[id] = hub
	return nil
}

// SetParent places a registered tier under a registered parent in the
// delegation tree. Broadcasts from the parent fan out to its children.
func (d *Dispatcher) SetParent(child, parent TierID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.tiers[child]; !exists {
		return TierNotFoundError{tierErrorBase{tierId: child}}
	}
	if _, exists := d.tiers[parent]; !exists {
		return TierNotFoundError{tierErrorBase{tierId: parent}}
	}
	d.children[parent] = append(d.children[parent], child)
	return nil
}

// Tier returns the hub registered for the given tier.
func (d *Dispatcher) Tier(id TierID) (*sm.Hub, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	hub, ok := d.tiers[id]
	return hub, ok
}

// Tiers returns all registered tier identifiers, sorted.
func (d *Dispatcher) Tiers() []TierID {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]TierID, 0, len(d.tiers))
	for id := range d.tiers {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Children returns the child tiers of the given tier, in registration order.
func (d *Dispatcher) Children(id TierID) []TierID {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]TierID, len(d.children[id]))
	copy(out, d.children[id])
	return out
}

// Route looks up the routing table entry for (fromTier, event type) and
// forwards the event. A unicast entry returns the target hub's transition
// result unchanged; a broadcast entry forwards to all child tiers
// concurrently and returns a nil result on success.
func (d *Dispatcher) Route(ctx context.Context, fromTier TierID, ev sm.Event) (*sm.TransitionResult, error) {
	d.mu.RLock()
	_, known := d.tiers[fromTier]
	d.mu.RUnlock()
	if !known {
		return nil, TierNotFoundError{tierErrorBase{tierId: fromTier}}
	}

	metrics.RouteCount.WithLabelValues(string(fromTier)).Inc()

	target, ok := d.routes.Lookup(fromTier, ev.Type)
	if !ok {
		err := UnroutableEventError{tierErrorBase: tierErrorBase{tierId: fromTier}, event: ev.Type}
		d.observe(fromTier, ev, nil, false, err)
		return nil, err
	}

	if target.Broadcast {
		return nil, d.broadcast(ctx, fromTier, ev)
	}

	d.mu.RLock()
	hub, registered := d.tiers[target.Tier]
	d.mu.RUnlock()
	if !registered {
		err := TierNotFoundError{tierErrorBase{tierId: target.Tier}}
		d.observe(fromTier, ev, []TierID{target.Tier}, false, err)
		return nil, err
	}

	result, err := hub.Transition(ctx, ev)
	d.observe(fromTier, ev, []TierID{target.Tier}, false, err)
	return result, err
}

// broadcast fans the event out to all children of fromTier and waits for all
// of them to settle. Failures are aggregated; committed siblings are not
// rolled back.
func (d *Dispatcher) broadcast(ctx context.Context, fromTier TierID, ev sm.Event) error {
	d.mu.RLock()
	childIds := make([]TierID, len(d.children[fromTier]))
	copy(childIds, d.children[fromTier])
	hubs := make([]*sm.Hub, len(childIds))
	for i, id := range childIds {
		hubs[i] = d.tiers[id]
	}
	d.mu.RUnlock()

	if len(childIds) == 0 {
		d.observe(fromTier, ev, nil, true, nil)
		return nil
	}

	childErrs := make([]error, len(childIds))
	group := d.pool.NewGroup()
	for i := range childIds {
		i := i
		group.Submit(func() {
			_, childErrs[i] = hubs[i].Transition(ctx, ev)
		})
	}
	_ = group.Wait()

	var first error
	var all *multierror.Error
	failed := make([]TierID, 0)
	for i, err := range childErrs {
		if err == nil {
			continue
		}
		if first == nil {
			first = err
		}
		failed = append(failed, childIds[i])
		all = multierror.Append(all, err)
	}

	if first == nil {
		d.observe(fromTier, ev, childIds, true, nil)
		return nil
	}

	bErr := BroadcastError{
		tierErrorBase: tierErrorBase{tierId: fromTier},
		event:         ev.Type,
		FailedTiers:   failed,
		First:         first,
		All:           all.ErrorOrNil(),
	}
	d.observe(fromTier, ev, childIds, true, bErr)
	return bErr
}

func (d *Dispatcher) observe(fromTier TierID, ev sm.Event, toTiers []TierID, broadcast bool, err error) {
	if err != nil {
		metrics.RouteErrorCount.WithLabelValues(string(fromTier)).Inc()
		log.WithField("tier", fromTier).
			WithField("event", ev.Type).
			Warnf("dispatch failed: %v", err)
	}

	d.mu.RLock()
	sink := d.sink
	d.mu.RUnlock()
	if sink == nil {
		return
	}

	names := make([]string, len(toTiers))
	for i, t := range toTiers {
		names[i] = string(t)
	}
	e := &event.DispatchEvent{
		Timestamp: time.Now().UnixMilli(),
		FromTier:  string(fromTier),
		ToTiers:   names,
		Event:     ev.Type.String(),
		Broadcast: broadcast,
	}
	if err != nil {
		e.Error = err.Error()
	}
	sink.WriteEvent(e)
}
