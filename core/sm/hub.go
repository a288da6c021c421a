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
	"fmt"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/sirupsen/logrus"

	"github.com/swarmind/hive/common/event"
	"github.com/swarmind/hive/common/logger"
	"github.com/swarmind/hive/common/utils/uid"
	"github.com/swarmind/hive/core/metrics"
)

var log = logger.New(logrus.StandardLogger(), "sm")

// EventSink receives audit events emitted by the hub. A *event.Writer
// satisfies it; a nil sink disables emission.
type EventSink interface {
	WriteEvent(e interface{})
}

type guardEntry struct {
	from    StateID
	pattern string
	matcher glob.Glob // nil for exact event-type patterns
	guard   Guard
}

// Hub is the single authoritative owner of the current state of one machine.
// It orchestrates the full transition protocol, maintains the append-only
// history and supports a one-step rollback.
//
// A transition is a single-writer critical section: concurrent Transition
// calls against the same hub serialize on the transition mutex, so the
// append-only history invariant and the exactly-one-current-state invariant
// hold without cooperation from callers.
type Hub struct {
	id uid.ID

	// transitionMutex serializes transitions; mu guards reads of current
	// state, history and the degraded marker.
	transitionMutex sync.Mutex
	mu              sync.RWMutex

	registry map[StateID]State
	guards   []guardEntry
	sealed   bool

	current  State
	history  []TransitionRecord
	degraded *FatalInitFailureError

	sink        EventSink
	subscribers []chan<- event.HubEvent
}

// NewHub constructs a hub with the given initial state, which is registered
// and initialized immediately.
func NewHub(initial State) (*Hub, error) {
	hub := &Hub{
		id:       uid.New(),
		registry: make(map[StateID]State),
	}
	if initial == nil {
		return nil, fmt.Errorf("cannot construct hub with nil initial state")
	}
	hub.registry[initial.Name()] = initial
	if err := initial.Init(); err != nil {
		return nil, fmt.Errorf("initial state %s failed to initialize: %w", initial.Name(), err)
	}
	hub.current = initial
	return hub, nil
}

func (h *Hub) Id() uid.ID {
	return h.id
}

// SetEventSink attaches an audit event sink, usually an event.Writer bound
// to the hub transition topic.
func (h *Hub) SetEventSink(sink EventSink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sink = sink
}

// Subscribe attaches a channel receiving a copy of every audit event. Sends
// are non-blocking: a full channel drops the event for that subscriber.
func (h *Hub) Subscribe(ch chan<- event.HubEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers = append(h.subscribers, ch)
}

// RegisterState adds a state to the registry. The registry is read-only
// after Seal or the first transition.
func (h *Hub) RegisterState(s State) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sealed {
		return fmt.Errorf("hub %s is sealed, cannot register state %s", h.id, s.Name())
	}
	if _, exists := h.registry[s.Name()]; exists {
		return fmt.Errorf("state %s already registered", s.Name())
	}
	h.registry[s.Name()] = s
	return nil
}

// RegisterGuard attaches a guard to a (fromState, event) pair. The event may
// be a glob pattern, so a guard for (LOCKED, *) is expressible. On lookup,
// exact entries win over patterns; patterns match in registration order.
func (h *Hub) RegisterGuard(from StateID, eventPattern string, g Guard) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sealed {
		return fmt.Errorf("hub %s is sealed, cannot register guard for (%s, %s)", h.id, from, eventPattern)
	}
	entry := guardEntry{
		from:    from,
		pattern: eventPattern,
		guard:   g,
	}
	if eventPattern != string(glob.QuoteMeta(eventPattern)) {
		matcher, err := glob.Compile(eventPattern)
		if err != nil {
			return fmt.Errorf("bad guard event pattern %s: %w", eventPattern, err)
		}
		entry.matcher = matcher
	}
	h.guards = append(h.guards, entry)
	return nil
}

// Seal freezes the state registry and guard table.
func (h *Hub) Seal() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sealed = true
}

func (h *Hub) findGuard(from StateID, evType EventType) Guard {
	for _, entry := range h.guards {
		if entry.from == from && entry.matcher == nil && entry.pattern == string(evType) {
			return entry.guard
		}
	}
	for _, entry := range h.guards {
		if entry.from == from && entry.matcher != nil && entry.matcher.Match(string(evType)) {
			return entry.guard
		}
	}
	return nil
}

// CurrentState returns the identity of the current state, or NilState for a
// degraded hub.
func (h *Hub) CurrentState() StateID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.current == nil {
		return NilState
	}
	return h.current.Name()
}

// History returns a copy of the transition history; callers cannot mutate
// the log through it.
func (h *Hub) History() []TransitionRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]TransitionRecord, len(h.history))
	copy(out, h.history)
	return out
}

// ValidateInvariants delegates to the current state's CheckInvariants.
func (h *Hub) ValidateInvariants() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.current == nil {
		return false
	}
	return h.current.CheckInvariants()
}

// IsDegraded reports whether the hub suffered a fatal init failure and
// awaits an external Reset.
func (h *Hub) IsDegraded() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.degraded != nil
}

// Transition routes one event through the transition protocol. It either
// fully commits (state changed, history appended, side effects run) or
// fully fails (no mutation observable to callers), except for a fatal init
// failure which degrades the hub.
func (h *Hub) Transition(ctx context.Context, ev Event) (*TransitionResult, error) {
	h.transitionMutex.Lock()
	defer h.transitionMutex.Unlock()

	start := time.Now()

	h.mu.RLock()
	degraded := h.degraded
	current := h.current
	h.mu.RUnlock()

	if degraded != nil {
		return nil, HubDegradedError{Reason: degraded}
	}
	if err := ctx.Err(); err != nil {
		return nil, UpdateRejectedError{
			transitionErrorBase: transitionErrorBase{from: current.Name(), event: ev.Type},
			Reason:              err,
		}
	}

	from := current.Name()
	h.mu.Lock()
	h.sealed = true
	h.mu.Unlock()

	guard := h.findGuard(from, ev.Type)

	// 1. precondition, before Update is ever called
	if guard != nil && !guard.ValidatePreCondition(current) {
		err := PreconditionViolationError{transitionErrorBase{from: from, event: ev.Type}}
		h.observeFailure(from, ev, err, start)
		return nil, err
	}

	// 2. the state's own decision function
	result, updateErr := current.Update(ev)
	if updateErr != nil {
		err := UpdateRejectedError{
			transitionErrorBase: transitionErrorBase{from: from, event: ev.Type},
			Reason:              updateErr,
		}
		h.observeFailure(from, ev, err, start)
		return nil, err
	}
	if result == nil {
		err := UpdateRejectedError{
			transitionErrorBase: transitionErrorBase{from: from, event: ev.Type},
			Reason:              fmt.Errorf("state returned no transition result"),
		}
		h.observeFailure(from, ev, err, start)
		return nil, err
	}
	to := result.NextState

	// 3. policy-level permission
	if guard != nil && !guard.CanTransition(from, ev, to) {
		if result.Rollback != nil {
			result.Rollback()
		}
		err := GuardRejectedError{
			transitionErrorBase: transitionErrorBase{from: from, event: ev.Type},
			to:                  to,
		}
		h.observeFailure(from, ev, err, start)
		return nil, err
	}

	// 4. registry resolution
	h.mu.RLock()
	next, registered := h.registry[to]
	h.mu.RUnlock()
	if !registered {
		if result.Rollback != nil {
			result.Rollback()
		}
		err := UnknownStateError{
			transitionErrorBase: transitionErrorBase{from: from, event: ev.Type},
			to:                  to,
		}
		h.observeFailure(from, ev, err, start)
		return nil, err
	}

	// 5. postcondition on the resolved next state; the rollback hook only
	// clears staged data, no commit has happened yet
	if guard != nil && !guard.ValidatePostCondition(next) {
		if result.Rollback != nil {
			result.Rollback()
		}
		err := PostconditionViolationError{
			transitionErrorBase: transitionErrorBase{from: from, event: ev.Type},
			to:                  to,
		}
		h.observeFailure(from, ev, err, start)
		return nil, err
	}

	// last cancellation point: past the history append the commit runs to
	// completion
	if err := ctx.Err(); err != nil {
		if result.Rollback != nil {
			result.Rollback()
		}
		rejErr := UpdateRejectedError{
			transitionErrorBase: transitionErrorBase{from: from, event: ev.Type},
			Reason:              err,
		}
		h.observeFailure(from, ev, rejErr, start)
		return nil, rejErr
	}

	// 6. history append
	record := TransitionRecord{
		Id:        uid.New(),
		From:      from,
		Event:     ev.Type,
		To:        to,
		Timestamp: time.Now(),
	}
	h.mu.Lock()
	h.history = append(h.history, record)
	h.mu.Unlock()

	// A self-transition re-enters neither state: the instance stays live,
	// only the history grows.
	if next != current {
		// 7. next state comes up; failure here leaves the registry in an
		// inconsistent condition and degrades the hub
		if err := next.Init(); err != nil {
			return nil, h.degrade(from, ev, to, err)
		}

		// 8. outgoing state goes down; same fatality as Init, the commit is
		// already half done
		if err := current.Shutdown(); err != nil {
			return nil, h.degrade(from, ev, to, err)
		}
	}

	// 9. commit
	h.mu.Lock()
	h.current = next
	h.mu.Unlock()

	log.WithField("hub", h.id).
		WithField("from", from).
		WithField("to", to).
		Infof("%s transition committed", ev.Type)
	metrics.TransitionCount.WithLabelValues(string(from), string(ev.Type), string(to)).Inc()
	metrics.TransitionLatency.WithLabelValues(string(ev.Type)).Observe(time.Since(start).Seconds())
	h.emit(&event.HubEvent{
		HubId:    h.id.String(),
		RecordId: record.Id.String(),
		From:     from.String(),
		Event:    ev.Type.String(),
		To:       to.String(),
		Message:  "transition committed",
	})

	// 10. post-commit side effects, best-effort
	for i, effect := range result.SideEffects {
		if effect == nil {
			continue
		}
		if err := effect(); err != nil {
			log.WithField("hub", h.id).
				WithField("transition", ev.Type).
				Warnf("side effect %d failed: %v", i, err)
		}
	}

	return result, nil
}

// RollbackLastTransition restores the hub to the from state of the last
// history record and pops it. This is a full re-entry (Init and Shutdown run
// again), not a pointer swap, since states may hold live resources.
func (h *Hub) RollbackLastTransition() error {
	h.transitionMutex.Lock()
	defer h.transitionMutex.Unlock()

	h.mu.RLock()
	historyLen := len(h.history)
	degraded := h.degraded
	current := h.current
	var last TransitionRecord
	if historyLen > 0 {
		last = h.history[historyLen-1]
	}
	h.mu.RUnlock()

	if degraded != nil {
		return HubDegradedError{Reason: degraded}
	}
	if historyLen < 2 {
		return RollbackError{HistoryLen: historyLen}
	}

	h.mu.RLock()
	previous, registered := h.registry[last.From]
	h.mu.RUnlock()
	if !registered {
		return UnknownStateError{
			transitionErrorBase: transitionErrorBase{from: last.To, event: last.Event},
			to:                  last.From,
		}
	}

	if previous != current {
		if err := current.Shutdown(); err != nil {
			return h.degrade(last.To, Event{Type: last.Event}, last.From, err)
		}
		if err := previous.Init(); err != nil {
			return h.degrade(last.To, Event{Type: last.Event}, last.From, err)
		}
	}

	h.mu.Lock()
	h.history = h.history[:historyLen-1]
	h.current = previous
	h.mu.Unlock()

	log.WithField("hub", h.id).
		WithField("restored", last.From).
		Info("last transition rolled back")
	h.emit(&event.HubEvent{
		HubId:    h.id.String(),
		RecordId: last.Id.String(),
		From:     last.To.String(),
		To:       last.From.String(),
		Message:  "transition rolled back",
	})
	return nil
}

// Reset recovers a degraded hub by re-initializing the given registered
// state and clearing the degraded marker. History is kept for post-mortem.
func (h *Hub) Reset(to StateID) error {
	h.transitionMutex.Lock()
	defer h.transitionMutex.Unlock()

	h.mu.RLock()
	next, registered := h.registry[to]
	h.mu.RUnlock()
	if !registered {
		return UnknownStateError{
			transitionErrorBase: transitionErrorBase{from: NilState},
			to:                  to,
		}
	}
	if err := next.Init(); err != nil {
		return fmt.Errorf("reset of hub %s to state %s failed: %w", h.id, to, err)
	}

	h.mu.Lock()
	h.current = next
	h.degraded = nil
	h.mu.Unlock()

	log.WithField("hub", h.id).
		WithField("state", to).
		Info("hub reset")
	return nil
}

// ValidateReachability flags registered states that never appear as a
// destination in the declared transition table. Dead states point at a
// machine definition bug. The initial state is exempt.
func (h *Hub) ValidateReachability(table []Transition, initial StateID) (dead []StateID) {
	targets := make(map[StateID]bool, len(table))
	for _, t := range table {
		targets[t.Dst] = true
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for name := range h.registry {
		if name == initial {
			continue
		}
		if !targets[name] {
			dead = append(dead, name)
		}
	}
	return dead
}

func (h *Hub) degrade(from StateID, ev Event, to StateID, cause error) error {
	fatal := &FatalInitFailureError{
		transitionErrorBase: transitionErrorBase{from: from, event: ev.Type},
		to:                  to,
		Reason:              cause,
	}

	h.mu.Lock()
	h.degraded = fatal
	h.current = nil
	h.mu.Unlock()

	log.WithField("hub", h.id).
		WithField("from", from).
		WithField("to", to).
		Errorf("FATAL: %v, hub degraded until reset", cause)
	metrics.TransitionFailedCount.WithLabelValues("FatalInitFailure").Inc()
	h.emit(&event.HubEvent{
		HubId:   h.id.String(),
		From:    from.String(),
		Event:   ev.Type.String(),
		To:      to.String(),
		Error:   fatal.Error(),
		Message: "hub degraded",
	})
	return *fatal
}

func (h *Hub) observeFailure(from StateID, ev Event, err error, start time.Time) {
	metrics.TransitionFailedCount.WithLabelValues(errorKind(err)).Inc()
	metrics.TransitionLatency.WithLabelValues(string(ev.Type)).Observe(time.Since(start).Seconds())
	h.emit(&event.HubEvent{
		HubId:   h.id.String(),
		From:    from.String(),
		Event:   ev.Type.String(),
		Error:   err.Error(),
		Message: "transition rejected",
	})
}

func (h *Hub) emit(e *event.HubEvent) {
	h.mu.RLock()
	sink := h.sink
	subscribers := h.subscribers
	h.mu.RUnlock()

	e.Timestamp = time.Now().UnixMilli()
	if sink != nil {
		sink.WriteEvent(e)
	}
	for _, ch := range subscribers {
		select {
		case ch <- *e:
		default:
		}
	}
}

func errorKind(err error) string {
	switch err.(type) {
	case PreconditionViolationError:
		return "PreconditionViolation"
	case UpdateRejectedError:
		return "UpdateRejected"
	case GuardRejectedError:
		return "GuardRejected"
	case UnknownStateError:
		return "UnknownState"
	case PostconditionViolationError:
		return "PostconditionViolation"
	case FatalInitFailureError:
		return "FatalInitFailure"
	default:
		return "Unknown"
	}
}
