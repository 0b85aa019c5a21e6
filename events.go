package strata

import (
	"bytes"

	"github.com/akmonengine/strata/actor"
	"github.com/akmonengine/strata/constraint"
)

const (
	TRIGGER_ENTER EventType = iota
	COLLISION_ENTER
	TRIGGER_STAY
	COLLISION_STAY
	TRIGGER_EXIT
	COLLISION_EXIT
	ON_FLOOR_RESET
)

// pairKey identifies a body pair, or a body against the static mesh when bodyB is nil.
type pairKey struct {
	bodyA *actor.RigidBody
	bodyB *actor.RigidBody
}

// makePairKey orders the bodies by ID so that (A, B) and (B, A) give the same key on
// every run and every host. The mesh always comes second.
func makePairKey(bodyA, bodyB *actor.RigidBody) pairKey {
	if bodyA == nil {
		bodyA, bodyB = bodyB, bodyA
	}
	if bodyB != nil && bytes.Compare(bodyB.ID[:], bodyA.ID[:]) < 0 {
		bodyA, bodyB = bodyB, bodyA
	}

	return pairKey{bodyA: bodyA, bodyB: bodyB}
}

type EventType uint8

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// Trigger events. BodyB is nil when the other side is the static mesh.
type TriggerEnterEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e TriggerEnterEvent) Type() EventType { return TRIGGER_ENTER }

type TriggerStayEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e TriggerStayEvent) Type() EventType { return TRIGGER_STAY }

type TriggerExitEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e TriggerExitEvent) Type() EventType { return TRIGGER_EXIT }

// Collision events. BodyB is nil when the other side is the static mesh.
type CollisionEnterEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e CollisionEnterEvent) Type() EventType { return COLLISION_ENTER }

type CollisionStayEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e CollisionStayEvent) Type() EventType { return COLLISION_STAY }

type CollisionExitEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e CollisionExitEvent) Type() EventType { return COLLISION_EXIT }

// FloorResetEvent is emitted when a body fell below the world floor and was moved back.
type FloorResetEvent struct {
	Body *actor.RigidBody
}

func (e FloorResetEvent) Type() EventType { return ON_FLOOR_RESET }

// EventListener - callback for events
type EventListener func(event Event)

// activePairs keeps the pairs of one tick in first-contact order.
type activePairs struct {
	order   []pairKey
	trigger map[pairKey]bool
}

func newActivePairs() activePairs {
	return activePairs{trigger: make(map[pairKey]bool)}
}

func (p *activePairs) add(key pairKey, isTrigger bool) {
	previous, ok := p.trigger[key]
	if !ok {
		p.order = append(p.order, key)
	}
	p.trigger[key] = previous || isTrigger
}

func (p *activePairs) has(key pairKey) bool {
	_, ok := p.trigger[key]
	return ok
}

func (p *activePairs) remove(body *actor.RigidBody) {
	n := 0
	for _, key := range p.order {
		if key.bodyA == body || key.bodyB == body {
			delete(p.trigger, key)
			continue
		}
		p.order[n] = key
		n++
	}
	p.order = p.order[:n]
}

func (p *activePairs) reset() {
	p.order = p.order[:0]
	clear(p.trigger)
}

// Events manager. Events are buffered during Step and dispatched in a deterministic
// order at its end.
type Events struct {
	// Listeners by event type
	listeners map[EventType][]EventListener

	// Event buffer to send at flush
	buffer []Event

	// Collision tracking for Enter/Stay/Exit detection
	previousActivePairs activePairs
	currentActivePairs  activePairs
}

func NewEvents() Events {
	return Events{
		listeners:           make(map[EventType][]EventListener),
		buffer:              make([]Event, 0, 256),
		previousActivePairs: newActivePairs(),
		currentActivePairs:  newActivePairs(),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	if e.listeners == nil {
		*e = NewEvents()
	}
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// recordCollisions tracks the pair of every contact and returns the contacts the solver
// must resolve, without the trigger ones. The slice is filtered in place.
func (e *Events) recordCollisions(contacts []*constraint.Contact) []*constraint.Contact {
	if e.listeners == nil {
		*e = NewEvents()
	}

	n := 0
	for _, c := range contacts {
		isTrigger := isTriggerContact(c)
		e.currentActivePairs.add(makePairKey(c.BodyA, c.BodyB), isTrigger)

		if !isTrigger {
			contacts[n] = c
			n++
		}
	}

	return contacts[:n]
}

func isTriggerContact(c *constraint.Contact) bool {
	if c.ColliderA != nil && c.ColliderA.Base().IsTrigger {
		return true
	}
	return c.ColliderB != nil && c.ColliderB.Base().IsTrigger
}

func (e *Events) emitFloorReset(body *actor.RigidBody) {
	e.buffer = append(e.buffer, FloorResetEvent{Body: body})
}

// forget drops every tracked pair involving body, without emitting Exit events.
func (e *Events) forget(body *actor.RigidBody) {
	if e.listeners == nil {
		return
	}
	e.previousActivePairs.remove(body)
	e.currentActivePairs.remove(body)
}

// processCollisionEvents compares current and previous pairs to detect Enter/Stay/Exit
func (e *Events) processCollisionEvents() {
	// Detect Enter and Stay events
	for _, pair := range e.currentActivePairs.order {
		isTrigger := e.currentActivePairs.trigger[pair]

		if e.previousActivePairs.has(pair) {
			// Pair was active before and still is, Stay
			if isTrigger {
				e.buffer = append(e.buffer, TriggerStayEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
			} else {
				e.buffer = append(e.buffer, CollisionStayEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
			}
		} else {
			// New pair, Enter
			if isTrigger {
				e.buffer = append(e.buffer, TriggerEnterEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
			} else {
				e.buffer = append(e.buffer, CollisionEnterEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
			}
		}
	}

	// Detect Exit events
	for _, pair := range e.previousActivePairs.order {
		if e.currentActivePairs.has(pair) {
			continue
		}
		// Pair was active but is no longer, Exit
		if e.previousActivePairs.trigger[pair] {
			e.buffer = append(e.buffer, TriggerExitEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
		} else {
			e.buffer = append(e.buffer, CollisionExitEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
		}
	}

	// Swap for next frame and clear current
	e.previousActivePairs, e.currentActivePairs = e.currentActivePairs, e.previousActivePairs
	e.currentActivePairs.reset()
}

// flush sends all buffered events and clears the buffer
func (e *Events) flush() {
	if e.listeners == nil {
		*e = NewEvents()
	}
	e.processCollisionEvents()

	for _, event := range e.buffer {
		for _, listener := range e.listeners[event.Type()] {
			listener(event)
		}
	}
	e.buffer = e.buffer[:0]
}
