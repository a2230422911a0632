// Package power models the display power states a watch host moves
// through and translates them into engine lifecycle callbacks.
//
//	interactive --idle--> ambient
//	ambient     --wake--> interactive
//	interactive --hide--> off
//	ambient     --hide--> off
//	off         --show--> interactive
//
// Hosts without ambient support go straight to off on idle.
package power

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/BYTE-6D65/watchface/pkg/event"
	"github.com/BYTE-6D65/watchface/pkg/render"
)

// State is a display power state.
type State string

const (
	Interactive State = "interactive"
	Ambient     State = "ambient"
	Off         State = "off"
)

// Event triggers a transition.
type Event string

const (
	Idle Event = "idle"
	Wake Event = "wake"
	Hide Event = "hide"
	Show Event = "show"
)

// ErrInvalidTransition is returned when an event has no transition from
// the current state.
var ErrInvalidTransition = errors.New("power: invalid transition")

// Display receives the engine callbacks implied by a transition.
type Display interface {
	OnVisibilityChanged(visible bool)
	OnModeChanged(mode render.Mode)
}

// TransitionHook is called after every transition.
type TransitionHook func(from, to State, ev Event)

// Machine is the display power state machine. Trigger must be called
// from the goroutine that owns the Display (the engine loop).
type Machine struct {
	mu          sync.RWMutex
	current     State
	transitions map[State]map[Event]State
	hooks       []TransitionHook

	display Display
	ambient bool
	bus     event.Bus
	source  string
}

// Option configures a Machine.
type Option func(*Machine)

// WithAmbient enables the ambient state. It is enabled by default.
func WithAmbient(enabled bool) Option {
	return func(m *Machine) {
		m.ambient = enabled
	}
}

// WithBus publishes display.visibility.changed and display.mode.changed
// events for every transition.
func WithBus(bus event.Bus, source string) Option {
	return func(m *Machine) {
		m.bus = bus
		m.source = source
	}
}

// New creates a Machine in the off state.
func New(display Display, opts ...Option) *Machine {
	m := &Machine{
		current:     Off,
		transitions: defaultTransitions(),
		display:     display,
		ambient:     true,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func defaultTransitions() map[State]map[Event]State {
	return map[State]map[Event]State{
		Interactive: {Idle: Ambient, Hide: Off},
		Ambient:     {Wake: Interactive, Hide: Off},
		Off:         {Show: Interactive},
	}
}

// Trigger applies ev to the current state.
func (m *Machine) Trigger(ctx context.Context, ev Event) error {
	m.mu.Lock()
	from := m.current
	to, ok := m.transitions[from][ev]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s on %s", ErrInvalidTransition, from, ev)
	}
	if to == Ambient && !m.ambient {
		to = Off
	}
	m.current = to
	hooks := m.hooks
	m.mu.Unlock()

	m.notify(ctx, from, to)

	for _, hook := range hooks {
		hook(from, to, ev)
	}
	return nil
}

// notify maps a transition onto display callbacks. Mode is set before
// visibility so that becoming visible starts ticking in the final mode.
func (m *Machine) notify(ctx context.Context, from, to State) {
	switch {
	case to == Off:
		m.visibility(ctx, false)
	case from == Off:
		m.mode(ctx, modeOf(to))
		m.visibility(ctx, true)
	default:
		m.mode(ctx, modeOf(to))
	}
}

func (m *Machine) visibility(ctx context.Context, visible bool) {
	if m.display != nil {
		m.display.OnVisibilityChanged(visible)
	}
	m.publish(ctx, event.TypeVisibilityChanged, event.VisibilityChanged{Visible: visible})
}

func (m *Machine) mode(ctx context.Context, mode render.Mode) {
	if m.display != nil {
		m.display.OnModeChanged(mode)
	}
	m.publish(ctx, event.TypeModeChanged, event.ModeChanged{Mode: mode.String()})
}

func (m *Machine) publish(ctx context.Context, typ string, payload any) {
	if m.bus == nil {
		return
	}
	evt, err := event.New(typ, m.source, payload, event.JSONCodec{})
	if err != nil {
		return
	}
	_ = m.bus.Publish(ctx, *evt)
}

func modeOf(s State) render.Mode {
	if s == Ambient {
		return render.ModeLowPower
	}
	return render.ModeNormal
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Can reports whether ev has a transition from the current state.
func (m *Machine) Can(ev Event) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.transitions[m.current][ev]
	return ok
}

// AvailableEvents returns the events accepted in the current state, sorted.
func (m *Machine) AvailableEvents() []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]Event, 0, len(m.transitions[m.current]))
	for ev := range m.transitions[m.current] {
		events = append(events, ev)
	}
	sort.Slice(events, func(i, j int) bool { return events[i] < events[j] })
	return events
}

// OnTransition registers a hook called after every transition.
func (m *Machine) OnTransition(hook TransitionHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook)
}
