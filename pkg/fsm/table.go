package fsm

import (
	"fmt"
	"sort"
)

// StateID identifies a state within a table.
type StateID uint32

// EventID identifies an event within a table.
type EventID uint32

// GuardKind selects how a Guard is evaluated.
type GuardKind uint8

const (
	// GuardFunc calls Guard.Fn. It is the escape hatch for guards the host
	// cannot express as data.
	GuardFunc GuardKind = iota + 1

	// GuardSignalTruthy passes when the signal Target holds a non-zero
	// number or true.
	GuardSignalTruthy

	// GuardSignalFalsy is the negation of GuardSignalTruthy.
	GuardSignalFalsy

	// GuardSignalAbove passes when the signal Target is greater than
	// Threshold.
	GuardSignalAbove

	// GuardSignalBelow passes when the signal Target is less than Threshold.
	GuardSignalBelow
)

var guardKindNames = map[GuardKind]string{
	GuardFunc:         "func",
	GuardSignalTruthy: "signal-truthy",
	GuardSignalFalsy:  "signal-falsy",
	GuardSignalAbove:  "signal-above",
	GuardSignalBelow:  "signal-below",
}

// String returns the kind name used in definitions.
func (k GuardKind) String() string {
	if s, ok := guardKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("GuardKind(%d)", k)
}

// Guard is a condition on a transition. Guards other than GuardFunc are
// plain data evaluated by the Host.
type Guard struct {
	Kind GuardKind

	// Name labels the guard in logs and failure reports.
	Name string

	// Target is the host handle the guard inspects.
	Target uint64

	// Threshold is compared against the target for Above/Below guards.
	Threshold float64

	// Fn is called for GuardFunc.
	Fn func() (bool, error)
}

// String returns a short description.
func (g Guard) String() string {
	if g.Name != "" {
		return g.Name
	}
	switch g.Kind {
	case GuardSignalAbove:
		return fmt.Sprintf("signal %d > %g", g.Target, g.Threshold)
	case GuardSignalBelow:
		return fmt.Sprintf("signal %d < %g", g.Target, g.Threshold)
	case GuardSignalTruthy, GuardSignalFalsy:
		return fmt.Sprintf("%s(%d)", g.Kind, g.Target)
	}
	return g.Kind.String()
}

// ActionKind selects what an Action does.
type ActionKind uint8

const (
	// ActionSetSignal writes Value into the signal Target.
	ActionSetSignal ActionKind = iota + 1

	// ActionSetSpringTarget retargets the spring Target to Value.
	ActionSetSpringTarget

	// ActionStartKeyframe starts the keyframe animation Target from Value.
	ActionStartKeyframe

	// ActionStopKeyframe stops the keyframe animation Target.
	ActionStopKeyframe

	// ActionStartTimeline starts the timeline Target.
	ActionStartTimeline

	// ActionStopTimeline stops the timeline Target.
	ActionStopTimeline

	// ActionCallback calls Action.Fn.
	ActionCallback
)

var actionKindNames = map[ActionKind]string{
	ActionSetSignal:       "set-signal",
	ActionSetSpringTarget: "spring-target",
	ActionStartKeyframe:   "start-keyframe",
	ActionStopKeyframe:    "stop-keyframe",
	ActionStartTimeline:   "start-timeline",
	ActionStopTimeline:    "stop-timeline",
	ActionCallback:        "callback",
}

// String returns the kind name used in definitions.
func (k ActionKind) String() string {
	if s, ok := actionKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ActionKind(%d)", k)
}

// Action is a side effect run on entry, exit or transition.
type Action struct {
	Kind   ActionKind
	Name   string
	Target uint64
	Value  float64
	Fn     func() error
}

// String returns a short description.
func (a Action) String() string {
	if a.Name != "" {
		return a.Name
	}
	switch a.Kind {
	case ActionCallback:
		return a.Kind.String()
	case ActionStopKeyframe, ActionStartTimeline, ActionStopTimeline:
		return fmt.Sprintf("%s(%d)", a.Kind, a.Target)
	}
	return fmt.Sprintf("%s(%d, %g)", a.Kind, a.Target, a.Value)
}

// Host executes data guards and actions. The fsm package does not know
// about signals or animations; the runtime embedding it does.
type Host interface {
	Execute(a Action) error
	Evaluate(g Guard) (bool, error)
}

// Transition is one row of a transition table.
type Transition struct {
	From    StateID
	Event   EventID
	To      StateID
	Guard   *Guard
	Actions []Action
}

type transitionKey struct {
	from  StateID
	event EventID
}

// Table is an immutable transition table. Build one with a Builder or by
// compiling a Definition.
type Table struct {
	initial     StateID
	transitions []Transition
	index       map[transitionKey][]int
	entry       map[StateID][]Action
	exit        map[StateID][]Action
	stateNames  map[StateID]string
	eventNames  map[EventID]string
}

// Initial returns the initial state.
func (t *Table) Initial() StateID {
	return t.initial
}

// Len returns the number of transitions.
func (t *Table) Len() int {
	return len(t.transitions)
}

// Transitions returns a copy of the table rows in order.
func (t *Table) Transitions() []Transition {
	return append([]Transition(nil), t.transitions...)
}

// candidates returns the rows for (from, event) in table order.
func (t *Table) candidates(from StateID, event EventID) []int {
	return t.index[transitionKey{from, event}]
}

// StateName returns the declared name of s, or its number.
func (t *Table) StateName(s StateID) string {
	if n, ok := t.stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("#%d", s)
}

// EventName returns the declared name of e, or its number.
func (t *Table) EventName(e EventID) string {
	if n, ok := t.eventNames[e]; ok {
		return n
	}
	return fmt.Sprintf("#%d", e)
}

// EventByName looks up a declared event name.
func (t *Table) EventByName(name string) (EventID, bool) {
	for e, n := range t.eventNames {
		if n == name {
			return e, true
		}
	}
	return 0, false
}

// StateByName looks up a declared state name.
func (t *Table) StateByName(name string) (StateID, bool) {
	for s, n := range t.stateNames {
		if n == name {
			return s, true
		}
	}
	return 0, false
}

// HasState reports whether s is the initial state, appears in a row, has
// entry or exit actions, or has a declared name.
func (t *Table) HasState(s StateID) bool {
	if s == t.initial {
		return true
	}
	if _, ok := t.stateNames[s]; ok {
		return true
	}
	if _, ok := t.entry[s]; ok {
		return true
	}
	if _, ok := t.exit[s]; ok {
		return true
	}
	for _, tr := range t.transitions {
		if tr.From == s || tr.To == s {
			return true
		}
	}
	return false
}

// States returns every state mentioned by the table, sorted.
func (t *Table) States() []StateID {
	seen := map[StateID]struct{}{t.initial: {}}
	for _, tr := range t.transitions {
		seen[tr.From] = struct{}{}
		seen[tr.To] = struct{}{}
	}
	for s := range t.entry {
		seen[s] = struct{}{}
	}
	for s := range t.exit {
		seen[s] = struct{}{}
	}
	for s := range t.stateNames {
		seen[s] = struct{}{}
	}
	out := make([]StateID, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Builder assembles a Table.
//
//	b := fsm.NewBuilder(Idle)
//	b.On(Idle, PointerEnter, Hovered)
//	b.On(Hovered, PointerDown, Pressed, fsm.WithActions(press))
//	table, err := b.Build()
type Builder struct {
	t   Table
	err error
}

// NewBuilder starts a table with the given initial state.
func NewBuilder(initial StateID) *Builder {
	return &Builder{t: Table{
		initial:    initial,
		entry:      make(map[StateID][]Action),
		exit:       make(map[StateID][]Action),
		stateNames: make(map[StateID]string),
		eventNames: make(map[EventID]string),
	}}
}

// TransitionOption customizes a transition added with On.
type TransitionOption func(*Transition)

// WithGuard sets the transition guard.
func WithGuard(g Guard) TransitionOption {
	return func(t *Transition) {
		t.Guard = &g
	}
}

// WithActions appends transition actions, run between exit and entry.
func WithActions(actions ...Action) TransitionOption {
	return func(t *Transition) {
		t.Actions = append(t.Actions, actions...)
	}
}

// On appends a transition. Rows are matched in the order they are added.
func (b *Builder) On(from StateID, event EventID, to StateID, opts ...TransitionOption) *Builder {
	tr := Transition{From: from, Event: event, To: to}
	for _, opt := range opts {
		opt(&tr)
	}
	return b.Add(tr)
}

// Add appends a prepared transition.
func (b *Builder) Add(tr Transition) *Builder {
	if tr.Guard != nil && tr.Guard.Kind == GuardFunc && tr.Guard.Fn == nil && b.err == nil {
		b.err = fmt.Errorf("fsm: transition %d on %d has a func guard without Fn", tr.From, tr.Event)
	}
	b.t.transitions = append(b.t.transitions, tr)
	return b
}

// OnEntry appends entry actions for s.
func (b *Builder) OnEntry(s StateID, actions ...Action) *Builder {
	b.t.entry[s] = append(b.t.entry[s], actions...)
	return b
}

// OnExit appends exit actions for s.
func (b *Builder) OnExit(s StateID, actions ...Action) *Builder {
	b.t.exit[s] = append(b.t.exit[s], actions...)
	return b
}

// NameState sets the display name of s.
func (b *Builder) NameState(s StateID, name string) *Builder {
	b.t.stateNames[s] = name
	return b
}

// NameEvent sets the display name of e.
func (b *Builder) NameEvent(e EventID, name string) *Builder {
	b.t.eventNames[e] = name
	return b
}

// Build returns the finished table. The builder may keep being used; the
// table does not share state with it.
func (b *Builder) Build() (*Table, error) {
	if b.err != nil {
		return nil, b.err
	}

	t := &Table{
		initial:     b.t.initial,
		transitions: make([]Transition, len(b.t.transitions)),
		index:       make(map[transitionKey][]int),
		entry:       make(map[StateID][]Action, len(b.t.entry)),
		exit:        make(map[StateID][]Action, len(b.t.exit)),
		stateNames:  make(map[StateID]string, len(b.t.stateNames)),
		eventNames:  make(map[EventID]string, len(b.t.eventNames)),
	}
	for i, tr := range b.t.transitions {
		tr.Actions = append([]Action(nil), tr.Actions...)
		if tr.Guard != nil {
			g := *tr.Guard
			tr.Guard = &g
		}
		t.transitions[i] = tr
		k := transitionKey{tr.From, tr.Event}
		t.index[k] = append(t.index[k], i)
	}
	for s, a := range b.t.entry {
		t.entry[s] = append([]Action(nil), a...)
	}
	for s, a := range b.t.exit {
		t.exit[s] = append([]Action(nil), a...)
	}
	for s, n := range b.t.stateNames {
		t.stateNames[s] = n
	}
	for e, n := range b.t.eventNames {
		t.eventNames[e] = n
	}
	return t, nil
}
