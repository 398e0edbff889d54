package fsm

import (
	"fmt"

	"gopkg.in/yaml.v3"

	kerrors "github.com/vango-dev/kinetic/internal/errors"
)

// Definition is the declarative form of a table, as found in kinetic.yaml:
//
//	name: button
//	initial: idle
//	states: [idle, hovered, pressed]
//	events: [pointer-enter, pointer-leave, pointer-down, pointer-up]
//	transitions:
//	  - {from: idle, event: pointer-enter, to: hovered}
//	  - from: hovered
//	    event: pointer-down
//	    to: pressed
//	    guard: {kind: signal-truthy, target: enabled}
//	entry:
//	  pressed:
//	    - {kind: spring-target, target: scale, value: 0.95}
//
// States and events get ids from their position in the lists. Guard and
// action targets are names resolved through Bindings at compile time.
type Definition struct {
	Name        string                 `yaml:"name"`
	Initial     string                 `yaml:"initial"`
	States      []string               `yaml:"states"`
	Events      []string               `yaml:"events"`
	Transitions []TransitionDef        `yaml:"transitions"`
	Entry       map[string][]ActionDef `yaml:"entry,omitempty"`
	Exit        map[string][]ActionDef `yaml:"exit,omitempty"`

	// File is the source path used in error locations.
	File string `yaml:"-"`

	line int
}

// TransitionDef is one transition of a Definition.
type TransitionDef struct {
	From    string      `yaml:"from"`
	Event   string      `yaml:"event"`
	To      string      `yaml:"to"`
	Guard   *GuardDef   `yaml:"guard,omitempty"`
	Actions []ActionDef `yaml:"actions,omitempty"`

	line int
}

// GuardDef is the declarative form of a Guard.
type GuardDef struct {
	Kind      string  `yaml:"kind"`
	Target    string  `yaml:"target,omitempty"`
	Threshold float64 `yaml:"threshold,omitempty"`

	line int
}

// ActionDef is the declarative form of an Action.
type ActionDef struct {
	Kind   string  `yaml:"kind"`
	Target string  `yaml:"target,omitempty"`
	Value  float64 `yaml:"value,omitempty"`

	line int
}

// UnmarshalYAML records the source line for error reporting.
func (d *Definition) UnmarshalYAML(n *yaml.Node) error {
	type plain Definition
	if err := n.Decode((*plain)(d)); err != nil {
		return err
	}
	d.line = n.Line
	return nil
}

// UnmarshalYAML records the source line for error reporting.
func (t *TransitionDef) UnmarshalYAML(n *yaml.Node) error {
	type plain TransitionDef
	if err := n.Decode((*plain)(t)); err != nil {
		return err
	}
	t.line = n.Line
	return nil
}

// UnmarshalYAML records the source line for error reporting.
func (g *GuardDef) UnmarshalYAML(n *yaml.Node) error {
	type plain GuardDef
	if err := n.Decode((*plain)(g)); err != nil {
		return err
	}
	g.line = n.Line
	return nil
}

// UnmarshalYAML records the source line for error reporting.
func (a *ActionDef) UnmarshalYAML(n *yaml.Node) error {
	type plain ActionDef
	if err := n.Decode((*plain)(a)); err != nil {
		return err
	}
	a.line = n.Line
	return nil
}

// ParseDefinition decodes a single YAML definition.
func ParseDefinition(data []byte, file string) (*Definition, error) {
	var d Definition
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, kerrors.New(kerrors.CodeInvalidConfig).WithSubject("%s", file).Wrap(err)
	}
	d.File = file
	return &d, nil
}

// Bindings resolves the names a Definition refers to.
type Bindings struct {
	// Targets maps guard and action target names to host handles.
	Targets map[string]uint64

	// Guards provides the functions for guards of kind "func".
	Guards map[string]func() (bool, error)

	// Callbacks provides the functions for actions of kind "callback".
	Callbacks map[string]func() error
}

// StateID returns the id of the named state.
func (d *Definition) StateID(name string) (StateID, bool) {
	for i, s := range d.States {
		if s == name {
			return StateID(i), true
		}
	}
	return 0, false
}

// EventID returns the id of the named event.
func (d *Definition) EventID(name string) (EventID, bool) {
	for i, e := range d.Events {
		if e == name {
			return EventID(i), true
		}
	}
	return 0, false
}

// Validate checks the definition without resolving targets: names must be
// unique and declared, and kinds must be known.
func (d *Definition) Validate() error {
	if len(d.States) == 0 {
		return d.fail(d.line, "machine %q declares no states", d.Name)
	}
	if err := unique(d.States, "state"); err != nil {
		return d.fail(d.line, "machine %q: %v", d.Name, err)
	}
	if err := unique(d.Events, "event"); err != nil {
		return d.fail(d.line, "machine %q: %v", d.Name, err)
	}
	if d.Initial != "" {
		if _, ok := d.StateID(d.Initial); !ok {
			return d.unknown(d.line, "initial state %q", d.Initial)
		}
	}
	for _, t := range d.Transitions {
		if _, ok := d.StateID(t.From); !ok {
			return d.unknown(t.line, "state %q", t.From)
		}
		if _, ok := d.StateID(t.To); !ok {
			return d.unknown(t.line, "state %q", t.To)
		}
		if _, ok := d.EventID(t.Event); !ok {
			return d.unknown(t.line, "event %q", t.Event)
		}
		if t.Guard != nil {
			if _, ok := guardKindByName(t.Guard.Kind); !ok {
				return d.fail(t.Guard.line, "unknown guard kind %q", t.Guard.Kind)
			}
		}
		if err := d.validateActions(t.Actions); err != nil {
			return err
		}
	}
	for _, group := range []map[string][]ActionDef{d.Entry, d.Exit} {
		for state, actions := range group {
			if _, ok := d.StateID(state); !ok {
				return d.unknown(d.line, "state %q", state)
			}
			if err := d.validateActions(actions); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Definition) validateActions(actions []ActionDef) error {
	for _, a := range actions {
		if _, ok := actionKindByName(a.Kind); !ok {
			return d.fail(a.line, "unknown action kind %q", a.Kind)
		}
	}
	return nil
}

// Compile validates the definition and builds its table.
func (d *Definition) Compile(b Bindings) (*Table, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	initial := StateID(0)
	if d.Initial != "" {
		initial, _ = d.StateID(d.Initial)
	}
	builder := NewBuilder(initial)
	for i, s := range d.States {
		builder.NameState(StateID(i), s)
	}
	for i, e := range d.Events {
		builder.NameEvent(EventID(i), e)
	}

	for _, td := range d.Transitions {
		from, _ := d.StateID(td.From)
		to, _ := d.StateID(td.To)
		ev, _ := d.EventID(td.Event)
		tr := Transition{From: from, Event: ev, To: to}
		if td.Guard != nil {
			g, err := d.compileGuard(*td.Guard, b)
			if err != nil {
				return nil, err
			}
			tr.Guard = &g
		}
		actions, err := d.compileActions(td.Actions, b)
		if err != nil {
			return nil, err
		}
		tr.Actions = actions
		builder.Add(tr)
	}

	for state, defs := range d.Entry {
		s, _ := d.StateID(state)
		actions, err := d.compileActions(defs, b)
		if err != nil {
			return nil, err
		}
		builder.OnEntry(s, actions...)
	}
	for state, defs := range d.Exit {
		s, _ := d.StateID(state)
		actions, err := d.compileActions(defs, b)
		if err != nil {
			return nil, err
		}
		builder.OnExit(s, actions...)
	}
	return builder.Build()
}

func (d *Definition) compileGuard(gd GuardDef, b Bindings) (Guard, error) {
	kind, _ := guardKindByName(gd.Kind)
	g := Guard{Kind: kind, Name: guardLabel(gd), Threshold: gd.Threshold}
	if kind == GuardFunc {
		fn, ok := b.Guards[gd.Target]
		if !ok {
			return Guard{}, d.unknown(gd.line, "guard func %q", gd.Target)
		}
		g.Fn = fn
		return g, nil
	}
	id, ok := b.Targets[gd.Target]
	if !ok {
		return Guard{}, d.unknown(gd.line, "guard target %q", gd.Target)
	}
	g.Target = id
	return g, nil
}

func (d *Definition) compileActions(defs []ActionDef, b Bindings) ([]Action, error) {
	out := make([]Action, 0, len(defs))
	for _, ad := range defs {
		kind, _ := actionKindByName(ad.Kind)
		a := Action{Kind: kind, Value: ad.Value}
		if kind == ActionCallback {
			fn, ok := b.Callbacks[ad.Target]
			if !ok {
				return nil, d.unknown(ad.line, "callback %q", ad.Target)
			}
			a.Name = ad.Target
			a.Fn = fn
		} else {
			id, ok := b.Targets[ad.Target]
			if !ok {
				return nil, d.unknown(ad.line, "action target %q", ad.Target)
			}
			a.Target = id
			a.Name = actionLabel(ad)
		}
		out = append(out, a)
	}
	return out, nil
}

func guardLabel(gd GuardDef) string {
	switch gd.Kind {
	case "func":
		return gd.Target
	case "signal-above", "signal-below":
		return fmt.Sprintf("%s(%s, %g)", gd.Kind, gd.Target, gd.Threshold)
	}
	return fmt.Sprintf("%s(%s)", gd.Kind, gd.Target)
}

func actionLabel(ad ActionDef) string {
	switch ad.Kind {
	case "stop-keyframe", "start-timeline", "stop-timeline":
		return fmt.Sprintf("%s(%s)", ad.Kind, ad.Target)
	}
	return fmt.Sprintf("%s(%s, %g)", ad.Kind, ad.Target, ad.Value)
}

func (d *Definition) fail(line int, format string, args ...any) error {
	e := kerrors.New(kerrors.CodeInvalidConfig).WithDetail(fmt.Sprintf(format, args...))
	if d.Name != "" {
		e = e.WithSubject("machine %s", d.Name)
	}
	if d.File != "" && line > 0 {
		e = e.WithLocation(d.File, line, 0)
	}
	return e
}

func (d *Definition) unknown(line int, format string, args ...any) error {
	e := kerrors.New(kerrors.CodeUnknownName).WithSubject(format, args...)
	if d.File != "" && line > 0 {
		e = e.WithLocation(d.File, line, 0)
	}
	return e
}

func unique(names []string, what string) error {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n == "" {
			return fmt.Errorf("empty %s name", what)
		}
		if _, dup := seen[n]; dup {
			return fmt.Errorf("duplicate %s %q", what, n)
		}
		seen[n] = struct{}{}
	}
	return nil
}

func guardKindByName(name string) (GuardKind, bool) {
	for k, n := range guardKindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

func actionKindByName(name string) (ActionKind, bool) {
	for k, n := range actionKindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}
