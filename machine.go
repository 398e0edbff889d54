package kinetic

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/kinetic/pkg/anim"
	"github.com/vango-dev/kinetic/pkg/fsm"
	"github.com/vango-dev/kinetic/pkg/reactive"
)

// FSMCreate starts a machine for table t in the table's initial state, or in
// the state given by StartIn or StartInState. The runtime is the machine's
// host: data guards read signals and data actions write signals and drive
// animations.
//
// With Named and InWidget, a second create for the same widget and name
// returns the first machine unchanged.
func (rt *Runtime) FSMCreate(t *fsm.Table, opts ...CreateOption) (fsm.InstanceID, error) {
	if err := rt.check(); err != nil {
		return 0, err
	}
	o := collect(opts)
	var mopts []fsm.MachineOption
	if o.hasInitial {
		initial := o.initial
		if o.initialName != "" {
			s, ok := t.StateByName(o.initialName)
			if !ok {
				return 0, ErrUnknownName.WithSubject("state %q", o.initialName)
			}
			initial = s
		} else if !t.HasState(initial) {
			return 0, ErrUnknownName.WithSubject("state %d", initial)
		}
		mopts = append(mopts, fsm.WithInitial(initial))
	}

	rt.mu.Lock()
	w, err := rt.ownerLocked(o)
	if err != nil {
		rt.mu.Unlock()
		return 0, err
	}
	if w != nil && o.name != "" {
		if id, ok := w.machines[o.name]; ok {
			rt.mu.Unlock()
			return id, nil
		}
	}
	rt.mu.Unlock()

	name := o.name
	var id fsm.InstanceID
	id = rt.machines.Create(t, append(mopts,
		fsm.OnTransition(func(s fsm.Step) { rt.transitioned(id, s) }),
		fsm.OnGuardFailure(func(g fsm.GuardFailure) { rt.guardFailed(id, g) }),
		fsm.OnActionFailure(func(a fsm.ActionFailure) { rt.actionFailed(id, a) }),
	)...)

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if w != nil {
		// The widget may have been unmounted while the lock was released.
		if _, ok := rt.widgets[w.id]; !ok {
			rt.machines.Remove(id)
			return 0, ErrStaleHandle.WithSubject("widget %d", w.id)
		}
		key := name
		if key == "" {
			key = fmt.Sprintf("#%d", id)
		}
		if existing, ok := w.machines[key]; ok {
			rt.machines.Remove(id)
			return existing, nil
		}
		w.machines[key] = id
		rt.owners[id] = w.id
	}
	rt.names[id] = name
	return id, nil
}

// FSMCreateFromConfig compiles the machine definition called name from the
// configuration and starts it. Unless a Named option is given, the machine
// is named after its definition. StartInState overrides the definition's
// initial state for this instance only.
func (rt *Runtime) FSMCreateFromConfig(name string, b fsm.Bindings, opts ...CreateOption) (fsm.InstanceID, error) {
	if err := rt.check(); err != nil {
		return 0, err
	}
	def, ok := rt.cfg.Machine(name)
	if !ok {
		return 0, ErrUnknownName.WithSubject("machine %q", name)
	}
	t, err := def.Compile(b)
	if err != nil {
		return 0, err
	}
	return rt.FSMCreate(t, append([]CreateOption{Named(name)}, opts...)...)
}

// FSMSend delivers event to machine id and returns the resulting state.
// An event with no matching transition leaves the state unchanged and is
// not an error. Errors from actions are returned joined; the transition
// still happened.
func (rt *Runtime) FSMSend(id fsm.InstanceID, event fsm.EventID) (fsm.StateID, error) {
	if err := rt.check(); err != nil {
		return 0, err
	}
	return rt.machines.Send(id, event)
}

// FSMSendName is FSMSend with the event given by its declared name.
func (rt *Runtime) FSMSendName(id fsm.InstanceID, event string) (fsm.StateID, error) {
	if err := rt.check(); err != nil {
		return 0, err
	}
	m, err := rt.machines.Get(id)
	if err != nil {
		return 0, err
	}
	ev, ok := m.Table().EventByName(event)
	if !ok {
		return m.Current(), ErrUnknownName.WithSubject("event %q", event)
	}
	return m.Send(ev)
}

// FSMState returns the current state of machine id.
func (rt *Runtime) FSMState(id fsm.InstanceID) (fsm.StateID, error) {
	if err := rt.check(); err != nil {
		return 0, err
	}
	return rt.machines.Current(id)
}

// FSMStateName returns the declared name of the current state.
func (rt *Runtime) FSMStateName(id fsm.InstanceID) (string, error) {
	if err := rt.check(); err != nil {
		return "", err
	}
	m, err := rt.machines.Get(id)
	if err != nil {
		return "", err
	}
	return m.Table().StateName(m.Current()), nil
}

// FSMRemove drops machine id. Machines owned by a widget are removed with
// it; removing an unknown id is a no-op.
func (rt *Runtime) FSMRemove(id fsm.InstanceID) {
	rt.mu.Lock()
	if wid, ok := rt.owners[id]; ok {
		if w, ok := rt.widgets[wid]; ok {
			for k, mid := range w.machines {
				if mid == id {
					delete(w.machines, k)
				}
			}
		}
		delete(rt.owners, id)
	}
	delete(rt.names, id)
	rt.mu.Unlock()
	rt.machines.Remove(id)
}

// =============================================================================
// Inspection
// =============================================================================

// MachineState is a point-in-time view of one machine.
type MachineState struct {
	ID      fsm.InstanceID `json:"id"`
	Name    string         `json:"name,omitempty"`
	Widget  WidgetID       `json:"widget,omitempty"`
	State   string         `json:"state"`
	StateID fsm.StateID    `json:"stateId"`
	Pending int            `json:"pending,omitempty"`
	History []StepRecord   `json:"history,omitempty"`
}

// StepRecord is one remembered transition with names resolved.
type StepRecord struct {
	Seq   uint64 `json:"seq"`
	From  string `json:"from"`
	Event string `json:"event"`
	To    string `json:"to"`
}

// Machine describes machine id, including its recent transitions.
func (rt *Runtime) Machine(id fsm.InstanceID) (MachineState, error) {
	m, err := rt.machines.Get(id)
	if err != nil {
		return MachineState{}, err
	}
	st := rt.describe(id, m)
	t := m.Table()
	for _, s := range m.History() {
		st.History = append(st.History, StepRecord{
			Seq:   s.Seq,
			From:  t.StateName(s.From),
			Event: t.EventName(s.Event),
			To:    t.StateName(s.To),
		})
	}
	return st, nil
}

func (rt *Runtime) describe(id fsm.InstanceID, m *fsm.Machine) MachineState {
	rt.mu.Lock()
	name, widget := rt.names[id], rt.owners[id]
	rt.mu.Unlock()
	cur := m.Current()
	return MachineState{
		ID:      id,
		Name:    name,
		Widget:  widget,
		State:   m.Table().StateName(cur),
		StateID: cur,
		Pending: m.Pending(),
	}
}

func (rt *Runtime) machineStates() []MachineState {
	ids := rt.machines.IDs()
	out := make([]MachineState, 0, len(ids))
	for _, id := range ids {
		m, err := rt.machines.Get(id)
		if err != nil {
			continue
		}
		out = append(out, rt.describe(id, m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// =============================================================================
// Machine hooks
// =============================================================================

func (rt *Runtime) machineName(id fsm.InstanceID) string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if n := rt.names[id]; n != "" {
		return n
	}
	return "anonymous"
}

func (rt *Runtime) transitioned(id fsm.InstanceID, _ fsm.Step) {
	rt.metrics.RecordTransition(rt.machineName(id))
	rt.clock.RequestFrame()
}

// guardFailed records a failing guard as a span event. The guard already
// counted as false.
func (rt *Runtime) guardFailed(id fsm.InstanceID, g fsm.GuardFailure) {
	name := rt.machineName(id)
	rt.metrics.RecordGuardFailure(name)

	_, span := rt.tracer.Start(context.Background(), "kinetic.fsm.guard",
		trace.WithAttributes(
			attribute.Int64("kinetic.machine.id", int64(id)),
			attribute.String("kinetic.machine.name", name),
		),
	)
	defer span.End()
	span.AddEvent("guard_failed", trace.WithAttributes(
		attribute.String("kinetic.guard", g.Guard.String()),
		attribute.Int64("kinetic.state", int64(g.State)),
		attribute.Int64("kinetic.event", int64(g.Event)),
	))
	span.RecordError(g.Err)
	span.SetStatus(codes.Error, g.Err.Error())
}

func (rt *Runtime) actionFailed(id fsm.InstanceID, a fsm.ActionFailure) {
	rt.logger.Warn("action failed",
		"machine", rt.machineName(id),
		"action", a.Action.String(),
		"error", a.Err,
	)
}

// =============================================================================
// fsm.Host
// =============================================================================

// Evaluate implements fsm.Host for signal guards. Signals holding bools
// and numbers are supported; other types are a type mismatch.
func (rt *Runtime) Evaluate(g fsm.Guard) (bool, error) {
	v, err := rt.graph.Value(reactive.NodeID(g.Target))
	if err != nil {
		return false, err
	}
	x, ok := numeric(v)
	if !ok {
		return false, reactive.ErrTypeMismatch.WithSubject("signal %d", g.Target).
			WithDetail(fmt.Sprintf("guard %s needs a bool or number, signal holds %T", g, v))
	}
	switch g.Kind {
	case fsm.GuardSignalTruthy:
		return x != 0, nil
	case fsm.GuardSignalFalsy:
		return x == 0, nil
	case fsm.GuardSignalAbove:
		return x > g.Threshold, nil
	case fsm.GuardSignalBelow:
		return x < g.Threshold, nil
	}
	return false, fmt.Errorf("unsupported guard kind %s", g.Kind)
}

// Execute implements fsm.Host for data actions.
func (rt *Runtime) Execute(a fsm.Action) error {
	switch a.Kind {
	case fsm.ActionSetSignal:
		id := reactive.NodeID(a.Target)
		cur, err := rt.graph.Value(id)
		if err != nil {
			return err
		}
		v, err := convertLike(cur, a.Value)
		if err != nil {
			return reactive.ErrTypeMismatch.WithSubject("signal %d", a.Target).Wrap(err)
		}
		return rt.graph.SetValue(id, v)
	case fsm.ActionSetSpringTarget:
		return rt.anims.SetSpringTarget(anim.SpringID(a.Target), float32(a.Value))
	case fsm.ActionStartKeyframe:
		return rt.anims.StartKeyframes(anim.KeyframeID(a.Target), float32(a.Value))
	case fsm.ActionStopKeyframe:
		return rt.anims.StopKeyframes(anim.KeyframeID(a.Target))
	case fsm.ActionStartTimeline:
		return rt.anims.StartTimeline(anim.TimelineID(a.Target))
	case fsm.ActionStopTimeline:
		return rt.anims.StopTimeline(anim.TimelineID(a.Target))
	}
	return fmt.Errorf("unsupported action kind %s", a.Kind)
}

// numeric maps bools and numbers to float64.
func numeric(v any) (float64, bool) {
	if b, ok := v.(bool); ok {
		if b {
			return 1, true
		}
		return 0, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// convertLike converts x to the dynamic type of cur.
func convertLike(cur any, x float64) (any, error) {
	if _, ok := cur.(bool); ok {
		return x != 0, nil
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil, fmt.Errorf("value %g is not finite", x)
	}
	rv := reflect.ValueOf(cur)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return reflect.ValueOf(x).Convert(rv.Type()).Interface(), nil
	}
	return nil, fmt.Errorf("cannot store a number in a %T signal", cur)
}
