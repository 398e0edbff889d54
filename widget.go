package kinetic

import (
	"sort"

	"github.com/vango-dev/kinetic/pkg/anim"
	"github.com/vango-dev/kinetic/pkg/fsm"
	"github.com/vango-dev/kinetic/pkg/reactive"
)

// WidgetID identifies a mounted widget. Ids are never reused.
type WidgetID uint64

// widget is the arena record of a mounted widget. It owns its handles by
// id only; dropping the record releases everything it lists.
type widget struct {
	id    WidgetID
	key   string
	scope *reactive.Scope

	machines  map[string]fsm.InstanceID
	springs   []anim.SpringID
	keyframes []anim.KeyframeID
	timelines []anim.TimelineID
}

// CreateOption configures how a signal, effect, machine or animation is
// created.
type CreateOption func(*createOptions)

type createOptions struct {
	widget WidgetID
	name   string

	initial     fsm.StateID
	initialName string
	hasInitial  bool
}

// InWidget makes the mounted widget id the owner. Owned state is released
// when the widget is unmounted.
func InWidget(id WidgetID) CreateOption {
	return func(o *createOptions) {
		o.widget = id
	}
}

// Named names a machine. Within a widget, creating a machine under a name
// that already exists returns the existing machine, so machine state
// survives widget rebuilds.
func Named(name string) CreateOption {
	return func(o *createOptions) {
		o.name = name
	}
}

// StartIn starts a machine in state s instead of its table's initial
// state. It only applies to machines.
func StartIn(s fsm.StateID) CreateOption {
	return func(o *createOptions) {
		o.initial = s
		o.initialName = ""
		o.hasInitial = true
	}
}

// StartInState is StartIn with the state given by name, resolved against
// the machine's table.
func StartInState(name string) CreateOption {
	return func(o *createOptions) {
		o.initialName = name
		o.hasInitial = true
	}
}

func collect(opts []CreateOption) createOptions {
	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// owner resolves the widget named by o. It returns nil when no widget was
// requested. Callers must hold rt.mu.
func (rt *Runtime) ownerLocked(o createOptions) (*widget, error) {
	if o.widget == 0 {
		return nil, nil
	}
	w, ok := rt.widgets[o.widget]
	if !ok {
		return nil, ErrStaleHandle.WithSubject("widget %d", o.widget)
	}
	return w, nil
}

// scopeFor returns the reactive scope new nodes should belong to.
func (rt *Runtime) scopeFor(o createOptions) (*reactive.Scope, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	w, err := rt.ownerLocked(o)
	if err != nil || w == nil {
		return nil, err
	}
	return w.scope, nil
}

// adopt records a handle on its owning widget. If the widget was unmounted
// in the meantime, release is called and a stale handle error returned.
func (rt *Runtime) adopt(o createOptions, add func(*widget), release func()) error {
	if o.widget == 0 {
		return nil
	}
	rt.mu.Lock()
	w, err := rt.ownerLocked(o)
	if err == nil {
		add(w)
	}
	rt.mu.Unlock()
	if err != nil {
		release()
	}
	return err
}

// =============================================================================
// Mounting
// =============================================================================

// Mount registers a widget under a stable key and returns its id. Mounting
// a key that is already mounted returns the existing id, so a rebuilt
// widget finds its machines and animations again.
func (rt *Runtime) Mount(key string) (WidgetID, error) {
	if err := rt.check(); err != nil {
		return 0, err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if id, ok := rt.widgetKeys[key]; ok {
		return id, nil
	}
	rt.nextWidget++
	w := &widget{
		id:       rt.nextWidget,
		key:      key,
		scope:    rt.graph.NewScope(nil),
		machines: make(map[string]fsm.InstanceID),
	}
	rt.widgets[w.id] = w
	rt.widgetKeys[key] = w.id
	rt.logger.Debug("widget mounted", "key", key, "widget", w.id)
	return w.id, nil
}

// Unmount tears down the widget with the given key: its timelines,
// keyframe animations, springs and machines are removed and its reactive
// scope is disposed. Unmounting an unknown key is a no-op and reports
// false.
func (rt *Runtime) Unmount(key string) (bool, error) {
	if err := rt.check(); err != nil {
		return false, err
	}
	return rt.unmount(key), nil
}

func (rt *Runtime) unmount(key string) bool {
	rt.mu.Lock()
	id, ok := rt.widgetKeys[key]
	if !ok {
		rt.mu.Unlock()
		return false
	}
	w := rt.widgets[id]
	delete(rt.widgetKeys, key)
	delete(rt.widgets, id)
	for _, mid := range w.machines {
		delete(rt.names, mid)
		delete(rt.owners, mid)
	}
	rt.mu.Unlock()

	for _, tid := range w.timelines {
		_ = rt.anims.RemoveTimeline(tid)
	}
	for _, kid := range w.keyframes {
		_ = rt.anims.RemoveKeyframes(kid)
	}
	for _, sid := range w.springs {
		_ = rt.anims.RemoveSpring(sid)
	}
	for _, mid := range w.machines {
		rt.machines.Remove(mid)
	}
	w.scope.Dispose()

	rt.logger.Debug("widget unmounted", "key", key, "widget", id)
	return true
}

// Widget returns the id of the widget mounted under key.
func (rt *Runtime) Widget(key string) (WidgetID, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	id, ok := rt.widgetKeys[key]
	return id, ok
}

// WidgetMachine returns the machine a widget created under name.
func (rt *Runtime) WidgetMachine(id WidgetID, name string) (fsm.InstanceID, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	w, ok := rt.widgets[id]
	if !ok {
		return 0, false
	}
	mid, ok := w.machines[name]
	return mid, ok
}

// WidgetState is a point-in-time view of one mounted widget.
type WidgetState struct {
	ID        WidgetID `json:"id"`
	Key       string   `json:"key"`
	Nodes     int      `json:"nodes"`
	Machines  int      `json:"machines"`
	Springs   int      `json:"springs"`
	Keyframes int      `json:"keyframes"`
	Timelines int      `json:"timelines"`
}

func (rt *Runtime) widgetStates() []WidgetState {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	out := make([]WidgetState, 0, len(rt.widgets))
	for _, w := range rt.widgets {
		out = append(out, WidgetState{
			ID:        w.id,
			Key:       w.key,
			Nodes:     w.scope.Len(),
			Machines:  len(w.machines),
			Springs:   len(w.springs),
			Keyframes: len(w.keyframes),
			Timelines: len(w.timelines),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
