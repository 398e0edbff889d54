package fsm

import (
	"sort"
	"sync"

	kerrors "github.com/vango-dev/kinetic/internal/errors"
)

// ErrStaleMachine is returned for ids of removed or unknown machines.
var ErrStaleMachine = kerrors.New(kerrors.CodeStaleHandle)

// InstanceID identifies a machine in a Runtime. Ids are never reused.
type InstanceID uint64

// Runtime is an arena of machines addressed by plain integer ids, so that
// machines survive widget rebuilds as long as the owner keeps the id.
type Runtime struct {
	mu       sync.RWMutex
	machines map[InstanceID]*Machine
	nextID   InstanceID
	defaults []MachineOption
}

// NewRuntime creates an empty arena. defaults are applied to every machine
// before the per-machine options.
func NewRuntime(defaults ...MachineOption) *Runtime {
	return &Runtime{
		machines: make(map[InstanceID]*Machine),
		defaults: defaults,
	}
}

// Create adds a machine for t and returns its id.
func (r *Runtime) Create(t *Table, opts ...MachineOption) InstanceID {
	all := make([]MachineOption, 0, len(r.defaults)+len(opts))
	all = append(all, r.defaults...)
	all = append(all, opts...)
	m := NewMachine(t, all...)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.machines[r.nextID] = m
	return r.nextID
}

// Get returns the machine behind id.
func (r *Runtime) Get(id InstanceID) (*Machine, error) {
	r.mu.RLock()
	m, ok := r.machines[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrStaleMachine.WithSubject("machine %d", id)
	}
	return m, nil
}

// Send delivers event to machine id. See Machine.Send.
func (r *Runtime) Send(id InstanceID, event EventID) (StateID, error) {
	m, err := r.Get(id)
	if err != nil {
		return 0, err
	}
	return m.Send(event)
}

// Current returns the state of machine id.
func (r *Runtime) Current(id InstanceID) (StateID, error) {
	m, err := r.Get(id)
	if err != nil {
		return 0, err
	}
	return m.Current(), nil
}

// Remove drops machine id. Removing an unknown id is a no-op.
func (r *Runtime) Remove(id InstanceID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.machines, id)
}

// Len returns the number of live machines.
func (r *Runtime) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.machines)
}

// IDs returns the live machine ids in ascending order.
func (r *Runtime) IDs() []InstanceID {
	r.mu.RLock()
	ids := make([]InstanceID, 0, len(r.machines))
	for id := range r.machines {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
