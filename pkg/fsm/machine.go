package fsm

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// DefaultHistoryLimit is the number of transitions a machine remembers.
const DefaultHistoryLimit = 32

// ErrNoHost is reported when a data guard or action runs on a machine
// without a Host.
var ErrNoHost = errors.New("fsm: no host for data guard or action")

// Step records one completed transition.
type Step struct {
	Seq   uint64
	From  StateID
	Event EventID
	To    StateID
}

// GuardFailure describes a guard that errored or panicked.
type GuardFailure struct {
	State StateID
	Event EventID
	Guard Guard
	Err   error
}

// ActionFailure describes an action that errored or panicked.
type ActionFailure struct {
	State  StateID
	Action Action
	Err    error
}

// Machine is a running instance of a Table.
//
// Send is safe for concurrent use. Only one event is processed at a time;
// an event sent while another is being processed (from an action on the
// same goroutine, or from another goroutine) is queued and handled by the
// in-flight sender, in arrival order.
type Machine struct {
	mu      sync.Mutex
	table   *Table
	host    Host
	current StateID

	queue []EventID
	busy  bool

	history      []Step
	historyLimit int
	seq          uint64

	onTransition    func(Step)
	onGuardFailure  func(GuardFailure)
	onActionFailure func(ActionFailure)

	logger *slog.Logger
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithHost sets the host that executes data guards and actions.
func WithHost(h Host) MachineOption {
	return func(m *Machine) {
		m.host = h
	}
}

// WithHistoryLimit sets how many steps History keeps. Zero disables history.
func WithHistoryLimit(n int) MachineOption {
	return func(m *Machine) {
		if n >= 0 {
			m.historyLimit = n
		}
	}
}

// OnTransition registers a callback invoked after each transition,
// once entry actions have run.
func OnTransition(fn func(Step)) MachineOption {
	return func(m *Machine) {
		m.onTransition = fn
	}
}

// OnGuardFailure registers a callback for guards that errored or panicked.
// Such guards count as false.
func OnGuardFailure(fn func(GuardFailure)) MachineOption {
	return func(m *Machine) {
		m.onGuardFailure = fn
	}
}

// OnActionFailure registers a callback for actions that errored or
// panicked. A failing action does not stop the remaining actions.
func OnActionFailure(fn func(ActionFailure)) MachineOption {
	return func(m *Machine) {
		m.onActionFailure = fn
	}
}

// WithInitial starts the machine in s instead of the table's initial state.
// Machines sharing a table can start in different states this way.
func WithInitial(s StateID) MachineOption {
	return func(m *Machine) {
		m.current = s
	}
}

// WithMachineLogger sets the logger.
func WithMachineLogger(l *slog.Logger) MachineOption {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMachine creates a machine in the table's initial state, or the one
// given by WithInitial. Entry actions of the initial state are not run.
func NewMachine(t *Table, opts ...MachineOption) *Machine {
	m := &Machine{
		table:        t,
		current:      t.initial,
		historyLimit: DefaultHistoryLimit,
		logger:       slog.Default().With("component", "fsm"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Table returns the machine's table.
func (m *Machine) Table() *Table {
	return m.table
}

// Current returns the current state.
func (m *Machine) Current() StateID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Pending returns the number of queued events not yet processed.
func (m *Machine) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// History returns the most recent transitions, oldest first.
func (m *Machine) History() []Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Step(nil), m.history...)
}

// Send delivers an event.
//
// The first row of the table whose From is the current state, whose Event
// matches and whose guard passes is taken: exit actions of the current
// state run, then the transition's actions, then the state changes and the
// target's entry actions run. An event nothing matches is ignored and is
// not an error.
//
// Send returns the state after processing. When the event was queued behind
// an in-flight send it returns the state at the time of queuing. Action
// failures do not prevent the transition; they are returned joined.
func (m *Machine) Send(event EventID) (StateID, error) {
	m.mu.Lock()
	m.queue = append(m.queue, event)
	if m.busy {
		cur := m.current
		m.mu.Unlock()
		return cur, nil
	}
	m.busy = true

	// A panicking hook must not leave the machine busy forever; the events
	// still queued behind it are dropped.
	done := false
	defer func() {
		if !done {
			m.mu.Lock()
			m.busy = false
			m.queue = nil
			m.mu.Unlock()
		}
	}()

	var errs []error
	for len(m.queue) > 0 {
		ev := m.queue[0]
		m.queue = m.queue[1:]
		from := m.current
		m.mu.Unlock()

		errs = append(errs, m.dispatch(from, ev)...)

		m.mu.Lock()
	}
	m.busy = false
	done = true
	cur := m.current
	m.mu.Unlock()

	return cur, errors.Join(errs...)
}

// CanSend reports whether event would cause a transition from the current
// state. Guards are evaluated, so they must be side-effect free.
func (m *Machine) CanSend(event EventID) bool {
	from := m.Current()
	for _, i := range m.table.candidates(from, event) {
		tr := &m.table.transitions[i]
		if tr.Guard == nil || m.passes(from, event, *tr.Guard) {
			return true
		}
	}
	return false
}

func (m *Machine) dispatch(from StateID, event EventID) []error {
	for _, i := range m.table.candidates(from, event) {
		tr := &m.table.transitions[i]
		if tr.Guard != nil && !m.passes(from, event, *tr.Guard) {
			continue
		}

		var errs []error
		errs = append(errs, m.run(from, m.table.exit[from])...)
		errs = append(errs, m.run(from, tr.Actions)...)

		m.mu.Lock()
		m.current = tr.To
		m.seq++
		step := Step{Seq: m.seq, From: from, Event: event, To: tr.To}
		if m.historyLimit > 0 {
			m.history = append(m.history, step)
			if over := len(m.history) - m.historyLimit; over > 0 {
				m.history = append(m.history[:0], m.history[over:]...)
			}
		}
		m.mu.Unlock()

		errs = append(errs, m.run(tr.To, m.table.entry[tr.To])...)

		m.logger.Debug("transition",
			"from", m.table.StateName(from),
			"event", m.table.EventName(event),
			"to", m.table.StateName(tr.To),
		)
		if m.onTransition != nil {
			m.onTransition(step)
		}
		return errs
	}
	return nil
}

// passes evaluates a guard. Errors and panics count as false.
func (m *Machine) passes(state StateID, event EventID, g Guard) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			m.guardFailed(state, event, g, fmt.Errorf("guard panicked: %v", r))
		}
	}()

	var err error
	switch {
	case g.Kind == GuardFunc:
		if g.Fn == nil {
			err = fmt.Errorf("guard %s has no func", g)
			break
		}
		ok, err = g.Fn()
	case m.host == nil:
		err = ErrNoHost
	default:
		ok, err = m.host.Evaluate(g)
	}
	if err != nil {
		m.guardFailed(state, event, g, err)
		return false
	}
	return ok
}

func (m *Machine) guardFailed(state StateID, event EventID, g Guard, err error) {
	m.logger.Warn("guard failed",
		"state", m.table.StateName(state),
		"event", m.table.EventName(event),
		"guard", g.String(),
		"error", err,
	)
	if m.onGuardFailure != nil {
		m.onGuardFailure(GuardFailure{State: state, Event: event, Guard: g, Err: err})
	}
}

func (m *Machine) run(state StateID, actions []Action) []error {
	var errs []error
	for _, a := range actions {
		if err := m.execute(a); err != nil {
			err = fmt.Errorf("action %s in %s: %w", a, m.table.StateName(state), err)
			errs = append(errs, err)
			if m.onActionFailure != nil {
				m.onActionFailure(ActionFailure{State: state, Action: a, Err: err})
			}
		}
	}
	return errs
}

func (m *Machine) execute(a Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panicked: %v", r)
		}
	}()

	switch {
	case a.Kind == ActionCallback:
		if a.Fn == nil {
			return nil
		}
		return a.Fn()
	case m.host == nil:
		return ErrNoHost
	default:
		return m.host.Execute(a)
	}
}
