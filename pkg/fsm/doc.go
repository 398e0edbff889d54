// Package fsm implements flat finite state machines for widget interaction
// states (idle, hovered, pressed, focused, disabled, ...).
//
// A Table is an ordered list of transitions plus entry and exit actions per
// state. Resolution is deterministic: the first row whose source state and
// event match and whose guard passes wins.
//
// Guards and actions are tagged data (GuardKind, ActionKind) that a Host
// executes, so tables can be declared in YAML and the package needs no
// knowledge of signals or animations. GuardFunc and ActionCallback are the
// escape hatches for logic that cannot be expressed as data.
//
// Hierarchical and parallel states are not supported.
package fsm
