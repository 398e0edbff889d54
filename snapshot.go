package kinetic

import (
	"github.com/vango-dev/kinetic/pkg/anim"
	"github.com/vango-dev/kinetic/pkg/reactive"
)

// Snapshot is a point-in-time view of a runtime, used by the inspector and
// the recorder. It is assembled from several locks and is not atomic with
// respect to concurrent writers.
type Snapshot struct {
	Seq        uint64               `json:"seq"`
	State      string               `json:"state"`
	Graph      reactive.Stats       `json:"graph"`
	Animations anim.Counts          `json:"animations"`
	Springs    []anim.SpringState   `json:"springs"`
	Keyframes  []anim.KeyframeState `json:"keyframes"`
	Machines   []MachineState       `json:"machines"`
	Widgets    []WidgetState        `json:"widgets"`
}

// Snapshot captures the current state of the runtime. It works in every
// lifecycle state.
func (rt *Runtime) Snapshot() Snapshot {
	return Snapshot{
		Seq:        rt.clock.Seq(),
		State:      lifecycle(rt.state.Load()).String(),
		Graph:      rt.graph.Stats(),
		Animations: rt.anims.Counts(),
		Springs:    rt.anims.Springs(),
		Keyframes:  rt.anims.Keyframes(),
		Machines:   rt.machineStates(),
		Widgets:    rt.widgetStates(),
	}
}
