package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/kinetic"
	"github.com/vango-dev/kinetic/pkg/fsm"
	"github.com/vango-dev/kinetic/pkg/recorder"
)

type simulateOptions struct {
	preset       string
	from, to     float32
	frames       int
	dt           float32
	untilSettled bool
	machine      string
	events       []string
	record       bool
	session      string
	jsonOut      bool
}

func simulateCmd(g *globals) *cobra.Command {
	o := &simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a scripted simulation with a fixed frame step",
		Long: `Run a spring from one value to another with a fixed dt and print every
frame. Simulations are deterministic: the same flags always produce the
same frames.

A machine from kinetic.yaml can be driven alongside the spring. Its
actions may address the spring through the target name "spring".
Events are given as frame:event and are sent before that frame's tick.

Examples:
  kinetic simulate --preset wobbly --from 0 --to 100
  kinetic simulate --preset stiff --from 1 --to 0.95 --until-settled
  kinetic simulate --machine button --event 0:pointer-enter --event 5:pointer-down
  kinetic simulate --record --session demo`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd.Context(), g, o)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.preset, "preset", "p", "default", "Spring preset")
	f.Float32Var(&o.from, "from", 0, "Initial spring value")
	f.Float32Var(&o.to, "to", 1, "Spring target")
	f.IntVarP(&o.frames, "frames", "n", 120, "Maximum number of frames")
	f.Float32Var(&o.dt, "dt", 1000.0/60, "Frame step in milliseconds")
	f.BoolVar(&o.untilSettled, "until-settled", false, "Stop at the first idle frame")
	f.StringVarP(&o.machine, "machine", "m", "", "Machine definition from kinetic.yaml")
	f.StringArrayVarP(&o.events, "event", "e", nil, "Event to send as frame:name (repeatable)")
	f.BoolVar(&o.record, "record", false, "Record frames to the configured store")
	f.StringVar(&o.session, "session", "", "Session name for --record (default: random)")
	f.BoolVar(&o.jsonOut, "json", false, "Print frames as JSON lines")

	return cmd
}

type scheduledEvent struct {
	frame int
	name  string
}

func parseEvents(specs []string) ([]scheduledEvent, error) {
	events := make([]scheduledEvent, 0, len(specs))
	for _, s := range specs {
		at, name, ok := strings.Cut(s, ":")
		if !ok || name == "" {
			return nil, fmt.Errorf("event %q: want frame:name", s)
		}
		frame, err := strconv.Atoi(at)
		if err != nil || frame < 0 {
			return nil, fmt.Errorf("event %q: bad frame number", s)
		}
		events = append(events, scheduledEvent{frame: frame, name: name})
	}
	return events, nil
}

// frameLine is one printed frame.
type frameLine struct {
	Seq      uint64  `json:"seq"`
	Value    float32 `json:"value"`
	Velocity float32 `json:"velocity"`
	State    string  `json:"state,omitempty"`
	Redraw   bool    `json:"redraw"`
	Pending  bool    `json:"pending"`
}

func runSimulate(ctx context.Context, g *globals, o *simulateOptions) error {
	events, err := parseEvents(o.events)
	if err != nil {
		return err
	}

	rt, err := kinetic.New(g.cfg)
	if err != nil {
		return err
	}
	if err := rt.Init(); err != nil {
		return err
	}
	defer rt.Shutdown()

	var rec *recorder.Recorder
	if o.record {
		store, err := openStore(g.cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		rec = recorder.New(store, recorder.WithSession(o.session))
		rt.OnFrame(rec.Observer(rt))
	}

	spring, err := rt.SpringCreatePreset(o.preset, o.from)
	if err != nil {
		return err
	}
	if err := rt.SpringSetTarget(spring, o.to); err != nil {
		return err
	}

	var machine fsm.InstanceID
	if o.machine != "" {
		machine, err = rt.FSMCreateFromConfig(o.machine, fsm.Bindings{
			Targets: map[string]uint64{"spring": uint64(spring)},
		})
		if err != nil {
			return err
		}
	} else if len(events) > 0 {
		return fmt.Errorf("--event needs --machine")
	}

	enc := json.NewEncoder(os.Stdout)
	if !o.jsonOut {
		header := fmt.Sprintf("%6s  %12s  %12s", "frame", "value", "velocity")
		if o.machine != "" {
			header += fmt.Sprintf("  %s", "state")
		}
		fmt.Println(header)
	}

	for i := 0; i < o.frames; i++ {
		for _, ev := range events {
			if ev.frame != i {
				continue
			}
			if _, err := rt.FSMSendName(machine, ev.name); err != nil {
				return err
			}
		}

		f, err := rt.TickFrame(o.dt)
		if err != nil {
			return err
		}

		line := frameLine{Seq: f.Seq, Redraw: f.Redraw, Pending: f.Pending}
		line.Value, _ = rt.SpringValue(spring)
		line.Velocity, _ = rt.SpringVelocity(spring)
		if o.machine != "" {
			line.State, _ = rt.FSMStateName(machine)
		}

		if o.jsonOut {
			if err := enc.Encode(line); err != nil {
				return err
			}
		} else {
			row := fmt.Sprintf("%6d  %12.5f  %12.5f", line.Seq, line.Value, line.Velocity)
			if o.machine != "" {
				row += "  " + line.State
			}
			fmt.Println(row)
		}

		if o.untilSettled && !f.Pending && !hasEventAfter(events, i) {
			break
		}
	}

	if rec != nil {
		if err := rec.Close(ctx); err != nil {
			return err
		}
		if !o.jsonOut {
			g.success("Recorded %d frames as session %s", rec.Frames(), rec.Session())
		}
	}
	return nil
}

func hasEventAfter(events []scheduledEvent, frame int) bool {
	for _, ev := range events {
		if ev.frame > frame {
			return true
		}
	}
	return false
}
