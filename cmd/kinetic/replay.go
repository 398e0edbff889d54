package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/kinetic/pkg/recorder"
)

type replayOptions struct {
	compare string
	margin  float64
	frames  bool
	jsonOut bool
}

func replayCmd(g *globals) *cobra.Command {
	o := &replayOptions{}

	cmd := &cobra.Command{
		Use:   "replay [session]",
		Short: "Read back a recorded session",
		Long: `Read back a session recorded with --record. Without a session name the
recorded sessions are listed.

With --compare the session is checked frame by frame against another
one; the command fails at the first frame where they differ.

Examples:
  kinetic replay
  kinetic replay demo
  kinetic replay demo --frames --json
  kinetic replay demo --compare demo-after-upgrade`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(g.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 0 {
				return listSessions(cmd, store)
			}
			return runReplay(cmd, g, store, args[0], o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.compare, "compare", "", "Session to compare against")
	f.Float64Var(&o.margin, "margin", 0, "Allowed absolute difference of values in --compare")
	f.BoolVar(&o.frames, "frames", false, "Print every frame")
	f.BoolVar(&o.jsonOut, "json", false, "Print JSON")

	return cmd
}

func listSessions(cmd *cobra.Command, store recorder.Store) error {
	names, err := store.Sessions(cmd.Context())
	if err != nil {
		return err
	}
	if len(names) == 0 {
		info("No recorded sessions")
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func runReplay(cmd *cobra.Command, g *globals, store recorder.Store, session string, o *replayOptions) error {
	ctx := cmd.Context()
	recs, err := store.Load(ctx, session)
	if err != nil {
		return err
	}

	if o.compare != "" {
		other, err := store.Load(ctx, o.compare)
		if err != nil {
			return err
		}
		if err := recorder.Compare(recs, other, o.margin); err != nil {
			return err
		}
		g.success("%s and %s are identical over %d frames", session, o.compare, len(recs))
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	if o.frames {
		for _, rec := range recs {
			if o.jsonOut {
				if err := enc.Encode(rec); err != nil {
					return err
				}
				continue
			}
			printRecord(rec)
		}
		return nil
	}

	sum := recorder.Summarize(recs)
	if o.jsonOut {
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}
	fmt.Printf("Session %s\n", session)
	info("Frames:      %d", sum.Frames)
	info("Elapsed:     %.1f ms", sum.ElapsedMs)
	info("Redraws:     %d", sum.Redraws)
	info("Effects run: %d", sum.Effects)
	info("Transitions: %d", sum.Transitions)
	if sum.SettledAt > 0 {
		info("Settled at:  frame %d", sum.SettledAt)
	} else {
		info("Settled at:  never")
	}
	if sum.Errors > 0 {
		g.warn("%d frames failed", sum.Errors)
	}
	return nil
}

func printRecord(rec recorder.Record) {
	fmt.Printf("#%d dt=%.2fms redraw=%t pending=%t", rec.Seq, rec.DtMs, rec.Redraw, rec.Pending)
	for _, s := range rec.Springs {
		fmt.Printf(" spring%d=%.5f", s.ID, s.Value)
	}
	for _, m := range rec.Machines {
		name := m.Name
		if name == "" {
			name = fmt.Sprintf("machine%d", m.ID)
		}
		fmt.Printf(" %s=%s", name, m.State)
	}
	if rec.Error != "" {
		fmt.Printf(" error=%q", rec.Error)
	}
	fmt.Println()
}
