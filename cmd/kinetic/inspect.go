package main

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/kinetic"
	"github.com/vango-dev/kinetic/pkg/inspect"
	"github.com/vango-dev/kinetic/pkg/recorder"
)

type inspectOptions struct {
	addr    string
	preset  string
	period  time.Duration
	every   uint64
	record  bool
	session string
}

func inspectCmd(g *globals) *cobra.Command {
	o := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Run a live runtime with the inspector attached",
		Long: `Start a runtime driven at the configured frame rate and serve the
inspector for it. A spring is retargeted between 0 and 1 every period so
there is motion to look at.

Routes:
  GET /snapshot        runtime snapshot
  GET /machines/{id}   one machine and its recent transitions
  GET /metrics         prometheus metrics
  GET /ws              live frame stream

Examples:
  kinetic inspect
  kinetic inspect --addr :7070 --preset wobbly --period 2s
  kinetic inspect --record`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), g, o)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.addr, "addr", "a", "", "Listen address (default from config)")
	f.StringVarP(&o.preset, "preset", "p", "wobbly", "Spring preset of the demo spring")
	f.DurationVar(&o.period, "period", time.Second, "How often the demo spring is retargeted")
	f.Uint64Var(&o.every, "every", 1, "Stream one frame out of every n")
	f.BoolVar(&o.record, "record", false, "Record frames to the configured store")
	f.StringVar(&o.session, "session", "", "Session name for --record (default: random)")

	return cmd
}

func runInspect(ctx context.Context, g *globals, o *inspectOptions) error {
	addr := o.addr
	if addr == "" {
		addr = g.cfg.Inspector.Addr
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	rt, err := kinetic.New(g.cfg, kinetic.WithRegistry(reg))
	if err != nil {
		return err
	}
	if err := rt.Init(); err != nil {
		return err
	}
	defer rt.Shutdown()

	srv := inspect.NewServer(rt,
		inspect.WithGatherer(reg),
		inspect.WithHub(inspect.NewHub(o.every, nil)),
	)
	rt.OnFrame(srv.Observe)

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

	w, err := rt.Mount("demo")
	if err != nil {
		return err
	}
	spring, err := rt.SpringCreatePreset(o.preset, 0, kinetic.InWidget(w))
	if err != nil {
		return err
	}

	g.success("Inspector on http://%s", addr)
	info("Press Ctrl+C to stop")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 3)
	run := func(fn func() error) {
		go func() {
			err := fn()
			cancel()
			errc <- err
		}()
	}
	run(func() error {
		return srv.ListenAndServe(ctx, addr)
	})
	run(func() error {
		return rt.Run(ctx)
	})
	run(func() error {
		t := time.NewTicker(o.period)
		defer t.Stop()
		target := float32(1)
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				if err := rt.SpringSetTarget(spring, target); err != nil {
					return err
				}
				target = 1 - target
			}
		}
	})

	for i := 0; i < 3; i++ {
		if e := <-errc; e != nil && !errors.Is(e, context.Canceled) && err == nil {
			err = e
		}
	}
	if rec != nil {
		if cerr := rec.Close(context.Background()); cerr != nil && err == nil {
			err = cerr
		}
		g.success("Recorded %d frames as session %s", rec.Frames(), rec.Session())
	}
	return err
}
