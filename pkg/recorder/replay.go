package recorder

import (
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/vango-dev/kinetic/pkg/fsm"
)

// Summary aggregates a recording.
type Summary struct {
	Frames    int     `json:"frames"`
	Redraws   int     `json:"redraws"`
	Errors    int     `json:"errors"`
	Effects   int     `json:"effects"`
	ElapsedMs float64 `json:"elapsedMs"`

	// SettledAt is the Seq of the first frame after which nothing was
	// pending, or 0 if the recording never went idle.
	SettledAt uint64 `json:"settledAt,omitempty"`

	// Transitions counts machine state changes between frames.
	Transitions int `json:"transitions"`
}

// Summarize aggregates recs.
func Summarize(recs []Record) Summary {
	var s Summary
	last := map[fsm.InstanceID]string{}
	for _, rec := range recs {
		s.Frames++
		s.ElapsedMs += float64(rec.DtMs)
		s.Effects += rec.Effects
		if rec.Redraw {
			s.Redraws++
		}
		if rec.Error != "" {
			s.Errors++
		}
		if !rec.Pending && s.SettledAt == 0 {
			s.SettledAt = rec.Seq
		}
		if rec.Pending {
			s.SettledAt = 0
		}
		for _, m := range rec.Machines {
			if prev, ok := last[m.ID]; ok && prev != m.State {
				s.Transitions++
			}
			last[m.ID] = m.State
		}
	}
	return s
}

// Divergence reports the first frame where two recordings differ.
type Divergence struct {
	Seq  uint64
	Diff string
}

func (d *Divergence) Error() string {
	return fmt.Sprintf("recordings diverge at frame %d:\n%s", d.Seq, d.Diff)
}

// Compare checks that two recordings of the same input are identical
// frame by frame, with values equal within margin. It returns a
// *Divergence for the first differing frame.
func Compare(want, got []Record, margin float64) error {
	opts := cmp.Options{
		cmpopts.EquateEmpty(),
		cmpopts.EquateApprox(0, margin),
	}
	n := len(want)
	if len(got) < n {
		n = len(got)
	}
	for i := 0; i < n; i++ {
		if diff := cmp.Diff(want[i], got[i], opts); diff != "" {
			return &Divergence{Seq: want[i].Seq, Diff: diff}
		}
	}
	if len(want) != len(got) {
		var seq uint64
		if n < len(want) {
			seq = want[n].Seq
		} else {
			seq = got[n].Seq
		}
		return &Divergence{Seq: seq, Diff: fmt.Sprintf("frame count %d != %d", len(want), len(got))}
	}
	return nil
}
