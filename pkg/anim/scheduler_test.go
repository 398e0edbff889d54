package anim

import (
	"errors"
	"sync"
	"testing"
)

func TestSchedulerSpringLifecycle(t *testing.T) {
	s := NewScheduler()
	id, err := s.AddSpring(SpringSnappy, 0)
	if err != nil {
		t.Fatal(err)
	}
	if s.Pending() {
		t.Fatal("a spring at rest should not be pending")
	}

	if err := s.SetSpringTarget(id, 1); err != nil {
		t.Fatal(err)
	}
	if c := s.Counts(); c.ActiveSprings != 1 {
		t.Fatalf("active springs = %d, want 1", c.ActiveSprings)
	}

	st := s.Step(frameMs)
	if st.Springs != 1 || !st.Advanced() || !st.Pending {
		t.Errorf("first step stats = %+v", st)
	}

	for i := 0; i < 600 && s.Pending(); i++ {
		s.Step(frameMs)
	}
	if s.Pending() {
		t.Fatal("spring never settled")
	}
	v, err := s.SpringValue(id)
	if err != nil {
		t.Fatal(err)
	}
	if v != 1 {
		t.Errorf("settled value = %g, want 1", v)
	}
	if st := s.Step(frameMs); st.Advanced() {
		t.Errorf("idle step should not advance: %+v", st)
	}
}

func TestSchedulerStaleHandles(t *testing.T) {
	s := NewScheduler()
	sp, _ := s.AddSpring(SpringDefault, 0)
	if err := s.RemoveSpring(sp); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SpringValue(sp); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("SpringValue: %v", err)
	}
	if err := s.SetSpringTarget(sp, 1); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("SetSpringTarget: %v", err)
	}

	kf := s.AddKeyframes(ramp(t, 100))
	_ = s.RemoveKeyframes(kf)
	if _, err := s.KeyframeValue(kf); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("KeyframeValue: %v", err)
	}
	if err := s.StartTimeline(TimelineID(kf)); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("StartTimeline: %v", err)
	}
}

func TestSchedulerRejectsInvalidSpring(t *testing.T) {
	s := NewScheduler()
	if _, err := s.AddSpring(SpringConfig{Stiffness: -1, Mass: 1}, 0); !errors.Is(err, ErrInvalidSpring) {
		t.Errorf("expected ErrInvalidSpring, got %v", err)
	}
	if c := s.Counts(); c.Springs != 0 {
		t.Errorf("springs = %d, want 0", c.Springs)
	}
}

func TestSchedulerKeyframes(t *testing.T) {
	s := NewScheduler()
	id := s.AddKeyframes(ramp(t, 100))
	if err := s.StartKeyframes(id, 0); err != nil {
		t.Fatal(err)
	}
	s.Step(25)
	if v, _ := s.KeyframeValue(id); v != 25 {
		t.Errorf("value = %g, want 25", v)
	}
	st := s.Step(100)
	if st.Finished != 1 || st.Pending {
		t.Errorf("stats = %+v", st)
	}
}

func TestSchedulerTimelineOwnsChildren(t *testing.T) {
	s := NewScheduler()
	kid := s.AddKeyframes(ramp(t, 100))
	tid := s.AddTimeline(NewTimeline())
	if err := s.TimelineAdd(tid, kid, 0); err != nil {
		t.Fatal(err)
	}

	// Started directly but owned by a timeline that is not playing.
	_ = s.StartKeyframes(kid, 0)
	s.Step(50)
	if v, _ := s.KeyframeValue(kid); v != 0 {
		t.Errorf("attached animation advanced on its own: %g", v)
	}

	if err := s.StartTimeline(tid); err != nil {
		t.Fatal(err)
	}
	st := s.Step(50)
	if st.Timelines != 1 || st.Keyframes != 0 {
		t.Errorf("stats = %+v", st)
	}
	if v, _ := s.KeyframeValue(kid); v != 50 {
		t.Errorf("value = %g, want 50 after one timeline step", v)
	}

	if err := s.RemoveTimeline(tid); err != nil {
		t.Fatal(err)
	}
	s.Step(10)
	if v, _ := s.KeyframeValue(kid); !approx(v, 60) {
		t.Errorf("detached animation value = %g, want 60", v)
	}
}

func TestSchedulerSpringsSnapshotOrdered(t *testing.T) {
	s := NewScheduler()
	for i := 0; i < 5; i++ {
		if _, err := s.AddSpring(SpringDefault, float32(i)); err != nil {
			t.Fatal(err)
		}
	}
	states := s.Springs()
	for i := 1; i < len(states); i++ {
		if states[i-1].ID >= states[i].ID {
			t.Fatalf("snapshot not ordered: %+v", states)
		}
	}
	if states[4].Value != 4 {
		t.Errorf("last spring value = %g", states[4].Value)
	}
}

func TestSchedulerConcurrentAccess(t *testing.T) {
	s := NewScheduler()
	ids := make([]SpringID, 8)
	for i := range ids {
		ids[i], _ = s.AddSpring(SpringDefault, 0)
	}

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id SpringID) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = s.SetSpringTarget(id, float32(i*j))
			}
		}(i, id)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			s.Step(frameMs)
		}
	}()
	wg.Wait()
}
