package anim

import (
	"testing"
)

func TestPresetsBuild(t *testing.T) {
	for _, name := range PresetNames() {
		p, ok := PresetByName(name, 300)
		if !ok {
			t.Fatalf("PresetByName(%q) not found", name)
		}
		if p.Name != name {
			t.Errorf("preset name = %q, want %q", p.Name, name)
		}
		anims, err := p.Build()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(anims) != len(p.Tracks) {
			t.Errorf("%s: %d animations for %d tracks", name, len(anims), len(p.Tracks))
		}
		for _, tr := range p.Tracks {
			if tr.Frames[0].T != 0 || tr.Frames[len(tr.Frames)-1].T != 1 {
				t.Errorf("%s %s: frames should span [0,1]", name, tr.Property)
			}
		}
	}
}

func TestPresetEndValues(t *testing.T) {
	tests := []struct {
		p     Preset
		prop  Property
		start float32
		end   float32
	}{
		{FadeIn(200), Opacity, 0, 1},
		{FadeOut(200), Opacity, 1, 0},
		{ScaleIn(200), Scale, 0, 1},
		{PopIn(200), Scale, 0, 1},
		{SlideIn(Left, 200, 30), TranslateX, -30, 0},
		{SlideIn(Bottom, 200, 30), TranslateY, 30, 0},
		{SlideOut(Top, 200, 30), TranslateY, 0, -30},
		{SlideOut(Right, 200, 30), TranslateX, 0, 30},
		{BounceOut(200), Scale, 1, 0},
		{Spin(1000), Rotation, 0, 360},
	}
	for _, tt := range tests {
		anims, err := tt.p.Build()
		if err != nil {
			t.Fatal(err)
		}
		a, ok := anims[tt.prop]
		if !ok {
			t.Fatalf("%s: no %s track", tt.p.Name, tt.prop)
		}
		if v := a.ValueAt(0); v != tt.start {
			t.Errorf("%s %s start = %g, want %g", tt.p.Name, tt.prop, v, tt.start)
		}
		if v := a.ValueAt(1); v != tt.end {
			t.Errorf("%s %s end = %g, want %g", tt.p.Name, tt.prop, v, tt.end)
		}
	}
}

func TestPopInOvershoots(t *testing.T) {
	frames, ok := PopIn(300).Track(Scale)
	if !ok {
		t.Fatal("no scale track")
	}
	if frames[1].T != 0.7 || frames[1].Value != 1.1 {
		t.Errorf("peak keyframe = %+v", frames[1])
	}
}

func TestShakeDecays(t *testing.T) {
	frames, _ := Shake(400, 10).Track(TranslateX)
	if len(frames) != 7 {
		t.Fatalf("got %d keyframes, want 7", len(frames))
	}
	prev := float32(11)
	for _, f := range frames[1 : len(frames)-1] {
		amp := f.Value
		if amp < 0 {
			amp = -amp
		}
		if amp > prev {
			t.Errorf("amplitude grew at t=%g: %g > %g", f.T, amp, prev)
		}
		prev = amp
	}
}

func TestPresetByNameUnknown(t *testing.T) {
	if _, ok := PresetByName("explode", 100); ok {
		t.Error("unknown preset should not resolve")
	}
}
