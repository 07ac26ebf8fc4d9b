package rules

import (
	"errors"
	"testing"

	"github.com/nstehr/saltbot/saltbot-core/model"
)

func TestDetectCorner(t *testing.T) {
	tests := []struct {
		name   string
		y0, y1 int
		want   bool
	}{
		{"top", 4, 10, true},
		{"bottom", 50, 58, false},
		{"on midline", 30, 34, true}, // mean 32 == 64/2
		{"just below midline", 31, 35, false},
	}
	for _, tc := range tests {
		l := model.NewLayer(minimapSize, minimapSize)
		fill(l, 20, tc.y0, 24, tc.y1, 1)
		got, err := DetectCorner(l, 1)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%s: topLeft = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestDetectCornerNoMatch(t *testing.T) {
	l := model.NewLayer(minimapSize, minimapSize)
	fill(l, 0, 0, 3, 3, 3) // neutral only
	_, err := DetectCorner(l, 1)
	if !errors.Is(err, ErrNoMatch) {
		t.Errorf("expected ErrNoMatch, got %v", err)
	}
}

func TestTransformMirrors(t *testing.T) {
	nexus := model.Point{X: 42, Y: 32}
	off := model.Point{X: 0, Y: 20}
	if got := Transform(nexus, off, true); got != (model.Point{X: 42, Y: 52}) {
		t.Errorf("top-left transform = %v, want (42,52)", got)
	}
	if got := Transform(nexus, off, false); got != (model.Point{X: 42, Y: 12}) {
		t.Errorf("bottom-right transform = %v, want (42,12)", got)
	}
}

func TestTransformInvolution(t *testing.T) {
	offsets := []model.Point{{X: 0, Y: 20}, {X: 10, Y: 5}, {X: -3, Y: 7}, {X: 0, Y: 0}}
	for x := -10; x <= 90; x += 7 {
		for y := -10; y <= 90; y += 11 {
			p := model.Point{X: x, Y: y}
			for _, off := range offsets {
				for _, topLeft := range []bool{true, false} {
					back := Transform(Transform(p, off, topLeft), off, !topLeft)
					if back != p {
						t.Fatalf("Transform(Transform(%v,%v,%v),%v,%v) = %v", p, off, topLeft, off, !topLeft, back)
					}
				}
			}
		}
	}
}

func TestPlacementOffsetNeverNegative(t *testing.T) {
	const spread = 32
	sawPositiveX, sawPositiveY := false, false
	for draw := range uint64(2000) {
		off := placementOffset(7, draw, spread)
		if off.X < 0 || off.Y < 0 || off.X > spread || off.Y > spread {
			t.Fatalf("draw %d: offset %v outside [0,%d]", draw, off, spread)
		}
		sawPositiveX = sawPositiveX || off.X > 0
		sawPositiveY = sawPositiveY || off.Y > 0
	}
	if !sawPositiveX || !sawPositiveY {
		t.Error("2000 draws never produced a positive offset; spread is not applied")
	}
}

func TestPlacementOffsetDeterministic(t *testing.T) {
	for draw := range uint64(50) {
		a := placementOffset(11, draw, 32)
		b := placementOffset(11, draw, 32)
		if a != b {
			t.Fatalf("draw %d: %v != %v for the same seed", draw, a, b)
		}
	}
	if off := placementOffset(11, 3, 0); off != (model.Point{}) {
		t.Errorf("zero spread offset = %v, want (0,0)", off)
	}
}
