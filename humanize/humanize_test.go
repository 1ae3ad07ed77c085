package humanize

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-rod/rod/lib/proto"
)

func TestPath_EndsExactlyOnTarget(t *testing.T) {
	c := NewCursor(Config{}, rand.New(rand.NewSource(1)))
	target := proto.Point{X: 640, Y: 410}
	path := c.Path(target)
	if len(path) == 0 {
		t.Fatal("empty path")
	}
	last := path[len(path)-1]
	if last.X != target.X || last.Y != target.Y {
		t.Errorf("final point = %+v, want %+v", last, target)
	}
}

func TestPath_StepCountWithinBounds(t *testing.T) {
	cfg := Config{MinSteps: 25, MaxSteps: 45}
	c := NewCursor(cfg, rand.New(rand.NewSource(7)))
	for i := 0; i < 50; i++ {
		path := c.Path(proto.Point{X: float64(i * 13), Y: float64(i * 7)})
		if len(path) < cfg.MinSteps || len(path) > cfg.MaxSteps {
			t.Fatalf("len(path) = %d, want within [%d,%d]", len(path), cfg.MinSteps, cfg.MaxSteps)
		}
	}
}

func TestPath_CurvesNotStraightLines(t *testing.T) {
	// WHAT: At least one intermediate point deviates from the straight
	// line between start and target.
	c := NewCursor(Config{}, rand.New(rand.NewSource(3)))
	from := proto.Point{X: 100, Y: 100}
	target := proto.Point{X: 900, Y: 100}
	path := c.Path(target)
	deviated := false
	for _, p := range path[:len(path)-1] {
		if math.Abs(p.Y-from.Y) > 2 {
			deviated = true
			break
		}
	}
	if !deviated {
		t.Error("path is a straight line, expected a curved trajectory")
	}
}

func TestPath_StartsNearPreviousTarget(t *testing.T) {
	// WHAT: Consecutive moves chain; the second path starts close to the
	// first target, not at the cursor's initial position.
	c := NewCursor(Config{}, rand.New(rand.NewSource(9)))
	first := proto.Point{X: 500, Y: 300}
	c.Path(first)
	second := c.Path(proto.Point{X: 520, Y: 320})
	head := second[0]
	if math.Abs(head.X-first.X) > 30 || math.Abs(head.Y-first.Y) > 30 {
		t.Errorf("second path starts at %+v, expected near %+v", head, first)
	}
}
