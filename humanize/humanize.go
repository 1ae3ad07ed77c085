// Package humanize drives the mouse and keyboard with the timing and
// geometry of a person rather than a script. Pointer moves follow a
// jittered cubic Bezier curve and keystrokes arrive with uneven delays.
package humanize

import (
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Config bounds the motion. Zero values take defaults.
type Config struct {
	// StepPause is the sleep between pointer steps.
	StepPause time.Duration
	// MinSteps and MaxSteps bound how many points a move is split into.
	MinSteps int
	MaxSteps int
	// ControlJitter is the max offset applied to each Bezier control point.
	ControlJitter float64
	// StepNoise is the max per-step wobble in pixels.
	StepNoise float64
	// KeyDelayMin and KeyDelayMax bound the pause between keystrokes.
	KeyDelayMin time.Duration
	KeyDelayMax time.Duration
	// PauseChance is the probability of a longer thinking pause per key.
	PauseChance float64
	PauseMin    time.Duration
	PauseMax    time.Duration
}

func (c *Config) applyDefaults() {
	if c.StepPause <= 0 {
		c.StepPause = 6 * time.Millisecond
	}
	if c.MinSteps <= 0 {
		c.MinSteps = 25
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = 45
	}
	if c.MaxSteps < c.MinSteps {
		c.MaxSteps = c.MinSteps
	}
	if c.ControlJitter <= 0 {
		c.ControlJitter = 50
	}
	if c.StepNoise <= 0 {
		c.StepNoise = 1.2
	}
	if c.KeyDelayMin <= 0 {
		c.KeyDelayMin = 20 * time.Millisecond
	}
	if c.KeyDelayMax <= c.KeyDelayMin {
		c.KeyDelayMax = 80 * time.Millisecond
	}
	if c.PauseChance <= 0 {
		c.PauseChance = 0.05
	}
	if c.PauseMin <= 0 {
		c.PauseMin = 100 * time.Millisecond
	}
	if c.PauseMax <= c.PauseMin {
		c.PauseMax = 400 * time.Millisecond
	}
}

// Cursor tracks pointer position across moves so every curve starts
// where the last one ended.
type Cursor struct {
	cfg Config
	rng *rand.Rand
	pos proto.Point
}

// NewCursor builds a cursor. rng may be nil, in which case a
// time-seeded source is used.
func NewCursor(cfg Config, rng *rand.Rand) *Cursor {
	cfg.applyDefaults()
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Cursor{cfg: cfg, rng: rng, pos: proto.Point{X: 100, Y: 100}}
}

// Path produces the pointer trajectory from the current position to
// target. Intermediate points carry per-step wobble; the final point is
// the exact target. Calling Path advances the tracked position.
func (c *Cursor) Path(target proto.Point) []proto.Point {
	from := c.pos
	dx := target.X - from.X
	dy := target.Y - from.Y

	jitter := func() float64 {
		return (c.rng.Float64()*2 - 1) * c.cfg.ControlJitter
	}
	// Control points sit at 20-40% and 60-80% of the straight line,
	// pushed sideways so the curve bows like a wrist movement.
	t1 := 0.2 + c.rng.Float64()*0.2
	t2 := 0.6 + c.rng.Float64()*0.2
	c1 := proto.Point{X: from.X + dx*t1 + jitter(), Y: from.Y + dy*t1 + jitter()}
	c2 := proto.Point{X: from.X + dx*t2 + jitter(), Y: from.Y + dy*t2 + jitter()}

	steps := c.cfg.MinSteps
	if c.cfg.MaxSteps > c.cfg.MinSteps {
		steps += c.rng.Intn(c.cfg.MaxSteps - c.cfg.MinSteps + 1)
	}

	points := make([]proto.Point, 0, steps)
	for i := 1; i < steps; i++ {
		t := float64(i) / float64(steps)
		p := cubicBezier(from, c1, c2, target, t)
		p.X += (c.rng.Float64()*2 - 1) * c.cfg.StepNoise
		p.Y += (c.rng.Float64()*2 - 1) * c.cfg.StepNoise
		points = append(points, p)
	}
	points = append(points, target)
	c.pos = target
	return points
}

func cubicBezier(p0, p1, p2, p3 proto.Point, t float64) proto.Point {
	u := 1 - t
	a := u * u * u
	b := 3 * u * u * t
	cc := 3 * u * t * t
	d := t * t * t
	return proto.Point{
		X: a*p0.X + b*p1.X + cc*p2.X + d*p3.X,
		Y: a*p0.Y + b*p1.Y + cc*p2.Y + d*p3.Y,
	}
}

// MoveTo walks the pointer along a generated path.
func (c *Cursor) MoveTo(page *rod.Page, target proto.Point) error {
	for _, p := range c.Path(target) {
		if err := page.Mouse.MoveTo(p); err != nil {
			return err
		}
		time.Sleep(c.cfg.StepPause)
	}
	return nil
}

// Click moves onto the element with a small offset from dead center,
// then clicks it.
func (c *Cursor) Click(page *rod.Page, el *rod.Element) error {
	shape, err := el.Shape()
	if err != nil {
		return err
	}
	box := shape.Box()
	target := proto.Point{
		X: box.X + box.Width/2 + (c.rng.Float64()*2-1)*box.Width/8,
		Y: box.Y + box.Height/2 + (c.rng.Float64()*2-1)*box.Height/8,
	}
	if err := c.MoveTo(page, target); err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// Type inserts text one rune at a time with uneven delays and the
// occasional longer pause.
func (c *Cursor) Type(page *rod.Page, text string) error {
	for _, r := range text {
		if err := page.InsertText(string(r)); err != nil {
			return err
		}
		delay := c.cfg.KeyDelayMin +
			time.Duration(c.rng.Int63n(int64(c.cfg.KeyDelayMax-c.cfg.KeyDelayMin)))
		if c.rng.Float64() < c.cfg.PauseChance {
			delay = c.cfg.PauseMin +
				time.Duration(c.rng.Int63n(int64(c.cfg.PauseMax-c.cfg.PauseMin)))
		}
		time.Sleep(delay)
	}
	return nil
}
