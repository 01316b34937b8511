package antidetect

import (
	"context"
	"log/slog"
	"math"
	"math/rand"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Point is a 2D page coordinate.
type Point struct {
	X, Y float64
}

// MouseConfig controls Bezier-path mouse simulation (spec §4.6).
type MouseConfig struct {
	MinSteps             int
	MaxSteps             int
	MinStepDelayMs       int
	MaxStepDelayMs       int
	ClickOffsetRadius    float64
	PreClickHoverMinMs   int
	PreClickHoverMaxMs   int
	PostClickDwellMinMs  int
	PostClickDwellMaxMs  int
}

// DefaultMouseConfig returns the "balanced" profile's mouse parameters.
func DefaultMouseConfig() MouseConfig {
	return MouseConfig{
		MinSteps:            15,
		MaxSteps:            30,
		MinStepDelayMs:       3,
		MaxStepDelayMs:       12,
		ClickOffsetRadius:    5.0,
		PreClickHoverMinMs:   50,
		PreClickHoverMaxMs:   200,
		PostClickDwellMinMs:  80,
		PostClickDwellMaxMs:  250,
	}
}

// Mouse drives humanized pointer interaction on one page.
type Mouse struct {
	page *rod.Page
	cfg  MouseConfig
}

// NewMouse builds a Mouse bound to page using cfg.
func NewMouse(page *rod.Page, cfg MouseConfig) *Mouse {
	return &Mouse{page: page, cfg: cfg}
}

// MoveTo moves the mouse to (x, y) along a cubic-Bezier path with ease-in-out
// timing and randomized perpendicular control-point offsets (spec §4.6).
func (m *Mouse) MoveTo(ctx context.Context, x, y float64) error {
	current := m.page.Mouse.Position()
	start := Point{X: current.X, Y: current.Y}
	end := Point{X: x, Y: y}

	numSteps := m.cfg.MinSteps + rand.Intn(m.cfg.MaxSteps-m.cfg.MinSteps+1)
	path := generateBezierPath(start, end, numSteps)

	for _, p := range path {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := m.page.Mouse.MoveTo(proto.NewPoint(p.X, p.Y)); err != nil {
			return err
		}
		delay := RandomDuration(m.cfg.MinStepDelayMs, m.cfg.MaxStepDelayMs)
		if !sleepWithContext(ctx, delay) {
			return ctx.Err()
		}
	}
	return nil
}

// Click moves to (x, y) with a small random offset, hovers, clicks, then dwells.
func (m *Mouse) Click(ctx context.Context, x, y float64) error {
	offsetX := (rand.Float64()*2 - 1) * m.cfg.ClickOffsetRadius
	offsetY := (rand.Float64()*2 - 1) * m.cfg.ClickOffsetRadius
	targetX, targetY := x+offsetX, y+offsetY

	if err := m.MoveTo(ctx, targetX, targetY); err != nil {
		return err
	}

	hover := RandomDuration(m.cfg.PreClickHoverMinMs, m.cfg.PreClickHoverMaxMs)
	if !sleepWithContext(ctx, hover) {
		return ctx.Err()
	}

	if err := m.page.Mouse.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}

	dwell := RandomDuration(m.cfg.PostClickDwellMinMs, m.cfg.PostClickDwellMaxMs)
	if !sleepWithContext(ctx, dwell) {
		return ctx.Err()
	}

	slog.Debug("humanized click completed", "x", targetX, "y", targetY)
	return nil
}

// ClickElement clicks the center of element's bounding box.
func (m *Mouse) ClickElement(ctx context.Context, element *rod.Element) error {
	shape, err := element.Shape()
	if err != nil {
		return err
	}
	if shape == nil || len(shape.Quads) == 0 {
		return ErrElementNotVisible
	}
	q := shape.Quads[0]
	centerX := (q[0] + q[2] + q[4] + q[6]) / 4
	centerY := (q[1] + q[3] + q[5] + q[7]) / 4
	return m.Click(ctx, centerX, centerY)
}

// ClickWithinBounds clicks a random point in the 20%-80% inner margin of bounds.
func (m *Mouse) ClickWithinBounds(ctx context.Context, bounds *proto.DOMRect) error {
	marginX := bounds.Width * 0.2
	marginY := bounds.Height * 0.2
	targetX := bounds.X + marginX + rand.Float64()*(bounds.Width-2*marginX)
	targetY := bounds.Y + marginY + rand.Float64()*(bounds.Height-2*marginY)
	return m.Click(ctx, targetX, targetY)
}

// generateBezierPath interpolates a cubic Bezier curve from start to end with
// randomized perpendicular control-point offsets and ease-in-out-cubic timing.
func generateBezierPath(start, end Point, numPoints int) []Point {
	if numPoints < 2 {
		numPoints = 2
	}

	dx := end.X - start.X
	dy := end.Y - start.Y
	distance := math.Sqrt(dx*dx + dy*dy)

	ctrl1Offset := distance * (0.2 + rand.Float64()*0.3)
	ctrl2Offset := distance * (0.2 + rand.Float64()*0.3)

	perpDir1, perpDir2 := 1.0, 1.0
	if rand.Float64() < 0.5 {
		perpDir1 = -1.0
	}
	if rand.Float64() < 0.5 {
		perpDir2 = -1.0
	}

	var perpX, perpY float64
	if distance != 0 {
		perpX = -dy / distance
		perpY = dx / distance
	}

	ctrl1 := Point{
		X: start.X + dx*0.33 + perpX*ctrl1Offset*perpDir1,
		Y: start.Y + dy*0.33 + perpY*ctrl1Offset*perpDir1,
	}
	ctrl2 := Point{
		X: start.X + dx*0.67 + perpX*ctrl2Offset*perpDir2,
		Y: start.Y + dy*0.67 + perpY*ctrl2Offset*perpDir2,
	}

	points := make([]Point, numPoints)
	for i := 0; i < numPoints; i++ {
		t := easeInOutCubic(float64(i) / float64(numPoints-1))
		mt := 1 - t
		mt2, mt3 := mt*mt, mt*mt*mt
		t2, t3 := t*t, t*t*t
		points[i] = Point{
			X: mt3*start.X + 3*mt2*t*ctrl1.X + 3*mt*t2*ctrl2.X + t3*end.X,
			Y: mt3*start.Y + 3*mt2*t*ctrl1.Y + 3*mt*t2*ctrl2.Y + t3*end.Y,
		}
	}
	return points
}

// easeInOutCubic returns a value in [0,1] that starts slow, speeds up, slows down.
func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// GetPosition returns the current mouse position.
func (m *Mouse) GetPosition() Point {
	pos := m.page.Mouse.Position()
	return Point{X: pos.X, Y: pos.Y}
}
