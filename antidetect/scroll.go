package antidetect

import (
	"context"
	"log/slog"
	"math"
	"math/rand"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// ScrollConfig controls incremental, eased scroll simulation (spec §4.6).
type ScrollConfig struct {
	MinScrollSteps       int
	MaxScrollSteps       int
	MinStepDelayMs       int
	MaxStepDelayMs       int
	ScrollMargin         float64
	PreScrollDelayMinMs  int
	PreScrollDelayMaxMs  int
	PostScrollDelayMinMs int
	PostScrollDelayMaxMs int
}

// DefaultScrollConfig returns the "balanced" profile's scroll parameters.
func DefaultScrollConfig() ScrollConfig {
	return ScrollConfig{
		MinScrollSteps:       8,
		MaxScrollSteps:       20,
		MinStepDelayMs:       20,
		MaxStepDelayMs:       60,
		ScrollMargin:         100,
		PreScrollDelayMinMs:  50,
		PreScrollDelayMaxMs:  200,
		PostScrollDelayMinMs: 100,
		PostScrollDelayMaxMs: 300,
	}
}

// Scroller drives randomized-increment scrolling with settle waits on one page.
type Scroller struct {
	page *rod.Page
	cfg  ScrollConfig
}

// NewScroller builds a Scroller bound to page using cfg.
func NewScroller(page *rod.Page, cfg ScrollConfig) *Scroller {
	return &Scroller{page: page, cfg: cfg}
}

// ScrollToElement brings element into view with an eased, multi-step scroll.
func (s *Scroller) ScrollToElement(ctx context.Context, element *rod.Element) error {
	shape, err := element.Shape()
	if err != nil {
		return err
	}
	if shape == nil || len(shape.Quads) == 0 {
		return ErrElementNotVisible
	}

	metrics, err := proto.PageGetLayoutMetrics{}.Call(s.page)
	if err != nil {
		return err
	}

	quad := shape.Quads[0]
	elementCenterY := (quad[1] + quad[3] + quad[5] + quad[7]) / 4

	currentY := metrics.VisualViewport.PageY
	viewportHeight := metrics.VisualViewport.ClientHeight
	viewportTop, viewportBottom := currentY, currentY+viewportHeight

	if elementCenterY >= viewportTop+s.cfg.ScrollMargin && elementCenterY <= viewportBottom-s.cfg.ScrollMargin {
		return nil
	}

	targetY := elementCenterY - viewportHeight/2
	maxY := metrics.ContentSize.Height - viewportHeight
	if targetY < 0 {
		targetY = 0
	}
	if targetY > maxY {
		targetY = maxY
	}
	return s.smoothScrollTo(ctx, currentY, targetY)
}

// ScrollBy scrolls by deltaY with a smooth, eased animation.
func (s *Scroller) ScrollBy(ctx context.Context, deltaY float64) error {
	metrics, err := proto.PageGetLayoutMetrics{}.Call(s.page)
	if err != nil {
		return err
	}
	currentY := metrics.VisualViewport.PageY
	targetY := currentY + deltaY
	maxY := metrics.ContentSize.Height - metrics.VisualViewport.ClientHeight
	if targetY < 0 {
		targetY = 0
	}
	if targetY > maxY {
		targetY = maxY
	}
	return s.smoothScrollTo(ctx, currentY, targetY)
}

// RandomSmallScroll performs a small random scroll to simulate exploration.
func (s *Scroller) RandomSmallScroll(ctx context.Context) error {
	delta := float64(rand.Intn(101) - 50)
	if math.Abs(delta) < 10 {
		return nil
	}
	return s.ScrollBy(ctx, delta)
}

func (s *Scroller) smoothScrollTo(ctx context.Context, fromY, toY float64) error {
	preDelay := RandomDuration(s.cfg.PreScrollDelayMinMs, s.cfg.PreScrollDelayMaxMs)
	if !sleepWithContext(ctx, preDelay) {
		return ctx.Err()
	}

	distance := math.Abs(toY - fromY)
	if distance < 1 {
		return nil
	}

	numSteps := s.cfg.MinScrollSteps + int(distance/100)
	if numSteps > s.cfg.MaxScrollSteps {
		numSteps = s.cfg.MaxScrollSteps
	}

	for i := 1; i <= numSteps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		t := easeOutCubic(float64(i) / float64(numSteps))
		currentY := fromY + (toY-fromY)*t

		if _, err := s.page.Eval(`(y) => window.scrollTo({top: y, behavior: 'instant'})`, currentY); err != nil {
			slog.Debug("antidetect: scroll step failed", "error", err)
		}

		stepDelay := RandomDuration(s.cfg.MinStepDelayMs, s.cfg.MaxStepDelayMs)
		if !sleepWithContext(ctx, stepDelay) {
			return ctx.Err()
		}
	}

	postDelay := RandomDuration(s.cfg.PostScrollDelayMinMs, s.cfg.PostScrollDelayMaxMs)
	return errIfCancelled(ctx, sleepWithContext(ctx, postDelay))
}

func errIfCancelled(ctx context.Context, completed bool) error {
	if completed {
		return nil
	}
	return ctx.Err()
}

func easeOutCubic(t float64) float64 {
	return 1 - math.Pow(1-t, 3)
}
