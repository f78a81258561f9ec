package viewer

import (
	"sync"
	"time"
)

// Pane identifies one side of the split viewer.
type Pane string

const (
	PaneOriginal   Pane = "original"
	PaneTranslated Pane = "translated"
)

func (p Pane) other() Pane {
	if p == PaneOriginal {
		return PaneTranslated
	}
	return PaneOriginal
}

// ScrollState is the scroll geometry of one pane.
type ScrollState struct {
	Offset         float64 `json:"offset"`
	ContentHeight  float64 `json:"content_height"`
	ViewportHeight float64 `json:"viewport_height"`
}

func (s ScrollState) maxScroll() float64 {
	return s.ContentHeight - s.ViewportHeight
}

// suppressionWindow is how long a pane ignores incoming scroll events
// after it received a mirrored update, so the feedback that update
// causes does not bounce back to the pane that started it.
const suppressionWindow = 50 * time.Millisecond

// Controller keeps the two panes of an open document view proportionally
// aligned. One Controller per open view; discard it when the view closes.
//
// The pane element wiring is done through Attach/Detach so the mirroring
// logic stays independent of any particular UI layer.
type Controller struct {
	mu          sync.Mutex
	panes       map[Pane]*paneState
	syncEnabled bool

	// now is swappable for tests.
	now func() time.Time
}

type paneState struct {
	state           ScrollState
	apply           func(offset float64)
	suppressedUntil time.Time
}

func NewController() *Controller {
	return &Controller{
		panes: map[Pane]*paneState{
			PaneOriginal:   {},
			PaneTranslated: {},
		},
		syncEnabled: true,
		now:         time.Now,
	}
}

// pane returns the state record for p; callers must hold c.mu.
func (c *Controller) pane(p Pane) *paneState {
	ps, ok := c.panes[p]
	if !ok {
		ps = &paneState{}
		c.panes[p] = ps
	}
	return ps
}

// Attach registers the sink that receives mirrored offset updates for
// the given pane. Calling Attach again replaces the previous sink.
func (c *Controller) Attach(pane Pane, apply func(offset float64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pane(pane).apply = apply
}

// Detach unregisters the pane's sink. Scroll events for a detached pane
// still update its recorded state but no mirror is delivered to it.
func (c *Controller) Detach(pane Pane) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pane(pane).apply = nil
}

// SetSyncEnabled toggles mirroring. While disabled each pane scrolls
// independently.
func (c *Controller) SetSyncEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncEnabled = enabled
}

// SetGeometry records a pane's content and viewport heights.
func (c *Controller) SetGeometry(pane Pane, contentHeight, viewportHeight float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.pane(pane)
	p.state.ContentHeight = contentHeight
	p.state.ViewportHeight = viewportHeight
}

// Offset returns the pane's current recorded scroll offset.
func (c *Controller) Offset(pane Pane) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pane(pane).state.Offset
}

// State returns a copy of the pane's scroll state.
func (c *Controller) State(pane Pane) ScrollState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pane(pane).state
}

// OnScroll handles a user-driven scroll on the given pane. The offset
// is always recorded; if sync is enabled and the event was not itself
// caused by a mirror from the other pane, the other pane's offset is
// set to the proportional position and its sink invoked.
//
// The mirrored pane is suppressed for a short window afterwards, reset
// by each new mirror, so the echo of the update cannot ping-pong back.
func (c *Controller) OnScroll(pane Pane, offset float64) {
	c.mu.Lock()

	source := c.pane(pane)
	source.state.Offset = offset

	if !c.syncEnabled {
		c.mu.Unlock()
		return
	}

	now := c.now()
	if now.Before(source.suppressedUntil) {
		// This event is the echo of a mirror we just applied here.
		c.mu.Unlock()
		return
	}

	target := c.pane(pane.other())

	// A pane without overflow has no scroll range; degenerate geometry
	// mirrors to offset 0 rather than dividing by zero.
	sourceRange := source.state.maxScroll()
	ratio := 0.0
	if sourceRange > 0 {
		ratio = offset / max(1, sourceRange)
	}

	targetOffset := 0.0
	if targetRange := target.state.maxScroll(); targetRange > 0 {
		targetOffset = ratio * targetRange
	}

	target.state.Offset = targetOffset
	target.suppressedUntil = now.Add(suppressionWindow)
	apply := target.apply
	c.mu.Unlock()

	if apply != nil {
		apply(targetOffset)
	}
}
