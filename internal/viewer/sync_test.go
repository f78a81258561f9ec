package viewer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests move through the suppression window manually.
type fakeClock struct {
	current time.Time
}

func (f *fakeClock) now() time.Time {
	return f.current
}

func (f *fakeClock) advance(d time.Duration) {
	f.current = f.current.Add(d)
}

func newTestController(clock *fakeClock) *Controller {
	c := NewController()
	c.now = clock.now
	return c
}

func TestController_MirrorsProportionally(t *testing.T) {
	clock := &fakeClock{current: time.Unix(0, 0)}
	c := newTestController(clock)
	c.SetGeometry(PaneOriginal, 1000, 200)
	c.SetGeometry(PaneTranslated, 500, 100)

	var mirrored []float64
	c.Attach(PaneTranslated, func(offset float64) {
		mirrored = append(mirrored, offset)
	})

	c.OnScroll(PaneOriginal, 400)

	require.Len(t, mirrored, 1)
	assert.Equal(t, 200.0, mirrored[0])
	assert.Equal(t, 200.0, c.Offset(PaneTranslated))
	assert.Equal(t, 400.0, c.Offset(PaneOriginal))
}

func TestController_ExtremesMirrorToExtremes(t *testing.T) {
	clock := &fakeClock{current: time.Unix(0, 0)}
	c := newTestController(clock)
	c.SetGeometry(PaneOriginal, 1000, 200)
	c.SetGeometry(PaneTranslated, 500, 100)

	c.OnScroll(PaneOriginal, 0)
	assert.Equal(t, 0.0, c.Offset(PaneTranslated))

	clock.advance(time.Second)
	c.OnScroll(PaneOriginal, 800)
	assert.Equal(t, 400.0, c.Offset(PaneTranslated))
}

func TestController_NoFeedbackLoop(t *testing.T) {
	clock := &fakeClock{current: time.Unix(0, 0)}
	c := newTestController(clock)
	c.SetGeometry(PaneOriginal, 1000, 200)
	c.SetGeometry(PaneTranslated, 500, 100)

	var originalUpdates, translatedUpdates int
	c.Attach(PaneOriginal, func(offset float64) {
		originalUpdates++
		// The UI reports the applied offset back as a scroll event.
		c.OnScroll(PaneOriginal, offset)
	})
	c.Attach(PaneTranslated, func(offset float64) {
		translatedUpdates++
		c.OnScroll(PaneTranslated, offset)
	})

	c.OnScroll(PaneOriginal, 400)

	// Exactly one mirror to the translated pane; its echo is absorbed
	// by the suppression window instead of bouncing back.
	assert.Equal(t, 1, translatedUpdates)
	assert.Equal(t, 0, originalUpdates)
	assert.Equal(t, 400.0, c.Offset(PaneOriginal))
	assert.Equal(t, 200.0, c.Offset(PaneTranslated))
}

func TestController_SuppressionExpires(t *testing.T) {
	clock := &fakeClock{current: time.Unix(0, 0)}
	c := newTestController(clock)
	c.SetGeometry(PaneOriginal, 1000, 200)
	c.SetGeometry(PaneTranslated, 500, 100)

	var originalUpdates int
	c.Attach(PaneOriginal, func(offset float64) { originalUpdates++ })

	c.OnScroll(PaneOriginal, 400)

	// A genuine scroll on the translated pane inside the window is
	// still treated as an echo.
	clock.advance(10 * time.Millisecond)
	c.OnScroll(PaneTranslated, 100)
	assert.Equal(t, 0, originalUpdates)

	// Past the window the translated pane drives the original again.
	clock.advance(suppressionWindow)
	c.OnScroll(PaneTranslated, 100)
	assert.Equal(t, 1, originalUpdates)
	assert.Equal(t, 200.0, c.Offset(PaneOriginal))
}

func TestController_RepeatedMirrorsResetSuppression(t *testing.T) {
	clock := &fakeClock{current: time.Unix(0, 0)}
	c := newTestController(clock)
	c.SetGeometry(PaneOriginal, 1000, 200)
	c.SetGeometry(PaneTranslated, 500, 100)

	var originalUpdates int
	c.Attach(PaneOriginal, func(offset float64) { originalUpdates++ })

	// A continuous drag on the original pane keeps re-arming the
	// translated pane's suppression from each event.
	for i := 0; i < 5; i++ {
		c.OnScroll(PaneOriginal, float64(100*i))
		clock.advance(30 * time.Millisecond)
	}

	// 30ms after the last mirror the translated pane is still inside
	// the freshly reset window.
	c.OnScroll(PaneTranslated, 50)
	assert.Equal(t, 0, originalUpdates)
}

func TestController_SyncDisabled(t *testing.T) {
	clock := &fakeClock{current: time.Unix(0, 0)}
	c := newTestController(clock)
	c.SetGeometry(PaneOriginal, 1000, 200)
	c.SetGeometry(PaneTranslated, 500, 100)
	c.SetSyncEnabled(false)

	var translatedUpdates int
	c.Attach(PaneTranslated, func(offset float64) { translatedUpdates++ })

	c.OnScroll(PaneOriginal, 400)

	assert.Equal(t, 0, translatedUpdates)
	assert.Equal(t, 400.0, c.Offset(PaneOriginal))
	assert.Equal(t, 0.0, c.Offset(PaneTranslated))
}

func TestController_DegenerateGeometry(t *testing.T) {
	clock := &fakeClock{current: time.Unix(0, 0)}
	c := newTestController(clock)

	// Source has no overflow: ratio is 0, target goes to 0.
	c.SetGeometry(PaneOriginal, 100, 200)
	c.SetGeometry(PaneTranslated, 500, 100)
	c.OnScroll(PaneOriginal, 0)
	assert.Equal(t, 0.0, c.Offset(PaneTranslated))

	// Target has no overflow: mirrored offset stays 0.
	clock.advance(time.Second)
	c.SetGeometry(PaneOriginal, 1000, 200)
	c.SetGeometry(PaneTranslated, 50, 100)
	c.OnScroll(PaneOriginal, 400)
	assert.Equal(t, 0.0, c.Offset(PaneTranslated))
}

func TestController_DetachStopsDelivery(t *testing.T) {
	clock := &fakeClock{current: time.Unix(0, 0)}
	c := newTestController(clock)
	c.SetGeometry(PaneOriginal, 1000, 200)
	c.SetGeometry(PaneTranslated, 500, 100)

	var translatedUpdates int
	c.Attach(PaneTranslated, func(offset float64) { translatedUpdates++ })
	c.Detach(PaneTranslated)

	c.OnScroll(PaneOriginal, 400)

	assert.Equal(t, 0, translatedUpdates)
	// State still tracks the mirrored position.
	assert.Equal(t, 200.0, c.Offset(PaneTranslated))
}
