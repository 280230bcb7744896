package scope

import (
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/itohio/capsense/pkg/trace"
	"github.com/stretchr/testify/assert"
)

// Grid: background, 9 horizontal lines and 11 vertical lines, each with a label.
const gridObjects = 1 + 9*2 + 11*2

// Legend: one label per channel plus the calibration state.
const legendObjects = trace.NumChannels + 1

func TestScopeWidget_Render(t *testing.T) {
	test.NewTempApp(t)

	s := New(5 * time.Second)
	s.Resize(fyne.NewSize(800, 400))
	s.UpdateData(testPoints(), [4]float32{1, 2, 3, 4}, trace.Calibrated)

	r := s.CreateRenderer()
	r.Layout(s.Size())
	r.Refresh()

	// Three points give two segments per channel.
	assert.Len(t, r.Objects(), gridObjects+4*2+legendObjects)

	s.SetVisible(2, false)
	r.Refresh()
	assert.Len(t, r.Objects(), gridObjects+3*2+legendObjects)

	s.SetVisible(7, false) // ignored
	assert.Equal(t, fyne.NewSize(400, 300), r.MinSize())
}

func TestScopeWidget_Scales(t *testing.T) {
	test.NewTempApp(t)

	s := New(5 * time.Second)
	s.UpdateData(testPoints(), [4]float32{}, trace.Uncalibrated)

	s.mu.RLock()
	assert.Less(t, s.yMin, float32(-4))
	assert.Greater(t, s.yMax, float32(14))
	assert.Equal(t, t0, s.xMin)
	s.mu.RUnlock()

	s.SetRelative(true)
	s.mu.RLock()
	assert.Less(t, s.yMin, float32(-5))
	assert.Less(t, s.yMax, float32(14))
	s.mu.RUnlock()
}

func TestScopeWidget_EmptyRender(t *testing.T) {
	test.NewTempApp(t)

	s := New(time.Second)
	r := s.CreateRenderer()
	r.Refresh() // zero size draws nothing
	assert.Len(t, r.Objects(), 1)
}
