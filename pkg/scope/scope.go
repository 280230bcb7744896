package scope

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/capsense/pkg/trace"
)

// channelColors are the trace colors, one per channel.
var channelColors = [trace.NumChannels]color.RGBA{
	{R: 255, G: 165, B: 0, A: 255},   // orange
	{R: 100, G: 200, B: 255, A: 255}, // light blue
	{R: 120, G: 220, B: 120, A: 255}, // green
	{R: 230, G: 100, B: 200, A: 255}, // magenta
}

// ScopeWidget is a custom Fyne widget that displays the four capacitance traces.
type ScopeWidget struct {
	widget.BaseWidget

	span time.Duration // minimum visible time span

	// Data (protected by mu)
	mu       sync.RWMutex
	display  []trace.Point // downsampled, reused between updates
	baseline [trace.NumChannels]float32
	state    trace.State
	relative bool
	visible  [trace.NumChannels]bool

	// Auto-scaling
	yMin, yMax float32
	xMin, xMax time.Time

	maxDisplayPoints int
}

// New creates a new ScopeWidget showing at least span of time.
func New(span time.Duration) *ScopeWidget {
	s := &ScopeWidget{
		span:             span,
		display:          make([]trace.Point, 0, 1000),
		maxDisplayPoints: 1000, // Limit points for efficient rendering
	}
	for ch := range s.visible {
		s.visible[ch] = true
	}
	s.updateAutoScale()
	s.ExtendBaseWidget(s)
	s.Refresh()
	return s
}

// UpdateData updates the widget with the current trace window.
// This should be called from the trace callback using fyne.Do().
func (s *ScopeWidget) UpdateData(points []trace.Point, baseline [trace.NumChannels]float32, state trace.State) {
	s.mu.Lock()
	s.display = trace.Downsample(s.display, points, s.maxDisplayPoints)
	s.baseline = baseline
	s.state = state
	s.updateAutoScale()
	s.mu.Unlock()

	// Refresh outside the lock; the renderer takes the read lock.
	s.Refresh()
}

// SetRelative switches between absolute and baseline-relative values.
func (s *ScopeWidget) SetRelative(relative bool) {
	s.mu.Lock()
	s.relative = relative
	s.updateAutoScale()
	s.mu.Unlock()
	s.Refresh()
}

// SetVisible shows or hides one channel's trace.
func (s *ScopeWidget) SetVisible(ch int, visible bool) {
	if ch < 0 || ch >= trace.NumChannels {
		return
	}
	s.mu.Lock()
	s.visible[ch] = visible
	s.updateAutoScale()
	s.mu.Unlock()
	s.Refresh()
}

// updateAutoScale recomputes the axes. Callers hold mu.
func (s *ScopeWidget) updateAutoScale() {
	s.yMin, s.yMax = valueRange(s.display, s.relative, s.visible)
	s.xMin, s.xMax = timeRange(s.display, s.span, time.Now())
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	grid := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255}) // Dark background
	return &scopeRenderer{
		scope:   s,
		grid:    grid,
		objects: []fyne.CanvasObject{grid},
	}
}
