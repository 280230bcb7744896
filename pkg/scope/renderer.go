package scope

import (
	"fmt"
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/itohio/capsense/pkg/trace"
)

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *ScopeWidget

	// Background
	grid *canvas.Rectangle

	// Objects list for Fyne
	objects []fyne.CanvasObject

	// Track last size to detect changes
	lastSize fyne.Size

	// series scratch, reused across refreshes
	series []float32
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	r.grid.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh rebuilds the plot from the widget's current data.
func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	points := r.scope.display
	baseline := r.scope.baseline
	state := r.scope.state
	relative := r.scope.relative
	visible := r.scope.visible
	yMin, yMax := r.scope.yMin, r.scope.yMax
	xMin, xMax := r.scope.xMin, r.scope.xMax
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	r.objects = []fyne.CanvasObject{r.grid}

	marginLeft := float32(70.0)
	marginRight := float32(20.0)
	marginTop := float32(30.0)
	marginBottom := float32(40.0)

	plotWidth := size.Width - marginLeft - marginRight
	plotHeight := size.Height - marginTop - marginBottom
	plotX := marginLeft
	plotY := marginTop

	r.drawGrid(plotX, plotY, plotWidth, plotHeight, yMin, yMax, xMin, xMax)

	for ch := range trace.NumChannels {
		if visible[ch] && len(points) > 1 {
			r.drawTrace(ch, plotX, plotY, plotWidth, plotHeight, points, relative, yMin, yMax, xMin, xMax)
		}
	}

	r.drawLegend(plotX, points, baseline, state, relative, visible)
}

// drawGrid draws the oscilloscope-style grid.
func (r *scopeRenderer) drawGrid(plotX, plotY, plotWidth, plotHeight, yMin, yMax float32, xMin, xMax time.Time) {
	gridColor := color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor := color.RGBA{R: 150, G: 150, B: 150, A: 255}

	numHLines := 8
	for i := range numHLines + 1 {
		y := plotY + float32(i)*plotHeight/float32(numHLines)
		line := canvas.NewLine(gridColor)
		line.Position1 = fyne.NewPos(plotX, y)
		line.Position2 = fyne.NewPos(plotX+plotWidth, y)
		line.StrokeWidth = 1
		r.objects = append(r.objects, line)

		value := yMax - float32(i)*(yMax-yMin)/float32(numHLines)
		text := canvas.NewText(formatCapacitance(value), labelColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignTrailing
		text.Move(fyne.NewPos(plotX-5, y-6))
		r.objects = append(r.objects, text)
	}

	numVLines := 10
	span := xMax.Sub(xMin)
	for i := range numVLines + 1 {
		x := plotX + float32(i)*plotWidth/float32(numVLines)
		line := canvas.NewLine(gridColor)
		line.Position1 = fyne.NewPos(x, plotY)
		line.Position2 = fyne.NewPos(x, plotY+plotHeight)
		line.StrokeWidth = 1
		r.objects = append(r.objects, line)

		text := canvas.NewText(formatTime(span*time.Duration(i)/time.Duration(numVLines)), labelColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignCenter
		text.Move(fyne.NewPos(x-20, plotY+plotHeight+5))
		r.objects = append(r.objects, text)
	}
}

// drawTrace draws one channel as connected line segments.
func (r *scopeRenderer) drawTrace(ch int, plotX, plotY, plotWidth, plotHeight float32, points []trace.Point, relative bool, yMin, yMax float32, xMin, xMax time.Time) {
	r.series = trace.Series(r.series, points, ch, relative)

	var prev fyne.Position
	for i, v := range r.series {
		pos := fyne.NewPos(
			projectTime(points[i].Timestamp, xMin, xMax, plotX, plotWidth),
			project(v, yMin, yMax, plotY, plotHeight),
		)
		if i > 0 {
			line := canvas.NewLine(channelColors[ch])
			line.Position1 = prev
			line.Position2 = pos
			line.StrokeWidth = 1.5
			r.objects = append(r.objects, line)
		}
		prev = pos
	}
}

// drawLegend draws the latest value of every channel and the calibration state.
func (r *scopeRenderer) drawLegend(plotX float32, points []trace.Point, baseline [trace.NumChannels]float32, state trace.State, relative bool, visible [trace.NumChannels]bool) {
	x := plotX + 10
	for ch := range trace.NumChannels {
		label := fmt.Sprintf("CH%d", ch+1)
		if len(points) > 0 {
			last := points[len(points)-1]
			v := last.Values[ch]
			if relative {
				v = last.Relative[ch]
			}
			label += " " + formatCapacitance(v)
		}
		c := channelColors[ch]
		if !visible[ch] {
			c.A = 80
		}
		text := canvas.NewText(label, c)
		text.TextSize = 11
		text.Move(fyne.NewPos(x, 8))
		r.objects = append(r.objects, text)
		x += 120
	}

	status := state.String()
	if state == trace.Calibrated {
		status = fmt.Sprintf("baseline %s / %s / %s / %s",
			formatCapacitance(baseline[0]), formatCapacitance(baseline[1]),
			formatCapacitance(baseline[2]), formatCapacitance(baseline[3]))
	}
	text := canvas.NewText(status, color.RGBA{R: 200, G: 200, B: 200, A: 255})
	text.TextSize = 11
	text.Move(fyne.NewPos(x, 8))
	r.objects = append(r.objects, text)
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {
	// Cleanup handled by Fyne
}
