package trace

import (
	"sync"
	"time"

	"github.com/chewxy/math32"
	"github.com/itohio/capsense/pkg/acquire"
	"github.com/itohio/capsense/pkg/report"
)

// NumChannels is the number of traces.
const NumChannels = acquire.NumChannels

// Point is one received frame as displayed.
type Point struct {
	Timestamp time.Time
	Values    [NumChannels]float32 // pF as reported
	Relative  [NumChannels]float32 // Values minus the baseline
}

// State is the calibration state of a Trace.
type State int

const (
	Uncalibrated State = iota
	Calibrating
	Calibrated
)

func (s State) String() string {
	switch s {
	case Uncalibrated:
		return "uncalibrated"
	case Calibrating:
		return "calibrating"
	case Calibrated:
		return "calibrated"
	default:
		return "unknown"
	}
}

// UpdateFunc receives the window (oldest first), the baseline and the
// calibration state after every frame.
type UpdateFunc func(points []Point, baseline [NumChannels]float32, state State)

// Trace keeps the last frames of a report stream and a per-channel baseline.
//
// Calibration averages the next CalibrationFrames frames per channel and rounds
// the mean to the report precision; every point's Relative values are then the
// reported values minus that baseline. Before calibration the baseline is zero.
type Trace struct {
	window    int
	calFrames int

	mu       sync.RWMutex
	points   []Point // FIFO, oldest first, at most window long
	baseline [NumChannels]float32
	state    State
	calSum   [NumChannels]float64
	calN     int
	shutdown bool // input channel closed, no further callbacks

	cbMu      sync.RWMutex
	callbacks []UpdateFunc
}

// New creates a Trace holding at most window frames.
func New(window, calibrationFrames int) *Trace {
	if window < 1 {
		window = 1
	}
	if calibrationFrames < 1 {
		calibrationFrames = 1
	}
	return &Trace{
		window:    window,
		calFrames: calibrationFrames,
		points:    make([]Point, 0, window),
	}
}

// ProcessFrames consumes frames until the input channel closes. No callback
// runs after it returns; a new connection gets a new Trace.
func (t *Trace) ProcessFrames(input <-chan report.Frame) {
	for f := range input {
		t.Add(f)
	}
	t.mu.Lock()
	t.shutdown = true
	t.mu.Unlock()
}

// Add appends one frame and notifies the callbacks.
func (t *Trace) Add(f report.Frame) {
	t.mu.Lock()
	if len(t.points) == t.window {
		copy(t.points, t.points[1:])
		t.points = t.points[:t.window-1]
	}

	if t.state == Calibrating {
		for ch, v := range f.Values {
			t.calSum[ch] += float64(v)
		}
		t.calN++
		if t.calN == t.calFrames {
			for ch := range t.baseline {
				t.baseline[ch] = roundReport(float32(t.calSum[ch] / float64(t.calN)))
			}
			t.state = Calibrated
			for i := range t.points {
				t.points[i].Relative = relative(t.points[i].Values, t.baseline)
			}
		}
	}

	t.points = append(t.points, Point{
		Timestamp: f.Timestamp,
		Values:    f.Values,
		Relative:  relative(f.Values, t.baseline),
	})
	notify := !t.shutdown
	t.mu.Unlock()

	if notify {
		t.notifyCallbacks()
	}
}

// Calibrate starts collecting a new baseline from the next frames. The current
// baseline stays in effect until the collection completes.
func (t *Trace) Calibrate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = Calibrating
	t.calSum = [NumChannels]float64{}
	t.calN = 0
}

// Reset drops the baseline and any calibration in progress.
func (t *Trace) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = Uncalibrated
	t.baseline = [NumChannels]float32{}
	t.calSum = [NumChannels]float64{}
	t.calN = 0
	for i := range t.points {
		t.points[i].Relative = t.points[i].Values
	}
}

// Clear empties the window, keeping the baseline and any calibration in
// progress. Callbacks are not notified.
func (t *Trace) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.points = t.points[:0]
}

// Baseline returns the baseline and calibration state.
func (t *Trace) Baseline() ([NumChannels]float32, State) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.baseline, t.state
}

// Progress returns how many calibration frames have been collected and how
// many are needed.
func (t *Trace) Progress() (collected, total int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.calN, t.calFrames
}

// Points returns a copy of the window, oldest first.
func (t *Trace) Points() []Point {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]Point, len(t.points))
	copy(result, t.points)
	return result
}

// OnUpdate registers a callback function that will be called after every frame.
// The callback should copy data quickly and return as fast as possible.
func (t *Trace) OnUpdate(callback UpdateFunc) {
	t.cbMu.Lock()
	defer t.cbMu.Unlock()
	t.callbacks = append(t.callbacks, callback)
}

// notifyCallbacks copies the state under the read lock and invokes the
// callbacks without holding any lock.
func (t *Trace) notifyCallbacks() {
	t.mu.RLock()
	points := make([]Point, len(t.points))
	copy(points, t.points)
	baseline, state := t.baseline, t.state
	t.mu.RUnlock()

	t.cbMu.RLock()
	callbacks := make([]UpdateFunc, len(t.callbacks))
	copy(callbacks, t.callbacks)
	t.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(points, baseline, state)
		}
	}
}

func relative(values, baseline [NumChannels]float32) [NumChannels]float32 {
	var r [NumChannels]float32
	for ch := range values {
		r[ch] = values[ch] - baseline[ch]
	}
	return r
}

// roundReport rounds to the report's decimal precision, half away from zero.
func roundReport(v float32) float32 {
	const scale = 100
	if v < 0 {
		return -math32.Floor(-v*scale+0.5) / scale
	}
	return math32.Floor(v*scale+0.5) / scale
}
