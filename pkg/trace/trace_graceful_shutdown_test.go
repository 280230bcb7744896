package trace

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/itohio/capsense/pkg/report"
	"github.com/stretchr/testify/assert"
)

// TestTrace_GracefulShutdown_NoCallbacksAfterClose tests that the trace stops
// sending callbacks after the input channel is closed.
func TestTrace_GracefulShutdown_NoCallbacksAfterClose(t *testing.T) {
	tr := New(50, 50)

	var calls atomic.Int32
	tr.OnUpdate(func([]Point, [NumChannels]float32, State) {
		calls.Add(1)
	})

	input := make(chan report.Frame, 10)
	done := make(chan struct{})
	go func() {
		tr.ProcessFrames(input)
		close(done)
	}()

	for i := range 3 {
		input <- frame(i, float32(i))
	}
	close(input)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ProcessFrames did not return after input closed")
	}
	assert.Equal(t, int32(3), calls.Load())

	// Frames added after shutdown are kept but not announced.
	tr.Add(frame(3, 3))
	assert.Equal(t, int32(3), calls.Load())
	assert.Len(t, tr.Points(), 4)
}
