package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestMock_GracefulShutdown tests that Mock device closes frames channel
// when Close() is called.
func TestMock_GracefulShutdown(t *testing.T) {
	mock := NewMock(testMockConfig())
	err := mock.Connect()
	assert.NoError(t, err)

	frames := mock.Frames()

	// Read a few frames
	received := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range frames {
			received++
			if received == 3 {
				// Got enough frames, now close device
				go mock.Close()
			}
		}
	}()

	// Wait for frames and channel closure
	select {
	case <-done:
		// Channel closed successfully
	case <-time.After(5 * time.Second):
		t.Fatal("Frames channel did not close within timeout")
	}

	// Should have received at least a few frames
	assert.GreaterOrEqual(t, received, 3, "Should receive frames before channel closes")

	// Verify channel is closed
	_, ok := <-frames
	assert.False(t, ok, "Channel should be closed")
	assert.Eventually(t, func() bool { return !mock.IsConnected() }, time.Second, time.Millisecond)
}
