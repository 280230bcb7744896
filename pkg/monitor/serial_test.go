package monitor

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeConn is the host end of a fake serial link; the test writes the
// firmware side into w.
type pipeConn struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func newPipeConn() *pipeConn {
	r, w := io.Pipe()
	return &pipeConn{r: r, w: w}
}

func (c *pipeConn) Read(p []byte) (int, error)  { return c.r.Read(p) }
func (c *pipeConn) Write(p []byte) (int, error) { return len(p), nil }
func (c *pipeConn) Close() error                { return c.r.Close() }

func newTestSerial(conn *pipeConn) (*Serial, *[]string) {
	var opened []string
	d := New("/dev/ttyTEST", 0, 0)
	d.open = func(name string, baudRate int) (io.ReadWriteCloser, error) {
		opened = append(opened, name)
		return conn, nil
	}
	return d, &opened
}

func TestNew_Defaults(t *testing.T) {
	d := New("COM7", 0, 0)
	assert.Equal(t, DefaultBaudRate, d.baudRate)
	assert.Equal(t, DefaultBufferSize, d.bufSize)
	assert.False(t, d.IsConnected())
	assert.Nil(t, d.Frames())
	assert.Equal(t, Stats{}, d.Stats())
}

func TestSerial_ReceivesFrames(t *testing.T) {
	conn := newPipeConn()
	d, opened := newTestSerial(conn)

	require.NoError(t, d.Connect())
	assert.True(t, d.IsConnected())
	assert.Equal(t, []string{"/dev/ttyTEST"}, *opened)

	go func() {
		io.WriteString(conn.w, "EOS\n0.5\n")
		io.WriteString(conn.w, "SOS\n8.00\n1.00\n-2.00\n16.00\nEOS\n")
		io.WriteString(conn.w, "SOS\r\n0.10\r\n0.20\r\n0.30\r\n0.40\r\nEOS\r\n")
	}()

	frames := d.Frames()
	for _, want := range [][4]float32{{8, 1, -2, 16}, {0.1, 0.2, 0.3, 0.4}} {
		select {
		case f := <-frames:
			assert.Equal(t, want, f.Values)
			assert.False(t, f.Timestamp.IsZero())
		case <-time.After(5 * time.Second):
			t.Fatal("frame not received")
		}
	}

	require.NoError(t, d.Close())
	assert.False(t, d.IsConnected())
	_, ok := <-frames
	assert.False(t, ok, "Channel should be closed")
	assert.Equal(t, uint64(2), d.Stats().Frames)
}

func TestSerial_Connect_AlreadyConnected(t *testing.T) {
	d, _ := newTestSerial(newPipeConn())

	require.NoError(t, d.Connect())
	defer d.Close()

	err := d.Connect()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already connected")
}

func TestSerial_Connect_OpenFails(t *testing.T) {
	d := New("/dev/nope", 9600, 1)
	d.open = func(string, int) (io.ReadWriteCloser, error) {
		return nil, errors.New("no such device")
	}

	err := d.Connect()
	assert.ErrorContains(t, err, "/dev/nope")
	assert.False(t, d.IsConnected())
}

func TestSerial_Close_NotConnected(t *testing.T) {
	d := New("COM7", 0, 0)
	assert.NoError(t, d.Close())
}

func TestSerial_Reconnect(t *testing.T) {
	d, opened := newTestSerial(newPipeConn())
	require.NoError(t, d.Connect())
	first := d.Frames()
	require.NoError(t, d.Close())

	d.open = func(name string, baudRate int) (io.ReadWriteCloser, error) {
		*opened = append(*opened, name)
		return newPipeConn(), nil
	}
	require.NoError(t, d.Connect())
	defer d.Close()

	assert.NotEqual(t, first, d.Frames())
	assert.Len(t, *opened, 2)
}

func TestSerial_SurvivesLineNoise(t *testing.T) {
	conn := newPipeConn()
	d, _ := newTestSerial(conn)
	require.NoError(t, d.Connect())
	defer d.Close()

	go func() {
		io.WriteString(conn.w, strings.Repeat("~", 70000)+"\n")
		io.WriteString(conn.w, "SOS\n1.00\n2.00\n3.00\n4.00\nEOS\n")
	}()

	select {
	case f := <-d.Frames():
		assert.Equal(t, [4]float32{1, 2, 3, 4}, f.Values)
	case <-time.After(5 * time.Second):
		t.Fatal("frame after noise not received")
	}
	assert.True(t, d.IsConnected())
}

func TestSerial_StreamEndDisconnects(t *testing.T) {
	conn := newPipeConn()
	d, _ := newTestSerial(conn)
	require.NoError(t, d.Connect())

	conn.w.Close()

	assert.Eventually(t, func() bool { return !d.IsConnected() }, 5*time.Second, time.Millisecond)
	_, ok := <-d.Frames()
	assert.False(t, ok, "Channel should be closed")

	require.NoError(t, d.Close())
	require.NoError(t, d.Connect(), "a dead connection can be reopened after Close")
	d.Close()
}
