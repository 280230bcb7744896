package monitor

import (
	"errors"
	"io"
	"log"
	"sync/atomic"

	"github.com/itohio/capsense/pkg/report"
)

// Stats counts what happened to the reports of one connection.
type Stats struct {
	Frames    uint64 // delivered to the frames channel
	Malformed uint64 // blocks skipped by the decoder
	Overflow  uint64 // frames dropped because the channel was full
}

// pump decodes reports from a stream into a channel until the stream ends.
// It owns the channel and closes it on exit.
type pump struct {
	frames chan report.Frame
	done   chan struct{}
	dec    *report.Decoder

	stopping  atomic.Bool
	delivered atomic.Uint64
	malformed atomic.Uint64
	overflow  atomic.Uint64
}

func startPump(r io.Reader, bufSize int) *pump {
	p := &pump{
		frames: make(chan report.Frame, bufSize),
		done:   make(chan struct{}),
		dec:    report.NewDecoder(r),
	}
	go p.run()
	return p
}

func (p *pump) run() {
	defer close(p.done)
	defer close(p.frames)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in frame reader: %v", r)
		}
	}()

	for {
		frame, err := p.dec.Next()
		p.malformed.Store(uint64(p.dec.Dropped()))
		if err != nil {
			if !p.stopping.Load() && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				log.Printf("Error reading reports: %v", err)
			}
			return
		}

		// Non-blocking: a slow consumer loses frames, the stream never stalls.
		select {
		case p.frames <- frame:
			p.delivered.Add(1)
		default:
			p.overflow.Add(1)
			log.Printf("Frames channel full, dropping frame")
		}
	}
}

// stop marks the pump as stopping so the read error caused by closing the
// stream is not logged.
func (p *pump) stop() {
	p.stopping.Store(true)
}

func (p *pump) wait() {
	<-p.done
}

// exited reports whether the stream ended, by error or by stop.
func (p *pump) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *pump) stats() Stats {
	return Stats{
		Frames:    p.delivered.Load(),
		Malformed: p.malformed.Load(),
		Overflow:  p.overflow.Load(),
	}
}
