package scope

import (
	"fmt"
	"time"

	"github.com/chewxy/math32"
	"github.com/itohio/capsense/pkg/trace"
)

// valueRange returns the Y range covering every visible value plus a 10%
// margin. An empty or flat trace gets a 1 pF span.
func valueRange(points []trace.Point, relative bool, visible [trace.NumChannels]bool) (lo, hi float32) {
	first := true
	for _, p := range points {
		values := p.Values
		if relative {
			values = p.Relative
		}
		for ch, v := range values {
			if !visible[ch] {
				continue
			}
			if first {
				lo, hi, first = v, v, false
				continue
			}
			lo = math32.Min(lo, v)
			hi = math32.Max(hi, v)
		}
	}
	if first {
		return 0, 1
	}

	span := hi - lo
	if span == 0 {
		span = 1
	}
	margin := span * 0.1
	return lo - margin, hi + margin
}

// timeRange returns the X range: from the oldest point, at least span long.
func timeRange(points []trace.Point, span time.Duration, now time.Time) (from, to time.Time) {
	if len(points) == 0 {
		return now, now.Add(span)
	}
	from = points[0].Timestamp
	to = points[len(points)-1].Timestamp
	if to.Sub(from) < span {
		to = from.Add(span)
	}
	return from, to
}

// project maps v in [lo, hi] onto a vertical extent of height starting at top,
// with hi at the top.
func project(v, lo, hi, top, height float32) float32 {
	if hi == lo {
		return top + height/2
	}
	return top + height - (v-lo)/(hi-lo)*height
}

// projectTime maps t in [from, to] onto a horizontal extent of width starting at left.
func projectTime(t, from, to time.Time, left, width float32) float32 {
	total := to.Sub(from).Seconds()
	if total <= 0 {
		return left
	}
	return left + float32(t.Sub(from).Seconds()/total)*width
}

func formatCapacitance(v float32) string {
	if math32.Abs(v) < 0.005 {
		v = 0
	}
	return fmt.Sprintf("%.2f pF", v)
}

func formatTime(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
