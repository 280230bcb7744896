package trace

// Downsample reduces points to at most maxPoints by decimation for display.
// Destination-based: reuses dst if it has sufficient capacity, otherwise allocates new.
// The newest point is always kept so the plot ends at the latest frame.
func Downsample(dst []Point, points []Point, maxPoints int) []Point {
	if maxPoints <= 0 {
		return dst[:0]
	}

	if len(points) <= maxPoints {
		if cap(dst) >= len(points) {
			dst = dst[:len(points)]
			copy(dst, points)
			return dst
		}
		result := make([]Point, len(points))
		copy(result, points)
		return result
	}

	if cap(dst) >= maxPoints {
		dst = dst[:0]
	} else {
		dst = make([]Point, 0, maxPoints)
	}

	if maxPoints == 1 {
		return append(dst, points[len(points)-1])
	}

	// Spread maxPoints indices evenly over [0, len-1].
	last := len(points) - 1
	for i := range maxPoints {
		dst = append(dst, points[i*last/(maxPoints-1)])
	}
	return dst
}

// Series extracts one channel of points into dst, absolute or relative.
// Destination-based like Downsample.
func Series(dst []float32, points []Point, ch int, rel bool) []float32 {
	if cap(dst) >= len(points) {
		dst = dst[:len(points)]
	} else {
		dst = make([]float32, len(points))
	}
	for i := range points {
		if rel {
			dst[i] = points[i].Relative[ch]
		} else {
			dst[i] = points[i].Values[ch]
		}
	}
	return dst
}
