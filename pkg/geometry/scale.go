package geometry

// TimeToX maps a time to a pixel column. A zero-width viewport maps
// everything to 0.
func TimeToX(dims Dimensions, vp Window, t float64) float64 {
	span := vp.Time.Width()
	if span <= 0 {
		return 0
	}
	return dims.Width * (t - vp.Time.Min) / span
}

// FreqToY maps a frequency to a pixel row. The axis is inverted: the top row
// is vp.Freq.Max.
func FreqToY(dims Dimensions, vp Window, f float64) float64 {
	span := vp.Freq.Width()
	if span <= 0 {
		return 0
	}
	return dims.Height * (vp.Freq.Max - f) / span
}

// XToTime is the inverse of TimeToX. A zero-width surface maps to vp.Time.Min.
func XToTime(dims Dimensions, vp Window, x float64) float64 {
	if dims.Width <= 0 {
		return vp.Time.Min
	}
	return vp.Time.Min + x/dims.Width*vp.Time.Width()
}

// YToFreq is the inverse of FreqToY.
func YToFreq(dims Dimensions, vp Window, y float64) float64 {
	if dims.Height <= 0 {
		return vp.Freq.Max
	}
	return vp.Freq.Max - y/dims.Height*vp.Freq.Width()
}

// ToPixel converts a domain position to a pixel point.
func ToPixel(dims Dimensions, vp Window, p Position) Point2D {
	return Point2D{X: TimeToX(dims, vp, p.Time), Y: FreqToY(dims, vp, p.Freq)}
}

// ToDomain converts a pixel point to a domain position.
func ToDomain(dims Dimensions, vp Window, p Point2D) Position {
	return Position{Time: XToTime(dims, vp, p.X), Freq: YToFreq(dims, vp, p.Y)}
}

// ScaleToViewport converts a domain geometry into pixel space for the given
// viewport and surface size. The result carries x in Position.Time and y in
// Position.Freq and must not be stored as annotation state.
func ScaleToViewport(dims Dimensions, g Geometry, vp Window) Geometry {
	return g.Map(func(p Position) Position {
		return Position{Time: TimeToX(dims, vp, p.Time), Freq: FreqToY(dims, vp, p.Freq)}
	})
}

// ScaleToWindow converts a pixel-space geometry back into domain
// coordinates. It is the inverse of ScaleToViewport for any renderable
// viewport.
func ScaleToWindow(dims Dimensions, g Geometry, vp Window) Geometry {
	return g.Map(func(p Position) Position {
		return Position{Time: XToTime(dims, vp, p.Time), Freq: YToFreq(dims, vp, p.Freq)}
	})
}

// InWindow reports whether the bounding box of g overlaps w. It is a cheap
// culling test, not an exact intersection.
func InWindow(g Geometry, w Window) bool {
	return g.Bounds().Overlaps(w)
}

// ScaleDelta converts a pixel displacement into a domain displacement.
// Positive dy (downward) yields a negative frequency delta.
func ScaleDelta(dims Dimensions, vp Window, dx, dy float64) Position {
	var d Position
	if dims.Width > 0 {
		d.Time = dx / dims.Width * vp.Time.Width()
	}
	if dims.Height > 0 {
		d.Freq = -dy / dims.Height * vp.Freq.Width()
	}
	return d
}
