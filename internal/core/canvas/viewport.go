package canvas

import "math"

const (
	MinScale         = 0.1
	MaxScale         = 4.0
	ZoomStep         = 0.2
	WheelSensitivity = 0.001
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Viewport maps canvas coordinates to screen coordinates:
// screen = canvas*Scale + Offset.
type Viewport struct {
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
	Scale   float64 `json:"scale"`
}

func DefaultViewport() Viewport {
	return Viewport{Scale: 1}
}

func (v Viewport) ToCanvas(p Point) Point {
	scale := v.Scale
	if scale <= 0 {
		scale = 1
	}
	return Point{X: (p.X - v.OffsetX) / scale, Y: (p.Y - v.OffsetY) / scale}
}

func (v Viewport) ToScreen(p Point) Point {
	return Point{X: p.X*v.Scale + v.OffsetX, Y: p.Y*v.Scale + v.OffsetY}
}

func clampScale(scale float64) float64 {
	if math.IsNaN(scale) {
		return 1
	}
	return math.Min(MaxScale, math.Max(MinScale, scale))
}

func roundScale(scale float64) float64 {
	return math.Round(scale*1000) / 1000
}
