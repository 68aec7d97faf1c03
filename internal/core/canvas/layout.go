package canvas

import "github.com/kirillkom/interview-insights/internal/core/domain"

const (
	MinClusterWidth  = 250.0
	MinClusterHeight = 200.0

	LayoutStartX      = 50.0
	LayoutStartY      = 50.0
	LayoutPadding     = 40.0
	LayoutMaxRowWidth = 1600.0
)

// AutoLayout packs clusters left to right in input order and wraps to a new
// row when the next cluster would extend the row past LayoutMaxRowWidth. A
// new row starts below the tallest cluster of the previous one. The first
// cluster of a row never wraps. The result depends only on order and sizes.
func AutoLayout(clusters []domain.Cluster) []domain.Cluster {
	out := domain.CloneClusters(clusters)
	x, y := LayoutStartX, LayoutStartY
	rowHeight := 0.0
	for i := range out {
		c := &out[i]
		if !c.HasGeometry() {
			c.Width, c.Height = domain.DefaultClusterWidth, domain.DefaultClusterHeight
		}
		if x > LayoutStartX && x-LayoutStartX+c.Width > LayoutMaxRowWidth {
			x = LayoutStartX
			y += rowHeight + LayoutPadding
			rowHeight = 0
		}
		c.X, c.Y = x, y
		x += c.Width + LayoutPadding
		if c.Height > rowHeight {
			rowHeight = c.Height
		}
	}
	return out
}

// EnsureGeometry gives clusters without a size the default size and a grid
// slot. Clusters that already have geometry are left alone.
func EnsureGeometry(clusters []domain.Cluster) []domain.Cluster {
	out := domain.CloneClusters(clusters)
	for i := range out {
		if out[i].HasGeometry() {
			continue
		}
		out[i].Width, out[i].Height = domain.DefaultClusterWidth, domain.DefaultClusterHeight
		out[i].X, out[i].Y = domain.GridPosition(i)
	}
	return out
}

func clampSize(width, height float64) (float64, float64) {
	if width < MinClusterWidth {
		width = MinClusterWidth
	}
	if height < MinClusterHeight {
		height = MinClusterHeight
	}
	return width, height
}
