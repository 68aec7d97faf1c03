package canvas

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/kirillkom/interview-insights/internal/core/domain"
)

func uniformClusters(n int, width, height float64) []domain.Cluster {
	out := make([]domain.Cluster, n)
	for i := range out {
		out[i] = domain.Cluster{ID: "c" + strconv.Itoa(i), Width: width, Height: height}
	}
	return out
}

func TestAutoLayoutWrapsRows(t *testing.T) {
	clusters := uniformClusters(6, 300, 350)
	clusters[2].Height = 500

	got := AutoLayout(clusters)

	wantX := []float64{50, 390, 730, 1070, 50, 390}
	for i, c := range got {
		if c.X != wantX[i] {
			t.Fatalf("cluster %d x = %v, want %v", i, c.X, wantX[i])
		}
	}
	for i := 0; i < 4; i++ {
		if got[i].Y != 50 {
			t.Fatalf("cluster %d y = %v, want 50", i, got[i].Y)
		}
	}
	// second row starts below the tallest cluster of the first plus padding
	if got[4].Y != 50+500+LayoutPadding || got[5].Y != got[4].Y {
		t.Fatalf("unexpected second row y %v %v", got[4].Y, got[5].Y)
	}
}

func TestAutoLayoutIsIdempotent(t *testing.T) {
	clusters := uniformClusters(9, 300, 350)
	clusters[3].Width = 700
	clusters[7].Height = 420

	first := AutoLayout(clusters)
	second := AutoLayout(first)

	for i := range first {
		if first[i].X != second[i].X || first[i].Y != second[i].Y {
			t.Fatalf("cluster %d moved between runs: (%v,%v) vs (%v,%v)", i, first[i].X, first[i].Y, second[i].X, second[i].Y)
		}
	}
}

func TestAutoLayoutOversizedClusterStaysOnRow(t *testing.T) {
	got := AutoLayout([]domain.Cluster{{ID: "wide", Width: 2000, Height: 300}, {ID: "next", Width: 300, Height: 300}})

	if got[0].X != LayoutStartX || got[0].Y != LayoutStartY {
		t.Fatalf("first cluster of a row must not wrap, got (%v,%v)", got[0].X, got[0].Y)
	}
	if got[1].X != LayoutStartX || got[1].Y != LayoutStartY+300+LayoutPadding {
		t.Fatalf("unexpected second cluster (%v,%v)", got[1].X, got[1].Y)
	}
}

func TestAutoLayoutDoesNotModifyInput(t *testing.T) {
	clusters := uniformClusters(2, 300, 350)
	_ = AutoLayout(clusters)
	if clusters[0].X != 0 || clusters[1].X != 0 {
		t.Fatalf("input was modified")
	}
}

func TestEnsureGeometryFillsMissingSizes(t *testing.T) {
	got := EnsureGeometry([]domain.Cluster{
		{ID: "placed", X: 7, Y: 9, Width: 260, Height: 210},
		{ID: "bare"},
	})

	if got[0].X != 7 || got[0].Width != 260 {
		t.Fatalf("placed cluster changed: %+v", got[0])
	}
	if got[1].Width != domain.DefaultClusterWidth || got[1].X != 450 || got[1].Y != 50 {
		t.Fatalf("unexpected bare cluster %+v", got[1])
	}
}

func TestEnsureGeometryFollowsAnalysisGrid(t *testing.T) {
	got := EnsureGeometry(make([]domain.Cluster, 4))
	for i, c := range got {
		x, y := domain.GridPosition(i)
		if c.X != x || c.Y != y {
			t.Fatalf("cluster %d at (%v,%v), want (%v,%v)", i, c.X, c.Y, x, y)
		}
	}
	if got[3].X != 50 || got[3].Y != 450 {
		t.Fatalf("fourth cluster must start the second row, got (%v,%v)", got[3].X, got[3].Y)
	}
}

func TestViewportJSONUsesCamelCase(t *testing.T) {
	raw, err := json.Marshal(Viewport{OffsetX: 1, OffsetY: 2, Scale: 1.5})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(raw) != `{"offsetX":1,"offsetY":2,"scale":1.5}` {
		t.Fatalf("unexpected viewport JSON %s", raw)
	}
}
