package canvas

import (
	"errors"
	"math"
	"strconv"
	"testing"

	"github.com/kirillkom/interview-insights/internal/core/domain"
)

func testClusters() []domain.Cluster {
	return []domain.Cluster{
		{ID: "c1", Title: "One", X: 100, Y: 100, Width: 300, Height: 350, Items: []domain.AffinityItem{
			{ID: "i1", Text: "first", Type: domain.ItemNote},
			{ID: "i2", Text: "second", Type: domain.ItemNote},
			{ID: "i3", Text: "third", Type: domain.ItemNote},
		}},
		{ID: "c2", Title: "Two", X: 500, Y: 100, Width: 300, Height: 350, Items: []domain.AffinityItem{
			{ID: "j1", Text: "other", Type: domain.ItemNote},
		}},
	}
}

type changeRecorder struct {
	calls int
	last  []domain.Cluster
}

func (r *changeRecorder) record(clusters []domain.Cluster) {
	r.calls++
	r.last = clusters
}

func newTestBoard(t *testing.T) (*Board, *changeRecorder) {
	t.Helper()
	rec := &changeRecorder{}
	n := 0
	b := NewBoard(testClusters(),
		WithOnChange(rec.record),
		WithIDGenerator(func() string { n++; return "new" + strconv.Itoa(n) }),
		WithColorPicker(func(int) int { return 0 }),
	)
	return b, rec
}

func itemIDs(c domain.Cluster) []string {
	out := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		out = append(out, it.ID)
	}
	return out
}

func equalIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestPanUsesRelativeDeltas(t *testing.T) {
	b, rec := newTestBoard(t)

	if err := b.PointerDown(Target{Kind: TargetBackground}, Point{X: 10, Y: 10}); err != nil {
		t.Fatalf("PointerDown() error = %v", err)
	}
	if !b.Listening() {
		t.Fatalf("expected board to listen during a gesture")
	}
	b.PointerMove(Point{X: 20, Y: 15})
	b.PointerMove(Point{X: 25, Y: 30})
	b.PointerUp()

	v := b.Viewport()
	if v.OffsetX != 15 || v.OffsetY != 20 {
		t.Fatalf("unexpected offset (%v,%v)", v.OffsetX, v.OffsetY)
	}
	if b.Listening() {
		t.Fatalf("expected listeners released after pointer up")
	}
	if rec.calls != 0 {
		t.Fatalf("pan must not commit clusters, got %d commits", rec.calls)
	}
}

func TestDragIsScaleCorrectedAndCommitsOnlyOnPointerUp(t *testing.T) {
	b, rec := newTestBoard(t)
	b.ZoomIn()
	b.ZoomIn()
	b.ZoomIn()
	b.ZoomIn()
	b.ZoomIn() // 2.0
	if b.Viewport().Scale != 2 {
		t.Fatalf("expected scale 2, got %v", b.Viewport().Scale)
	}

	if err := b.PointerDown(Target{Kind: TargetClusterHeader, ClusterID: "c1"}, Point{X: 0, Y: 0}); err != nil {
		t.Fatalf("PointerDown() error = %v", err)
	}
	b.PointerMove(Point{X: 50, Y: 20})
	b.PointerMove(Point{X: 100, Y: 40})

	if rec.calls != 0 {
		t.Fatalf("intermediate frames must not commit")
	}
	preview := b.Clusters()[0]
	if preview.X != 150 || preview.Y != 120 {
		t.Fatalf("unexpected preview position (%v,%v)", preview.X, preview.Y)
	}
	if committed := b.Committed()[0]; committed.X != 100 || committed.Y != 100 {
		t.Fatalf("committed position changed during drag: (%v,%v)", committed.X, committed.Y)
	}

	b.PointerUp()
	if rec.calls != 1 {
		t.Fatalf("expected exactly one commit, got %d", rec.calls)
	}
	if got := rec.last[0]; got.X != 150 || got.Y != 120 {
		t.Fatalf("unexpected committed position (%v,%v)", got.X, got.Y)
	}
}

func TestResizeIsFlooredAtMinimum(t *testing.T) {
	b, rec := newTestBoard(t)

	if err := b.PointerDown(Target{Kind: TargetResizeHandle, ClusterID: "c2"}, Point{X: 0, Y: 0}); err != nil {
		t.Fatalf("PointerDown() error = %v", err)
	}
	b.PointerMove(Point{X: -500, Y: -500})
	b.PointerMove(Point{X: 20, Y: 10})
	b.PointerUp()

	got := rec.last[1]
	if got.Width != 320 || got.Height != 360 {
		t.Fatalf("unexpected size %vx%v", got.Width, got.Height)
	}

	if err := b.PointerDown(Target{Kind: TargetResizeHandle, ClusterID: "c2"}, Point{X: 0, Y: 0}); err != nil {
		t.Fatalf("PointerDown() error = %v", err)
	}
	b.PointerMove(Point{X: -1000, Y: -1000})
	b.PointerUp()
	got = rec.last[1]
	if got.Width != MinClusterWidth || got.Height != MinClusterHeight {
		t.Fatalf("expected minimum size, got %vx%v", got.Width, got.Height)
	}
}

func TestCancelDiscardsGesture(t *testing.T) {
	b, rec := newTestBoard(t)

	_ = b.PointerDown(Target{Kind: TargetClusterHeader, ClusterID: "c1"}, Point{})
	b.PointerMove(Point{X: 300, Y: 300})
	b.Cancel()
	if rec.calls != 0 || b.Clusters()[0].X != 100 {
		t.Fatalf("cancelled drag must leave the cluster in place")
	}

	_ = b.PointerDown(Target{Kind: TargetBackground}, Point{})
	b.PointerMove(Point{X: 300, Y: 300})
	b.Cancel()
	if v := b.Viewport(); v.OffsetX != 0 || v.OffsetY != 0 {
		t.Fatalf("cancelled pan must restore the view, got %+v", v)
	}
}

func TestPointerDownRejectsUnknownClusterAndOverlappingGesture(t *testing.T) {
	b, _ := newTestBoard(t)

	if err := b.PointerDown(Target{Kind: TargetClusterHeader, ClusterID: "nope"}, Point{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_ = b.PointerDown(Target{Kind: TargetBackground}, Point{})
	if err := b.PointerDown(Target{Kind: TargetBackground}, Point{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestZoomIsClampedAndResets(t *testing.T) {
	b, _ := newTestBoard(t)

	for i := 0; i < 50; i++ {
		b.ZoomIn()
	}
	if got := b.Viewport().Scale; got != MaxScale {
		t.Fatalf("expected scale clamped to %v, got %v", MaxScale, got)
	}
	for i := 0; i < 50; i++ {
		b.ZoomOut()
	}
	if got := b.Viewport().Scale; got != MinScale {
		t.Fatalf("expected scale clamped to %v, got %v", MinScale, got)
	}
	b.Wheel(-100000, Point{X: 10, Y: 10})
	if got := b.Viewport().Scale; got != MaxScale {
		t.Fatalf("expected wheel zoom clamped to %v, got %v", MaxScale, got)
	}

	b.ResetView()
	if v := b.Viewport(); v.Scale != 1 || v.OffsetX != 0 || v.OffsetY != 0 {
		t.Fatalf("unexpected view after reset %+v", v)
	}
}

func TestWheelKeepsAnchorFixed(t *testing.T) {
	b, _ := newTestBoard(t)
	anchor := Point{X: 400, Y: 300}
	before := b.Viewport().ToCanvas(anchor)

	b.Wheel(-200, anchor)

	after := b.Viewport().ToCanvas(anchor)
	if math.Abs(after.X-before.X) > 1e-9 || math.Abs(after.Y-before.Y) > 1e-9 {
		t.Fatalf("anchor moved from %+v to %+v", before, after)
	}
	if b.Viewport().Scale <= 1 {
		t.Fatalf("expected zoom in, got scale %v", b.Viewport().Scale)
	}
}

func TestAddClusterAtViewportCenter(t *testing.T) {
	b, rec := newTestBoard(t)
	_ = b.PointerDown(Target{Kind: TargetBackground}, Point{})
	b.PointerMove(Point{X: 100, Y: 50})
	b.PointerUp()

	c := b.AddCluster("", 1000, 800)

	if c.ID != "new1" || c.Title != "New cluster" || c.Color != domain.ClusterPalette[0] {
		t.Fatalf("unexpected cluster %+v", c)
	}
	// center (500,400) on screen is (400,350) on the canvas
	if c.X != 400-domain.DefaultClusterWidth/2 || c.Y != 350-domain.DefaultClusterHeight/2 {
		t.Fatalf("unexpected position (%v,%v)", c.X, c.Y)
	}
	if rec.calls != 1 || len(rec.last) != 3 {
		t.Fatalf("expected committed list of 3, got %d commits", rec.calls)
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	b, rec := newTestBoard(t)

	if err := b.RequestDelete("c1"); err != nil {
		t.Fatalf("RequestDelete() error = %v", err)
	}
	if len(b.Committed()) != 2 || rec.calls != 0 {
		t.Fatalf("request alone must not delete")
	}
	b.CancelDelete()
	if err := b.ConfirmDelete(); !errors.Is(err, domain.ErrConfirmationRequired) {
		t.Fatalf("expected ErrConfirmationRequired after cancel, got %v", err)
	}
	if len(b.Committed()) != 2 {
		t.Fatalf("cancelled delete must leave clusters unchanged")
	}

	_ = b.RequestDelete("c1")
	if err := b.ConfirmDelete(); err != nil {
		t.Fatalf("ConfirmDelete() error = %v", err)
	}
	if got := b.Committed(); len(got) != 1 || got[0].ID != "c2" {
		t.Fatalf("unexpected clusters after delete %+v", got)
	}
	if rec.calls != 1 {
		t.Fatalf("expected one commit, got %d", rec.calls)
	}
}

func TestNoteDraftCommitsOnlyOnCommit(t *testing.T) {
	b, rec := newTestBoard(t)

	if err := b.BeginNote("c1", "i1"); err != nil {
		t.Fatalf("BeginNote() error = %v", err)
	}
	_ = b.UpdateNote("fi")
	_ = b.UpdateNote("first, edited")
	if rec.calls != 0 {
		t.Fatalf("draft edits must not commit")
	}
	if got := b.Clusters()[0].Items[0].Text; got != "first, edited" {
		t.Fatalf("expected draft visible, got %q", got)
	}
	if err := b.CommitNote(); err != nil {
		t.Fatalf("CommitNote() error = %v", err)
	}
	if rec.calls != 1 || rec.last[0].Items[0].Text != "first, edited" {
		t.Fatalf("expected committed note text")
	}

	_ = b.BeginNote("c1", "i2")
	_ = b.UpdateNote("discarded")
	b.CancelNote()
	if got := b.Clusters()[0].Items[1].Text; got != "second" {
		t.Fatalf("cancelled draft leaked: %q", got)
	}
	if err := b.UpdateNote("x"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without a draft, got %v", err)
	}
}

func TestAddAndDeleteNote(t *testing.T) {
	b, rec := newTestBoard(t)

	item, err := b.AddNote("c2", "idea")
	if err != nil {
		t.Fatalf("AddNote() error = %v", err)
	}
	if item.Type != domain.ItemNote || item.ID != "new1" {
		t.Fatalf("unexpected note %+v", item)
	}
	if err := b.DeleteNote("c2", "j1"); err != nil {
		t.Fatalf("DeleteNote() error = %v", err)
	}
	if got := itemIDs(rec.last[1]); !equalIDs(got, []string{"new1"}) {
		t.Fatalf("unexpected items %v", got)
	}
	if err := b.DeleteNote("c2", "j1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMoveItem(t *testing.T) {
	tests := []struct {
		name     string
		item     string
		from, to string
		before   string
		wantC1   []string
		wantC2   []string
	}{
		{"reorder within cluster", "i3", "c1", "c1", "i1", []string{"i3", "i1", "i2"}, []string{"j1"}},
		{"move to end of own cluster", "i1", "c1", "c1", "", []string{"i2", "i3", "i1"}, []string{"j1"}},
		{"append to other cluster", "i2", "c1", "c2", "", []string{"i1", "i3"}, []string{"j1", "i2"}},
		{"insert before target", "i2", "c1", "c2", "j1", []string{"i1", "i3"}, []string{"i2", "j1"}},
		{"drop on itself", "i2", "c1", "c1", "i2", []string{"i1", "i2", "i3"}, []string{"j1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBoard(t)
			if err := b.MoveItem(tt.item, tt.from, tt.to, tt.before); err != nil {
				t.Fatalf("MoveItem() error = %v", err)
			}
			got := b.Committed()
			if ids := itemIDs(got[0]); !equalIDs(ids, tt.wantC1) {
				t.Fatalf("c1 items = %v, want %v", ids, tt.wantC1)
			}
			if ids := itemIDs(got[1]); !equalIDs(ids, tt.wantC2) {
				t.Fatalf("c2 items = %v, want %v", ids, tt.wantC2)
			}
		})
	}
}

func TestMoveItemDoesNotAliasPreviousState(t *testing.T) {
	b, rec := newTestBoard(t)
	before := b.Committed()

	if err := b.MoveItem("i1", "c1", "c2", ""); err != nil {
		t.Fatalf("MoveItem() error = %v", err)
	}
	if rec.calls != 1 {
		t.Fatalf("move must commit immediately")
	}
	if ids := itemIDs(before[0]); !equalIDs(ids, []string{"i1", "i2", "i3"}) {
		t.Fatalf("previous snapshot mutated: %v", ids)
	}
}

func TestUpdateClusterClampsSize(t *testing.T) {
	b, _ := newTestBoard(t)
	title := "Renamed"
	width := 10.0

	c, err := b.UpdateCluster("c1", domain.ClusterPatch{Title: &title, Width: &width})
	if err != nil {
		t.Fatalf("UpdateCluster() error = %v", err)
	}
	if c.Title != "Renamed" || c.Width != MinClusterWidth || c.Height != 350 {
		t.Fatalf("unexpected cluster %+v", c)
	}
}
