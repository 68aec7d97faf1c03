package canvas

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/interview-insights/internal/core/domain"
)

type TargetKind int

const (
	TargetBackground TargetKind = iota
	TargetClusterHeader
	TargetResizeHandle
)

// Target is what a pointer-down landed on.
type Target struct {
	Kind      TargetKind
	ClusterID string
}

type gestureKind int

const (
	gestureNone gestureKind = iota
	gesturePan
	gestureDrag
	gestureResize
)

type gesture struct {
	kind      gestureKind
	clusterID string
	start     Point
	last      Point
	origin    domain.Cluster
	preview   domain.Cluster
	viewStart Viewport
}

type noteDraft struct {
	clusterID string
	itemID    string
	text      string
}

type Option func(*Board)

// WithOnChange registers the callback receiving every committed cluster list.
func WithOnChange(fn func([]domain.Cluster)) Option {
	return func(b *Board) { b.onChange = fn }
}

func WithIDGenerator(fn func() string) Option {
	return func(b *Board) { b.newID = fn }
}

// WithColorPicker replaces the random palette index used for new clusters.
func WithColorPicker(fn func(n int) int) Option {
	return func(b *Board) { b.pickColor = fn }
}

// Board is the affinity canvas state. Committed clusters change only through
// committing operations; gestures and note drafts are previews layered on top
// until they are committed. A Board is not safe for concurrent use.
type Board struct {
	committed []domain.Cluster
	view      Viewport
	gesture   gesture
	note      *noteDraft
	pending   string

	onChange  func([]domain.Cluster)
	newID     func() string
	pickColor func(n int) int
}

func NewBoard(clusters []domain.Cluster, opts ...Option) *Board {
	b := &Board{
		committed: EnsureGeometry(clusters),
		view:      DefaultViewport(),
		newID:     uuid.NewString,
		pickColor: rand.IntN,
	}
	if b.committed == nil {
		b.committed = []domain.Cluster{}
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Committed returns the persisted cluster list.
func (b *Board) Committed() []domain.Cluster {
	return domain.CloneClusters(b.committed)
}

// Clusters returns what should be drawn: the committed list with the active
// gesture and note draft applied.
func (b *Board) Clusters() []domain.Cluster {
	out := domain.CloneClusters(b.committed)
	if b.gesture.kind == gestureDrag || b.gesture.kind == gestureResize {
		if i := indexOf(out, b.gesture.clusterID); i >= 0 {
			out[i].X, out[i].Y = b.gesture.preview.X, b.gesture.preview.Y
			out[i].Width, out[i].Height = b.gesture.preview.Width, b.gesture.preview.Height
		}
	}
	if b.note != nil {
		if i := indexOf(out, b.note.clusterID); i >= 0 {
			if j := itemIndex(out[i].Items, b.note.itemID); j >= 0 {
				out[i].Items[j].Text = b.note.text
			}
		}
	}
	return out
}

func (b *Board) Viewport() Viewport {
	return b.view
}

// Listening reports whether pointer-move and pointer-up events are wanted.
// It is true only while a gesture is active.
func (b *Board) Listening() bool {
	return b.gesture.kind != gestureNone
}

func (b *Board) PendingDelete() string {
	return b.pending
}

func (b *Board) PointerDown(target Target, at Point) error {
	if b.Listening() {
		return domain.WrapError(domain.ErrInvalidInput, "canvas pointer down", errors.New("a gesture is already active"))
	}
	g := gesture{start: at, last: at, viewStart: b.view}
	switch target.Kind {
	case TargetBackground:
		g.kind = gesturePan
	case TargetClusterHeader, TargetResizeHandle:
		i := indexOf(b.committed, target.ClusterID)
		if i < 0 {
			return clusterNotFound("canvas pointer down", target.ClusterID)
		}
		g.kind = gestureDrag
		if target.Kind == TargetResizeHandle {
			g.kind = gestureResize
		}
		g.clusterID = target.ClusterID
		g.origin = b.committed[i].Clone()
		g.preview = g.origin
	default:
		return domain.WrapError(domain.ErrInvalidInput, "canvas pointer down", fmt.Errorf("unknown target kind %d", target.Kind))
	}
	b.gesture = g
	return nil
}

// PointerMove updates the active gesture. Pan applies the delta since the
// previous event; drag and resize divide the distance from the gesture start
// by the current scale.
func (b *Board) PointerMove(at Point) {
	g := &b.gesture
	switch g.kind {
	case gesturePan:
		b.view.OffsetX += at.X - g.last.X
		b.view.OffsetY += at.Y - g.last.Y
	case gestureDrag:
		g.preview.X = g.origin.X + (at.X-g.start.X)/b.view.Scale
		g.preview.Y = g.origin.Y + (at.Y-g.start.Y)/b.view.Scale
	case gestureResize:
		g.preview.Width, g.preview.Height = clampSize(
			g.origin.Width+(at.X-g.start.X)/b.view.Scale,
			g.origin.Height+(at.Y-g.start.Y)/b.view.Scale,
		)
	default:
		return
	}
	g.last = at
}

// PointerUp ends the gesture. Drag and resize are committed here and nowhere
// else.
func (b *Board) PointerUp() {
	g := b.gesture
	b.gesture = gesture{}
	if g.kind != gestureDrag && g.kind != gestureResize {
		return
	}
	i := indexOf(b.committed, g.clusterID)
	if i < 0 {
		return
	}
	c := b.committed[i]
	if c.X == g.preview.X && c.Y == g.preview.Y && c.Width == g.preview.Width && c.Height == g.preview.Height {
		return
	}
	next := domain.CloneClusters(b.committed)
	next[i].X, next[i].Y = g.preview.X, g.preview.Y
	next[i].Width, next[i].Height = g.preview.Width, g.preview.Height
	b.commit(next)
}

// Cancel abandons the active gesture without committing. A cancelled pan
// restores the view it started from.
func (b *Board) Cancel() {
	if b.gesture.kind == gesturePan {
		b.view = b.gesture.viewStart
	}
	b.gesture = gesture{}
}

func (b *Board) ZoomIn() {
	b.setScale(b.view.Scale + ZoomStep)
}

func (b *Board) ZoomOut() {
	b.setScale(b.view.Scale - ZoomStep)
}

// Wheel zooms continuously, keeping the canvas point under anchor fixed on
// screen.
func (b *Board) Wheel(deltaY float64, anchor Point) {
	before := b.view.ToCanvas(anchor)
	b.setScale(b.view.Scale * (1 - deltaY*WheelSensitivity))
	b.view.OffsetX = anchor.X - before.X*b.view.Scale
	b.view.OffsetY = anchor.Y - before.Y*b.view.Scale
}

// SetViewport replaces the view. The scale is clamped.
func (b *Board) SetViewport(v Viewport) {
	if v.Scale == 0 {
		v.Scale = 1
	}
	v.Scale = clampScale(v.Scale)
	b.view = v
}

func (b *Board) ResetView() {
	b.view = DefaultViewport()
}

func (b *Board) setScale(scale float64) {
	b.view.Scale = roundScale(clampScale(scale))
}

// AddCluster creates an empty cluster centred in a viewport of the given
// screen size and commits it.
func (b *Board) AddCluster(title string, viewportWidth, viewportHeight float64) domain.Cluster {
	center := b.view.ToCanvas(Point{X: viewportWidth / 2, Y: viewportHeight / 2})
	title = strings.TrimSpace(title)
	if title == "" {
		title = "New cluster"
	}
	c := domain.Cluster{
		ID:     b.newID(),
		Title:  title,
		Items:  []domain.AffinityItem{},
		Color:  domain.ClusterPalette[b.pickColor(len(domain.ClusterPalette))],
		X:      center.X - domain.DefaultClusterWidth/2,
		Y:      center.Y - domain.DefaultClusterHeight/2,
		Width:  domain.DefaultClusterWidth,
		Height: domain.DefaultClusterHeight,
	}
	next := append(domain.CloneClusters(b.committed), c)
	b.commit(next)
	return c.Clone()
}

// UpdateCluster applies patch and commits. Sizes are floored at the minimum
// cluster size.
func (b *Board) UpdateCluster(id string, patch domain.ClusterPatch) (domain.Cluster, error) {
	i := indexOf(b.committed, id)
	if i < 0 {
		return domain.Cluster{}, clusterNotFound("canvas update cluster", id)
	}
	next := domain.CloneClusters(b.committed)
	c := &next[i]
	if patch.Title != nil {
		c.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Color != nil {
		c.Color = strings.TrimSpace(*patch.Color)
	}
	if patch.X != nil {
		c.X = *patch.X
	}
	if patch.Y != nil {
		c.Y = *patch.Y
	}
	if patch.Width != nil {
		c.Width = *patch.Width
	}
	if patch.Height != nil {
		c.Height = *patch.Height
	}
	c.Width, c.Height = clampSize(c.Width, c.Height)
	b.commit(next)
	return next[i].Clone(), nil
}

func (b *Board) AutoLayout() {
	b.commit(AutoLayout(b.committed))
}

// RequestDelete marks a cluster for deletion. Nothing changes until
// ConfirmDelete.
func (b *Board) RequestDelete(id string) error {
	if indexOf(b.committed, id) < 0 {
		return clusterNotFound("canvas delete cluster", id)
	}
	b.pending = id
	return nil
}

func (b *Board) CancelDelete() {
	b.pending = ""
}

func (b *Board) ConfirmDelete() error {
	id := b.pending
	b.pending = ""
	if id == "" {
		return domain.WrapError(domain.ErrConfirmationRequired, "canvas delete cluster", errors.New("no deletion requested"))
	}
	i := indexOf(b.committed, id)
	if i < 0 {
		return clusterNotFound("canvas delete cluster", id)
	}
	if b.gesture.clusterID == id {
		b.gesture = gesture{}
	}
	if b.note != nil && b.note.clusterID == id {
		b.note = nil
	}
	next := domain.CloneClusters(b.committed)
	next = slices.Delete(next, i, i+1)
	b.commit(next)
	return nil
}

func (b *Board) commit(next []domain.Cluster) {
	b.committed = next
	if b.onChange != nil {
		b.onChange(domain.CloneClusters(next))
	}
}

func indexOf(clusters []domain.Cluster, id string) int {
	return slices.IndexFunc(clusters, func(c domain.Cluster) bool { return c.ID == id })
}

func itemIndex(items []domain.AffinityItem, id string) int {
	return slices.IndexFunc(items, func(it domain.AffinityItem) bool { return it.ID == id })
}

func clusterNotFound(op, id string) error {
	return domain.WrapError(domain.ErrNotFound, op, fmt.Errorf("cluster %q", id))
}

func itemNotFound(op, id string) error {
	return domain.WrapError(domain.ErrNotFound, op, fmt.Errorf("item %q", id))
}
