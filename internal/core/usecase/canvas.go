package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/kirillkom/interview-insights/internal/core/canvas"
	"github.com/kirillkom/interview-insights/internal/core/domain"
	"github.com/kirillkom/interview-insights/internal/core/ports"
)

// CanvasService applies committed canvas operations to the clusters of the
// active document. Each call replays one operation on a Board built from the
// stored clusters and persists the committed result.
type CanvasService struct {
	projects *ProjectService
	exporter ports.InsightsExporter
	opts     []canvas.Option
}

func NewCanvasService(projects *ProjectService, exporter ports.InsightsExporter, opts ...canvas.Option) *CanvasService {
	return &CanvasService{projects: projects, exporter: exporter, opts: opts}
}

func (s *CanvasService) Clusters(ctx context.Context) ([]domain.Cluster, error) {
	data, err := s.projects.Document(ctx)
	if err != nil {
		return nil, err
	}
	return canvas.EnsureGeometry(data.Clusters), nil
}

func (s *CanvasService) AddCluster(ctx context.Context, in domain.NewCluster) (domain.Cluster, error) {
	var created domain.Cluster
	if in.ViewWidth < 0 || in.ViewHeight < 0 {
		return domain.Cluster{}, domain.WrapError(domain.ErrInvalidInput, "add cluster", errors.New("negative viewport size"))
	}
	err := s.edit(ctx, func(b *canvas.Board) error {
		b.SetViewport(canvas.Viewport{OffsetX: in.OffsetX, OffsetY: in.OffsetY, Scale: in.Scale})
		created = b.AddCluster(in.Title, in.ViewWidth, in.ViewHeight)
		return nil
	})
	return created, err
}

func (s *CanvasService) UpdateCluster(ctx context.Context, id string, patch domain.ClusterPatch) (domain.Cluster, error) {
	var updated domain.Cluster
	err := s.edit(ctx, func(b *canvas.Board) error {
		var err error
		updated, err = b.UpdateCluster(id, patch)
		return err
	})
	return updated, err
}

// DeleteCluster removes a cluster only when the caller has confirmed.
func (s *CanvasService) DeleteCluster(ctx context.Context, id string, confirmed bool) error {
	return s.edit(ctx, func(b *canvas.Board) error {
		if err := b.RequestDelete(id); err != nil {
			return err
		}
		if !confirmed {
			b.CancelDelete()
			return domain.WrapError(domain.ErrConfirmationRequired, "delete cluster", fmt.Errorf("cluster %q", id))
		}
		return b.ConfirmDelete()
	})
}

func (s *CanvasService) AutoLayout(ctx context.Context) ([]domain.Cluster, error) {
	var out []domain.Cluster
	err := s.edit(ctx, func(b *canvas.Board) error {
		b.AutoLayout()
		out = b.Committed()
		return nil
	})
	return out, err
}

func (s *CanvasService) AddNote(ctx context.Context, clusterID, text string) (domain.AffinityItem, error) {
	var item domain.AffinityItem
	err := s.edit(ctx, func(b *canvas.Board) error {
		var err error
		item, err = b.AddNote(clusterID, text)
		return err
	})
	return item, err
}

func (s *CanvasService) EditNote(ctx context.Context, clusterID, itemID, text string) error {
	return s.edit(ctx, func(b *canvas.Board) error {
		return b.EditNote(clusterID, itemID, text)
	})
}

func (s *CanvasService) DeleteNote(ctx context.Context, clusterID, itemID string) error {
	return s.edit(ctx, func(b *canvas.Board) error {
		return b.DeleteNote(clusterID, itemID)
	})
}

func (s *CanvasService) MoveItem(ctx context.Context, move domain.ItemMove) error {
	return s.edit(ctx, func(b *canvas.Board) error {
		return b.MoveItem(move.ItemID, move.FromClusterID, move.ToClusterID, move.BeforeItemID)
	})
}

// ExportInsights writes the active document as a spreadsheet.
func (s *CanvasService) ExportInsights(ctx context.Context, w io.Writer) error {
	data, err := s.projects.Document(ctx)
	if err != nil {
		return err
	}
	return s.exporter.WriteInsights(w, data)
}

func (s *CanvasService) edit(ctx context.Context, op func(*canvas.Board) error) error {
	_, err := s.projects.UpdateDocument(ctx, func(data *domain.ResearchData) error {
		var committed []domain.Cluster
		changed := false
		opts := append(slices.Clone(s.opts), canvas.WithOnChange(func(clusters []domain.Cluster) {
			committed = clusters
			changed = true
		}))
		board := canvas.NewBoard(data.Clusters, opts...)
		if err := op(board); err != nil {
			return err
		}
		if changed {
			data.Clusters = committed
		} else {
			data.Clusters = board.Committed()
		}
		return nil
	})
	return err
}
