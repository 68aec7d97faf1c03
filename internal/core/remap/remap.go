// Package remap rewrites the identifiers produced by one analysis run into a
// per-file namespace and flattens the stage outputs into a ResearchData.
package remap

import (
	"strconv"
	"strings"

	"github.com/kirillkom/interview-insights/internal/core/domain"
)

const (
	untaggedID    = "untagged"
	untaggedLabel = "Uncategorized"
	untaggedColor = "#9ca3af"
)

// namespace issues prefixed IDs. Every ID it returns is distinct from every
// other ID it has returned, across all kinds.
type namespace struct {
	prefix string
	used   map[string]struct{}
}

func newNamespace(prefix string) *namespace {
	prefix = strings.TrimSpace(prefix)
	return &namespace{prefix: prefix, used: make(map[string]struct{})}
}

func (n *namespace) issue(local, fallback string) string {
	local = strings.TrimSpace(local)
	if local == "" {
		local = fallback
	}
	base := local
	if n.prefix != "" {
		base = n.prefix + "_" + local
	}
	id := base
	for i := 2; ; i++ {
		if _, taken := n.used[id]; !taken {
			break
		}
		id = base + "_" + strconv.Itoa(i)
	}
	n.used[id] = struct{}{}
	return id
}

// idMap is the forward map of one ID kind. The first occurrence of a
// duplicated local ID owns the mapping.
type idMap map[string]string

func (m idMap) bind(local, global string) {
	if _, exists := m[local]; !exists {
		m[local] = global
	}
}

// resolve returns the rewritten ID, or the input unchanged when it was never
// issued.
func (m idMap) resolve(local string) (string, bool) {
	if global, ok := m[local]; ok {
		return global, true
	}
	return local, false
}

// Merge produces the document of one file. Tag, highlight, cluster and item
// IDs are rewritten to prefix_localID and every reference follows the rewrite.
// Highlight references that do not resolve are kept as they are and listed in
// MissingHighlightIDs. Merge performs no I/O.
func Merge(prefix string, main domain.MainAnalysis, affinity domain.AffinityResult, insights domain.InsightsResult) domain.ResearchData {
	ns := newNamespace(prefix)
	tagIDs := make(idMap, len(main.Tags))
	highlightIDs := make(idMap, len(main.Highlights))

	tags := make([]domain.Tag, 0, len(main.Tags)+1)
	for i, t := range main.Tags {
		global := ns.issue(t.ID, "tag"+strconv.Itoa(i+1))
		tagIDs.bind(t.ID, global)
		tags = append(tags, domain.Tag{ID: global, Label: t.Label, Color: t.Color})
	}

	untagged := ""
	highlights := make([]domain.Highlight, 0, len(main.Highlights))
	known := make(map[string]struct{}, len(main.Highlights))
	for i, h := range main.Highlights {
		global := ns.issue(h.ID, "h"+strconv.Itoa(i+1))
		highlightIDs.bind(h.ID, global)
		known[global] = struct{}{}

		tagID, ok := tagIDs.resolve(h.TagID)
		if !ok {
			if untagged == "" {
				untagged = ns.issue(untaggedID, untaggedID)
				tags = append(tags, domain.Tag{ID: untagged, Label: untaggedLabel, Color: untaggedColor})
			}
			tagID = untagged
		}
		highlights = append(highlights, domain.Highlight{ID: global, Text: h.Text, TagID: tagID})
	}

	clusters := make([]domain.Cluster, 0, len(affinity.Themes))
	for i, theme := range affinity.Themes {
		x, y := domain.GridPosition(i)
		color := strings.TrimSpace(theme.Color)
		if color == "" {
			color = domain.ClusterPalette[i%len(domain.ClusterPalette)]
		}
		cluster := domain.Cluster{
			ID:     ns.issue(theme.ID, "theme"+strconv.Itoa(i+1)),
			Title:  theme.Title,
			Color:  color,
			Items:  make([]domain.AffinityItem, 0, len(theme.Subclusters)),
			X:      x,
			Y:      y,
			Width:  domain.DefaultClusterWidth,
			Height: domain.DefaultClusterHeight,
		}
		for j, sub := range theme.Subclusters {
			item := domain.AffinityItem{
				ID:           ns.issue(sub.ID, "theme"+strconv.Itoa(i+1)+"_sub"+strconv.Itoa(j+1)),
				Text:         sub.Title,
				Type:         domain.ItemSubcluster,
				HighlightIDs: make([]string, 0, len(sub.HighlightIDs)),
			}
			for _, ref := range sub.HighlightIDs {
				id, _ := highlightIDs.resolve(ref)
				item.HighlightIDs = append(item.HighlightIDs, id)
				if _, ok := known[id]; !ok {
					item.MissingHighlightIDs = append(item.MissingHighlightIDs, id)
				}
			}
			cluster.Items = append(cluster.Items, item)
		}
		clusters = append(clusters, cluster)
	}

	texts := make(map[string]string, len(highlights))
	for _, h := range highlights {
		texts[h.ID] = h.Text
	}
	rows := make([]domain.InsightRow, 0, len(insights.Rows))
	for _, row := range insights.Rows {
		row.QuoteID, _ = highlightIDs.resolve(row.QuoteID)
		if text, ok := texts[row.QuoteID]; ok {
			row.Text = text
		} else {
			row.Text = domain.MissingQuoteText
		}
		rows = append(rows, row)
	}

	return domain.ResearchData{
		Transcript: main.Transcript,
		Tags:       tags,
		Highlights: highlights,
		Clusters:   clusters,
		Insights: domain.Insights{
			PainPoints:    orEmpty(main.PainPoints),
			Opportunities: orEmpty(main.Opportunities),
			Patterns:      orEmpty(main.Patterns),
			Sentiment:     main.Sentiment,
			Table:         rows,
			WordCloud:     orEmpty(insights.WordCloud),
			Scatter:       orEmpty(insights.Scatter),
		},
		Summary: domain.Summary{
			KeyFindings:     orEmpty(main.KeyFindings),
			KeyQuotes:       orEmpty(main.KeyQuotes),
			Recommendations: orEmpty(main.Recommendations),
		},
	}
}

func orEmpty[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return append([]T{}, in...)
}
