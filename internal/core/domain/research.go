package domain

import (
	"slices"
	"strings"
)

// MissingQuoteText replaces the quote of an insight row whose highlight
// reference does not resolve.
const MissingQuoteText = "Quote not found"

type Tag struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// Highlight is a verbatim span of a transcript coded with exactly one tag.
type Highlight struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	TagID string `json:"tagId"`
}

type ItemType string

const (
	ItemSubcluster ItemType = "subcluster"
	ItemNote       ItemType = "note"
)

// AffinityItem is a node inside a cluster: an AI-derived pattern carrying the
// highlights it came from, or a free-form note.
type AffinityItem struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	HighlightIDs []string `json:"highlightIds,omitempty"`
	// MissingHighlightIDs lists entries of HighlightIDs that do not resolve
	// to a highlight of the document. They render as placeholders.
	MissingHighlightIDs []string `json:"missingHighlightIds,omitempty"`
	Type                ItemType `json:"type,omitempty"`
}

const (
	DefaultClusterWidth  = 300.0
	DefaultClusterHeight = 350.0

	GridOrigin  = 50.0
	GridStep    = 400.0
	GridColumns = 3
)

// GridPosition places the index-th cluster on a three-column grid.
func GridPosition(index int) (x, y float64) {
	x = GridOrigin + float64(index%GridColumns)*GridStep
	y = GridOrigin + float64(index/GridColumns)*GridStep
	return x, y
}

// ClusterPalette colors clusters that carry no color of their own.
var ClusterPalette = []string{
	"#fde68a", "#bfdbfe", "#bbf7d0", "#fecaca", "#ddd6fe", "#fbcfe8", "#fed7aa", "#a5f3fc",
}

// Cluster is a positioned, resizable container on the affinity canvas.
// A zero Width or Height means geometry has not been assigned yet.
type Cluster struct {
	ID     string         `json:"id"`
	Title  string         `json:"title"`
	Items  []AffinityItem `json:"items"`
	Color  string         `json:"color"`
	X      float64        `json:"x,omitempty"`
	Y      float64        `json:"y,omitempty"`
	Width  float64        `json:"width,omitempty"`
	Height float64        `json:"height,omitempty"`
}

func (c Cluster) HasGeometry() bool {
	return c.Width > 0 && c.Height > 0
}

type SentimentDistribution struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

type Sentiment struct {
	Label        string                `json:"label"`
	Score        float64               `json:"score"`
	Distribution SentimentDistribution `json:"distribution"`
}

type InsightRow struct {
	QuoteID     string `json:"quoteId"`
	Text        string `json:"text"`
	Theme       string `json:"theme"`
	Emotion     string `json:"emotion"`
	Need        string `json:"need"`
	Opportunity string `json:"opportunity"`
	Solution    string `json:"solution"`
}

type WordFrequency struct {
	Word      string `json:"word"`
	Count     int    `json:"count"`
	Sentiment string `json:"sentiment,omitempty"`
}

type FrequencyPoint struct {
	Theme     string  `json:"theme"`
	Frequency float64 `json:"frequency"`
	Intensity float64 `json:"intensity"`
}

type Insights struct {
	PainPoints    []string         `json:"painPoints"`
	Opportunities []string         `json:"opportunities"`
	Patterns      []string         `json:"patterns"`
	Sentiment     Sentiment        `json:"sentiment"`
	Table         []InsightRow     `json:"table"`
	WordCloud     []WordFrequency  `json:"wordCloud"`
	Scatter       []FrequencyPoint `json:"scatter"`
}

type Recommendation struct {
	Text     string `json:"text"`
	Priority string `json:"priority"`
}

type Summary struct {
	KeyFindings     []string         `json:"keyFindings"`
	KeyQuotes       []string         `json:"keyQuotes"`
	Recommendations []Recommendation `json:"recommendations"`
}

// ResearchData is the canonical document rendered by every dashboard.
type ResearchData struct {
	Transcript string      `json:"transcript"`
	Tags       []Tag       `json:"tags"`
	Highlights []Highlight `json:"highlights"`
	Clusters   []Cluster   `json:"clusters"`
	Insights   Insights    `json:"insights"`
	Summary    Summary     `json:"summary"`
}

func (d ResearchData) HighlightByID(id string) (Highlight, bool) {
	for _, h := range d.Highlights {
		if h.ID == id {
			return h, true
		}
	}
	return Highlight{}, false
}

func (d ResearchData) TagByID(id string) (Tag, bool) {
	for _, t := range d.Tags {
		if t.ID == id {
			return t, true
		}
	}
	return Tag{}, false
}

// TagGroup collects tags sharing a label. Labels are the deduplication key
// across files; the IDs stay distinct.
type TagGroup struct {
	Label          string   `json:"label"`
	Color          string   `json:"color"`
	TagIDs         []string `json:"tagIds"`
	HighlightCount int      `json:"highlightCount"`
}

func (d ResearchData) TagGroups() []TagGroup {
	index := make(map[string]int)
	groups := make([]TagGroup, 0, len(d.Tags))
	tagGroup := make(map[string]int, len(d.Tags))
	for _, t := range d.Tags {
		key := strings.ToLower(strings.TrimSpace(t.Label))
		pos, ok := index[key]
		if !ok {
			pos = len(groups)
			index[key] = pos
			groups = append(groups, TagGroup{Label: strings.TrimSpace(t.Label), Color: t.Color})
		}
		groups[pos].TagIDs = append(groups[pos].TagIDs, t.ID)
		tagGroup[t.ID] = pos
	}
	for _, h := range d.Highlights {
		if pos, ok := tagGroup[h.TagID]; ok {
			groups[pos].HighlightCount++
		}
	}
	return groups
}

// Clone returns a deep copy that shares no slices with d.
func (d ResearchData) Clone() ResearchData {
	out := d
	out.Tags = slices.Clone(d.Tags)
	out.Highlights = slices.Clone(d.Highlights)
	out.Clusters = CloneClusters(d.Clusters)
	out.Insights.PainPoints = slices.Clone(d.Insights.PainPoints)
	out.Insights.Opportunities = slices.Clone(d.Insights.Opportunities)
	out.Insights.Patterns = slices.Clone(d.Insights.Patterns)
	out.Insights.Table = slices.Clone(d.Insights.Table)
	out.Insights.WordCloud = slices.Clone(d.Insights.WordCloud)
	out.Insights.Scatter = slices.Clone(d.Insights.Scatter)
	out.Summary.KeyFindings = slices.Clone(d.Summary.KeyFindings)
	out.Summary.KeyQuotes = slices.Clone(d.Summary.KeyQuotes)
	out.Summary.Recommendations = slices.Clone(d.Summary.Recommendations)
	return out
}

func CloneClusters(in []Cluster) []Cluster {
	if in == nil {
		return nil
	}
	out := make([]Cluster, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

func (c Cluster) Clone() Cluster {
	out := c
	if c.Items != nil {
		out.Items = make([]AffinityItem, len(c.Items))
		for i, item := range c.Items {
			item.HighlightIDs = slices.Clone(item.HighlightIDs)
			item.MissingHighlightIDs = slices.Clone(item.MissingHighlightIDs)
			out.Items[i] = item
		}
	}
	return out
}
