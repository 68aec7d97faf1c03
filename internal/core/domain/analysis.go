package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	StageMain     = "main"
	StageAffinity = "affinity"
	StageInsights = "insights"
)

// MainAnalysis is the validated output of the mandatory stage.
type MainAnalysis struct {
	Transcript      string
	Tags            []Tag
	Highlights      []Highlight
	PainPoints      []string
	Opportunities   []string
	Patterns        []string
	Sentiment       Sentiment
	KeyFindings     []string
	KeyQuotes       []string
	Recommendations []Recommendation
}

type Subcluster struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	HighlightIDs []string `json:"highlightIds"`
}

type Theme struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Color       string       `json:"color,omitempty"`
	Subclusters []Subcluster `json:"subclusters"`
}

type AffinityResult struct {
	Themes []Theme
}

type InsightsResult struct {
	Rows      []InsightRow
	WordCloud []WordFrequency
	Scatter   []FrequencyPoint
}

type mainPayload struct {
	Transcript      *string          `json:"transcript"`
	Tags            *[]Tag           `json:"tags"`
	Highlights      *[]Highlight     `json:"highlights"`
	PainPoints      []string         `json:"painPoints"`
	Opportunities   []string         `json:"opportunities"`
	Patterns        []string         `json:"patterns"`
	Sentiment       Sentiment        `json:"sentiment"`
	KeyFindings     []string         `json:"keyFindings"`
	KeyQuotes       []string         `json:"keyQuotes"`
	Recommendations []Recommendation `json:"recommendations"`
}

type affinityPayload struct {
	Themes *[]Theme `json:"themes"`
}

type insightsPayload struct {
	Rows      *[]InsightRow    `json:"rows"`
	WordCloud []WordFrequency  `json:"wordCloud"`
	Scatter   []FrequencyPoint `json:"scatter"`
}

// DecodeMainAnalysis converts raw model JSON into a MainAnalysis, rejecting
// responses that miss the transcript or carry incomplete tags/highlights.
func DecodeMainAnalysis(raw []byte, truncated bool) (MainAnalysis, error) {
	var p mainPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return MainAnalysis{}, NewParseError(StageMain, raw, truncated, err)
	}
	if p.Transcript == nil || strings.TrimSpace(*p.Transcript) == "" {
		return MainAnalysis{}, NewParseError(StageMain, raw, truncated, errors.New("missing transcript"))
	}
	if p.Tags == nil {
		return MainAnalysis{}, NewParseError(StageMain, raw, truncated, errors.New("missing tags"))
	}
	if p.Highlights == nil {
		return MainAnalysis{}, NewParseError(StageMain, raw, truncated, errors.New("missing highlights"))
	}
	for i, t := range *p.Tags {
		if strings.TrimSpace(t.ID) == "" || strings.TrimSpace(t.Label) == "" {
			return MainAnalysis{}, NewParseError(StageMain, raw, truncated, fmt.Errorf("tag %d: id and label are required", i))
		}
	}
	for i, h := range *p.Highlights {
		if strings.TrimSpace(h.ID) == "" || strings.TrimSpace(h.Text) == "" {
			return MainAnalysis{}, NewParseError(StageMain, raw, truncated, fmt.Errorf("highlight %d: id and text are required", i))
		}
	}

	return MainAnalysis{
		Transcript:      *p.Transcript,
		Tags:            *p.Tags,
		Highlights:      *p.Highlights,
		PainPoints:      nonNil(p.PainPoints),
		Opportunities:   nonNil(p.Opportunities),
		Patterns:        nonNil(p.Patterns),
		Sentiment:       p.Sentiment,
		KeyFindings:     nonNil(p.KeyFindings),
		KeyQuotes:       nonNil(p.KeyQuotes),
		Recommendations: nonNil(p.Recommendations),
	}, nil
}

func DecodeAffinity(raw []byte, truncated bool) (AffinityResult, error) {
	var p affinityPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return AffinityResult{}, NewParseError(StageAffinity, raw, truncated, err)
	}
	if p.Themes == nil {
		return AffinityResult{}, NewParseError(StageAffinity, raw, truncated, errors.New("missing themes"))
	}
	for i, theme := range *p.Themes {
		if strings.TrimSpace(theme.Title) == "" {
			return AffinityResult{}, NewParseError(StageAffinity, raw, truncated, fmt.Errorf("theme %d: title is required", i))
		}
	}
	return AffinityResult{Themes: *p.Themes}, nil
}

func DecodeInsights(raw []byte, truncated bool) (InsightsResult, error) {
	var p insightsPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return InsightsResult{}, NewParseError(StageInsights, raw, truncated, err)
	}
	if p.Rows == nil {
		return InsightsResult{}, NewParseError(StageInsights, raw, truncated, errors.New("missing rows"))
	}
	return InsightsResult{
		Rows:      *p.Rows,
		WordCloud: nonNil(p.WordCloud),
		Scatter:   nonNil(p.Scatter),
	}, nil
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
