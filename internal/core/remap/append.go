package remap

import (
	"strings"

	"github.com/kirillkom/interview-insights/internal/core/domain"
)

// IsEmpty reports whether a document carries no analysed content.
func IsEmpty(d *domain.ResearchData) bool {
	return d == nil || (strings.TrimSpace(d.Transcript) == "" && len(d.Highlights) == 0 && len(d.Clusters) == 0)
}

// Append folds the document of one more file into base. baseFiles is the
// number of files already merged into base; it weights the sentiment average.
// The first file's transcript is kept as is, later ones follow a
// "--- filename ---" header. Appended clusters continue the grid after the
// existing ones. Neither input is modified.
func Append(base *domain.ResearchData, baseFiles int, addition domain.ResearchData, filename string) domain.ResearchData {
	if IsEmpty(base) {
		return addition.Clone()
	}
	out := base.Clone()
	add := addition.Clone()

	header := "--- " + strings.TrimSpace(filename) + " ---"
	switch {
	case strings.TrimSpace(out.Transcript) == "":
		out.Transcript = header + "\n" + add.Transcript
	case strings.TrimSpace(add.Transcript) != "":
		out.Transcript = strings.TrimRight(out.Transcript, "\n") + "\n\n" + header + "\n" + add.Transcript
	}

	out.Tags = append(out.Tags, add.Tags...)
	out.Highlights = append(out.Highlights, add.Highlights...)

	offset := len(out.Clusters)
	for i, c := range add.Clusters {
		c.X, c.Y = domain.GridPosition(offset + i)
		if !c.HasGeometry() {
			c.Width, c.Height = domain.DefaultClusterWidth, domain.DefaultClusterHeight
		}
		out.Clusters = append(out.Clusters, c)
	}

	out.Insights.PainPoints = append(out.Insights.PainPoints, add.Insights.PainPoints...)
	out.Insights.Opportunities = append(out.Insights.Opportunities, add.Insights.Opportunities...)
	out.Insights.Patterns = append(out.Insights.Patterns, add.Insights.Patterns...)
	out.Insights.Table = append(out.Insights.Table, add.Insights.Table...)
	out.Insights.WordCloud = append(out.Insights.WordCloud, add.Insights.WordCloud...)
	out.Insights.Scatter = append(out.Insights.Scatter, add.Insights.Scatter...)
	out.Insights.Sentiment = averageSentiment(out.Insights.Sentiment, baseFiles, add.Insights.Sentiment)

	out.Summary.KeyFindings = append(out.Summary.KeyFindings, add.Summary.KeyFindings...)
	out.Summary.KeyQuotes = append(out.Summary.KeyQuotes, add.Summary.KeyQuotes...)
	out.Summary.Recommendations = append(out.Summary.Recommendations, add.Summary.Recommendations...)
	return out
}

func averageSentiment(base domain.Sentiment, baseFiles int, add domain.Sentiment) domain.Sentiment {
	if baseFiles < 1 {
		baseFiles = 1
	}
	n := float64(baseFiles)
	avg := func(a, b float64) float64 { return (a*n + b) / (n + 1) }
	out := domain.Sentiment{
		Score: avg(base.Score, add.Score),
		Distribution: domain.SentimentDistribution{
			Positive: avg(base.Distribution.Positive, add.Distribution.Positive),
			Neutral:  avg(base.Distribution.Neutral, add.Distribution.Neutral),
			Negative: avg(base.Distribution.Negative, add.Distribution.Negative),
		},
	}
	out.Label = SentimentLabel(out.Score)
	return out
}

// SentimentLabel names a score on the [-1, 1] scale.
func SentimentLabel(score float64) string {
	switch {
	case score >= 0.25:
		return "positive"
	case score <= -0.25:
		return "negative"
	default:
		return "neutral"
	}
}
