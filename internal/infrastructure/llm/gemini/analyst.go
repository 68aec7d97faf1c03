package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kirillkom/interview-insights/internal/core/domain"
	"github.com/kirillkom/interview-insights/internal/core/ports"
)

// Analyst runs the interview analysis stages on top of a structured
// generator.
type Analyst struct {
	generator ports.StructuredGenerator
	prompts   Prompts
}

func NewAnalyst(generator ports.StructuredGenerator, prompts Prompts) *Analyst {
	return &Analyst{generator: generator, prompts: prompts}
}

func (a *Analyst) AnalyzeInterview(ctx context.Context, content domain.ContentHandle) (domain.MainAnalysis, error) {
	raw, err := a.generator.GenerateStructured(ctx, domain.GenerationRequest{
		Name:         domain.StageMain,
		Parts:        []domain.ContentPart{content.Part(), domain.TextPart(a.prompts.Main.User)},
		SystemPrompt: a.prompts.Main.System,
		Schema:       mainAnalysisSchema(),
		Temperature:  a.prompts.Main.Temperature,
	})
	if err != nil {
		return domain.MainAnalysis{}, err
	}
	// raw already parsed as complete JSON; truncated output fails inside
	// GenerateStructured with the flag set.
	return domain.DecodeMainAnalysis(raw, false)
}

func (a *Analyst) ClusterHighlights(ctx context.Context, content domain.ContentHandle, highlights []domain.Highlight) (domain.AffinityResult, error) {
	listing, err := highlightListing(a.prompts.Affinity.User, highlights)
	if err != nil {
		return domain.AffinityResult{}, err
	}
	raw, err := a.generator.GenerateStructured(ctx, domain.GenerationRequest{
		Name:         domain.StageAffinity,
		Parts:        []domain.ContentPart{content.Part(), domain.TextPart(listing)},
		SystemPrompt: a.prompts.Affinity.System,
		Schema:       affinitySchema(),
		Temperature:  a.prompts.Affinity.Temperature,
	})
	if err != nil {
		return domain.AffinityResult{}, err
	}
	return domain.DecodeAffinity(raw, false)
}

func (a *Analyst) DeriveInsights(ctx context.Context, content domain.ContentHandle, highlights []domain.Highlight) (domain.InsightsResult, error) {
	listing, err := highlightListing(a.prompts.Insights.User, highlights)
	if err != nil {
		return domain.InsightsResult{}, err
	}
	raw, err := a.generator.GenerateStructured(ctx, domain.GenerationRequest{
		Name:         domain.StageInsights,
		Parts:        []domain.ContentPart{content.Part(), domain.TextPart(listing)},
		SystemPrompt: a.prompts.Insights.System,
		Schema:       insightsSchema(),
		Temperature:  a.prompts.Insights.Temperature,
	})
	if err != nil {
		return domain.InsightsResult{}, err
	}
	return domain.DecodeInsights(raw, false)
}

func highlightListing(instruction string, highlights []domain.Highlight) (string, error) {
	encoded, err := json.Marshal(highlights)
	if err != nil {
		return "", fmt.Errorf("marshal highlights: %w", err)
	}
	return instruction + "\nHighlights:\n" + string(encoded), nil
}
