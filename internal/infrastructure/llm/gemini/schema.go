package gemini

// Response schemas use the provider's OpenAPI subset.

func str() map[string]any { return map[string]any{"type": "STRING"} }

func num() map[string]any { return map[string]any{"type": "NUMBER"} }

func arrayOf(items map[string]any) map[string]any {
	return map[string]any{"type": "ARRAY", "items": items}
}

func object(props map[string]any, required ...string) map[string]any {
	out := map[string]any{"type": "OBJECT", "properties": props}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func mainAnalysisSchema() map[string]any {
	return object(map[string]any{
		"transcript": str(),
		"tags": arrayOf(object(map[string]any{
			"id":    str(),
			"label": str(),
			"color": str(),
		}, "id", "label", "color")),
		"highlights": arrayOf(object(map[string]any{
			"id":    str(),
			"text":  str(),
			"tagId": str(),
		}, "id", "text", "tagId")),
		"painPoints":    arrayOf(str()),
		"opportunities": arrayOf(str()),
		"patterns":      arrayOf(str()),
		"sentiment": object(map[string]any{
			"label": map[string]any{"type": "STRING", "enum": []string{"positive", "neutral", "negative", "mixed"}},
			"score": num(),
			"distribution": object(map[string]any{
				"positive": num(),
				"neutral":  num(),
				"negative": num(),
			}, "positive", "neutral", "negative"),
		}, "label", "score", "distribution"),
		"keyFindings": arrayOf(str()),
		"keyQuotes":   arrayOf(str()),
		"recommendations": arrayOf(object(map[string]any{
			"text":     str(),
			"priority": map[string]any{"type": "STRING", "enum": []string{"high", "medium", "low"}},
		}, "text", "priority")),
	}, "transcript", "tags", "highlights", "painPoints", "opportunities", "patterns",
		"sentiment", "keyFindings", "keyQuotes", "recommendations")
}

func affinitySchema() map[string]any {
	return object(map[string]any{
		"themes": arrayOf(object(map[string]any{
			"id":    str(),
			"title": str(),
			"subclusters": arrayOf(object(map[string]any{
				"id":           str(),
				"title":        str(),
				"highlightIds": arrayOf(str()),
			}, "id", "title", "highlightIds")),
		}, "id", "title", "subclusters")),
	}, "themes")
}

func insightsSchema() map[string]any {
	return object(map[string]any{
		"rows": arrayOf(object(map[string]any{
			"quoteId":     str(),
			"theme":       str(),
			"emotion":     str(),
			"need":        str(),
			"opportunity": str(),
			"solution":    str(),
		}, "quoteId", "theme", "emotion", "need", "opportunity", "solution")),
		"wordCloud": arrayOf(object(map[string]any{
			"word":      str(),
			"count":     map[string]any{"type": "INTEGER"},
			"sentiment": str(),
		}, "word", "count")),
		"scatter": arrayOf(object(map[string]any{
			"theme":     str(),
			"frequency": num(),
			"intensity": num(),
		}, "theme", "frequency", "intensity")),
	}, "rows", "wordCloud", "scatter")
}
