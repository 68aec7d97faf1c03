package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/interview-insights/internal/core/domain"
	"github.com/kirillkom/interview-insights/internal/infrastructure/resilience"
)

const (
	defaultBaseURL         = "https://generativelanguage.googleapis.com"
	defaultModel           = "gemini-2.5-flash"
	defaultMaxOutputTokens = 65536
)

type Client struct {
	baseURL         string
	apiKey          string
	model           string
	maxOutputTokens int
	httpClient      *http.Client
	executor        *resilience.Executor
}

type Options struct {
	BaseURL         string
	APIKey          string
	Model           string
	Timeout         time.Duration
	MaxOutputTokens int
	HTTPClient      *http.Client
	// Executor retries generate calls. Nil means a single attempt.
	Executor *resilience.Executor
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	maxTokens := opts.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxOutputTokens
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Minute
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:         baseURL,
		apiKey:          opts.APIKey,
		model:           model,
		maxOutputTokens: maxTokens,
		httpClient:      httpClient,
		executor:        opts.Executor,
	}
}

type part struct {
	Text       string    `json:"text,omitempty"`
	InlineData *blob     `json:"inlineData,omitempty"`
	FileData   *fileData `json:"fileData,omitempty"`
}

type blob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type fileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
	Temperature      *float64       `json:"temperature,omitempty"`
	MaxOutputTokens  int            `json:"maxOutputTokens,omitempty"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// GenerateStructured submits the request with a declared response schema
// and returns the JSON text of the first candidate.
func (c *Client) GenerateStructured(ctx context.Context, req domain.GenerationRequest) (json.RawMessage, error) {
	if len(req.Parts) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "generate", errors.New("request has no content parts"))
	}
	operation := "gemini.generate"
	if req.Name != "" {
		operation += "." + req.Name
	}

	body := c.buildRequest(req)
	call := func(callCtx context.Context) (generateResponse, error) {
		var resp generateResponse
		err := c.postJSON(callCtx, "/v1beta/models/"+c.model+":generateContent", body, &resp, "generate")
		return resp, err
	}

	var (
		resp generateResponse
		err  error
	)
	if c.executor != nil {
		resp, err = resilience.Do(ctx, c.executor, operation, call, classifyGeminiError)
	} else {
		resp, err = call(ctx)
	}
	if err != nil {
		return nil, wrapProviderError(operation, err)
	}

	text, truncated, err := responseText(resp)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, operation, err)
	}
	return decodeJSONText(req.Name, text, truncated)
}

func (c *Client) buildRequest(req domain.GenerationRequest) generateRequest {
	parts := make([]part, 0, len(req.Parts))
	for _, p := range req.Parts {
		switch {
		case p.Inline != nil:
			parts = append(parts, part{InlineData: &blob{MimeType: p.Inline.MimeType, Data: p.Inline.Data}})
		case p.File != nil:
			parts = append(parts, part{FileData: &fileData{MimeType: p.File.MimeType, FileURI: p.File.URI}})
		case p.Text != "":
			parts = append(parts, part{Text: p.Text})
		}
	}

	temperature := req.Temperature
	out := generateRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   req.Schema,
			Temperature:      &temperature,
			MaxOutputTokens:  c.maxOutputTokens,
		},
	}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		out.SystemInstruction = &content{Parts: []part{{Text: req.SystemPrompt}}}
	}
	return out
}

func responseText(resp generateResponse) (string, bool, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", false, fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", false, errors.New("response has no candidates")
	}
	candidate := resp.Candidates[0]
	var b strings.Builder
	for _, p := range candidate.Content.Parts {
		b.WriteString(p.Text)
	}
	truncated := candidate.FinishReason == "MAX_TOKENS"
	return strings.TrimSpace(b.String()), truncated, nil
}

func decodeJSONText(stage, text string, truncated bool) (json.RawMessage, error) {
	var raw json.RawMessage
	err := json.Unmarshal([]byte(text), &raw)
	if err == nil {
		return raw, nil
	}
	if candidate := extractJSONObject(text); candidate != text {
		if json.Unmarshal([]byte(candidate), &raw) == nil {
			return raw, nil
		}
	}
	return nil, domain.NewParseError(stage, []byte(text), truncated || unbalancedJSON(text), err)
}

// unbalancedJSON reports whether text ends inside a string or with open
// objects or arrays, which is how a response cut off mid-generation looks.
func unbalancedJSON(text string) bool {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return false
	}
	depth := 0
	inString, escaped := false, false
	for _, r := range text[start:] {
		switch {
		case escaped:
			escaped = false
		case inString:
			switch r {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
		case r == '"':
			inString = true
		case r == '{' || r == '[':
			depth++
		case r == '}' || r == ']':
			depth--
		}
	}
	return inString || depth > 0
}

// extractJSONObject strips prose or markdown fences around a JSON object.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
