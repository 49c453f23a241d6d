package classifier

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider adapts google.golang.org/genai to the classifier Provider
// interface, using ResponseMIMEType "application/json" plus a converted
// JSON schema — grounded on the teacher's Interpret() use of
// GenerateContentConfig.ResponseJsonSchema.
type GeminiProvider struct {
	apiKey string

	mu     sync.Mutex
	client *genai.Client
}

func NewGeminiProvider(apiKey string) *GeminiProvider {
	return &GeminiProvider{apiKey: apiKey}
}

func (p *GeminiProvider) CompleteJSON(ctx context.Context, req JSONRequest) (string, *UsageStats, error) {
	p.mu.Lock()
	if p.client == nil {
		c, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  p.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			p.mu.Unlock()
			return "", nil, fmt.Errorf("classifier: gemini client: %w", err)
		}
		p.client = c
	}
	client := p.client
	p.mu.Unlock()

	model := req.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType:   "application/json",
		ResponseJsonSchema: jsonSchemaToGenaiSchema(req.Schema),
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, "")
	}

	var contents []*genai.Content
	for _, t := range req.History {
		role := genai.RoleUser
		if t.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []*genai.Part{{Text: t.Text}}})
	}
	contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: req.UserPrompt}}})

	resp, err := client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", nil, fmt.Errorf("classifier: gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", nil, fmt.Errorf("classifier: gemini returned no content")
	}

	usage := &UsageStats{Model: model}
	if resp.UsageMetadata != nil {
		usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return resp.Candidates[0].Content.Parts[0].Text, usage, nil
}

// jsonSchemaToGenaiSchema converts the plain JSON-schema map this package's
// classifiers are authored against into genai's typed Schema, handling the
// subset (object/string/number/integer/boolean/array/enum) the three
// classifier schemas actually use.
func jsonSchemaToGenaiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}
	out := &genai.Schema{}

	if t, ok := schema["type"].(string); ok {
		out.Type = genai.Type(t)
	}
	if desc, ok := schema["description"].(string); ok {
		out.Description = desc
	}
	if enumRaw, ok := schema["enum"].([]string); ok {
		out.Enum = enumRaw
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if propSchema, ok := raw.(map[string]any); ok {
				out.Properties[name] = jsonSchemaToGenaiSchema(propSchema)
			}
		}
	}
	if req, ok := schema["required"].([]string); ok {
		out.Required = req
	}
	if items, ok := schema["items"].(map[string]any); ok {
		out.Items = jsonSchemaToGenaiSchema(items)
	}
	return out
}
