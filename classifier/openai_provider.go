package classifier

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider adapts the OpenAI chat-completions API to the classifier
// Provider interface, using strict JSON-schema response formatting —
// grounded on the teacher's OpenAIProvider.Interpret/PreAnalyzeMindset use
// of ResponseFormat.OfJSONSchema.
type OpenAIProvider struct {
	client openai.Client
}

func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return &OpenAIProvider{client: openai.NewClient(option.WithAPIKey(apiKey))}
}

func (p *OpenAIProvider) CompleteJSON(ctx context.Context, req JSONRequest) (string, *UsageStats, error) {
	model := req.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	for _, t := range req.History {
		if t.Role == "assistant" {
			messages = append(messages, openai.AssistantMessage(t.Text))
		} else {
			messages = append(messages, openai.UserMessage(t.Text))
		}
	}
	messages = append(messages, openai.UserMessage(req.UserPrompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   req.SchemaName,
					Schema: any(req.Schema),
					Strict: openai.Bool(true),
				},
			},
		},
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", nil, fmt.Errorf("classifier: openai completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", nil, fmt.Errorf("classifier: openai returned no choices")
	}

	usage := &UsageStats{
		Model:        model,
		InputTokens:  int(completion.Usage.PromptTokens),
		OutputTokens: int(completion.Usage.CompletionTokens),
	}

	return completion.Choices[0].Message.Content, usage, nil
}
