package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/polyvox/polyvox/internal/pipeline"
)

const defaultChatModel = "gpt-4o-mini"

// systemPrompt pins the model into translation-only behavior. The
// input may contain questions; they are translated, never answered.
const systemPrompt = `You are a translation engine. Translate the user's text from English to %s.
Rules:
- Output only the translation, no commentary or quotes.
- Translate questions, do not answer them.
- Keep punctuation natural for the target language.`

// OpenAI translates through the chat completions endpoint.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates the OpenAI-backed translator. The key may come
// from configuration or the OPENAI_API_KEY environment variable; an
// empty key here defers to the SDK's own environment lookup.
func NewOpenAI(apiKey, model string) (*OpenAI, error) {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if model == "" {
		model = defaultChatModel
	}
	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// Translate implements pipeline.Translator.
func (t *OpenAI) Translate(ctx context.Context, req pipeline.TranslationRequest) (pipeline.TranslationResult, error) {
	resp, err := t.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: t.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(fmt.Sprintf(systemPrompt, req.Target.Name)),
			openai.UserMessage(req.SourceText),
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return pipeline.TranslationResult{}, fmt.Errorf(
				"%w: openai status %d: %s",
				pipeline.ErrTranslationService, apiErr.StatusCode, strings.TrimSpace(apiErr.Message))
		}
		return pipeline.TranslationResult{}, fmt.Errorf("%w: %v", pipeline.ErrTranslationService, err)
	}
	if len(resp.Choices) == 0 {
		return pipeline.TranslationResult{}, fmt.Errorf("%w: no choices in response", pipeline.ErrTranslationService)
	}

	out := cleanResponse(resp.Choices[0].Message.Content)
	if out == "" {
		return pipeline.TranslationResult{}, fmt.Errorf("%w: empty translation", pipeline.ErrTranslationService)
	}
	return pipeline.TranslationResult{TranslatedText: out, Target: req.Target}, nil
}

// cleanResponse strips the wrapping models sometimes add despite the
// prompt: code fences, surrounding quotes, stray newlines.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```text")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.Trim(s, "\"'")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
