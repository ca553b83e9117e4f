package openai

import (
	"sync"

	"github.com/tapestry-analytics/tapestry/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// TextOpenAIClient implements ai.TextModel against an OpenAI-compatible
// chat completion API.
//
// A TextOpenAIClient should be created using NewTextOpenAIClient.
type TextOpenAIClient struct {
	completionModel string
	extractionModel string

	chatURL string
	chatKey string

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient *openai.Client
}

// NewTextOpenAIClientParams defines the configuration parameters for creating
// a new TextOpenAIClient.
//
// CompletionModel is used for plain completions, ExtractionModel for
// schema-constrained extraction requests. ChatURL and ChatKey configure the
// chat completion API endpoint; an empty ChatURL targets the OpenAI platform.
type NewTextOpenAIClientParams struct {
	CompletionModel string
	ExtractionModel string

	ChatURL string
	ChatKey string
}

// NewTextOpenAIClient creates and returns a new TextOpenAIClient configured
// with the provided parameters.
func NewTextOpenAIClient(
	params NewTextOpenAIClientParams,
) *TextOpenAIClient {
	return &TextOpenAIClient{
		completionModel: params.CompletionModel,
		extractionModel: params.ExtractionModel,

		chatURL: params.ChatURL,
		chatKey: params.ChatKey,

		metricsLock: sync.Mutex{},
		metrics: ai.ModelMetrics{
			InputTokens:  0,
			OutputTokens: 0,
			TotalTokens:  0,
			DurationMs:   0,
		},

		ChatClient: newOpenaiClient(params.ChatURL, params.ChatKey),
	}
}

// ExtractionModel reports the model identifier used for extraction requests.
func (c *TextOpenAIClient) ExtractionModel() string {
	return c.extractionModel
}

func newOpenaiClient(
	baseURL string,
	apiKey string,
) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}
