package ollama

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/tapestry-analytics/tapestry/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

// TextOllamaClient implements the ai.TextModel interface using Ollama as the
// backend. It supports plain and schema-constrained completions via
// locally-hosted models.
type TextOllamaClient struct {
	completionModel string
	extractionModel string

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client

	Client *api.Client
}

// NewTextOllamaClientParams contains configuration options for creating a new
// TextOllamaClient.
type NewTextOllamaClientParams struct {
	CompletionModel string
	ExtractionModel string

	BaseURL string
	ApiKey  string

	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		// don't overwrite if already set
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewTextOllamaClient creates a new Ollama-based text model client. It
// connects to the Ollama server at the given BaseURL (or the default if
// empty) and serializes requests through a weighted semaphore so a slow
// local model is never flooded.
func NewTextOllamaClient(
	params NewTextOllamaClientParams,
) (*TextOllamaClient, error) {
	var (
		u   *url.URL
		err error
	)

	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: map[string]string{
				"Authorization": "Bearer " + params.ApiKey,
			},
			rt: http.DefaultTransport,
		},
	}

	cli := api.NewClient(u, httpClient)

	maxConcurrent := params.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	sem := semaphore.NewWeighted(maxConcurrent)

	return &TextOllamaClient{
		completionModel: params.CompletionModel,
		extractionModel: params.ExtractionModel,

		reqLock: sem,

		metricsLock: sync.Mutex{},
		metrics: ai.ModelMetrics{
			InputTokens:  0,
			OutputTokens: 0,
			TotalTokens:  0,
			DurationMs:   0,
		},

		baseURL:    u,
		apiKey:     params.ApiKey,
		httpClient: httpClient,

		Client: cli,
	}, nil
}

// ExtractionModel reports the model identifier used for extraction requests.
func (c *TextOllamaClient) ExtractionModel() string {
	return c.extractionModel
}
