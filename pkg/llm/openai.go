package llm

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewOpenAI talks to any OpenAI-compatible server (Ollama's /v1, LM Studio, OpenAI itself).
func NewOpenAI(log *slog.Logger, baseURL, token, model string, timeout time.Duration) (Client, error) {
	model = lo.If(model != "", model).Else(DefaultModel)
	client, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(lo.If(token != "", token).Else("ollama")),
		openai.WithModel(model),
		openai.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to init openai client for %q", baseURL)
	}

	return &openaiClient{
		log:     log,
		client:  client,
		baseURL: baseURL,
		model:   model,
	}, nil
}

type openaiClient struct {
	log     *slog.Logger
	client  *openai.LLM
	baseURL string
	model   string
}

func (o *openaiClient) Generate(ctx context.Context, request GenerateRequest) (*GenerateResponse, error) {
	model := lo.If(request.Model != "", request.Model).Else(o.model)
	contents := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, request.Prompt),
	}
	res, err := o.client.GenerateContent(ctx, contents,
		llms.WithModel(model),
		llms.WithTemperature(request.Temperature),
		llms.WithTopP(request.TopP),
	)
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "unexpected status code"):
			return nil, errors.Wrapf(ErrStatus, "openai at %s: %s", o.baseURL, err)
		case isDecodeError(err):
			return nil, errors.Wrapf(ErrMalformedResponse, "openai at %s: %s", o.baseURL, err)
		default:
			return nil, errors.Wrapf(ErrUnreachable, "openai at %s: %s", o.baseURL, err)
		}
	}
	if len(res.Choices) == 0 {
		return nil, errors.Wrapf(ErrMalformedResponse, "openai at %s: response does not contain any result", o.baseURL)
	}

	return &GenerateResponse{
		Response: res.Choices[0].Content,
		Model:    model,
	}, nil
}
