package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// DefaultOllamaURL is where a local Ollama server listens unless OLLAMA_URL says otherwise.
const DefaultOllamaURL = "http://localhost:11434"

func NewOllama(log *slog.Logger, ollamaUrl string, timeout time.Duration) (Client, error) {
	ollamaUrl = strings.TrimSuffix(lo.If(ollamaUrl == "", DefaultOllamaURL).Else(ollamaUrl), "/")
	baseURL, err := url.Parse(ollamaUrl)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid ollama url %q", ollamaUrl)
	}
	return &ollamaClient{
		log:       log,
		ollamaUrl: ollamaUrl,
		client: api.NewClient(baseURL, &http.Client{
			Timeout: timeout,
			Transport: RoundTripFn(func(req *http.Request) (*http.Response, error) {
				started := time.Now()
				resp, err := http.DefaultTransport.RoundTrip(req)
				log.Debug("ollama round trip", "method", req.Method, "url", req.URL.String(), "elapsed", time.Since(started), "error", err)
				if err != nil {
					return nil, err
				}
				if resp.StatusCode < 200 || resp.StatusCode > 299 {
					_ = resp.Body.Close()
					return nil, &statusError{code: resp.StatusCode, status: resp.Status}
				}
				if strings.HasSuffix(req.URL.Path, generatePath) {
					return checkGenerateBody(resp)
				}
				return resp, nil
			}),
		}),
	}, nil
}

type ollamaClient struct {
	log       *slog.Logger
	ollamaUrl string
	client    *api.Client
}

// statusError is raised by the transport so the body of a failed response is never read.
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string { return "unexpected status " + e.status }

// malformedError is raised by the transport for a generate body without a response field.
type malformedError struct {
	reason string
}

func (e *malformedError) Error() string { return "malformed generate body: " + e.reason }

const generatePath = "/api/generate"

// checkGenerateBody requires every line of a generate body to be a JSON object
// carrying a "response" key. An empty string is a valid response.
func checkGenerateBody(resp *http.Response) (*http.Response, error) {
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	for _, line := range bytes.Split(body, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var fields struct {
			Response *string `json:"response"`
		}
		if err := json.Unmarshal(line, &fields); err != nil {
			return nil, &malformedError{reason: err.Error()}
		}
		if fields.Response == nil {
			return nil, &malformedError{reason: "missing response field"}
		}
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

type RoundTripFn func(req *http.Request) (*http.Response, error)

func (f RoundTripFn) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func (o *ollamaClient) Generate(ctx context.Context, request GenerateRequest) (*GenerateResponse, error) {
	resBuf := strings.Builder{}
	var model string
	var done bool
	err := o.client.Generate(ctx, &api.GenerateRequest{
		Model:  lo.If(request.Model != "", request.Model).Else(DefaultModel),
		Prompt: request.Prompt,
		Stream: lo.ToPtr(false),
		Options: map[string]any{
			"temperature": request.Temperature,
			"top_p":       request.TopP,
		},
	}, func(response api.GenerateResponse) error {
		resBuf.WriteString(response.Response)
		model = response.Model
		done = true
		return nil
	})
	if err != nil {
		return nil, o.classify(err)
	}
	if !done {
		return nil, errors.Wrapf(ErrMalformedResponse, "ollama at %s returned no response", o.ollamaUrl)
	}
	return &GenerateResponse{
		Response: resBuf.String(),
		Model:    model,
	}, nil
}

func (o *ollamaClient) classify(err error) error {
	var statusErr *statusError
	var apiStatusErr api.StatusError
	var malformedErr *malformedError
	switch {
	case errors.As(err, &malformedErr):
		return errors.Wrapf(ErrMalformedResponse, "ollama at %s: %s", o.ollamaUrl, malformedErr.reason)
	case errors.As(err, &statusErr):
		return errors.Wrapf(ErrStatus, "ollama at %s: status %d", o.ollamaUrl, statusErr.code)
	case errors.As(err, &apiStatusErr):
		return errors.Wrapf(ErrStatus, "ollama at %s: status %d", o.ollamaUrl, apiStatusErr.StatusCode)
	case isDecodeError(err):
		return errors.Wrapf(ErrMalformedResponse, "ollama at %s: %s", o.ollamaUrl, err)
	default:
		return errors.Wrapf(ErrUnreachable, "ollama at %s: %s", o.ollamaUrl, err)
	}
}
