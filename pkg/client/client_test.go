package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"

	"github.com/integrail/poetry-assistant/pkg/config"
	"github.com/integrail/poetry-assistant/pkg/dto"
	"github.com/integrail/poetry-assistant/pkg/llm"
	"github.com/integrail/poetry-assistant/pkg/llm/mocks"
	"github.com/integrail/poetry-assistant/pkg/prompt"
	"github.com/integrail/poetry-assistant/pkg/proxy"
	"github.com/integrail/poetry-assistant/pkg/session"
)

func newProxyServer(t *testing.T, upstream llm.Client) *httptest.Server {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := proxy.New(upstream, proxy.Config{UpstreamName: "Ollama", UpstreamPort: "11434"}, log)
	srv := httptest.NewServer(proxy.NewRouter(p, []string{"*"}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCompleteSuccess(t *testing.T) {
	RegisterTestingT(t)
	upstream := mocks.NewClient(t)
	upstream.On("Generate", mock.Anything, mock.MatchedBy(func(req llm.GenerateRequest) bool {
		return req.Prompt == prompt.Build(prompt.Rhyme, "roses")
	})).Return(&llm.GenerateResponse{Response: "Roses are red", Model: "llama3:latest"}, nil)

	c := NewClient(newProxyServer(t, upstream).URL+"/", 5*time.Second)
	res, err := c.Complete(context.Background(), dto.CompletionRequest{Prompt: "roses", Type: "rhyme"})
	Expect(err).To(BeNil())
	Expect(*res).To(Equal(dto.CompletionResponse{Success: true, Response: "Roses are red", Model: "llama3:latest"}))
}

func TestCompleteProxyFailureIsNotAnError(t *testing.T) {
	RegisterTestingT(t)
	upstream := mocks.NewClient(t)
	upstream.On("Generate", mock.Anything, mock.Anything).Return(nil, errors.Wrap(llm.ErrStatus, "500"))

	c := NewClient(newProxyServer(t, upstream).URL, 5*time.Second)
	res, err := c.Complete(context.Background(), dto.CompletionRequest{Prompt: "roses", Type: "rhyme"})
	Expect(err).To(BeNil())
	Expect(res.Success).To(BeFalse())
	Expect(res.Error).To(Equal("Failed to connect to Ollama. Make sure it's running locally on port 11434."))
}

func TestCompleteUnreachableProxy(t *testing.T) {
	RegisterTestingT(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).Complete(context.Background(), dto.CompletionRequest{Prompt: "x"})
	Expect(err).To(MatchError(ContainSubstring("failed to reach proxy")))
}

func TestCompleteNonJSONBody(t *testing.T) {
	RegisterTestingT(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Complete(context.Background(), dto.CompletionRequest{Prompt: "x"})
	Expect(err).To(MatchError(ContainSubstring("status 502")))
}

func TestSessionOverProxy(t *testing.T) {
	RegisterTestingT(t)
	upstream := mocks.NewClient(t)
	upstream.On("Generate", mock.Anything, mock.Anything).Return(nil, errors.Wrap(llm.ErrUnreachable, "refused")).Once()
	upstream.On("Generate", mock.Anything, mock.Anything).Return(&llm.GenerateResponse{Response: "## Sonnet"}, nil).Once()

	s := session.New(NewClient(newProxyServer(t, upstream).URL, 5*time.Second))

	failed, err := s.Submit(context.Background(), prompt.Style, "sonnet")
	Expect(err).To(BeNil())
	Expect(failed.Failed).To(BeTrue())
	Expect(failed.Text).To(HavePrefix(session.ErrorPrefix + "Failed to connect to Ollama."))

	ok, err := s.Submit(context.Background(), prompt.Style, "sonnet")
	Expect(err).To(BeNil())
	Expect(ok.Text).To(Equal("## Sonnet"))

	Expect(s.Interactions()).To(Equal([]session.Interaction{ok, failed}))
}

func TestSlowUpstreamReportsUpstreamFailure(t *testing.T) {
	RegisterTestingT(t)
	cfg := &config.Config{UpstreamTimeout: 200 * time.Millisecond}

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	upstream, err := llm.NewOllama(slog.New(slog.NewTextHandler(io.Discard, nil)), slow.URL, cfg.UpstreamTimeout)
	Expect(err).To(BeNil())

	res, err := NewClient(newProxyServer(t, upstream).URL, cfg.ProxyTimeout()).
		Complete(context.Background(), dto.CompletionRequest{Prompt: "roses", Type: "rhyme"})
	Expect(err).To(BeNil())
	Expect(res.Success).To(BeFalse())
	Expect(res.Error).To(Equal("Failed to connect to Ollama. Make sure it's running locally on port 11434."))
}
