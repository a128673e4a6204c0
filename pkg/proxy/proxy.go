// Package proxy turns a categorized user input into one upstream completion.
package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/integrail/poetry-assistant/pkg/dto"
	"github.com/integrail/poetry-assistant/pkg/llm"
	"github.com/integrail/poetry-assistant/pkg/prompt"
)

// Config is the fixed decoding configuration and the upstream identity used in failure messages.
type Config struct {
	Model        string
	Temperature  float64
	TopP         float64
	UpstreamName string // e.g. "Ollama"
	UpstreamURL  string
	UpstreamPort string
}

// Proxy holds no per-request state; Handle is safe for concurrent use.
type Proxy struct {
	llm llm.Client
	cfg Config
	log *slog.Logger
}

func New(client llm.Client, cfg Config, log *slog.Logger) *Proxy {
	cfg.Model = lo.If(cfg.Model != "", cfg.Model).Else(llm.DefaultModel)
	cfg.UpstreamName = lo.If(cfg.UpstreamName != "", cfg.UpstreamName).Else("Ollama")
	cfg.UpstreamPort = lo.If(cfg.UpstreamPort != "", cfg.UpstreamPort).Else("11434")
	return &Proxy{
		llm: client,
		cfg: cfg,
		log: log,
	}
}

// FailureMessage is returned for every upstream failure, whatever its kind.
func (p *Proxy) FailureMessage() string {
	return fmt.Sprintf("Failed to connect to %s. Make sure it's running locally on port %s.", p.cfg.UpstreamName, p.cfg.UpstreamPort)
}

// Handle builds the prompt for req and relays it upstream exactly once.
func (p *Proxy) Handle(ctx context.Context, req dto.CompletionRequest) (result dto.CompletionResult) {
	category := prompt.ParseCategory(req.Type)
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			p.log.Error("completion panicked", "category", req.Type, "panic", r)
			result = dto.Failed(p.FailureMessage())
		}
	}()

	res, err := p.llm.Generate(ctx, llm.GenerateRequest{
		Prompt:      prompt.Build(category, req.Prompt),
		Model:       p.cfg.Model,
		Temperature: p.cfg.Temperature,
		TopP:        p.cfg.TopP,
	})
	if err == nil && res == nil {
		err = llm.ErrMalformedResponse
	}
	if err != nil {
		p.log.Error("completion failed",
			"kind", llm.Kind(err),
			"category", category.String(),
			"upstream", p.cfg.UpstreamURL,
			"error", err,
		)
		return dto.Failed(p.FailureMessage())
	}

	p.log.Debug("completion succeeded", "category", category.String(), "elapsed", time.Since(started))
	return dto.Succeeded(res.Response, lo.If(res.Model != "", res.Model).Else(p.cfg.Model))
}
