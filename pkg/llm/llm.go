package llm

import (
	"context"
)

//go:generate ../../bin/mockery --name Client --output ./mocks --outpkg mocks

type Client interface {
	Generate(ctx context.Context, request GenerateRequest) (*GenerateResponse, error)
}

type GenerateRequest struct {
	Prompt      string  `json:"prompt" yaml:"prompt"`
	Model       string  `json:"model" yaml:"model"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	TopP        float64 `json:"topP" yaml:"topP"`
}

type GenerateResponse struct {
	Response string `json:"response" yaml:"response"`
	Model    string `json:"model" yaml:"model"`
}

const (
	DefaultModel       = "llama3:latest"
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9
)
