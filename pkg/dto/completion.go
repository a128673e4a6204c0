package dto

import (
	"encoding/json"
)

// CompletionRequest is the body accepted by the proxy endpoint.
type CompletionRequest struct {
	Prompt  string          `json:"prompt" yaml:"prompt"`                       // free text entered by the user
	Type    string          `json:"type" yaml:"type"`                           // category tag: rhyme, style, structure, improve or anything else
	Context json.RawMessage `json:"context,omitempty" yaml:"context,omitempty"` // opaque, accepted and ignored
}

// CompletionResponse is the body returned by the proxy endpoint.
type CompletionResponse struct {
	Success  bool   `json:"success" yaml:"success"`
	Response string `json:"response" yaml:"response"`               // generated markdown (success only)
	Model    string `json:"model" yaml:"model"`                     // model that produced the response (success only)
	Error    string `json:"error,omitempty" yaml:"error,omitempty"` // actionable failure message (failure only)
}

// MarshalJSON writes {success, response, model} on success and {success, error} otherwise.
func (r CompletionResponse) MarshalJSON() ([]byte, error) {
	if r.Success {
		return json.Marshal(struct {
			Success  bool   `json:"success"`
			Response string `json:"response"`
			Model    string `json:"model"`
		}{true, r.Response, r.Model})
	}
	return json.Marshal(struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}{false, r.Error})
}

// CompletionResult is the outcome of one proxied completion. Text and
// ErrorMessage are never both set.
type CompletionResult struct {
	Success      bool
	Text         string
	Model        string
	ErrorMessage string
}

func Succeeded(text, model string) CompletionResult {
	return CompletionResult{Success: true, Text: text, Model: model}
}

func Failed(message string) CompletionResult {
	return CompletionResult{ErrorMessage: message}
}

// Response converts the result into its wire form.
func (r CompletionResult) Response() CompletionResponse {
	if !r.Success {
		return CompletionResponse{Error: r.ErrorMessage}
	}
	return CompletionResponse{Success: true, Response: r.Text, Model: r.Model}
}
