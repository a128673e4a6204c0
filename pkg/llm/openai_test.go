package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/onsi/gomega"
)

func TestOpenAIGenerate(t *testing.T) {
	RegisterTestingT(t)

	var received struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		TopP        float64 `json:"top_p"`
		Messages    []struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"messages"`
	}
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "llama3:latest",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "## Rhymes\n- moon\n- June"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2}
		}`))
	}))
	defer srv.Close()

	c, err := NewOpenAI(discardLogger(), srv.URL+"/v1", "", "", 5*time.Second)
	Expect(err).To(BeNil())

	res, err := c.Generate(context.Background(), GenerateRequest{
		Prompt:      "sys\n\nUser: moon\n\nAssistant:",
		Temperature: DefaultTemperature,
		TopP:        DefaultTopP,
	})
	Expect(err).To(BeNil())
	Expect(res.Response).To(Equal("## Rhymes\n- moon\n- June"))
	Expect(res.Model).To(Equal(DefaultModel))

	Expect(path).To(Equal("/v1/chat/completions"))
	Expect(received.Model).To(Equal(DefaultModel))
	Expect(received.Temperature).To(BeNumerically("~", 0.7, 1e-9))
	Expect(received.TopP).To(BeNumerically("~", 0.9, 1e-9))
	Expect(received.Messages).To(HaveLen(1))
	Expect(string(received.Messages[0].Content)).To(ContainSubstring("User: moon"))
}

func TestOpenAIConnectionRefused(t *testing.T) {
	RegisterTestingT(t)

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewOpenAI(discardLogger(), url+"/v1", "token", "llama3:latest", time.Second)
	Expect(err).To(BeNil())

	_, err = c.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	Expect(err).NotTo(BeNil())
	Expect(Kind(err)).NotTo(BeEmpty())
}
