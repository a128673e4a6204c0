package llm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/onsi/gomega"
)

type generateBody struct {
	Model   string             `json:"model"`
	Prompt  string             `json:"prompt"`
	Stream  *bool              `json:"stream"`
	Options map[string]float64 `json:"options"`
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOllama(t *testing.T, url string) Client {
	c, err := NewOllama(discardLogger(), url, 5*time.Second)
	Expect(err).To(BeNil())
	return c
}

func TestOllamaGenerate(t *testing.T) {
	RegisterTestingT(t)

	var received generateBody
	var path, method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, method = r.URL.Path, r.Method
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3:latest","response":"Roses are red","done":true}`))
	}))
	defer srv.Close()

	res, err := newTestOllama(t, srv.URL+"/").Generate(context.Background(), GenerateRequest{
		Prompt:      "sys\n\nUser: hi\n\nAssistant:",
		Temperature: DefaultTemperature,
		TopP:        DefaultTopP,
	})
	Expect(err).To(BeNil())
	Expect(res.Response).To(Equal("Roses are red"))
	Expect(res.Model).To(Equal("llama3:latest"))

	Expect(method).To(Equal(http.MethodPost))
	Expect(path).To(Equal("/api/generate"))
	Expect(received.Model).To(Equal(DefaultModel))
	Expect(received.Prompt).To(Equal("sys\n\nUser: hi\n\nAssistant:"))
	Expect(received.Stream).NotTo(BeNil())
	Expect(*received.Stream).To(BeFalse())
	Expect(received.Options).To(HaveKeyWithValue("temperature", 0.7))
	Expect(received.Options).To(HaveKeyWithValue("top_p", 0.9))
}

func TestOllamaErrorStatus(t *testing.T) {
	RegisterTestingT(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'llama3:latest' not found"}`))
	}))
	defer srv.Close()

	_, err := newTestOllama(t, srv.URL).Generate(context.Background(), GenerateRequest{Prompt: "x"})
	Expect(err).To(MatchError(ErrStatus))
	Expect(Kind(err)).To(Equal("status"))
}

func TestOllamaEmptyErrorBody(t *testing.T) {
	RegisterTestingT(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestOllama(t, srv.URL).Generate(context.Background(), GenerateRequest{Prompt: "x"})
	Expect(err).To(MatchError(ErrStatus))
}

func TestOllamaMalformedBody(t *testing.T) {
	RegisterTestingT(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`this is not json`))
	}))
	defer srv.Close()

	_, err := newTestOllama(t, srv.URL).Generate(context.Background(), GenerateRequest{Prompt: "x"})
	Expect(err).To(MatchError(ErrMalformedResponse))
	Expect(Kind(err)).To(Equal("malformed"))
}

func TestOllamaMissingResponseField(t *testing.T) {
	RegisterTestingT(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model":"llama3:latest","done":true}`))
	}))
	defer srv.Close()

	_, err := newTestOllama(t, srv.URL).Generate(context.Background(), GenerateRequest{Prompt: "x"})
	Expect(err).To(MatchError(ErrMalformedResponse))
	Expect(err.Error()).To(ContainSubstring("missing response field"))
}

func TestOllamaConnectionRefused(t *testing.T) {
	RegisterTestingT(t)

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestOllama(t, url).Generate(context.Background(), GenerateRequest{Prompt: "x"})
	Expect(err).To(MatchError(ErrUnreachable))
	Expect(Kind(err)).To(Equal("unreachable"))
}

func TestNewOllamaRejectsBadURL(t *testing.T) {
	RegisterTestingT(t)

	_, err := NewOllama(discardLogger(), "http://[::1", time.Second)
	Expect(err).NotTo(BeNil())
}
