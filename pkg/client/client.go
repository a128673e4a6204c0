package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/integrail/poetry-assistant/pkg/dto"
	"github.com/integrail/poetry-assistant/pkg/proxy"
)

type proxyClient struct {
	proxyURL string
	client   *http.Client
}

// Client calls the proxy endpoint.
type Client interface {
	Complete(ctx context.Context, request dto.CompletionRequest) (*dto.CompletionResponse, error)
	URL() string
}

func NewClient(proxyURL string, timeout time.Duration) Client {
	return &proxyClient{
		proxyURL: strings.TrimSuffix(proxyURL, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

func (o *proxyClient) URL() string {
	return o.proxyURL
}

// Complete posts request to the proxy. A failure body from the proxy is
// returned as a response with Success=false, not as an error.
func (o *proxyClient) Complete(ctx context.Context, request dto.CompletionRequest) (*dto.CompletionResponse, error) {
	reqBodyBytes, err := json.Marshal(request)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal completion request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.proxyURL+proxy.CompletionPath, bytes.NewBuffer(reqBodyBytes))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to init completion request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to reach proxy at %s", o.proxyURL)
	}
	defer resp.Body.Close()

	respBytes := readBytes(resp.Body)
	var completion dto.CompletionResponse
	if err := json.Unmarshal(respBytes, &completion); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal proxy response (status %d): %s", resp.StatusCode, string(respBytes))
	}
	if resp.StatusCode != http.StatusOK && completion.Success {
		return nil, errors.Errorf("proxy returned status %d for a successful body", resp.StatusCode)
	}
	if !completion.Success && completion.Error == "" {
		completion.Error = fmt.Sprintf("proxy returned status %d", resp.StatusCode)
	}
	return &completion, nil
}

func readBytes(stream io.Reader) []byte {
	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(stream)
	return buf.Bytes()
}
