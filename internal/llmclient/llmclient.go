// Package llmclient is the HTTP client for the LLM collaborator used by C9's
// query expansion and final generation steps.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ragcore/ragcore/internal/ragerr"
)

// Config configures a Client.
type Config struct {
	Endpoint    string
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
	Timeout     time.Duration
}

// DefaultTemperature, DefaultTopP, DefaultMaxTokens, DefaultTimeout mirror
// the configuration defaults in spec.
const (
	DefaultTemperature = 0.1
	DefaultTopP        = 0.9
	DefaultMaxTokens   = 500
	DefaultTimeout     = 180 * time.Second
)

// Client talks to an Ollama-shaped /api/generate endpoint.
type Client struct {
	httpClient *http.Client
	transport  *http.Transport
	cfg        Config
}

// New builds a Client, applying defaults for zero-valued Temperature, TopP,
// MaxTokens and Timeout.
func New(cfg Config) *Client {
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.TopP == 0 {
		cfg.TopP = DefaultTopP
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{Transport: transport},
		transport:  transport,
		cfg:        cfg,
	}
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate asks the LLM collaborator to complete prompt, retrying transient
// failures under the remote retry policy.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	return ragerr.DoWithResult(ctx, ragerr.RemoteRetryPolicy, func() (string, error) {
		return c.doGenerate(ctx, prompt)
	})
}

func (c *Client) doGenerate(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: c.cfg.Temperature,
			TopP:        c.cfg.TopP,
			NumPredict:  c.cfg.MaxTokens,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", ragerr.Configuration("ERR_LLM_MARSHAL", "failed to marshal generate request", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, c.cfg.Endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", ragerr.Configuration("ERR_LLM_REQUEST", "failed to build generate request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", ragerr.TransientRemote("ERR_LLM_CONNECT", "failed to reach LLM collaborator", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		msg := fmt.Sprintf("generate failed with status %d: %s", resp.StatusCode, string(respBody))
		if resp.StatusCode >= 500 {
			return "", ragerr.TransientRemote("ERR_LLM_STATUS", msg, nil)
		}
		return "", ragerr.Configuration("ERR_LLM_STATUS", msg, nil)
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", ragerr.TransientRemote("ERR_LLM_DECODE", "failed to decode generate response", err)
	}

	return result.Response, nil
}

// Available performs the health check: GET {endpoint}/api/tags returning 2xx.
func (c *Client) Available(ctx context.Context) bool {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, c.cfg.Endpoint+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Close releases idle HTTP connections.
func (c *Client) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}
