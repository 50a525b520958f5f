package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Client define la interfaz para generar respuestas con un LLM.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Candidatos en orden de preferencia; el primero que responda se cachea.
var defaultModels = []string{
	"gemini-2.5-pro",
	"gemini-flash-latest",
	"gemini-2.5-flash",
	"gemini-1.5-flash",
	"gemini-1.5-pro",
}

// GeminiClient implementa Client contra la API generateContent de Gemini,
// con fallback sobre una lista de modelos candidatos.
type GeminiClient struct {
	baseURL string
	apiKey  string
	models  []string
	client  *http.Client
	logger  *zap.Logger

	mu          sync.Mutex
	cachedModel string
}

// NewGeminiClient construye un cliente apuntando a la API de Gemini.
func NewGeminiClient(baseURL, apiKey string, models []string, logger *zap.Logger) *GeminiClient {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if len(models) == 0 {
		models = defaultModels
	}
	return &GeminiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  strings.Trim(strings.TrimSpace(apiKey), `'"`),
		models:  models,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

// Generate llama al primer modelo que funcione y cachea su nombre. Un fallo
// posterior invalida la cache para volver a recorrer la lista.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("gemini api key is not configured")
	}

	if model := c.workingModel(); model != "" {
		reply, err := c.generateWith(ctx, model, prompt)
		if err == nil {
			return reply, nil
		}
		c.dropModel()
		if c.logger != nil {
			c.logger.Warn("cached model failed", zap.String("model", model), zap.Error(err))
		}
	}

	var lastErr error
	for _, model := range c.models {
		reply, err := c.generateWith(ctx, model, prompt)
		if err == nil {
			c.setModel(model)
			return reply, nil
		}
		lastErr = err
		if c.logger != nil {
			c.logger.Debug("model failed", zap.String("model", model), zap.Error(err))
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no gemini models configured")
	}
	return "", lastErr
}

func (c *GeminiClient) generateWith(ctx context.Context, model, prompt string) (string, error) {
	reqBody := generateRequest{
		Contents: []content{
			{Parts: []part{{Text: prompt}}},
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("gemini http error: status=%d model=%s", resp.StatusCode, model)
	}

	var gr generateResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if gr.Error != nil {
		return "", fmt.Errorf("gemini api error: %s", gr.Error.Message)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini empty response")
	}
	text := gr.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", fmt.Errorf("gemini empty response")
	}
	return text, nil
}

func (c *GeminiClient) workingModel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cachedModel
}

func (c *GeminiClient) setModel(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cachedModel = model
}

func (c *GeminiClient) dropModel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cachedModel = ""
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}
