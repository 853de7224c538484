// Package ai talks to the Gemini generateContent API to invent cocktail
// recipes from a user's requirements.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/sakif/cocktail-club/internal/apperror"
	"github.com/sakif/cocktail-club/internal/model"
)

const (
	serviceName       = "gemini"
	defaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel      = "gemini-1.5-flash"
	maxResponseBytes  = 1 << 20
	defaultMaxRetries = 3
)

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("ai: recipe generation is not configured")

// Requirements is what the user asked the bartender for. At least one of
// BaseSpirit and Taste is required.
type Requirements struct {
	BaseSpirit string
	Taste      []string
	Keywords   []string
}

// Generator produces a recipe. RecipeService depends on this, not on Gemini.
type Generator interface {
	Generate(ctx context.Context, req Requirements) (*model.Recipe, error)
}

// Config configures a GeminiClient.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	// Timeout bounds each HTTP attempt.
	Timeout    time.Duration
	MaxRetries uint
}

// GeminiClient calls generateContent with a JSON response mime type and
// decodes the answer into a model.Recipe.
type GeminiClient struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

var _ Generator = (*GeminiClient)(nil)

func NewGeminiClient(cfg Config, logger *slog.Logger) *GeminiClient {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	return &GeminiClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Enabled reports whether an API key is configured.
func (c *GeminiClient) Enabled() bool {
	return c.cfg.APIKey != ""
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	Temperature      float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate sends the prompt, retrying 429 and 5xx answers with exponential
// backoff. Any other failure, and an answer that is not a recipe, is
// apperror.ErrUpstream.
func (c *GeminiClient) Generate(ctx context.Context, req Requirements) (*model.Recipe, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: BuildPrompt(req)}}}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			Temperature:      0.9,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ai: encoding request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.cfg.BaseURL, "/"), url.PathEscape(c.cfg.Model))

	text, err := backoff.Retry(ctx, func() (string, error) {
		return c.call(ctx, endpoint, body)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.cfg.MaxRetries),
	)
	if err != nil {
		return nil, apperror.Upstream(serviceName, err)
	}

	recipe, err := ParseRecipe(text)
	if err != nil {
		return nil, apperror.Upstream(serviceName, err)
	}
	return recipe, nil
}

// call makes one attempt. Errors wrapped in backoff.Permanent stop retrying.
func (c *GeminiClient) call(ctx context.Context, endpoint string, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("building request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", backoff.Permanent(err)
		}
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		c.logger.Warn("gemini request failed, retrying",
			slog.Int("status", resp.StatusCode),
		)
		return "", fmt.Errorf("status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", backoff.Permanent(fmt.Errorf("decoding response: %w", err))
	}
	for _, cand := range out.Candidates {
		for _, p := range cand.Content.Parts {
			if strings.TrimSpace(p.Text) != "" {
				return p.Text, nil
			}
		}
	}
	return "", backoff.Permanent(errors.New("response contained no text"))
}

// BuildPrompt renders the requirements into the instruction sent to the
// model. The answer is requested as JSON with keys name, ingredient
// ({item, volume}) and step.
func BuildPrompt(req Requirements) string {
	var b strings.Builder
	b.WriteString("다음 요구사항에 맞춰 창의적인 칵테일 레시피를 생성해줘.\n")

	if spirit := strings.TrimSpace(req.BaseSpirit); spirit != "" {
		fmt.Fprintf(&b, "- **주요 기주(Base Spirit):** 반드시 %s를(을) 사용해야 함.\n", spirit)
	}
	if len(req.Taste) > 0 {
		fmt.Fprintf(&b, "- **주요 맛:** %s한 느낌의 칵테일이어야 함.\n", strings.Join(req.Taste, ", "))
	}
	if len(req.Keywords) > 0 {
		fmt.Fprintf(&b, "- **포함되어야 할 특징/재료:** %s 등의 요소를 포함해야 함.\n", strings.Join(req.Keywords, ", "))
	}

	b.WriteString("\n응답은 칵테일 이름, 재료 목록(용량 필수), 상세한 제조 과정을 담은 **JSON 형식**으로 응답해야 하며, " +
		"각각 key 값을 name, ingredient, step으로 지정해야한다. 또한 ingredient에 재료는 item 용량은 volume 으로 표기한다. " +
		"다른 설명이나 텍스트는 일절 포함하지 마세요.")
	return b.String()
}

// ParseRecipe decodes the model's answer. Models sometimes wrap JSON in a
// markdown code fence even when asked not to; the fence is stripped.
func ParseRecipe(text string) (*model.Recipe, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	var recipe model.Recipe
	if err := json.Unmarshal([]byte(text), &recipe); err != nil {
		return nil, fmt.Errorf("decoding recipe: %w", err)
	}
	if strings.TrimSpace(recipe.Name) == "" || len(recipe.Ingredients) == 0 || len(recipe.Steps) == 0 {
		return nil, errors.New("recipe is missing name, ingredients or steps")
	}
	return &recipe, nil
}
