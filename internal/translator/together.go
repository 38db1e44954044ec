package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTogetherEndpoint is the Together AI chat completions URL.
const DefaultTogetherEndpoint = "https://api.together.xyz/v1/chat/completions"

// TogetherProvider translates text through the Together AI chat API.
type TogetherProvider struct {
	endpointURL string
	client      *http.Client
}

func NewTogetherProvider() *TogetherProvider {
	return &TogetherProvider{
		endpointURL: DefaultTogetherEndpoint,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (p *TogetherProvider) Name() string {
	return "together"
}

func (p *TogetherProvider) SupportedLanguages() []string {
	return SupportedLanguageCodes()
}

func (p *TogetherProvider) Translate(ctx context.Context, req Request) (*Response, error) {
	if p == nil {
		return nil, fmt.Errorf("together provider is nil")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("text is required")
	}
	if strings.TrimSpace(req.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}

	modelName, model, err := resolveTogetherModel(req.Model)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	translated, err := translateSegmented(ctx, req, func(ctx context.Context, req Request) (string, error) {
		return p.translateOne(ctx, req, model)
	})
	if err != nil {
		return nil, err
	}

	return &Response{
		Text:         translated,
		SourceLang:   NormalizeLangCode(req.SourceLang),
		TargetLang:   NormalizeLangCode(req.TargetLang),
		ProviderName: p.Name(),
		ModelName:    modelName,
		LatencyMs:    time.Since(started).Milliseconds(),
	}, nil
}

func (p *TogetherProvider) translateOne(ctx context.Context, req Request, model togetherModel) (string, error) {
	prompt := BuildPrompt(req.Text, req.SourceLang, req.TargetLang, req.CustomTerms)

	maxTokens := model.maxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	body, err := json.Marshal(togetherChatRequest{
		Model: model.modelID,
		Messages: []togetherChatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature:       0.6,
		TopP:              0.95,
		TopK:              55,
		RepetitionPenalty: 1.2,
		Stop:              []string{"</s>", "[/INST]"},
		MaxTokens:         maxTokens,
		Stream:            false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal together request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpointURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build together request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+strings.TrimSpace(req.APIKey))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send together request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read together response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errPayload togetherErrorResponse
		if unmarshalErr := json.Unmarshal(respBody, &errPayload); unmarshalErr == nil {
			if msg := strings.TrimSpace(errPayload.Error.Message); msg != "" {
				return "", fmt.Errorf("together status %d: %s", resp.StatusCode, msg)
			}
		}
		return "", fmt.Errorf("together status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed togetherChatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode together response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("together response missing choices")
	}

	translated := CleanTranslation(parsed.Choices[0].Message.Content)
	if translated == "" {
		return "", fmt.Errorf("together response was empty")
	}
	return translated, nil
}

type togetherChatRequest struct {
	Model             string                `json:"model"`
	Messages          []togetherChatMessage `json:"messages"`
	Temperature       float64               `json:"temperature,omitempty"`
	TopP              float64               `json:"top_p,omitempty"`
	TopK              int                   `json:"top_k,omitempty"`
	RepetitionPenalty float64               `json:"repetition_penalty,omitempty"`
	Stop              []string              `json:"stop,omitempty"`
	MaxTokens         int                   `json:"max_tokens,omitempty"`
	Stream            bool                  `json:"stream"`
}

type togetherChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type togetherChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type togetherErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
