package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultGeminiEndpoint is the Google Generative Language models root.
const DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiProvider translates text through the Google Gemini REST API.
type GeminiProvider struct {
	baseURL string
	client  *http.Client
}

func NewGeminiProvider() *GeminiProvider {
	return &GeminiProvider{
		baseURL: DefaultGeminiEndpoint,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

func (p *GeminiProvider) SupportedLanguages() []string {
	return SupportedLanguageCodes()
}

func (p *GeminiProvider) Translate(ctx context.Context, req Request) (*Response, error) {
	if p == nil {
		return nil, fmt.Errorf("gemini provider is nil")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("text is required")
	}
	if strings.TrimSpace(req.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}

	modelName, model, err := resolveGeminiModel(req.Model)
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

func (p *GeminiProvider) translateOne(ctx context.Context, req Request, model geminiModel) (string, error) {
	prompt := BuildPrompt(req.Text, req.SourceLang, req.TargetLang, req.CustomTerms)

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal gemini request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s?key=%s", p.baseURL, model.endpoint, url.QueryEscape(req.APIKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send gemini request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read gemini response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errPayload geminiErrorResponse
		if unmarshalErr := json.Unmarshal(respBody, &errPayload); unmarshalErr == nil {
			if msg := strings.TrimSpace(errPayload.Error.Message); msg != "" {
				return "", fmt.Errorf("gemini status %d: %s", resp.StatusCode, msg)
			}
		}
		return "", fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 {
		return "", fmt.Errorf("gemini response missing candidates")
	}
	parts := parsed.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return "", fmt.Errorf("gemini response missing content parts")
	}

	translated := CleanTranslation(parts[0].Text)
	if translated == "" {
		return "", fmt.Errorf("gemini response was empty")
	}
	return translated, nil
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
