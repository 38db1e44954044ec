package translator

import (
	"fmt"
	"sort"
	"strings"
)

// ModelOption describes one selectable model of a provider.
type ModelOption struct {
	Name      string `json:"name"`
	Provider  string `json:"provider"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

type geminiModel struct {
	endpoint string
}

type togetherModel struct {
	modelID   string
	maxTokens int
}

var geminiModels = map[string]geminiModel{
	"gemini-2.0-flash":      {endpoint: "gemini-2.0-flash:generateContent"},
	"gemini-1.5-pro":        {endpoint: "gemini-1.5-pro:generateContent"},
	"gemini-1.5-flash":      {endpoint: "gemini-1.5-flash:generateContent"},
	"gemini-1.5-flash-8b":   {endpoint: "gemini-1.5-flash-8b:generateContent"},
	"gemini-2.0-flash-lite": {endpoint: "gemini-2.0-flash-lite:generateContent"},
}

var togetherModels = map[string]togetherModel{
	"llama-3.3-70b":  {modelID: "meta-llama/Llama-3.3-70B-Instruct-Turbo", maxTokens: 8192},
	"qwen-2.5-72b":   {modelID: "Qwen/Qwen2.5-72B-Instruct-Turbo", maxTokens: 8192},
	"mixtral-8x7b":   {modelID: "mistralai/Mixtral-8x7B-Instruct-v0.1", maxTokens: 4096},
	"deepseek-v3":    {modelID: "deepseek-ai/DeepSeek-V3", maxTokens: 8192},
	"llama-3.1-405b": {modelID: "meta-llama/Meta-Llama-3.1-405B-Instruct-Turbo", maxTokens: 4096},
}

const (
	defaultGeminiModel   = "gemini-2.0-flash"
	defaultTogetherModel = "llama-3.3-70b"
)

// Models lists the catalog for one provider, or for all providers when the
// name is empty.
func Models(provider string) []ModelOption {
	name := normalizeProviderName(provider)
	options := make([]ModelOption, 0, len(geminiModels)+len(togetherModels))

	if name == "" || name == "gemini" {
		for modelName := range geminiModels {
			options = append(options, ModelOption{Name: modelName, Provider: "gemini"})
		}
	}
	if name == "" || name == "together" {
		for modelName, model := range togetherModels {
			options = append(options, ModelOption{
				Name:      modelName,
				Provider:  "together",
				MaxTokens: model.maxTokens,
			})
		}
	}

	sort.Slice(options, func(i, j int) bool {
		if options[i].Provider != options[j].Provider {
			return options[i].Provider < options[j].Provider
		}
		return options[i].Name < options[j].Name
	})
	return options
}

func resolveGeminiModel(raw string) (string, geminiModel, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		name = defaultGeminiModel
	}
	model, ok := geminiModels[name]
	if !ok {
		return "", geminiModel{}, fmt.Errorf("unsupported gemini model: %s", name)
	}
	return name, model, nil
}

func resolveTogetherModel(raw string) (string, togetherModel, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		name = defaultTogetherModel
	}
	model, ok := togetherModels[name]
	if !ok {
		return "", togetherModel{}, fmt.Errorf("unsupported together model: %s", name)
	}
	return name, model, nil
}
