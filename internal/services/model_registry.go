package services

import (
	"errors"
	"fmt"
	"strings"
)

// Provider identifies an LLM vendor backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderXAI       Provider = "xai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
	ProviderOllama    Provider = "ollama"
)

// ErrUnknownModel is returned when a model identifier matches no registered
// model and no provider prefix rule. Unrecognized models are a hard error,
// never routed to a default vendor.
var ErrUnknownModel = errors.New("unknown model")

// ModelCaps describes a model's request quirks, looked up once per call
// instead of branching on model-name prefixes inside the request builders.
type ModelCaps struct {
	Provider Provider
	// MaxOutputTokens is the model's documented output ceiling. The
	// OpenAI-compatible request builders always send this value regardless
	// of the caller-requested max, favoring complete output over cost.
	MaxOutputTokens int
	// UseMaxCompletionTokens selects the max_completion_tokens field over
	// max_tokens for the reasoning model family.
	UseMaxCompletionTokens bool
	SupportsTemperature    bool
	SupportsJSONMode       bool
}

var modelCaps = map[string]ModelCaps{
	// OpenAI
	"gpt-4o":       {Provider: ProviderOpenAI, MaxOutputTokens: 16384, SupportsTemperature: true, SupportsJSONMode: true},
	"gpt-4o-mini":  {Provider: ProviderOpenAI, MaxOutputTokens: 16384, SupportsTemperature: true, SupportsJSONMode: true},
	"gpt-4.1":      {Provider: ProviderOpenAI, MaxOutputTokens: 32768, SupportsTemperature: true, SupportsJSONMode: true},
	"gpt-4.1-mini": {Provider: ProviderOpenAI, MaxOutputTokens: 32768, SupportsTemperature: true, SupportsJSONMode: true},
	"o3":           {Provider: ProviderOpenAI, MaxOutputTokens: 100000, UseMaxCompletionTokens: true, SupportsJSONMode: true},
	"o3-mini":      {Provider: ProviderOpenAI, MaxOutputTokens: 100000, UseMaxCompletionTokens: true, SupportsJSONMode: true},
	// xAI (OpenAI-compatible wire format)
	"grok-3":            {Provider: ProviderXAI, MaxOutputTokens: 8192, SupportsTemperature: true, SupportsJSONMode: true},
	"grok-3-mini":       {Provider: ProviderXAI, MaxOutputTokens: 8192, SupportsTemperature: true, SupportsJSONMode: true},
	"grok-2-vision-1212": {Provider: ProviderXAI, MaxOutputTokens: 4096, SupportsTemperature: true, SupportsJSONMode: false},
	// Anthropic
	"claude-opus-4-1":           {Provider: ProviderAnthropic, MaxOutputTokens: 32000, SupportsTemperature: true},
	"claude-sonnet-4-20250514":  {Provider: ProviderAnthropic, MaxOutputTokens: 64000, SupportsTemperature: true},
	"claude-3-5-haiku-20241022": {Provider: ProviderAnthropic, MaxOutputTokens: 8192, SupportsTemperature: true},
	// Gemini
	"gemini-2.5-pro":   {Provider: ProviderGemini, MaxOutputTokens: 65536, SupportsTemperature: true, SupportsJSONMode: true},
	"gemini-2.5-flash": {Provider: ProviderGemini, MaxOutputTokens: 65536, SupportsTemperature: true, SupportsJSONMode: true},
}

// anthropicDowngrades maps a top-tier model to its smaller same-family
// fallback, used only when a caller opts in via AutoFallback and the original
// call failed on the output-length limit.
var anthropicDowngrades = map[string]string{
	"claude-opus-4-1": "claude-sonnet-4-20250514",
}

// prefix rules for models not individually registered
var providerPrefixes = []struct {
	prefix   string
	provider Provider
}{
	{"gpt-", ProviderOpenAI},
	{"o1-", ProviderOpenAI},
	{"o3-", ProviderOpenAI},
	{"o4-", ProviderOpenAI},
	{"grok-", ProviderXAI},
	{"claude-", ProviderAnthropic},
	{"gemini-", ProviderGemini},
	{"ollama/", ProviderOllama},
}

// CapsForModel resolves the capability entry for a model identifier. Exact
// registry entries win; otherwise a provider prefix rule yields conservative
// defaults. Anything else is ErrUnknownModel.
func CapsForModel(model string) (ModelCaps, error) {
	if caps, ok := modelCaps[model]; ok {
		return caps, nil
	}

	for _, rule := range providerPrefixes {
		if strings.HasPrefix(model, rule.prefix) {
			caps := ModelCaps{
				Provider:            rule.provider,
				MaxOutputTokens:     4096,
				SupportsTemperature: true,
			}
			if rule.provider == ProviderOpenAI || rule.provider == ProviderXAI {
				caps.SupportsJSONMode = true
			}
			return caps, nil
		}
	}

	return ModelCaps{}, fmt.Errorf("%w: %q", ErrUnknownModel, model)
}

// DetectProvider returns the provider responsible for a model identifier.
func DetectProvider(model string) (Provider, error) {
	caps, err := CapsForModel(model)
	if err != nil {
		return "", err
	}
	return caps.Provider, nil
}

// OllamaModelName strips the routing prefix from an ollama model identifier.
func OllamaModelName(model string) string {
	return strings.TrimPrefix(model, "ollama/")
}
