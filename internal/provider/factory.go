package provider

import (
	"fmt"
	"strings"

	"github.com/julianshen/reposcribe/internal/config"
)

const anthropicBaseURL = "https://api.anthropic.com"

// ProviderConstructor builds an LLMProvider for a given endpoint and key.
type ProviderConstructor func(baseURL, apiKey string, extraHeaders map[string]string) LLMProvider

var registry = map[string]ProviderConstructor{}

// RegisterProvider registers a constructor under a provider name. Provider
// sub-packages call this from init, so importing one is enough to enable it.
func RegisterProvider(name string, constructor ProviderConstructor) {
	registry[name] = constructor
}

// NewProvider builds the provider the configuration selects: "anthropic" for
// the Anthropic API, any other name is looked up among the OpenAI-compatible
// endpoints in the config.
func NewProvider(cfg *config.Config) (LLMProvider, error) {
	name := cfg.Provider.Default

	if name == "anthropic" {
		construct, err := constructorFor("anthropic")
		if err != nil {
			return nil, err
		}
		apiKey, err := config.ResolveAPIKey(
			cfg.Provider.Anthropic.APIKeySource,
			cfg.Provider.Anthropic.APIKey,
			"ANTHROPIC_API_KEY",
		)
		if err != nil {
			return nil, fmt.Errorf("resolving Anthropic API key: %w", err)
		}
		return construct(anthropicBaseURL, apiKey, nil), nil
	}

	construct, err := constructorFor("openai")
	if err != nil {
		return nil, err
	}
	for _, oc := range cfg.Provider.OpenAI {
		if oc.Name != name {
			continue
		}
		apiKey, err := config.ResolveAPIKey(oc.APIKeySource, oc.APIKey, strings.ToUpper(name)+"_API_KEY")
		if err != nil {
			return nil, fmt.Errorf("resolving %s API key: %w", name, err)
		}
		return construct(oc.BaseURL, apiKey, oc.ExtraHeaders), nil
	}
	return nil, fmt.Errorf("unknown provider: %q", name)
}

func constructorFor(kind string) (ProviderConstructor, error) {
	construct, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("%s provider not registered", kind)
	}
	return construct, nil
}
