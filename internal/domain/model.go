package domain

import (
	"fmt"
	"strings"
)

// Provider identifies a generation backend.
type Provider string

// Supported generation providers. Both expose an OpenAI-compatible chat API;
// ollama is the locally hosted one.
const (
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
)

// IsValid checks if the provider is one of the supported values.
func (p Provider) IsValid() bool {
	return p == ProviderOpenAI || p == ProviderOllama
}

// ModelChoice is a validated "<provider>/<model>" pair. The zero value is
// invalid; construct via ParseModelChoice so unknown providers are rejected
// at the boundary instead of deep inside the pipeline.
type ModelChoice struct {
	provider Provider
	model    string
}

// ParseModelChoice parses a "<provider>/<model>" string.
// Returns ErrUnsupportedProvider for an unknown or malformed prefix.
func ParseModelChoice(s string) (ModelChoice, error) {
	prov, model, ok := strings.Cut(s, "/")
	if !ok || model == "" {
		return ModelChoice{}, fmt.Errorf("model choice %q is not of the form \"<provider>/<model>\": %w", s, ErrUnsupportedProvider)
	}
	p := Provider(prov)
	if !p.IsValid() {
		return ModelChoice{}, fmt.Errorf("unknown provider %q: %w", prov, ErrUnsupportedProvider)
	}
	return ModelChoice{provider: p, model: model}, nil
}

// MustModelChoice parses a model choice or panics. For fixed, known-good
// choices such as the judge model default.
func MustModelChoice(s string) ModelChoice {
	c, err := ParseModelChoice(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Provider returns the generation backend.
func (c ModelChoice) Provider() Provider { return c.provider }

// Model returns the bare model identifier, without the provider prefix.
func (c ModelChoice) Model() string { return c.model }

// String reassembles the "<provider>/<model>" form.
func (c ModelChoice) String() string { return string(c.provider) + "/" + c.model }

// IsZero reports whether the choice was never parsed.
func (c ModelChoice) IsZero() bool { return c.provider == "" }
