package domain

// AIProvider identifies the chat model provider
type AIProvider string

const (
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the provider is known
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// LLMSettings holds chat model configuration
type LLMSettings struct {
	Provider    AIProvider `json:"provider"`
	Model       string     `json:"model"`
	APIKey      string     `json:"-"` // Never serialize to JSON
	BaseURL     string     `json:"base_url,omitempty"`
	Temperature float32    `json:"temperature"`
}

// IsConfigured returns true if a provider and its credential are present
func (l *LLMSettings) IsConfigured() bool {
	if l == nil || l.Provider == "" {
		return false
	}
	return l.APIKey != ""
}
