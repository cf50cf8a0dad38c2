package config

import "time"

// Config is the root configuration for Delver.
type Config struct {
	Gateway   GatewayConfig   `json:"gateway"`
	Models    ModelsConfig    `json:"models"`
	Events    EventsConfig    `json:"events"`
	Research  ResearchConfig  `json:"research"`
	WebSearch WebSearchConfig `json:"web_search"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Backend   BackendConfig   `json:"backend"`
}

// GatewayConfig holds the gateway server settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// ModelsConfig holds model provider configuration.
type ModelsConfig struct {
	Default   string                    `json:"default"`
	Providers map[string]ProviderConfig `json:"providers"`
}

// ProviderConfig configures a single LLM provider.
type ProviderConfig struct {
	Driver      string     `json:"driver"` // "openai", "ollama", "anthropic"
	Model       string     `json:"model"`
	BaseURL     string     `json:"base_url,omitempty"`
	Auth        AuthConfig `json:"auth"`
	MaxTokens   int        `json:"max_tokens,omitempty"`
	Temperature float64    `json:"temperature,omitempty"`
	TopP        float64    `json:"top_p,omitempty"`
	Timeout     Duration   `json:"timeout,omitempty"`
}

// AuthConfig configures API key resolution.
type AuthConfig struct {
	APIKey string `json:"api_key,omitempty"` // Direct API key or ${{ .Env.VAR }} template
	Token  string `json:"token,omitempty"`   // OAuth/Bearer token
}

// EventsConfig holds event bus settings.
type EventsConfig struct {
	BufferSize int `json:"buffer_size"`
}

// ResearchConfig holds the research loop settings.
type ResearchConfig struct {
	Mode          string `json:"mode"`           // "speed", "balanced", "quality"
	StrictMode    bool   `json:"strict_mode"`    // error on unknown mode instead of falling back to speed
	MaxIterations int    `json:"max_iterations"` // turns before the run is cut off
}

// WebSearchConfig configures the web_search tool.
type WebSearchConfig struct {
	Provider     string   `json:"provider"` // "searxng", "duckduckgo", "google", "bing"
	SearxngURL   string   `json:"searxng_url,omitempty"`
	Timeout      string   `json:"timeout,omitempty"`
	MaxResults   int      `json:"max_results,omitempty"`
	Language     string   `json:"language,omitempty"`
	GoogleAPIKey string   `json:"google_api_key,omitempty"`
	GoogleCX     string   `json:"google_cx,omitempty"`
	BingAPIKey   string   `json:"bing_api_key,omitempty"`
	CacheTTL     Duration `json:"cache_ttl,omitempty"` // zero disables expiry
	CacheOff     bool     `json:"cache_off,omitempty"` // disable the query cache entirely
}

// SchedulerConfig holds scheduled-query settings.
type SchedulerConfig struct {
	File string `json:"file"` // YAML schedule file, defaults to $DELVER_PATH/schedules.yaml
}

// BackendConfig configures the managed SearXNG container.
type BackendConfig struct {
	ContainerName string `json:"container_name"`
	Image         string `json:"image"`
	Port          int    `json:"port"`
}

// Duration wraps time.Duration for JSON unmarshaling.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	// Remove quotes
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}
