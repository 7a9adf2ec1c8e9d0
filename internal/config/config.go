// Package config provides the configuration schema and loader for the
// metrovoice server.
package config

// LogLevel controls log verbosity for the metrovoice server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// ProviderBackend selects the invoker implementation behind the resolver.
type ProviderBackend string

const (
	// BackendGemini uses the Google Gemini API directly. It is the default
	// and the only backend that supports scene analysis (inline images).
	BackendGemini ProviderBackend = "gemini"

	// BackendAnyLLM routes through any-llm-go, selecting the concrete
	// service with Providers.AnyLLMBackend.
	BackendAnyLLM ProviderBackend = "anyllm"
)

// IsValid reports whether b is a recognised provider backend.
func (b ProviderBackend) IsValid() bool {
	return b == BackendGemini || b == BackendAnyLLM
}

// NarrationBackend selects the speech synthesis implementation.
type NarrationBackend string

const (
	// NarrationConsole writes utterances to stdout with simulated pacing.
	NarrationConsole NarrationBackend = "console"

	// NarrationCoqui synthesises via a local Coqui TTS server.
	NarrationCoqui NarrationBackend = "coqui"

	// NarrationNone disables audio; step navigation still works.
	NarrationNone NarrationBackend = "none"
)

// IsValid reports whether n is a recognised narration backend.
func (n NarrationBackend) IsValid() bool {
	switch n {
	case NarrationConsole, NarrationCoqui, NarrationNone:
		return true
	}
	return false
}

// CatalogSource selects where fallback route plans are loaded from.
type CatalogSource string

const (
	CatalogStatic   CatalogSource = "static"
	CatalogFile     CatalogSource = "file"
	CatalogPostgres CatalogSource = "postgres"
)

// IsValid reports whether s is a recognised catalog source.
func (s CatalogSource) IsValid() bool {
	switch s {
	case CatalogStatic, CatalogFile, CatalogPostgres:
		return true
	}
	return false
}

// Config is the root configuration structure for metrovoice.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Narration NarrationConfig `yaml:"narration"`
	Catalog   CatalogConfig   `yaml:"catalog"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP server listens on (e.g. ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// ProvidersConfig declares the generative-model setup. An empty APIKey is
// legal and means no remote model is ever dispatched: route planning falls
// straight through to the catalog and voice-assisted intent parsing is
// disabled.
type ProvidersConfig struct {
	// Backend selects the invoker implementation. Default: gemini.
	Backend ProviderBackend `yaml:"backend"`

	// AnyLLMBackend selects the concrete service when Backend is "anyllm"
	// (openai, anthropic, gemini, ollama, mistral, groq).
	AnyLLMBackend string `yaml:"anyllm_backend"`

	// APIKey is the provider credential. Supports ${ENV_VAR} expansion.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// RouteModels is the ordered model priority list for route planning.
	RouteModels []string `yaml:"route_models"`

	// IntentModels is the ordered model priority list for intent parsing.
	// Typically shorter than RouteModels.
	IntentModels []string `yaml:"intent_models"`

	// VisionModels is the ordered model priority list for scene analysis.
	VisionModels []string `yaml:"vision_models"`
}

// NarrationConfig tunes the sequential narrator and its backend.
type NarrationConfig struct {
	// Backend selects the synthesis implementation. Default: console.
	Backend NarrationBackend `yaml:"backend"`

	// Rate is the initial speech rate multiplier, clamped to [0.5, 2.0]
	// at playback time. Default: 0.85 — slightly slower than natural pace.
	Rate float64 `yaml:"rate"`

	// SegmentGapMS is the audible pause between consecutive segments in
	// milliseconds. Default: 800.
	SegmentGapMS int `yaml:"segment_gap_ms"`

	// Coqui configures the Coqui backend when Backend is "coqui".
	Coqui CoquiConfig `yaml:"coqui"`
}

// CoquiConfig holds connection settings for a local Coqui TTS server.
type CoquiConfig struct {
	// BaseURL is the server address (e.g. "http://localhost:5002").
	BaseURL string `yaml:"base_url"`

	// Language is the synthesis language code. Default: "en".
	Language string `yaml:"language"`

	// Speaker is the speaker/voice identifier.
	Speaker string `yaml:"speaker"`

	// APIMode is "standard" or "xtts". Default: standard.
	APIMode string `yaml:"api_mode"`
}

// CatalogConfig selects the fallback route catalog.
type CatalogConfig struct {
	// Source is static, file, or postgres. Default: static (the shipped
	// demo routes).
	Source CatalogSource `yaml:"source"`

	// Path is the routes YAML file when Source is "file".
	Path string `yaml:"path"`

	// PostgresDSN is the connection string when Source is "postgres".
	// Supports ${ENV_VAR} expansion.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// DefaultRouteModels is the shipped model priority order for route planning.
var DefaultRouteModels = []string{
	"gemini-3-flash-preview",
	"gemini-3-pro-preview",
	"gemini-2.0-flash",
	"gemini-flash-latest",
	"gemini-pro-latest",
}

// DefaultIntentModels is the shipped model priority order for intent parsing.
var DefaultIntentModels = []string{"gemini-2.5-flash"}

// DefaultVisionModels is the shipped model priority order for scene analysis.
var DefaultVisionModels = []string{"gemini-2.5-flash"}

// ApplyDefaults fills unset fields with their shipped defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = LogInfo
	}
	if c.Providers.Backend == "" {
		c.Providers.Backend = BackendGemini
	}
	if len(c.Providers.RouteModels) == 0 {
		c.Providers.RouteModels = append([]string(nil), DefaultRouteModels...)
	}
	if len(c.Providers.IntentModels) == 0 {
		c.Providers.IntentModels = append([]string(nil), DefaultIntentModels...)
	}
	if len(c.Providers.VisionModels) == 0 {
		c.Providers.VisionModels = append([]string(nil), DefaultVisionModels...)
	}
	if c.Narration.Backend == "" {
		c.Narration.Backend = NarrationConsole
	}
	if c.Narration.Rate == 0 {
		c.Narration.Rate = 0.85
	}
	if c.Narration.SegmentGapMS == 0 {
		c.Narration.SegmentGapMS = 800
	}
	if c.Narration.Coqui.Language == "" {
		c.Narration.Coqui.Language = "en"
	}
	if c.Catalog.Source == "" {
		c.Catalog.Source = CatalogStatic
	}
}
