package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every service setting.
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	TTS       TTSConfig
	STT       STTConfig
	Store     StoreConfig
	Auth      AuthConfig
	Recording RecordingConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	tts, err := loadTTSConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		AI:        ai,
		TTS:       tts,
		STT:       loadSTTConfig(),
		Store:     StoreConfig{DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL"))},
		Auth:      loadAuthConfig(),
		Recording: loadRecordingConfig(),
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig holds both completion backends: the primary Ark chat model and the
// secondary messages-API backend.
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int

	SecondaryAPIKey    string
	SecondaryModel     string
	SecondaryBaseURL   string
	SecondaryMaxTokens int
}

// Enabled reports whether primary credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// SecondaryEnabled reports whether the secondary backend is configured.
func (c AIConfig) SecondaryEnabled() bool {
	return c.SecondaryAPIKey != "" && c.SecondaryModel != ""
}

// NewChatModel creates the primary chat model instance.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: provide ARK_API_KEY + ARK_MODEL or AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	secondaryMaxTokens := 512
	if override, err := parseOptionalIntEnv("ANTHROPIC_MAX_TOKENS"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		secondaryMaxTokens = *override
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,

		SecondaryAPIKey:    strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")),
		SecondaryModel:     getEnvOrDefault("ANTHROPIC_MODEL", "claude-3-5-sonnet-20240620"),
		SecondaryBaseURL:   strings.TrimSpace(os.Getenv("ANTHROPIC_BASE_URL")),
		SecondaryMaxTokens: secondaryMaxTokens,
	}, nil
}

// TTSConfig describes the Polly synthesizer.
type TTSConfig struct {
	Region   string
	Voice    string
	Engine   string
	CacheDir string
	Enabled  bool
}

func loadTTSConfig() (TTSConfig, error) {
	enabled, err := parseBoolEnv("TTS_ENABLED", true)
	if err != nil {
		return TTSConfig{}, err
	}

	return TTSConfig{
		Region:   getEnvOrDefault("TTS_POLLY_REGION", getEnvOrDefault("AWS_REGION", "us-east-1")),
		Voice:    getEnvOrDefault("TTS_POLLY_VOICE", "Joanna"),
		Engine:   getEnvOrDefault("TTS_POLLY_ENGINE", "neural"),
		CacheDir: getEnvOrDefault("TTS_CACHE_DIR", "volume_cache/tts_audio"),
		Enabled:  enabled,
	}, nil
}

// STTConfig describes the live transcription backend.
type STTConfig struct {
	APIKey   string
	Model    string
	Language string
}

// Enabled reports whether live transcription is configured.
func (c STTConfig) Enabled() bool { return c.APIKey != "" }

func loadSTTConfig() STTConfig {
	return STTConfig{
		APIKey:   strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
		Model:    getEnvOrDefault("STT_MODEL", "nova-2"),
		Language: getEnvOrDefault("STT_LANGUAGE", "en-US"),
	}
}

// StoreConfig describes transcript persistence. An empty DatabaseURL keeps
// transcripts in process memory.
type StoreConfig struct {
	DatabaseURL string
}

// AuthConfig describes connection validation. An empty endpoint disables the
// remote check (development mode).
type AuthConfig struct {
	ValidateURL string
	Salt        string
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		ValidateURL: strings.TrimSpace(os.Getenv("AUTH_VALIDATE_URL")),
		Salt:        strings.TrimSpace(os.Getenv("AUTH_CODE_SALT")),
	}
}

// RecordingConfig describes the object storage for interview recordings.
type RecordingConfig struct {
	StorageURL string
	ServiceKey string
	Bucket     string
}

// Enabled reports whether recording flushes have somewhere to go.
func (c RecordingConfig) Enabled() bool { return c.StorageURL != "" && c.ServiceKey != "" }

func loadRecordingConfig() RecordingConfig {
	return RecordingConfig{
		StorageURL: strings.TrimSpace(os.Getenv("STORAGE_URL")),
		ServiceKey: strings.TrimSpace(os.Getenv("STORAGE_SERVICE_KEY")),
		Bucket:     getEnvOrDefault("STORAGE_BUCKET", "interview-recordings"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
