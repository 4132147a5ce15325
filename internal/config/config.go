package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	APIKey     string `env:"GROQ_API_KEY,required,notEmpty"`
	APIBaseURL string `env:"API_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`

	STTModel string `env:"STT_MODEL" envDefault:"whisper-large-v3-turbo"`

	LLMModel       string  `env:"LLM_MODEL" envDefault:"llama-3.1-8b-instant"`
	LLMTemperature float32 `env:"LLM_TEMPERATURE" envDefault:"0.6"`
	LLMMaxTokens   int     `env:"LLM_MAX_TOKENS" envDefault:"150"`

	TTSModel  string `env:"TTS_MODEL" envDefault:"playai-tts"`
	TTSVoice  string `env:"TTS_VOICE" envDefault:"Calum-PlayAI"`
	TTSFormat string `env:"TTS_FORMAT" envDefault:"wav"`

	UpstreamTimeout  time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"60s"`
	TranscodeTimeout time.Duration `env:"TRANSCODE_TIMEOUT" envDefault:"30s"`
	FFmpegPath       string        `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	MaxUploadBytes   int64         `env:"MAX_UPLOAD_BYTES" envDefault:"33554432"`

	PersonaFile string `env:"PERSONA_FILE"`

	Port         int           `env:"PORT" envDefault:"5000"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"300s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	MQTTBrokerURL string `env:"MQTT_BROKER_URL"`
	MQTTClientID  string `env:"MQTT_CLIENT_ID" envDefault:"voicebot"`
	MQTTTopic     string `env:"MQTT_TOPIC" envDefault:"voicebot/exchanges"`
	MQTTUsername  string `env:"MQTT_USERNAME"`
	MQTTPassword  string `env:"MQTT_PASSWORD"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile     string
	Port        int
	LogLevel    string
	PersonaFile string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if overrides.Port != 0 {
		cfg.Port = overrides.Port
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.PersonaFile != "" {
		cfg.PersonaFile = overrides.PersonaFile
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid PORT %d", cfg.Port)
	}
	if cfg.LLMMaxTokens <= 0 {
		return nil, fmt.Errorf("invalid LLM_MAX_TOKENS %d: must be > 0", cfg.LLMMaxTokens)
	}
	// A zero write timeout leaves responses unbounded.
	if budget := cfg.ExchangeBudget(); cfg.WriteTimeout > 0 && cfg.WriteTimeout < budget {
		return nil, fmt.Errorf("HTTP_WRITE_TIMEOUT %s is shorter than one exchange can take (%s)", cfg.WriteTimeout, budget)
	}

	return cfg, nil
}

// ExchangeBudget is the longest one exchange can run: one conversion plus
// the transcription, chat and speech calls.
func (c *Config) ExchangeBudget() time.Duration {
	return c.TranscodeTimeout + 3*c.UpstreamTimeout
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
