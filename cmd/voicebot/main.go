package main

import (
	"context"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	voicebot "github.com/snarg/voicebot"
	"github.com/snarg/voicebot/internal/api"
	"github.com/snarg/voicebot/internal/assistant"
	"github.com/snarg/voicebot/internal/config"
	"github.com/snarg/voicebot/internal/metrics"
	"github.com/snarg/voicebot/internal/mqttclient"
	"github.com/snarg/voicebot/internal/persona"
	"github.com/snarg/voicebot/internal/respond"
	"github.com/snarg/voicebot/internal/speech"
	"github.com/snarg/voicebot/internal/transcode"
	"github.com/snarg/voicebot/internal/transcribe"
	"github.com/snarg/voicebot/internal/upstream"
)

var version = "dev"

func main() {
	startTime := time.Now()

	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env-file", "", "path to .env file (default .env)")
	flag.IntVar(&overrides.Port, "port", 0, "HTTP listen port (overrides PORT)")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	flag.StringVar(&overrides.PersonaFile, "persona", "", "persona YAML file (overrides PERSONA_FILE)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		os.Stdout.WriteString(version + "\n")
		return
	}

	// Config
	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("voicebot starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persona
	profile := persona.Default()
	if cfg.PersonaFile != "" {
		profile, err = persona.Load(cfg.PersonaFile)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.PersonaFile).Msg("failed to load persona")
		}
	}
	log.Info().Str("persona", profile.Name).Int("entries", len(profile.Entries)).Msg("persona loaded")

	// Audio conversion
	transcoder := transcode.New(transcode.Options{
		FFmpegPath: cfg.FFmpegPath,
		Timeout:    cfg.TranscodeTimeout,
		Log:        log.With().Str("component", "transcode").Logger(),
	})
	if !transcoder.Available() {
		log.Warn().Str("ffmpeg", cfg.FFmpegPath).Msg("ffmpeg not found, every upload will fail conversion")
	}

	// Upstream clients share one instrumented transport.
	upstreamLog := log.With().Str("component", "upstream").Logger()
	httpClient := upstream.NewHTTPClient(cfg.UpstreamTimeout, upstreamLog)
	oa := upstream.NewOpenAIClient(cfg.APIKey, cfg.APIBaseURL, httpClient)

	transcriber := transcribe.NewClient(transcribe.Options{
		API:     oa,
		Model:   cfg.STTModel,
		Timeout: cfg.UpstreamTimeout,
		Log:     log.With().Str("component", "transcribe").Logger(),
	})
	generator := respond.NewGenerator(respond.Options{
		API:         oa,
		Persona:     profile,
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		Timeout:     cfg.UpstreamTimeout,
		Log:         log.With().Str("component", "respond").Logger(),
	})
	synthesizer := speech.NewClient(speech.Options{
		BaseURL:    cfg.APIBaseURL,
		APIKey:     cfg.APIKey,
		Model:      cfg.TTSModel,
		Voice:      cfg.TTSVoice,
		Format:     cfg.TTSFormat,
		HTTPClient: httpClient,
		Timeout:    cfg.UpstreamTimeout,
		Log:        log.With().Str("component", "speech").Logger(),
	})

	// MQTT (optional)
	live := &api.LiveStatus{FFmpeg: transcoder}
	var publisher assistant.Publisher
	if cfg.MQTTBrokerURL != "" {
		mqtt, err := mqttclient.Connect(mqttclient.Options{
			BrokerURL: cfg.MQTTBrokerURL,
			ClientID:  cfg.MQTTClientID,
			Topic:     cfg.MQTTTopic,
			Username:  cfg.MQTTUsername,
			Password:  cfg.MQTTPassword,
			Log:       log.With().Str("component", "mqtt").Logger(),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to mqtt broker")
		}
		defer mqtt.Close()
		publisher = mqtt
		live.MQTT = mqtt
	}

	pipeline := assistant.New(assistant.Options{
		Converter:   transcoder,
		Transcriber: transcriber,
		Responder:   generator,
		Synthesizer: synthesizer,
		Publisher:   publisher,
		Log:         log.With().Str("component", "assistant").Logger(),
	})
	live.Exchanges = pipeline
	prometheus.MustRegister(metrics.NewCollector(live))

	webFS, err := fs.Sub(voicebot.WebFiles, "web")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open embedded web files")
	}

	// HTTP Server
	srv := api.NewServer(api.ServerOptions{
		Config:    cfg,
		Processor: pipeline,
		Live:      live,
		WebFS:     webFS,
		Version:   version,
		StartTime: startTime,
		Log:       log.With().Str("component", "http").Logger(),
	})

	// Start HTTP server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	// Graceful shutdown with 10s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("voicebot stopped")
}
