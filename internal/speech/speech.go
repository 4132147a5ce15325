package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/voicebot/internal/upstream"
)

// Speed presets. The pipeline always asks for FeedbackSpeed.
const (
	DefaultSpeed  = 1.3
	FeedbackSpeed = 1.0
)

// Kind classifies a synthesis result.
type Kind int

const (
	KindAudio Kind = iota
	KindUpstreamError
)

func (k Kind) String() string {
	if k == KindAudio {
		return "audio"
	}
	return "upstream_error"
}

// Result carries synthesized audio. Audio is nil unless Kind == KindAudio.
type Result struct {
	Audio []byte
	Kind  Kind
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	Model      string
	Voice      string
	Format     string // response_format, e.g. "wav"
	HTTPClient *http.Client
	Timeout    time.Duration
	Log        zerolog.Logger
}

// Client calls an OpenAI-compatible /audio/speech endpoint.
type Client struct {
	url     string
	apiKey  string
	model   string
	voice   string
	format  string
	timeout time.Duration
	client  *http.Client
	log     zerolog.Logger
}

func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = upstream.NewHTTPClient(0, opts.Log)
	}
	return &Client{
		url:     strings.TrimRight(opts.BaseURL, "/") + "/audio/speech",
		apiKey:  opts.APIKey,
		model:   opts.Model,
		voice:   opts.Voice,
		format:  opts.Format,
		timeout: opts.Timeout,
		client:  hc,
		log:     opts.Log,
	}
}

type speechRequest struct {
	Model          string  `json:"model"`
	Voice          string  `json:"voice"`
	Input          string  `json:"input"`
	Speed          float64 `json:"speed"`
	ResponseFormat string  `json:"response_format,omitempty"`
}

// Synthesize converts text to audio. speed <= 0 selects DefaultSpeed.
// A non-success status yields KindUpstreamError; transport failures are
// returned as errors.
func (c *Client) Synthesize(ctx context.Context, text string, speed float64) (Result, error) {
	if speed <= 0 {
		speed = DefaultSpeed
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(speechRequest{
		Model:          c.model,
		Voice:          c.voice,
		Input:          text,
		Speed:          speed,
		ResponseFormat: c.format,
	})
	if err != nil {
		return Result{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("speech request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}

	if !upstream.Success(resp.StatusCode) {
		c.log.Error().
			Int("status", resp.StatusCode).
			Str("body", strings.TrimSpace(string(data))).
			Msg("speech API returned an error")
		return Result{Kind: KindUpstreamError}, nil
	}

	c.log.Debug().
		Int("text_len", len([]rune(text))).
		Int("audio_bytes", len(data)).
		Float64("speed", speed).
		Msg("speech synthesized")

	return Result{Audio: data, Kind: KindAudio}, nil
}
