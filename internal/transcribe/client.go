package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/snarg/voicebot/internal/upstream"
)

// Client calls an OpenAI-compatible /audio/transcriptions endpoint.
// Implements the Provider interface.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	log     zerolog.Logger
}

// Options configures a Client.
type Options struct {
	API     *openai.Client
	Model   string
	Timeout time.Duration // per call; 0 = rely on the caller's context
	Log     zerolog.Logger
}

// NewClient creates a new transcription client.
func NewClient(opts Options) *Client {
	return &Client{
		api:     opts.API,
		model:   opts.Model,
		timeout: opts.Timeout,
		log:     opts.Log,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// Transcribe uploads a WAV clip and classifies the returned text.
// A non-success status is reported as KindUpstreamError, not as an error;
// transport and decode failures are returned as errors.
func (c *Client) Transcribe(ctx context.Context, wav []byte) (Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	ctx, rec := upstream.WithRecorder(ctx)

	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.model,
		Reader:   bytes.NewReader(wav),
		FilePath: "audio.wav",
	})
	if err != nil {
		if status, ok := upstream.StatusCode(err, rec); ok {
			c.log.Error().Err(err).Int("status", status).Msg("transcription API returned an error")
			return Result{Kind: KindUpstreamError}, nil
		}
		return Result{}, fmt.Errorf("transcription request: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if utf8.RuneCountInString(text) < MinSpeechRunes {
		c.log.Debug().Str("text", text).Msg("transcript too short, treating as no speech")
		return Result{Kind: KindNoSpeech}, nil
	}
	return Result{Text: text, Kind: KindSpeech}, nil
}
