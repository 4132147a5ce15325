// Package assistant sequences one spoken question through conversion,
// transcription, answer generation and speech synthesis, and renders
// component failures into the fixed messages the browser shows.
package assistant

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/snarg/voicebot/internal/metrics"
	"github.com/snarg/voicebot/internal/respond"
	"github.com/snarg/voicebot/internal/speech"
	"github.com/snarg/voicebot/internal/transcode"
	"github.com/snarg/voicebot/internal/transcribe"
)

// Messages rendered in place of component failures.
const (
	MsgNotCaught          = "I didn't catch that. Please try again."
	MsgTranscriptionError = "Error transcribing audio"
	MsgAnswerUnavailable  = "I'm having trouble answering right now."
	MsgAnswerFailed       = "Something went wrong while generating my answer."
)

type Converter interface {
	Convert(ctx context.Context, b transcode.Blob) (*transcode.Waveform, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte) (transcribe.Result, error)
}

type Responder interface {
	Generate(ctx context.Context, transcript string) respond.Reply
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string, speed float64) (speech.Result, error)
}

// Publisher receives a JSON notification for every finished exchange.
type Publisher interface {
	Publish(payload []byte) error
}

// Exchange is the JSON body returned for a processed question.
// AudioBase64 is nil when synthesis failed.
type Exchange struct {
	ID          string  `json:"-"`
	Transcript  string  `json:"transcript"`
	Response    string  `json:"response"`
	AudioBase64 *string `json:"audio_base64"`
}

// Event is the notification published after an exchange completes. It
// carries text only; audio is never forwarded.
type Event struct {
	ID         string    `json:"id"`
	Outcome    string    `json:"outcome"`
	Transcript string    `json:"transcript"`
	Response   string    `json:"response"`
	HasAudio   bool      `json:"has_audio"`
	DurationMs int64     `json:"duration_ms"`
	At         time.Time `json:"at"`
}

type Options struct {
	Converter   Converter
	Transcriber Transcriber
	Responder   Responder
	Synthesizer Synthesizer
	Publisher   Publisher // optional
	Log         zerolog.Logger
}

// Pipeline is safe for concurrent use; it holds no per-request state.
type Pipeline struct {
	converter   Converter
	transcriber Transcriber
	responder   Responder
	synthesizer Synthesizer
	publisher   Publisher
	log         zerolog.Logger

	active atomic.Int64
}

func New(opts Options) *Pipeline {
	return &Pipeline{
		converter:   opts.Converter,
		transcriber: opts.Transcriber,
		responder:   opts.Responder,
		synthesizer: opts.Synthesizer,
		publisher:   opts.Publisher,
		log:         opts.Log,
	}
}

// ActiveExchanges returns the number of Process calls in flight.
func (p *Pipeline) ActiveExchanges() int {
	return int(p.active.Load())
}

// Process runs one clip through the pipeline. A *transcode.ConversionError
// means the clip could not be read; any other error is unexpected.
// Upstream status failures never surface as errors.
func (p *Pipeline) Process(ctx context.Context, blob transcode.Blob) (*Exchange, error) {
	p.active.Add(1)
	defer p.active.Add(-1)

	start := time.Now()
	ex := &Exchange{ID: uuid.NewString()}
	log := p.log.With().Str("exchange_id", ex.ID).Logger()

	stageStart := time.Now()
	wav, err := p.converter.Convert(ctx, blob)
	if err != nil {
		metrics.ObserveStage("transcode", "error", stageStart)
		return nil, err
	}
	metrics.ObserveStage("transcode", "ok", stageStart)
	log.Info().Int("wav_bytes", len(wav.Data)).Str("format", blob.Format).Msg("audio converted")

	stageStart = time.Now()
	tr, err := p.transcriber.Transcribe(ctx, wav.Data)
	if err != nil {
		metrics.ObserveStage("transcribe", "error", stageStart)
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	metrics.ObserveStage("transcribe", tr.Kind.String(), stageStart)

	var transcript string
	switch tr.Kind {
	case transcribe.KindUpstreamError:
		// The failure text stands in for the question and is answered like one.
		transcript = MsgTranscriptionError
	default:
		transcript = strings.TrimSpace(tr.Text)
	}
	log.Info().Str("transcript", transcript).Str("kind", tr.Kind.String()).Msg("transcription")

	outcome := "answered"
	if tr.Kind == transcribe.KindNoSpeech || transcript == "" {
		outcome = "not_caught"
		ex.Transcript = ""
		ex.Response = MsgNotCaught
	} else {
		ex.Transcript = transcript

		stageStart = time.Now()
		reply := p.responder.Generate(ctx, transcript)
		metrics.ObserveStage("respond", reply.Kind.String(), stageStart)
		ex.Response = renderReply(reply)
		log.Info().Str("response", ex.Response).Str("kind", reply.Kind.String()).Msg("response generated")
	}

	stageStart = time.Now()
	sp, err := p.synthesizer.Synthesize(ctx, ex.Response, speech.FeedbackSpeed)
	if err != nil {
		metrics.ObserveStage("synthesize", "error", stageStart)
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	metrics.ObserveStage("synthesize", sp.Kind.String(), stageStart)
	if sp.Kind == speech.KindAudio {
		encoded := base64.StdEncoding.EncodeToString(sp.Audio)
		ex.AudioBase64 = &encoded
	}

	p.publish(log, Event{
		ID:         ex.ID,
		Outcome:    outcome,
		Transcript: ex.Transcript,
		Response:   ex.Response,
		HasAudio:   ex.AudioBase64 != nil,
		DurationMs: time.Since(start).Milliseconds(),
		At:         time.Now().UTC(),
	})

	return ex, nil
}

func renderReply(r respond.Reply) string {
	switch r.Kind {
	case respond.KindAnswer:
		return r.Text
	case respond.KindUpstreamError:
		return MsgAnswerUnavailable
	default:
		return MsgAnswerFailed
	}
}

func (p *Pipeline) publish(log zerolog.Logger, ev Event) {
	if p.publisher == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Warn().Err(err).Msg("marshal exchange event")
		return
	}
	if err := p.publisher.Publish(payload); err != nil {
		log.Warn().Err(err).Msg("publish exchange event failed")
	}
}
