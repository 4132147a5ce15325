// Package respond turns a transcript into a short in-character answer
// using an OpenAI-compatible chat completion endpoint.
package respond

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/snarg/voicebot/internal/persona"
	"github.com/snarg/voicebot/internal/upstream"
)

// Kind classifies a generation result.
type Kind int

const (
	KindAnswer        Kind = iota
	KindUpstreamError      // non-success HTTP status
	KindFailed             // transport, decode, or empty completion
)

func (k Kind) String() string {
	switch k {
	case KindAnswer:
		return "answer"
	case KindUpstreamError:
		return "upstream_error"
	case KindFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Reply is the outcome of one generation call. Text is only set for KindAnswer.
type Reply struct {
	Text string
	Kind Kind
}

var errNoChoices = errors.New("completion returned no choices")

// Options configures a Generator.
type Options struct {
	API         *openai.Client
	Persona     *persona.Profile
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	Log         zerolog.Logger
}

// Generator answers questions in the persona's voice.
type Generator struct {
	api          *openai.Client
	systemPrompt string
	model        string
	temperature  float32
	maxTokens    int
	timeout      time.Duration
	log          zerolog.Logger
}

func NewGenerator(opts Options) *Generator {
	return &Generator{
		api:          opts.API,
		systemPrompt: SystemPrompt(opts.Persona),
		model:        opts.Model,
		temperature:  opts.Temperature,
		maxTokens:    opts.MaxTokens,
		timeout:      opts.Timeout,
		log:          opts.Log,
	}
}

// SystemPrompt builds the persona instruction sent with every request.
func SystemPrompt(p *persona.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are acting as %s", p.Name)
	if p.Role != "" {
		fmt.Fprintf(&b, ", a %s", p.Role)
	}
	b.WriteString(". Here is his background:\n")
	b.WriteString(p.Context())
	b.WriteString("\n")
	fmt.Fprintf(&b, "Always answer as %s himself — humble, confident, and natural. ", firstName(p.Name))
	b.WriteString("Keep answers short, clear, and conversational.")
	return b.String()
}

func firstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return name
}

// Generate never returns an error; failures are reported through Reply.Kind
// and logged here.
func (g *Generator) Generate(ctx context.Context, transcript string) Reply {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	ctx, rec := upstream.WithRecorder(ctx)

	resp, err := g.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: g.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: transcript},
		},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		if status, ok := upstream.StatusCode(err, rec); ok {
			g.log.Error().Err(err).Int("status", status).Msg("chat completion API returned an error")
			return Reply{Kind: KindUpstreamError}
		}
		g.log.Error().Err(err).Msg("chat completion failed")
		return Reply{Kind: KindFailed}
	}
	if len(resp.Choices) == 0 {
		g.log.Error().Err(errNoChoices).Str("model", g.model).Msg("chat completion failed")
		return Reply{Kind: KindFailed}
	}

	return Reply{Text: strings.TrimSpace(resp.Choices[0].Message.Content), Kind: KindAnswer}
}
