package transcribe

import "context"

// Provider is the interface for speech-to-text backends.
type Provider interface {
	Transcribe(ctx context.Context, wav []byte) (Result, error)
	Model() string // model identifier for logs
}

// Kind classifies a transcription result.
type Kind int

const (
	// KindSpeech means Text holds usable speech.
	KindSpeech Kind = iota
	// KindNoSpeech means the service answered but the text was too short
	// to be a real utterance.
	KindNoSpeech
	// KindUpstreamError means the service answered with a non-success status.
	KindUpstreamError
)

func (k Kind) String() string {
	switch k {
	case KindSpeech:
		return "speech"
	case KindNoSpeech:
		return "no_speech"
	case KindUpstreamError:
		return "upstream_error"
	default:
		return "unknown"
	}
}

// Result is the outcome of one transcription call.
type Result struct {
	Text string // trimmed; empty unless Kind == KindSpeech
	Kind Kind
}

// MinSpeechRunes is the shortest transcript treated as real speech.
const MinSpeechRunes = 3
