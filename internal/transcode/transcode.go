package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultFormat is the container browsers produce with MediaRecorder.
const DefaultFormat = "webm"

var knownFormats = map[string]bool{
	"webm": true,
	"ogg":  true,
	"opus": true,
	"wav":  true,
	"mp3":  true,
	"m4a":  true,
	"mp4":  true,
	"aac":  true,
	"flac": true,
}

// Blob is an uploaded clip in its source container.
type Blob struct {
	Data   []byte
	Format string
}

// Waveform is a 16kHz mono WAV clip.
type Waveform struct {
	Data []byte
}

// ConversionError reports a failed transcode. The request that carried the
// blob cannot continue.
type ConversionError struct {
	Format string
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %s to wav: %v", e.Format, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// FormatFromFilename returns the container named by the file extension,
// falling back to DefaultFormat for missing or unknown extensions.
func FormatFromFilename(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if knownFormats[ext] {
		return ext
	}
	return DefaultFormat
}

// Options configures a Transcoder.
type Options struct {
	FFmpegPath string
	Timeout    time.Duration
	TempDir    string // parent for per-call scratch dirs; "" = os.TempDir()
	Log        zerolog.Logger
}

// Transcoder converts recorded clips to WAV by shelling out to ffmpeg.
type Transcoder struct {
	ffmpeg  string
	timeout time.Duration
	tempDir string
	log     zerolog.Logger
}

func New(opts Options) *Transcoder {
	ffmpeg := opts.FFmpegPath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &Transcoder{
		ffmpeg:  ffmpeg,
		timeout: opts.Timeout,
		tempDir: opts.TempDir,
		log:     opts.Log,
	}
}

// Available reports whether the ffmpeg binary can be found.
func (t *Transcoder) Available() bool {
	_, err := exec.LookPath(t.ffmpeg)
	return err == nil
}

// Convert transcodes b into a 16kHz mono WAV. Scratch files live in a
// private temp dir that is removed before Convert returns.
func (t *Transcoder) Convert(ctx context.Context, b Blob) (*Waveform, error) {
	format := b.Format
	if !knownFormats[format] {
		format = DefaultFormat
	}
	if len(b.Data) == 0 {
		return nil, &ConversionError{Format: format, Err: errors.New("empty audio")}
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	dir, err := os.MkdirTemp(t.tempDir, "voicebot-*")
	if err != nil {
		return nil, &ConversionError{Format: format, Err: fmt.Errorf("create temp dir: %w", err)}
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			t.log.Warn().Err(err).Str("dir", dir).Msg("failed to remove transcode temp dir")
		}
	}()

	inPath := filepath.Join(dir, "input."+format)
	outPath := filepath.Join(dir, "output.wav")
	if err := os.WriteFile(inPath, b.Data, 0o600); err != nil {
		return nil, &ConversionError{Format: format, Err: fmt.Errorf("write input: %w", err)}
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.ffmpeg,
		"-hide_banner", "-loglevel", "error", "-nostdin", "-y",
		"-i", inPath,
		"-ar", "16000",
		"-ac", "1",
		"-f", "wav",
		outPath,
	)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("ffmpeg: %w: %s", err, msg)
		} else {
			err = fmt.Errorf("ffmpeg: %w", err)
		}
		return nil, &ConversionError{Format: format, Err: err}
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, &ConversionError{Format: format, Err: fmt.Errorf("read output: %w", err)}
	}
	if !IsWAV(data) {
		return nil, &ConversionError{Format: format, Err: errors.New("output is not a RIFF/WAVE file")}
	}

	t.log.Debug().
		Str("format", format).
		Int("in_bytes", len(b.Data)).
		Int("out_bytes", len(data)).
		Msg("audio converted to wav")

	return &Waveform{Data: data}, nil
}

// IsWAV checks for the RIFF/WAVE container header.
func IsWAV(data []byte) bool {
	return len(data) >= 12 &&
		bytes.Equal(data[0:4], []byte("RIFF")) &&
		bytes.Equal(data[8:12], []byte("WAVE"))
}
