package transcode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rs/zerolog"
)

// fakeFFmpeg writes an executable shell script standing in for ffmpeg.
// The script receives the output path as its last argument.
func fakeFFmpeg(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stubs need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\nfor a; do last=$a; done\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestTranscoder(t *testing.T, ffmpeg string) (*Transcoder, string) {
	t.Helper()
	scratch := t.TempDir()
	return New(Options{FFmpegPath: ffmpeg, TempDir: scratch, Log: zerolog.Nop()}), scratch
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch dir has %d leftover entries, want 0", len(entries))
	}
}

func TestConvert_Success(t *testing.T) {
	ffmpeg := fakeFFmpeg(t, `printf 'RIFF\000\000\000\000WAVEfmt ' > "$last"`)
	tc, scratch := newTestTranscoder(t, ffmpeg)

	wf, err := tc.Convert(context.Background(), Blob{Data: []byte("webm-bytes"), Format: "webm"})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !IsWAV(wf.Data) {
		t.Errorf("output is not WAV: %q", wf.Data)
	}
	assertEmptyDir(t, scratch)
}

func TestConvert_FFmpegFails(t *testing.T) {
	ffmpeg := fakeFFmpeg(t, `echo "Invalid data found when processing input" >&2; exit 1`)
	tc, scratch := newTestTranscoder(t, ffmpeg)

	_, err := tc.Convert(context.Background(), Blob{Data: []byte("garbage"), Format: "webm"})
	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("err = %v, want *ConversionError", err)
	}
	if convErr.Format != "webm" {
		t.Errorf("Format = %q, want webm", convErr.Format)
	}
	assertEmptyDir(t, scratch)
}

func TestConvert_OutputNotWAV(t *testing.T) {
	ffmpeg := fakeFFmpeg(t, `printf 'not audio' > "$last"`)
	tc, scratch := newTestTranscoder(t, ffmpeg)

	_, err := tc.Convert(context.Background(), Blob{Data: []byte("x"), Format: "ogg"})
	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("err = %v, want *ConversionError", err)
	}
	assertEmptyDir(t, scratch)
}

func TestConvert_EmptyInput(t *testing.T) {
	tc, _ := newTestTranscoder(t, "ffmpeg")
	_, err := tc.Convert(context.Background(), Blob{Format: "webm"})
	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("err = %v, want *ConversionError", err)
	}
}

func TestConvert_MissingBinary(t *testing.T) {
	tc, scratch := newTestTranscoder(t, filepath.Join(t.TempDir(), "no-such-ffmpeg"))
	if tc.Available() {
		t.Error("Available() = true for missing binary")
	}
	_, err := tc.Convert(context.Background(), Blob{Data: []byte("x"), Format: "webm"})
	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("err = %v, want *ConversionError", err)
	}
	assertEmptyDir(t, scratch)
}

func TestFormatFromFilename(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"recording.webm", "webm"},
		{"clip.OGG", "ogg"},
		{"voice.m4a", "m4a"},
		{"blob", "webm"},
		{"evil.sh", "webm"},
		{"", "webm"},
	}
	for _, tt := range tests {
		if got := FormatFromFilename(tt.name); got != tt.want {
			t.Errorf("FormatFromFilename(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestIsWAV(t *testing.T) {
	if IsWAV([]byte("RIFF")) {
		t.Error("short header accepted")
	}
	if !IsWAV([]byte("RIFF\x24\x00\x00\x00WAVE")) {
		t.Error("valid header rejected")
	}
	if IsWAV([]byte("RIFX\x24\x00\x00\x00WAVE")) {
		t.Error("RIFX header accepted")
	}
}
