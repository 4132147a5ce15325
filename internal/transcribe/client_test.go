package transcribe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/snarg/voicebot/internal/upstream"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	api := upstream.NewOpenAIClient("test-key", srv.URL, upstream.NewHTTPClient(0, zerolog.Nop()))
	return NewClient(Options{API: api, Model: "whisper-large-v3-turbo", Log: zerolog.Nop()})
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func TestTranscribe_SendsMultipart(t *testing.T) {
	var gotPath, gotAuth, gotModel, gotFile string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		}
		gotModel = r.FormValue("model")
		if f, _, err := r.FormFile("file"); err == nil {
			b, _ := io.ReadAll(f)
			gotFile = string(b)
		}
		jsonHandler(http.StatusOK, `{"text":"  What is your superpower?  "}`)(w, r)
	})

	res, err := c.Transcribe(context.Background(), []byte("RIFF-wav"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Kind != KindSpeech || res.Text != "What is your superpower?" {
		t.Errorf("result = %+v, want trimmed speech", res)
	}
	if gotPath != "/audio/transcriptions" {
		t.Errorf("path = %q, want /audio/transcriptions", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotModel != "whisper-large-v3-turbo" {
		t.Errorf("model = %q", gotModel)
	}
	if gotFile != "RIFF-wav" {
		t.Errorf("file = %q, want RIFF-wav", gotFile)
	}
}

func TestTranscribe_Classification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind Kind
		wantText string
	}{
		{"speech", http.StatusOK, `{"text":"Hello"}`, KindSpeech, "Hello"},
		{"empty", http.StatusOK, `{"text":""}`, KindNoSpeech, ""},
		{"whitespace", http.StatusOK, `{"text":"   "}`, KindNoSpeech, ""},
		{"two runes", http.StatusOK, `{"text":"Hi"}`, KindNoSpeech, ""},
		{"three runes", http.StatusOK, `{"text":"Hey"}`, KindSpeech, "Hey"},
		{"multibyte short", http.StatusOK, `{"text":"né"}`, KindNoSpeech, ""},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`, KindUpstreamError, ""},
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, KindUpstreamError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, jsonHandler(tt.status, tt.body))
			res, err := c.Transcribe(context.Background(), []byte("wav"))
			if err != nil {
				t.Fatalf("Transcribe: %v", err)
			}
			if res.Kind != tt.wantKind || res.Text != tt.wantText {
				t.Errorf("result = %+v, want {Text:%q Kind:%v}", res, tt.wantText, tt.wantKind)
			}
		})
	}
}

func TestTranscribe_PlainTextErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream unavailable")
	})
	res, err := c.Transcribe(context.Background(), []byte("wav"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Kind != KindUpstreamError {
		t.Errorf("Kind = %v, want upstream_error", res.Kind)
	}
}

func TestTranscribe_TransportErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	api := upstream.NewOpenAIClient("k", url, upstream.NewHTTPClient(0, zerolog.Nop()))
	c := NewClient(Options{API: api, Model: "m", Log: zerolog.Nop()})
	if _, err := c.Transcribe(context.Background(), []byte("wav")); err == nil {
		t.Error("expected transport error")
	}
}

func TestTranscribe_MalformedBodyIsError(t *testing.T) {
	c := newTestClient(t, jsonHandler(http.StatusOK, `{"text":`))
	if _, err := c.Transcribe(context.Background(), []byte("wav")); err == nil {
		t.Error("expected decode error")
	}
}

func TestKindString(t *testing.T) {
	if KindUpstreamError.String() != "upstream_error" || Kind(99).String() != "unknown" {
		t.Error("unexpected Kind strings")
	}
}
