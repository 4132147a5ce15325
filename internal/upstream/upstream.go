// Package upstream holds the HTTP plumbing shared by the speech-to-text,
// chat and text-to-speech clients: an instrumented transport, a go-openai
// client factory, and classification of non-success responses.
package upstream

import (
	"context"
	"errors"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/snarg/voicebot/internal/metrics"
)

// Recorder captures the status code of the last response received for
// one logical call.
type Recorder struct {
	status atomic.Int32
}

// Status returns the last recorded status, or 0 if no response arrived.
func (r *Recorder) Status() int { return int(r.status.Load()) }

type recorderKey struct{}

// WithRecorder attaches a fresh Recorder to ctx.
func WithRecorder(ctx context.Context) (context.Context, *Recorder) {
	rec := &Recorder{}
	return context.WithValue(ctx, recorderKey{}, rec), rec
}

// Transport wraps an http.RoundTripper, counting responses per endpoint
// and feeding any Recorder found on the request context.
type Transport struct {
	Base http.RoundTripper
	Log  zerolog.Logger
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	endpoint := path.Base(req.URL.Path)

	rt := t.Base
	if rt == nil {
		rt = http.DefaultTransport
	}
	resp, err := rt.RoundTrip(req)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		t.Log.Debug().Err(err).Str("endpoint", endpoint).Dur("elapsed", time.Since(start)).Msg("upstream request failed")
		return resp, err
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	if rec, ok := req.Context().Value(recorderKey{}).(*Recorder); ok {
		rec.status.Store(int32(resp.StatusCode))
	}
	t.Log.Debug().
		Str("method", req.Method).
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("upstream response")
	return resp, nil
}

// NewHTTPClient returns an http.Client using Transport. A zero timeout
// leaves the client unbounded; callers then rely on context deadlines.
func NewHTTPClient(timeout time.Duration, log zerolog.Logger) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &Transport{Log: log},
	}
}

// NewOpenAIClient builds a go-openai client against an OpenAI-compatible base URL.
func NewOpenAIClient(apiKey, baseURL string, httpClient *http.Client) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return openai.NewClientWithConfig(cfg)
}

// Success reports whether code is a 2xx status.
func Success(code int) bool {
	return code >= 200 && code < 300
}

// StatusCode returns the status of the non-success response behind err.
// ok is false when err came from the transport, decoding, or anything
// else that is not an upstream status.
func StatusCode(err error, rec *Recorder) (code int, ok bool) {
	if err == nil {
		return 0, false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return reqErr.HTTPStatusCode, true
	}
	if rec != nil {
		if s := rec.Status(); s != 0 && !Success(s) {
			return s, true
		}
	}
	return 0, false
}
