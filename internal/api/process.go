package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/snarg/voicebot/internal/assistant"
	"github.com/snarg/voicebot/internal/transcode"
)

const (
	audioField = "audio_data"

	errNoAudio         = "No audio data received"
	errConversion      = "Audio conversion failed"
	errUploadTooLarge  = "Audio upload too large"
	multipartMemoryMax = 32 << 20
)

// Processor runs one uploaded clip through the question/answer pipeline.
type Processor interface {
	Process(ctx context.Context, blob transcode.Blob) (*assistant.Exchange, error)
}

// ProcessHandler handles recorded questions posted by the browser.
type ProcessHandler struct {
	processor Processor
	maxBytes  int64
	log       zerolog.Logger
}

// NewProcessHandler creates a handler. maxBytes <= 0 disables the upload cap.
func NewProcessHandler(processor Processor, maxBytes int64, log zerolog.Logger) *ProcessHandler {
	return &ProcessHandler{
		processor: processor,
		maxBytes:  maxBytes,
		log:       log.With().Str("handler", "process_audio").Logger(),
	}
}

// Routes registers the processing endpoint.
func (h *ProcessHandler) Routes(r chi.Router) {
	r.Post("/process_audio", h.ProcessAudio)
}

// ProcessAudio handles POST /process_audio.
// Expects a multipart form with the recorded clip in the audio_data field.
func (h *ProcessHandler) ProcessAudio(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	if log.GetLevel() == zerolog.Disabled {
		log = &h.log
	}

	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemoryMax); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn().Int64("limit", tooLarge.Limit).Msg("audio upload too large")
			WriteError(w, http.StatusRequestEntityTooLarge, errUploadTooLarge)
			return
		}
		log.Error().Err(err).Msg("no audio data received")
		WriteError(w, http.StatusBadRequest, errNoAudio)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(audioField)
	if err != nil {
		log.Error().Err(err).Msg("no audio data received")
		WriteError(w, http.StatusBadRequest, errNoAudio)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		log.Error().Err(err).Msg("read audio upload")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	blob := transcode.Blob{Data: data, Format: transcode.FormatFromFilename(header.Filename)}
	log.Info().Int("bytes", len(data)).Str("format", blob.Format).Msg("received audio")

	ex, err := h.processor.Process(r.Context(), blob)
	if err != nil {
		var convErr *transcode.ConversionError
		if errors.As(err, &convErr) {
			log.Error().Err(err).Msg("failed to convert audio")
			WriteError(w, http.StatusInternalServerError, errConversion)
			return
		}
		log.Error().Err(err).Msg("error processing audio")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, ex)
}
