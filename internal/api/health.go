package api

import (
	"net/http"
	"time"
)

type HealthResponse struct {
	Status          string            `json:"status"`
	Version         string            `json:"version"`
	UptimeSeconds   int64             `json:"uptime_seconds"`
	ActiveExchanges int               `json:"active_exchanges"`
	Checks          map[string]string `json:"checks"`
}

type ExchangeCounter interface {
	ActiveExchanges() int
}

type FFmpegProbe interface {
	Available() bool
}

type ConnStatus interface {
	IsConnected() bool
}

// LiveStatus gathers process state for /healthz and the metrics collector.
// MQTT is nil when no broker is configured.
type LiveStatus struct {
	Exchanges ExchangeCounter
	FFmpeg    FFmpegProbe
	MQTT      ConnStatus
}

func (s *LiveStatus) ActiveExchanges() int {
	if s == nil || s.Exchanges == nil {
		return 0
	}
	return s.Exchanges.ActiveExchanges()
}

func (s *LiveStatus) FFmpegAvailable() bool {
	return s != nil && s.FFmpeg != nil && s.FFmpeg.Available()
}

func (s *LiveStatus) MQTTConnected() bool {
	return s != nil && s.MQTT != nil && s.MQTT.IsConnected()
}

type HealthHandler struct {
	live      *LiveStatus
	version   string
	startTime time.Time
}

func NewHealthHandler(live *LiveStatus, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		live:      live,
		version:   version,
		startTime: startTime,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "healthy"
	httpStatus := http.StatusOK

	// Without ffmpeg every upload fails conversion.
	if h.live.FFmpegAvailable() {
		checks["ffmpeg"] = "ok"
	} else {
		checks["ffmpeg"] = "missing"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	if h.live != nil && h.live.MQTT != nil {
		if h.live.MQTT.IsConnected() {
			checks["mqtt"] = "ok"
		} else {
			checks["mqtt"] = "disconnected"
			if status == "healthy" {
				status = "degraded"
			}
		}
	} else {
		checks["mqtt"] = "not_configured"
	}

	WriteJSON(w, httpStatus, HealthResponse{
		Status:          status,
		Version:         h.version,
		UptimeSeconds:   int64(time.Since(h.startTime).Seconds()),
		ActiveExchanges: h.live.ActiveExchanges(),
		Checks:          checks,
	})
}
