package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LiveStats provides the collector access to process state.
type LiveStats interface {
	ActiveExchanges() int
	FFmpegAvailable() bool
	MQTTConnected() bool
}

// Collector implements prometheus.Collector to read live gauges at scrape time.
type Collector struct {
	stats LiveStats

	activeExchanges *prometheus.Desc
	ffmpegUp        *prometheus.Desc
	mqttUp          *prometheus.Desc
}

// NewCollector creates a collector that reads live state at scrape time.
// stats may be nil (metrics will report 0).
func NewCollector(stats LiveStats) *Collector {
	return &Collector{
		stats: stats,
		activeExchanges: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "active_exchanges"),
			"Current number of in-progress audio exchanges.",
			nil, nil,
		),
		ffmpegUp: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "ffmpeg", "up"),
			"Whether the ffmpeg binary is available (1) or not (0).",
			nil, nil,
		),
		mqttUp: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "mqtt", "up"),
			"Whether the exchange publisher is connected (1) or not (0).",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.activeExchanges
	ch <- c.ffmpegUp
	ch <- c.mqttUp
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	var active int
	var ffmpeg, mqtt bool
	if c.stats != nil {
		active = c.stats.ActiveExchanges()
		ffmpeg = c.stats.FFmpegAvailable()
		mqtt = c.stats.MQTTConnected()
	}
	ch <- prometheus.MustNewConstMetric(c.activeExchanges, prometheus.GaugeValue, float64(active))
	ch <- prometheus.MustNewConstMetric(c.ffmpegUp, prometheus.GaugeValue, boolGauge(ffmpeg))
	ch <- prometheus.MustNewConstMetric(c.mqttUp, prometheus.GaugeValue, boolGauge(mqtt))
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
