package stream

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments for stream sessions. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	playlistRefreshes prometheus.Counter
	segmentsAdded     prometheus.Counter
	fetchErrors       prometheus.Counter
	cuesDecoded       prometheus.Counter
	cueDecodeErrors   prometheus.Counter
	discontinuities   prometheus.Counter
	activeSessions    prometheus.Gauge
}

// NewMetrics creates and registers the session metrics on the given
// registerer. A nil registerer returns nil metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}

	m := &Metrics{
		playlistRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stream_playlist_refreshes_total",
			Help: "Number of media playlist refresh fetches performed.",
		}),
		segmentsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stream_segments_added_total",
			Help: "Number of new segments merged into the session model.",
		}),
		fetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stream_fetch_errors_total",
			Help: "Number of playlist fetch failures.",
		}),
		cuesDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stream_cues_decoded_total",
			Help: "Number of SCTE-35 cues successfully decoded.",
		}),
		cueDecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stream_cue_decode_errors_total",
			Help: "Number of SCTE-35 payloads that failed to decode.",
		}),
		discontinuities: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stream_discontinuities_total",
			Help: "Number of discontinuity markers observed.",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stream_active_sessions",
			Help: "Number of sessions currently tracking a live playlist.",
		}),
	}

	reg.MustRegister(
		m.playlistRefreshes,
		m.segmentsAdded,
		m.fetchErrors,
		m.cuesDecoded,
		m.cueDecodeErrors,
		m.discontinuities,
		m.activeSessions,
	)

	return m
}

func (m *Metrics) PlaylistRefreshed() {
	if m != nil {
		m.playlistRefreshes.Inc()
	}
}

func (m *Metrics) SegmentsAdded(n int) {
	if m != nil && n > 0 {
		m.segmentsAdded.Add(float64(n))
	}
}

func (m *Metrics) FetchError() {
	if m != nil {
		m.fetchErrors.Inc()
	}
}

func (m *Metrics) CueDecoded() {
	if m != nil {
		m.cuesDecoded.Inc()
	}
}

func (m *Metrics) CueDecodeError() {
	if m != nil {
		m.cueDecodeErrors.Inc()
	}
}

func (m *Metrics) DiscontinuityObserved() {
	if m != nil {
		m.discontinuities.Inc()
	}
}

func (m *Metrics) SessionStarted() {
	if m != nil {
		m.activeSessions.Inc()
	}
}

func (m *Metrics) SessionStopped() {
	if m != nil {
		m.activeSessions.Dec()
	}
}
