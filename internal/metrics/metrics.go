package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	HTTPRequestTotal           = "http_requests_total"
	HTTPRequestDurationSeconds = "http_request_duration_seconds"

	GiveawayTransitions   = "giveaway_transitions_total"
	GiveawayEntries       = "giveaway_entries_total"
	GiveawayRenderFailure = "giveaway_render_failures_total"
	GiveawayTimersArmed   = "giveaway_timers_armed"

	StatsEvents          = "stats_events_total"
	StatsWriteFailure    = "stats_write_failures_total"
	StatsHealedBuckets   = "stats_healed_hourly_buckets"
	VoiceSessionsOpen    = "voice_sessions_open"
	EventsDispatched     = "events_dispatched_total"
	CronJobDuration      = "cron_job_duration_seconds"
	StreamMessagesAcked  = "stream_messages_acked_total"
	StreamMessagesFailed = "stream_messages_failed_total"
)

var (
	Counters = map[string]*prometheus.CounterVec{
		HTTPRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: HTTPRequestTotal,
			Help: "Count of all HTTP requests",
		}, []string{"path", "status_code"}),
		GiveawayTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: GiveawayTransitions,
			Help: "Giveaway lifecycle transitions by kind",
		}, []string{"kind"}),
		GiveawayEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: GiveawayEntries,
			Help: "Applied giveaway entry mutations",
		}, []string{"op"}),
		GiveawayRenderFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: GiveawayRenderFailure,
			Help: "Swallowed renderer failures by intent",
		}, []string{"intent"}),
		StatsEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: StatsEvents,
			Help: "Statistics events recorded by kind",
		}, []string{"kind"}),
		StatsWriteFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: StatsWriteFailure,
			Help: "Statistics writes that failed",
		}, []string{"kind"}),
		EventsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: EventsDispatched,
			Help: "Ingested platform events by type and source",
		}, []string{"type", "source"}),
		StreamMessagesAcked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: StreamMessagesAcked,
			Help: "Stream messages acknowledged",
		}, []string{"stream"}),
		StreamMessagesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: StreamMessagesFailed,
			Help: "Stream messages that failed to dispatch",
		}, []string{"stream"}),
	}

	Gauges = map[string]prometheus.Gauge{
		GiveawayTimersArmed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: GiveawayTimersArmed,
			Help: "Pending giveaway resolution timers",
		}),
		VoiceSessionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: VoiceSessionsOpen,
			Help: "Open in-memory voice sessions",
		}),
	}

	Histograms = map[string]*prometheus.HistogramVec{
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: HTTPRequestDurationSeconds,
			Help: "Duration of all HTTP requests",
		}, []string{"path", "status_code"}),
		CronJobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    CronJobDuration,
			Help:    "Duration of periodic jobs",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"job"}),
	}
)

// NewHandler exposes every collector above plus the Go runtime collectors.
func NewHandler(extra ...prometheus.Collector) http.Handler {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	for _, c := range Counters {
		registry.MustRegister(c)
	}
	for _, g := range Gauges {
		registry.MustRegister(g)
	}
	for _, h := range Histograms {
		registry.MustRegister(h)
	}
	for _, c := range extra {
		registry.MustRegister(c)
	}

	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func Inc(name string, labels ...string) {
	if c, ok := Counters[name]; ok {
		c.WithLabelValues(labels...).Inc()
	}
}

func SetGauge(name string, v float64) {
	if g, ok := Gauges[name]; ok {
		g.Set(v)
	}
}

func Observe(name string, seconds float64, labels ...string) {
	if h, ok := Histograms[name]; ok {
		h.WithLabelValues(labels...).Observe(seconds)
	}
}

// HealedBucketsCollector reports a monotonically increasing count read from fn.
func HealedBucketsCollector(fn func() int64) prometheus.Collector {
	return prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: StatsHealedBuckets,
		Help: "Corrupt hourly buckets reset to zeros on read",
	}, func() float64 { return float64(fn()) })
}
