package stats

import (
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "roomly"

type StatsProvider interface {
	Incr(name string)
	Decr(name string)
	// RegisterMetric registers a gauge that can move both ways.
	RegisterMetric(name string)
	// RegisterCounter registers a monotonically increasing counter.
	RegisterCounter(name string)
}

type StatsUpdater struct {
	registry *prometheus.Registry

	mu       sync.RWMutex
	gauges   map[string]prometheus.Gauge
	counters map[string]prometheus.Counter
}

// NewStatsUpdater creates a stats updater with its own registry and
// serves it on GET /metrics.
func NewStatsUpdater(mux *http.ServeMux) *StatsUpdater {
	su := &StatsUpdater{
		registry: prometheus.NewRegistry(),
		gauges:   make(map[string]prometheus.Gauge),
		counters: make(map[string]prometheus.Counter),
	}
	su.initializeMetrics()

	mux.Handle("GET /metrics", promhttp.HandlerFor(su.registry, promhttp.HandlerOpts{}))

	return su
}

func (su *StatsUpdater) initializeMetrics() {
	startTime := time.Now()
	su.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the server started.",
		}, func() float64 {
			return time.Since(startTime).Seconds()
		}),
	)
}

func (su *StatsUpdater) Incr(name string) {
	su.mu.RLock()
	defer su.mu.RUnlock()

	if g, ok := su.gauges[name]; ok {
		g.Inc()
		return
	}
	if c, ok := su.counters[name]; ok {
		c.Inc()
		return
	}
	panic("metric not found: " + name)
}

func (su *StatsUpdater) Decr(name string) {
	su.mu.RLock()
	defer su.mu.RUnlock()

	g, ok := su.gauges[name]
	if !ok {
		panic("gauge not found: " + name)
	}
	g.Dec()
}

func (su *StatsUpdater) RegisterMetric(name string) {
	su.mu.Lock()
	defer su.mu.Unlock()

	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      metricName(name),
		Help:      name,
	})
	su.registry.MustRegister(g)
	su.gauges[name] = g
}

func (su *StatsUpdater) RegisterCounter(name string) {
	su.mu.Lock()
	defer su.mu.Unlock()

	c := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      metricName(name) + "_total",
		Help:      name,
	})
	su.registry.MustRegister(c)
	su.counters[name] = c
}

// metricName turns NumActiveClients into num_active_clients.
func metricName(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
