package api

import (
	"fmt"
	"io"
	"net/http"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"inferd/internal/registry"
	"inferd/internal/version"
)

// MetricsCollector collects and exposes Prometheus metrics
type MetricsCollector struct {
	// Counters
	requestsTotal       *Counter
	inferenceTotal      *Counter
	authFailuresTotal   *Counter
	unknownSessionTotal *Counter

	// Histograms
	requestDuration   *Histogram
	inferenceDuration *Histogram

	// Gauges
	activeSessions   *Gauge
	registryInfers   *Gauge
	registryLatency  *Gauge
	registryUptime   *Gauge
	goroutines       *Gauge
	memoryAlloc      *Gauge

	startTime time.Time
}

// Counter is a monotonically increasing counter
type Counter struct {
	name   string
	help   string
	labels []string
	values sync.Map // map[string]*uint64
}

// Histogram tracks distributions of values
type Histogram struct {
	name    string
	help    string
	labels  []string
	buckets []float64
	values  sync.Map // map[string]*histogramValue
}

type histogramValue struct {
	mu      sync.Mutex
	sum     float64
	count   uint64
	buckets []uint64
}

// Gauge is a metric that can go up and down
type Gauge struct {
	name   string
	help   string
	labels []string
	values sync.Map // map[string]*float64
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	m := &MetricsCollector{
		startTime: time.Now(),
	}

	m.requestsTotal = &Counter{
		name:   "inferd_http_requests_total",
		help:   "Total number of HTTP requests",
		labels: []string{"method", "route", "status"},
	}
	m.inferenceTotal = &Counter{
		name:   "inferd_inference_total",
		help:   "Total number of engine calls by outcome",
		labels: []string{"engine", "status"},
	}
	m.authFailuresTotal = &Counter{
		name:   "inferd_auth_failures_total",
		help:   "Completion requests rejected for a missing or wrong credential",
		labels: []string{"reason"},
	}
	m.unknownSessionTotal = &Counter{
		name:   "inferd_unknown_session_total",
		help:   "Inferences that could not be recorded because the session was gone",
		labels: []string{},
	}

	m.requestDuration = &Histogram{
		name:    "inferd_http_request_duration_seconds",
		help:    "Duration of HTTP requests in seconds",
		labels:  []string{"route"},
		buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}
	m.inferenceDuration = &Histogram{
		name:    "inferd_inference_duration_seconds",
		help:    "Latency of successful engine calls in seconds",
		labels:  []string{"engine"},
		buckets: []float64{0.05, 0.1, 0.15, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}

	m.activeSessions = &Gauge{
		name: "inferd_active_sessions",
		help: "Sessions held by the registry",
	}
	m.registryInfers = &Gauge{
		name: "inferd_registry_inference_requests",
		help: "Inferences recorded by the registry since boot or the last reset",
	}
	m.registryLatency = &Gauge{
		name: "inferd_registry_inference_time_ms",
		help: "Cumulative inference latency recorded by the registry in milliseconds",
	}
	m.registryUptime = &Gauge{
		name: "inferd_registry_uptime_seconds",
		help: "Seconds since the registry booted",
	}
	m.goroutines = &Gauge{
		name: "inferd_goroutines",
		help: "Number of goroutines",
	}
	m.memoryAlloc = &Gauge{
		name: "inferd_memory_alloc_bytes",
		help: "Allocated memory in bytes",
	}

	return m
}

// RecordRequest records one served HTTP request
func (m *MetricsCollector) RecordRequest(method, route string, status int, duration time.Duration) {
	m.requestsTotal.Inc(method, route, strconv.Itoa(status))
	m.requestDuration.Observe(duration.Seconds(), route)
}

// RecordInference records one engine call
func (m *MetricsCollector) RecordInference(engine, status string, latency time.Duration) {
	m.inferenceTotal.Inc(engine, status)
	if status == "ok" {
		m.inferenceDuration.Observe(latency.Seconds(), engine)
	}
}

func (m *MetricsCollector) RecordAuthFailure(reason string) {
	m.authFailuresTotal.Inc(reason)
}

func (m *MetricsCollector) RecordUnknownSession() {
	m.unknownSessionTotal.Inc()
}

// SetRegistryStats copies the registry counters into gauges
func (m *MetricsCollector) SetRegistryStats(st registry.Stats) {
	m.activeSessions.Set(float64(st.ActiveSessions))
	m.registryInfers.Set(float64(st.InferenceCount))
	m.registryLatency.Set(float64(st.TotalLatencyMs))
	m.registryUptime.Set(st.Uptime.Seconds())
}

// WritePrometheus writes metrics in Prometheus text format
func (m *MetricsCollector) WritePrometheus(w io.Writer) {
	m.goroutines.Set(float64(runtime.NumGoroutine()))
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	m.memoryAlloc.Set(float64(memStats.Alloc))

	fmt.Fprintf(w, "# HELP inferd_info inferd build information\n")
	fmt.Fprintf(w, "# TYPE inferd_info gauge\n")
	fmt.Fprintf(w, "inferd_info{version=\"%s\"} 1\n\n", escapeLabel(version.Version))

	fmt.Fprintf(w, "# HELP inferd_uptime_seconds Time since the process started\n")
	fmt.Fprintf(w, "# TYPE inferd_uptime_seconds counter\n")
	fmt.Fprintf(w, "inferd_uptime_seconds %.3f\n\n", time.Since(m.startTime).Seconds())

	m.writeCounter(w, m.requestsTotal)
	m.writeCounter(w, m.inferenceTotal)
	m.writeCounter(w, m.authFailuresTotal)
	m.writeCounter(w, m.unknownSessionTotal)

	m.writeHistogram(w, m.requestDuration)
	m.writeHistogram(w, m.inferenceDuration)

	m.writeGauge(w, m.activeSessions)
	m.writeGauge(w, m.registryInfers)
	m.writeGauge(w, m.registryLatency)
	m.writeGauge(w, m.registryUptime)
	m.writeGauge(w, m.goroutines)
	m.writeGauge(w, m.memoryAlloc)
}

func sortedKeys(values *sync.Map) []string {
	var keys []string
	values.Range(func(key, _ interface{}) bool {
		keys = append(keys, key.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}

func (m *MetricsCollector) writeCounter(w io.Writer, c *Counter) {
	fmt.Fprintf(w, "# HELP %s %s\n", c.name, c.help)
	fmt.Fprintf(w, "# TYPE %s counter\n", c.name)

	for _, key := range sortedKeys(&c.values) {
		val, _ := c.values.Load(key)
		if ptr, ok := val.(*uint64); ok {
			fmt.Fprintf(w, "%s%s %d\n", c.name, key, atomic.LoadUint64(ptr))
		}
	}
	fmt.Fprintln(w)
}

// withLe appends an le label to an existing label set.
func withLe(key, le string) string {
	if key == "" {
		return fmt.Sprintf("{le=\"%s\"}", le)
	}
	return key[:len(key)-1] + fmt.Sprintf(",le=\"%s\"}", le)
}

func (m *MetricsCollector) writeHistogram(w io.Writer, h *Histogram) {
	fmt.Fprintf(w, "# HELP %s %s\n", h.name, h.help)
	fmt.Fprintf(w, "# TYPE %s histogram\n", h.name)

	for _, key := range sortedKeys(&h.values) {
		val, _ := h.values.Load(key)
		hv, ok := val.(*histogramValue)
		if !ok {
			continue
		}
		hv.mu.Lock()
		cumulative := uint64(0)
		for i, bucket := range h.buckets {
			cumulative += hv.buckets[i]
			fmt.Fprintf(w, "%s_bucket%s %d\n", h.name, withLe(key, strconv.FormatFloat(bucket, 'f', -1, 64)), cumulative)
		}
		cumulative += hv.buckets[len(h.buckets)]
		fmt.Fprintf(w, "%s_bucket%s %d\n", h.name, withLe(key, "+Inf"), cumulative)
		fmt.Fprintf(w, "%s_sum%s %.6f\n", h.name, key, hv.sum)
		fmt.Fprintf(w, "%s_count%s %d\n", h.name, key, hv.count)
		hv.mu.Unlock()
	}
	fmt.Fprintln(w)
}

func (m *MetricsCollector) writeGauge(w io.Writer, g *Gauge) {
	fmt.Fprintf(w, "# HELP %s %s\n", g.name, g.help)
	fmt.Fprintf(w, "# TYPE %s gauge\n", g.name)

	for _, key := range sortedKeys(&g.values) {
		val, _ := g.values.Load(key)
		if ptr, ok := val.(*float64); ok {
			fmt.Fprintf(w, "%s%s %g\n", g.name, key, *ptr)
		}
	}
	fmt.Fprintln(w)
}

// Counter methods
func (c *Counter) Inc(labelValues ...string) {
	c.Add(1, labelValues...)
}

func (c *Counter) Add(delta uint64, labelValues ...string) {
	key := labelsToKey(c.labels, labelValues)
	val, _ := c.values.LoadOrStore(key, new(uint64))
	atomic.AddUint64(val.(*uint64), delta)
}

// Histogram methods
func (h *Histogram) Observe(value float64, labelValues ...string) {
	key := labelsToKey(h.labels, labelValues)

	val, _ := h.values.LoadOrStore(key, &histogramValue{
		buckets: make([]uint64, len(h.buckets)+1), // +1 for +Inf
	})
	hv := val.(*histogramValue)

	hv.mu.Lock()
	defer hv.mu.Unlock()

	hv.sum += value
	hv.count++

	bucketIdx := len(h.buckets) // +Inf
	for i, bound := range h.buckets {
		if value <= bound {
			bucketIdx = i
			break
		}
	}
	hv.buckets[bucketIdx]++
}

// Gauge methods
func (g *Gauge) Set(value float64, labelValues ...string) {
	key := labelsToKey(g.labels, labelValues)
	ptr := new(float64)
	*ptr = value
	g.values.Store(key, ptr)
}

func labelsToKey(labels, values []string) string {
	if len(labels) == 0 || len(values) == 0 {
		return ""
	}

	pairs := make([]string, 0, len(labels))
	for i, label := range labels {
		if i < len(values) {
			pairs = append(pairs, fmt.Sprintf("%s=\"%s\"", label, escapeLabel(values[i])))
		}
	}
	return "{" + strings.Join(pairs, ",") + "}"
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func escapeLabel(v string) string {
	return labelEscaper.Replace(v)
}

// handleMetrics handles the /metrics endpoint
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	s.metrics.SetRegistryStats(s.registry.Stats())
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	s.metrics.WritePrometheus(w)
}
