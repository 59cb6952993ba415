package observability

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// family holds the samples of one counter or gauge, keyed by the rendered
// label set. Unlabelled families always expose a sample, starting at 0.
type family struct {
	name   string
	help   string
	kind   string
	labels []string

	mu      sync.Mutex
	samples map[string]float64
}

func newFamily(name, help, kind string, labels []string) *family {
	f := &family{name: name, help: help, kind: kind, labels: labels, samples: map[string]float64{}}
	if len(labels) == 0 {
		f.samples[""] = 0
	}
	return f
}

func (f *family) update(values []string, fn func(float64) float64) {
	key := labelString(f.labels, values)
	f.mu.Lock()
	f.samples[key] = fn(f.samples[key])
	f.mu.Unlock()
}

func (f *family) writeTo(w *bufio.Writer) {
	writeHeader(w, f.name, f.help, f.kind)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range sortedKeys(f.samples) {
		fmt.Fprintf(w, "%s%s %f\n", f.name, k, f.samples[k])
	}
}

func writeHeader(w *bufio.Writer, name, help, kind string) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
}

func flush(w io.Writer, write func(*bufio.Writer)) error {
	bw := bufio.NewWriter(w)
	write(bw)
	return bw.Flush()
}

type CounterVec struct{ f *family }

func NewCounterVec(name, help string, labels []string) *CounterVec {
	return &CounterVec{f: newFamily(name, help, "counter", labels)}
}

func (c *CounterVec) Inc(values ...string) { c.Add(1, values...) }

func (c *CounterVec) Add(v float64, values ...string) {
	if c == nil || v < 0 {
		return
	}
	c.f.update(values, func(cur float64) float64 { return cur + v })
}

func (c *CounterVec) WritePrometheus(w io.Writer) error {
	if c == nil {
		return nil
	}
	return flush(w, c.f.writeTo)
}

type Counter struct{ CounterVec }

func NewCounter(name, help string) *Counter {
	return &Counter{CounterVec{f: newFamily(name, help, "counter", nil)}}
}

func (c *Counter) Inc() {
	if c == nil {
		return
	}
	c.CounterVec.Inc()
}

func (c *Counter) WritePrometheus(w io.Writer) error {
	if c == nil {
		return nil
	}
	return c.CounterVec.WritePrometheus(w)
}

type GaugeVec struct{ f *family }

func NewGaugeVec(name, help string, labels []string) *GaugeVec {
	return &GaugeVec{f: newFamily(name, help, "gauge", labels)}
}

func (g *GaugeVec) Set(v float64, values ...string) {
	if g == nil {
		return
	}
	g.f.update(values, func(float64) float64 { return v })
}

func (g *GaugeVec) WritePrometheus(w io.Writer) error {
	if g == nil {
		return nil
	}
	return flush(w, g.f.writeTo)
}

type Gauge struct{ GaugeVec }

func NewGauge(name, help string) *Gauge {
	return &Gauge{GaugeVec{f: newFamily(name, help, "gauge", nil)}}
}

func (g *Gauge) Set(v float64) {
	if g == nil {
		return
	}
	g.GaugeVec.Set(v)
}

func (g *Gauge) Inc() { g.add(1) }
func (g *Gauge) Dec() { g.add(-1) }

func (g *Gauge) add(d float64) {
	if g == nil {
		return
	}
	g.f.update(nil, func(cur float64) float64 { return cur + d })
}

func (g *Gauge) WritePrometheus(w io.Writer) error {
	if g == nil {
		return nil
	}
	return g.GaugeVec.WritePrometheus(w)
}

// HistogramVec keeps cumulative bucket counts per label set; the last count
// is the +Inf bucket.
type HistogramVec struct {
	name    string
	help    string
	labels  []string
	bounds  []float64
	mu      sync.Mutex
	buckets map[string]*histogram
}

type histogram struct {
	counts []uint64
	sum    float64
}

func NewHistogramVec(name, help string, labels []string, bounds []float64) *HistogramVec {
	return &HistogramVec{name: name, help: help, labels: labels, bounds: bounds, buckets: map[string]*histogram{}}
}

func (h *HistogramVec) Observe(v float64, values ...string) {
	if h == nil {
		return
	}
	key := labelString(h.labels, values)
	h.mu.Lock()
	defer h.mu.Unlock()
	hist, ok := h.buckets[key]
	if !ok {
		hist = &histogram{counts: make([]uint64, len(h.bounds)+1)}
		h.buckets[key] = hist
	}
	hist.sum += v
	i := sort.SearchFloat64s(h.bounds, v)
	for ; i < len(hist.counts); i++ {
		hist.counts[i]++
	}
}

func (h *HistogramVec) WritePrometheus(w io.Writer) error {
	if h == nil {
		return nil
	}
	return flush(w, func(bw *bufio.Writer) {
		writeHeader(bw, h.name, h.help, "histogram")
		h.mu.Lock()
		defer h.mu.Unlock()
		for _, key := range sortedKeys(h.buckets) {
			hist := h.buckets[key]
			for i, count := range hist.counts {
				le := "+Inf"
				if i < len(h.bounds) {
					le = strconv.FormatFloat(h.bounds[i], 'g', -1, 64)
				}
				fmt.Fprintf(bw, "%s_bucket%s %d\n", h.name, withLe(key, le), count)
			}
			fmt.Fprintf(bw, "%s_sum%s %f\n", h.name, key, hist.sum)
			fmt.Fprintf(bw, "%s_count%s %d\n", h.name, key, hist.counts[len(hist.counts)-1])
		}
	})
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func labelString(names []string, values []string) string {
	if len(names) == 0 {
		return ""
	}
	pairs := make([]string, len(names))
	for i, name := range names {
		val := "unknown"
		if i < len(values) {
			val = values[i]
		}
		pairs[i] = name + `="` + labelEscaper.Replace(val) + `"`
	}
	return "{" + strings.Join(pairs, ",") + "}"
}

func withLe(labels string, le string) string {
	if labels == "" {
		return `{le="` + le + `"}`
	}
	return strings.TrimSuffix(labels, "}") + `,le="` + le + `"}`
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
