package observability

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/idmap-backend/internal/platform/envutil"
	"github.com/yungbote/idmap-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	apiReqTotal *Counter
	apiReqError *Counter

	claimsRecorded     *CounterVec
	identifiersCreated *CounterVec
	authRejected       *Counter
	claimEvents        *CounterVec
	resolutionClaims   *HistogramVec
	resolutionLatency  *HistogramVec

	dbStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	n := envutil.Int("METRICS_SCRAPE_INTERVAL_SECONDS", 10)
	if n <= 0 {
		n = 10
	}
	return time.Duration(n) * time.Second
}

// Init builds the process-wide registry when METRICS_ENABLED is set and
// returns nil otherwise. Every method is safe on a nil *Metrics.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("idmap_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"idmap_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		apiInflight: NewGauge("idmap_api_inflight_requests", "In-flight API requests."),
		apiReqTotal: NewCounter("idmap_api_requests_total_all", "Total API requests (all)."),
		apiReqError: NewCounter("idmap_api_requests_error_total", "API requests answered with a 5xx status."),

		claimsRecorded:     NewCounterVec("idmap_claims_recorded_total", "Equivalence claims appended, by deprecation flag.", []string{"deprecated"}),
		identifiersCreated: NewCounterVec("idmap_identifiers_created_total", "Identifiers created on first reference, by scheme.", []string{"scheme_id"}),
		authRejected:       NewCounter("idmap_auth_rejected_total", "Write requests rejected for a missing or unknown API key."),
		claimEvents:        NewCounterVec("idmap_claim_events_published_total", "Claim events handed to the bus, by outcome.", []string{"status"}),
		resolutionClaims: NewHistogramVec(
			"idmap_resolution_claims",
			"Claims folded per resolution, by kind (identifier|scheme).",
			[]string{"kind"},
			[]float64{0, 1, 2, 5, 10, 25, 50, 100, 500, 1000, 10000},
		),
		resolutionLatency: NewHistogramVec(
			"idmap_resolution_duration_seconds",
			"Resolution latency including the history query, by kind.",
			[]string{"kind"},
			[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
		),

		dbStats:   NewGaugeVec("idmap_db_pool", "database/sql pool statistics.", []string{"stat"}),
		redisUp:   NewGauge("idmap_redis_up", "Redis reachable (1) or not (0)."),
		redisPing: NewGauge("idmap_redis_ping_seconds", "Latest Redis ping latency."),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, p := range []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiReqTotal, m.apiReqError,
		m.claimsRecorded, m.identifiersCreated, m.authRejected, m.claimEvents,
		m.resolutionClaims, m.resolutionLatency,
		m.dbStats, m.redisUp, m.redisPing,
	} {
		if err := p.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	m.apiReqTotal.Inc()
	if isServerErrorStatus(status) {
		m.apiReqError.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) IncClaimRecorded(deprecated bool) {
	if m == nil {
		return
	}
	m.claimsRecorded.Inc(strconv.FormatBool(deprecated))
}

func (m *Metrics) IncIdentifierCreated(schemeID uint) {
	if m == nil {
		return
	}
	m.identifiersCreated.Inc(strconv.FormatUint(uint64(schemeID), 10))
}

func (m *Metrics) IncAuthRejected() {
	if m == nil {
		return
	}
	m.authRejected.Inc()
}

func (m *Metrics) IncClaimEvent(status string) {
	if m == nil {
		return
	}
	if status == "" {
		status = "unknown"
	}
	m.claimEvents.Inc(status)
}

func (m *Metrics) ObserveResolution(kind string, claims int, dur time.Duration) {
	if m == nil {
		return
	}
	m.resolutionClaims.Observe(float64(claims), kind)
	m.resolutionLatency.Observe(dur.Seconds(), kind)
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
				m.dbStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	interval := scrapeInterval()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = rdb.Close()
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

func isServerErrorStatus(status string) bool {
	status = strings.TrimSpace(status)
	if len(status) < 3 {
		return false
	}
	return status[0] == '5'
}
