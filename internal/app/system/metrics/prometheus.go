package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultNamespace = "seatplan"
	subsystem        = "allocation"
)

// Prometheus implements Collector using Prometheus client metrics.
//
// Metrics are registered lazily on first use, once per collector.
type Prometheus struct {
	*Nop

	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	previews        prometheus.Counter
	previewPlaced   prometheus.Counter
	previewUnplaced prometheus.Counter
	previewDuration prometheus.Histogram

	commits        *prometheus.CounterVec
	commitDuration *prometheus.HistogramVec
	seatsWritten   *prometheus.CounterVec

	lockWait *prometheus.HistogramVec
}

// Compile-time assertion that Prometheus implements Collector.
var _ Collector = (*Prometheus)(nil)

// NewPrometheus creates a Prometheus-backed collector.
//
// Parameters:
//   - reg: Registerer for the metrics; nil uses prometheus.DefaultRegisterer
//   - namespace: metric namespace; empty uses "seatplan"
//
// Returns:
//   - *Prometheus: collector ready for use
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = defaultNamespace
	}
	p := &Prometheus{
		Nop:       NewNop(),
		reg:       reg,
		namespace: namespace,
	}
	p.ensureRegistered()
	return p
}

func (p *Prometheus) ensureRegistered() {
	p.once.Do(func() {
		p.previews = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: subsystem,
			Name:      "previews_total",
			Help:      "Number of matcher runs over a company pool",
		})
		p.previewPlaced = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: subsystem,
			Name:      "preview_placed_total",
			Help:      "Members seated by previews",
		})
		p.previewUnplaced = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: subsystem,
			Name:      "preview_unplaced_total",
			Help:      "Members left unplaced by previews",
		})
		p.previewDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: subsystem,
			Name:      "preview_duration_seconds",
			Help:      "Time to load a company snapshot and run the matcher",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		})

		p.commits = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: subsystem,
			Name:      "commits_total",
			Help:      "Commits by kind and result",
		}, []string{"kind", "result"})
		p.commitDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: subsystem,
			Name:      "commit_duration_seconds",
			Help:      "Commit latency by kind",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"kind"})
		p.seatsWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: subsystem,
			Name:      "seats_written_total",
			Help:      "Assignments created by commits",
		}, []string{"kind"})

		p.lockWait = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: subsystem,
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for the company commit lock",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"acquired"})

		p.reg.MustRegister(p.previews)
		p.reg.MustRegister(p.previewPlaced)
		p.reg.MustRegister(p.previewUnplaced)
		p.reg.MustRegister(p.previewDuration)
		p.reg.MustRegister(p.commits)
		p.reg.MustRegister(p.commitDuration)
		p.reg.MustRegister(p.seatsWritten)
		p.reg.MustRegister(p.lockWait)
	})
}

// RecordPreview records one matcher run.
func (p *Prometheus) RecordPreview(placed, unplaced int, duration time.Duration) {
	p.previews.Inc()
	p.previewPlaced.Add(float64(placed))
	p.previewUnplaced.Add(float64(unplaced))
	p.previewDuration.Observe(duration.Seconds())
}

// RecordCommit records a commit outcome and its latency.
func (p *Prometheus) RecordCommit(kind, result string, duration time.Duration) {
	p.commits.WithLabelValues(kind, result).Inc()
	p.commitDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordSeatsWritten adds n created assignments for kind.
func (p *Prometheus) RecordSeatsWritten(kind string, n int) {
	if n <= 0 {
		return
	}
	p.seatsWritten.WithLabelValues(kind).Add(float64(n))
}

// RecordLockWait records a lock wait and whether the lock was obtained.
func (p *Prometheus) RecordLockWait(duration time.Duration, acquired bool) {
	p.lockWait.WithLabelValues(strconv.FormatBool(acquired)).Observe(duration.Seconds())
}
