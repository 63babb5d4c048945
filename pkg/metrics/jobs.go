package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics records outcomes for queued job processing.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	retried  *prometheus.CounterVec
}

// NewJobMetrics registers the job metrics on the provided registerer.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Duration of queued jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"queue"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_success",
		Help: "Successfully completed jobs.",
	}, []string{"queue"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_failure",
		Help: "Permanently failed jobs.",
	}, []string{"queue"})
	retried := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_retried",
		Help: "Job attempts rescheduled for retry.",
	}, []string{"queue"})
	reg.MustRegister(duration, success, failure, retried)
	return &JobMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		retried:  retried,
	}
}

// ObserveDuration records the processing duration for the named queue.
func (j *JobMetrics) ObserveDuration(queue string, duration time.Duration) {
	if j == nil || j.duration == nil {
		return
	}
	j.duration.WithLabelValues(normalizeLabel(queue)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named queue.
func (j *JobMetrics) IncSuccess(queue string) {
	if j == nil || j.success == nil {
		return
	}
	j.success.WithLabelValues(normalizeLabel(queue)).Inc()
}

// IncFailure increments the permanent failure counter for the named queue.
func (j *JobMetrics) IncFailure(queue string) {
	if j == nil || j.failure == nil {
		return
	}
	j.failure.WithLabelValues(normalizeLabel(queue)).Inc()
}

// IncRetried increments the retry counter for the named queue.
func (j *JobMetrics) IncRetried(queue string) {
	if j == nil || j.retried == nil {
		return
	}
	j.retried.WithLabelValues(normalizeLabel(queue)).Inc()
}

func normalizeLabel(queue string) string {
	if queue == "" {
		return "unknown"
	}
	return queue
}
