package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tuneloop_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tuneloop_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	TuningRunsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tuneloop_tuning_runs_active",
		Help: "Number of tuning loops currently running",
	})

	TuningRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tuneloop_tuning_runs_total",
		Help: "Tuning runs by terminal status",
	}, []string{"status"})

	TuningIterationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tuneloop_tuning_iterations_total",
		Help: "Total tuning iterations executed",
	})

	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tuneloop_evaluations_total",
		Help: "Scenario evaluations by terminal status",
	}, []string{"status"})

	EvaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tuneloop_evaluation_duration_seconds",
		Help:    "Simulate-then-judge pipeline duration",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
	})

	LLMRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tuneloop_llm_requests_total",
		Help: "Total LLM requests",
	}, []string{"model", "status"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tuneloop_llm_request_duration_seconds",
		Help:    "LLM request duration",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"model"})
)
