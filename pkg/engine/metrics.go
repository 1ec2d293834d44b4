package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// questionsTotal counts processed questions by source and outcome.
	questionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anna_questions_total",
		Help: "Questions processed by source and outcome",
	}, []string{"source", "outcome"})

	// questionDuration tracks end-to-end latency.
	questionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "anna_question_duration_seconds",
		Help:    "End-to-end question processing time",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"source"})

	// loopIterations tracks iterations used per looped question.
	loopIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "anna_loop_iterations",
		Help:    "Verification iterations used per question",
		Buckets: []float64{1, 2, 3, 4, 5, 8},
	})

	// probeExecutions counts probe runs by id and status.
	probeExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anna_probe_executions_total",
		Help: "Probe executions by probe id and status",
	}, []string{"probe", "status"})

	// probesRejected counts model-requested ids that are not in the catalog.
	probesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anna_probes_rejected_total",
		Help: "Requested probe ids dropped because they are not in the catalog",
	}, []string{"requested_by"})

	// llmCalls counts model calls by role and result.
	llmCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anna_llm_calls_total",
		Help: "Model calls by role and result",
	}, []string{"role", "result"})

	// verdicts counts senior verdicts.
	verdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anna_verdicts_total",
		Help: "Senior verdicts",
	}, []string{"verdict"})
)
