package metrics

import "github.com/prometheus/client_golang/prometheus"

// RAG pipeline Prometheus metrics.
var (
	PipelineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reciperag",
			Name:      "pipeline_requests_total",
			Help:      "Total number of answer pipeline invocations",
		},
		[]string{"model", "mode", "status"},
	)

	PipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reciperag",
			Name:      "pipeline_duration_seconds",
			Help:      "End-to-end answer pipeline duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"model", "mode"},
	)

	GenerationTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reciperag",
			Name:      "generation_tokens_total",
			Help:      "Total generation tokens consumed",
		},
		[]string{"model", "stage", "type"}, // stage: "answer" / "judge"
	)

	GenerationCostTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reciperag",
			Name:      "generation_cost_dollars_total",
			Help:      "Estimated generation spend in dollars",
		},
		[]string{"model"},
	)

	RelevanceVerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reciperag",
			Name:      "relevance_verdicts_total",
			Help:      "Judge verdicts by relevance label",
		},
		[]string{"label"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(PipelineRequestsTotal)
	prometheus.MustRegister(PipelineDuration)
	prometheus.MustRegister(GenerationTokensTotal)
	prometheus.MustRegister(GenerationCostTotal)
	prometheus.MustRegister(RelevanceVerdictsTotal)
	pipelineMetricsRegistered = true
}
