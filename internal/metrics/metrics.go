package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "talent_match"

// Registry holds every engine collector plus the Go and process collectors.
var Registry = prometheus.NewRegistry()

var (
	pairs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pairs_total",
		Help:      "Job/candidate pairs by scoring status.",
	}, []string{"status"})

	resultCache = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "result_cache_lookups_total",
		Help:      "Match result cache lookups by result.",
	}, []string{"result"})

	embeddingCalls = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "embedding_calls_total",
		Help:      "Backend embedding calls.",
	})

	embeddingErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "embedding_errors_total",
		Help:      "Backend embedding calls that failed.",
	})

	outcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outcomes_total",
		Help:      "Match outcomes by handling status.",
	}, []string{"status"})
)

const (
	PairScored   = "scored"
	PairInvalid  = "invalid"
	PairTimedOut = "timed_out"
	PairFailed   = "failed"
	PairDegraded = "degraded"

	OutcomeEnqueued    = "enqueued"
	OutcomeDropped     = "dropped"
	OutcomeWritten     = "written"
	OutcomeWriteFailed = "write_failed"
)

func init() {
	Registry.MustRegister(
		pairs, resultCache, embeddingCalls, embeddingErrors, outcomes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// expose every series at zero before the first increment
	for _, s := range []string{PairScored, PairInvalid, PairTimedOut, PairFailed, PairDegraded} {
		pairs.WithLabelValues(s)
	}
	resultCache.WithLabelValues("hit")
	resultCache.WithLabelValues("miss")
	for _, s := range []string{OutcomeEnqueued, OutcomeDropped, OutcomeWritten, OutcomeWriteFailed} {
		outcomes.WithLabelValues(s)
	}
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

func IncrPairsScored()       { pairs.WithLabelValues(PairScored).Inc() }
func IncrPairsInvalid()      { pairs.WithLabelValues(PairInvalid).Inc() }
func IncrPairsTimedOut()     { pairs.WithLabelValues(PairTimedOut).Inc() }
func IncrPairsFailed()       { pairs.WithLabelValues(PairFailed).Inc() }
func IncrPairsDegraded()     { pairs.WithLabelValues(PairDegraded).Inc() }
func IncrResultCacheHit()    { resultCache.WithLabelValues("hit").Inc() }
func IncrResultCacheMiss()   { resultCache.WithLabelValues("miss").Inc() }
func IncrEmbeddingCalls()    { embeddingCalls.Inc() }
func IncrEmbeddingErrors()   { embeddingErrors.Inc() }
func IncrOutcomesEnqueued()  { outcomes.WithLabelValues(OutcomeEnqueued).Inc() }
func IncrOutcomesDropped()   { outcomes.WithLabelValues(OutcomeDropped).Inc() }
func IncrOutcomesWritten()   { outcomes.WithLabelValues(OutcomeWritten).Inc() }
func IncrOutcomeWriteFails() { outcomes.WithLabelValues(OutcomeWriteFailed).Inc() }
