// Package metrics exposes prometheus counters for the chat and ingestion paths.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	chatRoundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragchat_chat_rounds_total",
		Help: "Completed chat rounds by outcome.",
	}, []string{"outcome"})

	tokensStreamedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ragchat_tokens_streamed_total",
		Help: "Tokens forwarded to clients.",
	})

	chunksIndexedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragchat_chunks_indexed_total",
		Help: "Chunks inserted into the vector index by source type.",
	}, []string{"source_type"})

	vectorQueriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ragchat_vector_queries_total",
		Help: "Similarity queries issued against the vector index.",
	})
)

// ObserveChatRound records one finished round. outcome is "ok" or "error".
func ObserveChatRound(outcome string) {
	chatRoundsTotal.WithLabelValues(outcome).Inc()
}

// AddTokensStreamed records tokens forwarded to a client.
func AddTokensStreamed(n int) {
	tokensStreamedTotal.Add(float64(n))
}

// AddChunksIndexed records chunks inserted for a source type.
func AddChunksIndexed(sourceType string, n int) {
	chunksIndexedTotal.WithLabelValues(sourceType).Add(float64(n))
}

// IncVectorQueries records one similarity query.
func IncVectorQueries() {
	vectorQueriesTotal.Inc()
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
