package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestionsTotal counts ingest calls by status (ok / failed)
	IngestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdfrag_ingestions_total",
			Help: "Number of documents ingested",
		},
		[]string{"status"},
	)

	ChunksIndexed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pdfrag_chunks_indexed_total",
			Help: "Number of chunks appended to the vector store",
		},
	)

	// QueriesTotal counts answer calls by status (ok / failed)
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdfrag_queries_total",
			Help: "Number of answered queries",
		},
		[]string{"status"},
	)

	RetrievedChunks = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pdfrag_retrieved_chunks",
			Help:    "Chunks retrieved per query",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	AnswerDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pdfrag_answer_duration_seconds",
			Help:    "Time spent answering a query, retrieval and generation included",
			Buckets: prometheus.DefBuckets,
		},
	)

	// HTTPRequestsTotal is recorded by the gin middleware
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdfrag_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"method", "path", "status"},
	)
)
