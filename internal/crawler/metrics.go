package crawler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitemapper_crawler_pages_total",
			Help: "Pages handled by site crawlers, by final page status.",
		},
		[]string{"status"},
	)

	crawlsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitemapper_crawler_crawls_total",
			Help: "Finished site crawls, by final site status.",
		},
		[]string{"status"},
	)

	snapshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitemapper_crawler_snapshots_total",
			Help: "Snapshot writes to the repository.",
		},
		[]string{"result"},
	)

	fetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sitemapper_crawler_fetch_duration_seconds",
			Help:    "Duration of page fetches.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)
)
