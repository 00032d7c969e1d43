package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Task results used as the "result" label.
const (
	resultOK       = "ok"
	resultError    = "error"
	resultCanceled = "canceled"
	resultPanic    = "panic"
)

var (
	runningCrawls = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sitemapper_scheduler_running_crawls",
		Help: "Number of site crawls currently running.",
	})

	startedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sitemapper_scheduler_started_total",
		Help: "Site crawls started by the scheduler.",
	})

	finishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitemapper_scheduler_finished_total",
			Help: "Site crawls finished, by result.",
		},
		[]string{"result"},
	)
)
