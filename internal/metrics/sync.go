package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_sync_total",
			Help: "Game catalog sync runs by aggregator and result",
		},
		[]string{"aggregator", "result"},
	)

	syncGames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_sync_games_total",
			Help: "Games touched by catalog sync, created vs updated",
		},
		[]string{"aggregator", "kind"},
	)

	syncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "game_sync_duration_ms",
			Help:    "Catalog sync duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(50, 2, 10),
		},
		[]string{"aggregator"},
	)
)

// RecordSync 记录一次目录同步：成功与否、创建/更新条数、耗时
func RecordSync(aggregator string, created, updated int, err error, started time.Time) {
	res := "success"
	if err != nil {
		res = "fail"
	}
	syncTotal.WithLabelValues(aggregator, res).Inc()
	syncGames.WithLabelValues(aggregator, "created").Add(float64(created))
	syncGames.WithLabelValues(aggregator, "updated").Add(float64(updated))
	syncDuration.WithLabelValues(aggregator).Observe(float64(time.Since(started).Milliseconds()))
}
