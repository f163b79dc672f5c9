package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal     *prometheus.CounterVec
	votesCastTotal        *prometheus.CounterVec
	broadcastSubscribers  prometheus.Gauge
	broadcastsTotal       prometheus.Counter
	broadcastSendFailures prometheus.Counter
	storeResetsTotal      prometheus.Counter
	registerOnce          sync.Once
)

// Register initializes Prometheus metrics on the default registry.
func Register() {
	registerOnce.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "votetally",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed by the vote API.",
		}, []string{"method", "path", "status"})

		votesCastTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "votetally",
			Name:      "votes_cast_total",
			Help:      "Votes accepted since process start, by option text.",
		}, []string{"option"})

		broadcastSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "votetally",
			Name:      "broadcast_subscribers",
			Help:      "Live-update connections currently registered.",
		})

		broadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "votetally",
			Name:      "broadcasts_total",
			Help:      "Tally snapshots fanned out to subscribers.",
		})

		broadcastSendFailures = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "votetally",
			Name:      "broadcast_send_failures_total",
			Help:      "Snapshot deliveries that failed for a single subscriber.",
		})

		storeResetsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "votetally",
			Name:      "store_resets_total",
			Help:      "Successful store resets.",
		})
	})
}

// IncRequest increments the http_requests_total counter with the given labels.
func IncRequest(method, path string, status int) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

func IncVote(option string) {
	if votesCastTotal == nil {
		return
	}
	votesCastTotal.WithLabelValues(option).Inc()
}

func SetSubscribers(n int) {
	if broadcastSubscribers == nil {
		return
	}
	broadcastSubscribers.Set(float64(n))
}

func IncBroadcast() {
	if broadcastsTotal == nil {
		return
	}
	broadcastsTotal.Inc()
}

func IncBroadcastFailure() {
	if broadcastSendFailures == nil {
		return
	}
	broadcastSendFailures.Inc()
}

func IncReset() {
	if storeResetsTotal == nil {
		return
	}
	storeResetsTotal.Inc()
}
