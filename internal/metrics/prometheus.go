package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	SessionsInitializedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flow_sessions_initialized_total",
		Help: "Total number of flow sessions initialized.",
	})
	SubmitsAppliedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flow_submits_applied_total",
		Help: "Total number of step transitions applied.",
	})
	SubmitsReplayedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flow_submits_replayed_total",
		Help: "Total number of submits answered from the idempotency log.",
	})
	SessionsExpiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flow_sessions_expired_total",
		Help: "Total number of flow sessions cleared by TTL expiry.",
	})
	SessionsCancelledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flow_sessions_cancelled_total",
		Help: "Total number of flow sessions cancelled explicitly.",
	})
	ActiveSessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flow_active_sessions",
		Help: "Number of currently live flow sessions.",
	})
)

// Register registers the flow metrics with the given registerer.
// It should be called once at application startup.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		SessionsInitializedTotal,
		SubmitsAppliedTotal,
		SubmitsReplayedTotal,
		SessionsExpiredTotal,
		SessionsCancelledTotal,
		ActiveSessionsGauge,
	)
	log.Info().Msg("Flow metrics registered.")
}
