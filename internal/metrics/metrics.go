package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RoundsPlayed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rps_rounds_total",
			Help: "Rounds played, by session mode and outcome",
		},
		[]string{"mode", "outcome"},
	)
	SessionsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rps_sessions_started_total",
			Help: "Sessions created, by mode",
		},
		[]string{"mode"},
	)
	SessionsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rps_sessions_completed_total",
			Help: "Ten-round sessions acknowledged and reset",
		},
	)
	SessionsSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rps_sessions_swept_total",
			Help: "Idle sessions removed by the sweeper",
		},
	)
	ContractViolations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rps_contract_violations_total",
			Help: "Requests rejected because they broke the move/acknowledge order",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(RoundsPlayed)
	prometheus.MustRegister(SessionsStarted)
	prometheus.MustRegister(SessionsCompleted)
	prometheus.MustRegister(SessionsSwept)
	prometheus.MustRegister(ContractViolations)
}
