package service

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/niabis/backend/internal/domain"
)

var (
	sessionsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "niabis_sessions_open",
			Help: "Number of editing sessions currently open.",
		})

	sessionsEndedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "niabis_sessions_ended_total",
			Help: "Closed editing sessions by outcome: confirmed, discarded or kept.",
		}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(sessionsOpen, sessionsEndedTotal)
}

// outcome classifies how a closed session left its record.
func outcome(snap Snapshot) string {
	switch {
	case snap.State == domain.StateDeleted:
		return "discarded"
	case snap.IsNew:
		return "confirmed"
	default:
		return "kept"
	}
}

// SessionsOpen exposes the open-sessions gauge, for tests.
func SessionsOpen() prometheus.Gauge { return sessionsOpen }

// SessionsEnded exposes the ended-sessions counter for outcome, for tests.
func SessionsEnded(label string) prometheus.Counter {
	return sessionsEndedTotal.WithLabelValues(label)
}
