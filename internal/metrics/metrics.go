// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Calculation outcomes
const (
	OutcomeOK               = "ok"
	OutcomeInvalid          = "invalid"
	OutcomeLocationNotFound = "location_not_found"
	OutcomeError            = "error"
)

// LabelUnknown replaces label values outside their known set
const LabelUnknown = "unknown"

var (
	Calculations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carbot_calculations_total",
		Help: "Landed-cost calculations by mode, auction and outcome.",
	}, []string{"mode", "auction", "outcome"})

	TariffEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "carbot_tariff_entries",
		Help: "Tariff entries in the active table by auction.",
	}, []string{"auction"})

	TariffRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carbot_tariff_refresh_total",
		Help: "Tariff refresh attempts by resulting status.",
	}, []string{"status"})

	AdNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carbot_ads_notifications_total",
		Help: "AutoRIA ad notifications sent by level.",
	}, []string{"level"})
)

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
