// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "erp_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// SettlementCalculations counts calculator runs by origin (submit, update, recalc) and outcome.
	SettlementCalculations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "erp_settlement_calculations_total",
		Help: "Settlement calculations by origin and outcome.",
	}, []string{"origin", "outcome"})

	ScopeDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "erp_scope_denials_total",
		Help: "Requests rejected by the access scope resolver.",
	}, []string{"role"})

	RecalculatedSales = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "erp_recalculated_sales_total",
		Help: "Sales processed by recalculation jobs.",
	}, []string{"result"})

	PolicyTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "erp_dealer_policy_transitions_total",
		Help: "Dealer policy status transitions.",
	}, []string{"status"})
)
