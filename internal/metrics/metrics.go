// Package metrics exposes prometheus instrumentation for the decision loop.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ObservationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "observations_total", Help: "Market observations assembled per pair"},
		[]string{"pair"},
	)
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "decisions_total", Help: "Engine decisions by action"},
		[]string{"pair", "action"},
	)
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trades_total", Help: "Trade attempts by result"},
		[]string{"pair", "result"},
	)
	PositionSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "position_size", Help: "Current signed position size per pair"},
		[]string{"pair"},
	)
	CyclesSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cycles_skipped_total", Help: "Cycles skipped because the previous one was still in flight"},
		[]string{"pair"},
	)
)

func init() {
	prometheus.MustRegister(ObservationsTotal, DecisionsTotal, TradesTotal, PositionSize, CyclesSkipped)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
