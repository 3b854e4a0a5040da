package bench

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"log/slog"
	"net/http"
	"pciebench/internal/plan"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promMetricPrefix = "pciebench_"

var pointLabels = []string{"test", "pattern", "cache", "window", "transaction"}

// Metrics exposes the most recent result of every point as Prometheus gauges.
type Metrics struct {
	latency   *prometheus.GaugeVec
	bandwidth *prometheus.GaugeVec
	rate      *prometheus.GaugeVec
	points    *prometheus.CounterVec
}

// NewMetrics creates the gauges and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		latency: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: promMetricPrefix + "latency_nanoseconds",
				Help: "Latency statistics of the last run of each test point",
			},
			append(append([]string{}, pointLabels...), "stat"),
		),
		bandwidth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: promMetricPrefix + "bandwidth_gigabits_per_second",
				Help: "Bandwidth of the last run of each test point",
			},
			pointLabels,
		),
		rate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: promMetricPrefix + "transactions_per_second",
				Help: "Transaction rate of the last run of each test point",
			},
			pointLabels,
		),
		points: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: promMetricPrefix + "points_total",
				Help: "Test points run, by result",
			},
			[]string{"result"},
		),
	}
	for _, c := range []prometheus.Collector{m.latency, m.bandwidth, m.rate, m.points} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func pointLabelValues(p plan.Point) []string {
	req := p.Request
	return []string{
		req.Kind.String(),
		plan.AccessLabel(req.Flags),
		plan.CacheLabel(req.Flags),
		strconv.Itoa(req.WindowBytes),
		strconv.Itoa(req.TransactionBytes),
	}
}

func (m *Metrics) observeLatency(p plan.Point, row LatencyRow) {
	if m == nil {
		return
	}
	labels := pointLabelValues(p)
	for stat, value := range map[string]float64{
		"avg":    row.Nanos.Avg,
		"median": row.Nanos.Median,
		"min":    row.Nanos.Min,
		"max":    row.Nanos.Max,
		"p95":    row.Nanos.P95,
		"p99.9":  row.Nanos.P999,
	} {
		m.latency.WithLabelValues(append(labels, stat)...).Set(value)
	}
	m.points.WithLabelValues("ok").Inc()
}

func (m *Metrics) observeBandwidth(p plan.Point, row BandwidthRow) {
	if m == nil {
		return
	}
	labels := pointLabelValues(p)
	m.bandwidth.WithLabelValues(labels...).Set(row.GigabitsPerSec)
	m.rate.WithLabelValues(labels...).Set(row.TransactionsPerS)
	m.points.WithLabelValues("ok").Inc()
}

func (m *Metrics) observeFailure() {
	if m == nil {
		return
	}
	m.points.WithLabelValues("failed").Inc()
}

// StartPrometheusServer serves the gatherer's metrics on listenAddr at /metrics.
// The returned server is running in its own goroutine.
func StartPrometheusServer(listenAddr string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	slog.Info("Starting Prometheus metrics server", slog.String("address", listenAddr))
	server := &http.Server{
		Addr:              listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 3 * time.Second,
	}
	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Prometheus HTTP server ListenAndServe error", slog.String("error", err.Error()))
		}
	}()
	return server
}
