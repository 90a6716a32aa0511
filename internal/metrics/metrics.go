// Package metrics counts what a run did on chain and pushes the result to a
// Prometheus Pushgateway when the process exits.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/alanyoungcy/ammseed/internal/domain"
)

// Metrics holds the collectors of one run on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	Approvals        *prometheus.CounterVec
	ApprovalsSkipped *prometheus.CounterVec
	Deposits         *prometheus.CounterVec
	Deployments      *prometheus.CounterVec
	Failures         *prometheus.CounterVec
	GasUsed          prometheus.Counter
	ConfirmDuration  prometheus.Histogram
	RunDuration      prometheus.Gauge
	RunSuccess       prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Approvals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ammseed_approvals_total",
			Help: "Approval transactions confirmed",
		}, []string{"token", "router"}),
		ApprovalsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ammseed_approvals_skipped_total",
			Help: "Approvals skipped because the allowance already covered the deposit",
		}, []string{"token", "router"}),
		Deposits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ammseed_deposits_total",
			Help: "addLiquidity transactions confirmed",
		}, []string{"router"}),
		Deployments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ammseed_deployments_total",
			Help: "Contracts deployed",
		}, []string{"contract"}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ammseed_failures_total",
			Help: "Failed steps by cause",
		}, []string{"cause"}),
		GasUsed: f.NewCounter(prometheus.CounterOpts{
			Name: "ammseed_gas_used_total",
			Help: "Gas used by confirmed transactions",
		}),
		ConfirmDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "ammseed_confirm_duration_seconds",
			Help:    "Time from submission to confirmation",
			Buckets: []float64{0.5, 1, 2, 5, 10, 15, 30, 60, 120, 300},
		}),
		RunDuration: f.NewGauge(prometheus.GaugeOpts{
			Name: "ammseed_run_duration_seconds",
			Help: "Wall time of the last run",
		}),
		RunSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "ammseed_run_success",
			Help: "1 if the last run completed, 0 if it failed",
		}),
	}
}

// Cause maps an error to a low-cardinality label value.
func Cause(err error) string {
	switch {
	case errors.Is(err, domain.ErrDeadlineExceeded):
		return "deadline"
	case errors.Is(err, domain.ErrTransactionReverted):
		return "reverted"
	case errors.Is(err, domain.ErrAllowanceNotVisible):
		return "allowance_not_visible"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, domain.ErrDecimalsMismatch):
		return "decimals_mismatch"
	case errors.Is(err, domain.ErrSymbolMismatch):
		return "symbol_mismatch"
	case errors.Is(err, domain.ErrConfiguration):
		return "configuration"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "other"
	}
}

// ObserveConfirm records one confirmation latency and its gas.
func (m *Metrics) ObserveConfirm(elapsed time.Duration, gasUsed uint64) {
	m.ConfirmDuration.Observe(elapsed.Seconds())
	m.GasUsed.Add(float64(gasUsed))
}

// FinishRun records the run outcome.
func (m *Metrics) FinishRun(elapsed time.Duration, err error) {
	m.RunDuration.Set(elapsed.Seconds())
	if err != nil {
		m.RunSuccess.Set(0)
		return
	}
	m.RunSuccess.Set(1)
}

// Push sends the registry to the Pushgateway at url under job, grouped by
// signer so concurrent deployers do not overwrite each other.
func (m *Metrics) Push(ctx context.Context, url, job, signer string) error {
	err := push.New(url, job).
		Gatherer(m.Registry).
		Grouping("signer", signer).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("metrics: push to %s: %w", url, err)
	}
	return nil
}
