// Package metrics publishes run metrics of the notifier to a Prometheus
// Pushgateway. Each invocation is a batch job, so every run pushes a fresh
// registry that replaces the previous group.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/tatamiya/aws-cost-notification/internal/domain/repository"
)

const (
	namespace = "cost_notifier"
	jobName   = "cost_notifier"
)

// PushgatewayMetrics implementa o MetricsRepository sobre um Pushgateway.
type PushgatewayMetrics struct {
	url      string
	timezone string
	client   *http.Client
}

// NopMetrics descarta as métricas. Used when no Pushgateway is configured.
type NopMetrics struct{}

func (NopMetrics) Record(context.Context, repository.RunRecord) error { return nil }

// NewPushgatewayMetrics returns NopMetrics when url is empty.
func NewPushgatewayMetrics(url, timezone string, client *http.Client) repository.MetricsRepository {
	if url == "" {
		return NopMetrics{}
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &PushgatewayMetrics{url: url, timezone: timezone, client: client}
}

// Record pushes the metrics of one finished run.
func (m *PushgatewayMetrics) Record(ctx context.Context, run repository.RunRecord) error {
	reg := collect(run)

	pusher := push.New(m.url, jobName).
		Gatherer(reg).
		Grouping("timezone", m.timezone).
		Client(m.client)

	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

func collect(run repository.RunRecord) *prometheus.Registry {
	reg := prometheus.NewRegistry()

	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last run started",
	})
	duration := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of the last run",
	})
	success := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_success",
		Help:      "1 if the last report was delivered, 0 otherwise",
	})
	retries := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "delivery_retries",
		Help:      "Webhook retries needed by the last run",
	})
	pages := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cost_pages",
		Help:      "Cost API pages read by the last run",
	})
	outcome := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_outcome",
		Help:      "Outcome of the last run, labeled by status and reason",
	}, []string{"status", "reason"})

	reg.MustRegister(lastRun, duration, success, retries, pages, outcome)

	lastRun.Set(float64(run.Started.Unix()))
	duration.Set(run.Duration.Seconds())
	retries.Set(float64(run.Outcome.Retries))
	pages.Set(float64(run.Pages))
	if run.Outcome.Succeeded() {
		success.Set(1)
	}
	outcome.WithLabelValues(string(run.Outcome.Status), reasonLabel(run.Outcome.Reason)).Set(1)

	if run.Summary != nil {
		total := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "report_total_cost",
			Help:      "Total cost of the last reported period",
		}, []string{"currency"})
		service := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "report_service_cost",
			Help:      "Cost per service of the last reported period",
		}, []string{"service", "currency"})
		reg.MustRegister(total, service)

		total.WithLabelValues(run.Summary.Currency).Set(run.Summary.Total.InexactFloat64())
		for dim, amount := range run.Summary.ByDimension {
			service.WithLabelValues(dim, run.Summary.Currency).Set(amount.InexactFloat64())
		}
	}

	return reg
}

// reasonLabel keeps label cardinality bounded; free-form reasons collapse.
func reasonLabel(reason string) string {
	switch reason {
	case "", "timeout", "configuration", "transient", "permanent", "unknown":
		return reason
	default:
		return "error"
	}
}
