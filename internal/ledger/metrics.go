package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "tokensaver"

var (
	lifetimeSessionsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "lifetime", "sessions"),
		"Sessions with at least one recorded compression.",
		nil, nil,
	)
	lifetimeCommandsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "lifetime", "commands"),
		"Accepted compressions across all sessions.",
		nil, nil,
	)
	lifetimeOriginalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "lifetime", "original_bytes"),
		"Bytes of output before compression.",
		nil, nil,
	)
	lifetimeCompressedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "lifetime", "compressed_bytes"),
		"Bytes of output after compression.",
		nil, nil,
	)
	lifetimeSavedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "lifetime", "saved_bytes"),
		"Bytes removed by compression.",
		nil, nil,
	)
	processorSavedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "processor", "saved_bytes"),
		"Bytes removed by each processor.",
		[]string{"processor"}, nil,
	)
	processorCountDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "processor", "compressions"),
		"Accepted compressions by each processor.",
		[]string{"processor"}, nil,
	)
)

const (
	// processorMetricsLimit caps the processors exported per scrape.
	processorMetricsLimit = 50
	collectTimeout        = 5 * time.Second
)

// Collector exports ledger aggregates as Prometheus gauges. Values are read
// from the database on every scrape.
type Collector struct {
	ledger *Ledger
}

// NewCollector returns a collector over l.
func NewCollector(l *Ledger) *Collector {
	return &Collector{ledger: l}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- lifetimeSessionsDesc
	ch <- lifetimeCommandsDesc
	ch <- lifetimeOriginalDesc
	ch <- lifetimeCompressedDesc
	ch <- lifetimeSavedDesc
	ch <- processorSavedDesc
	ch <- processorCountDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	lifetime, err := c.ledger.LifetimeStats(ctx)
	if err != nil {
		ch <- prometheus.NewInvalidMetric(lifetimeSessionsDesc, err)
		return
	}
	ch <- prometheus.MustNewConstMetric(lifetimeSessionsDesc, prometheus.GaugeValue, float64(lifetime.Sessions))
	ch <- prometheus.MustNewConstMetric(lifetimeCommandsDesc, prometheus.GaugeValue, float64(lifetime.Commands))
	ch <- prometheus.MustNewConstMetric(lifetimeOriginalDesc, prometheus.GaugeValue, float64(lifetime.Original))
	ch <- prometheus.MustNewConstMetric(lifetimeCompressedDesc, prometheus.GaugeValue, float64(lifetime.Compressed))
	ch <- prometheus.MustNewConstMetric(lifetimeSavedDesc, prometheus.GaugeValue, float64(lifetime.Saved))

	processors, err := c.ledger.TopProcessors(ctx, processorMetricsLimit)
	if err != nil {
		ch <- prometheus.NewInvalidMetric(processorSavedDesc, err)
		return
	}
	for _, p := range processors {
		ch <- prometheus.MustNewConstMetric(processorSavedDesc, prometheus.GaugeValue, float64(p.Saved), p.Processor)
		ch <- prometheus.MustNewConstMetric(processorCountDesc, prometheus.GaugeValue, float64(p.Count), p.Processor)
	}
}

// WriteTextfile writes the ledger metrics to path in the text exposition
// format, for node_exporter's textfile collector.
func WriteTextfile(ctx context.Context, l *Ledger, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	if err := reg.Register(NewCollector(l)); err != nil {
		return fmt.Errorf("failed to register ledger collector: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
